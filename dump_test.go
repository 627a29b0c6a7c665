package thashmap

import (
	"bytes"
	"strings"
	"testing"
)

func TestDumpListsEveryEntryKey(t *testing.T) {
	h := newTestHead(t)
	for _, k := range []uint32{1, 2, 33, 64, 900} {
		if _, err := h.Insert(newRecord(k, 0)); err != nil {
			t.Fatalf("insert %d: %v", k, err)
		}
	}

	var buf bytes.Buffer
	Dump(h, &buf)
	out := buf.String()

	for _, k := range []string{"key=1\n", "key=2\n", "key=33\n", "key=64\n", "key=900\n"} {
		if !strings.Contains(out, k) {
			t.Fatalf("dump missing entry %q, got:\n%s", k, out)
		}
	}
	if !strings.Contains(out, "root") {
		t.Fatalf("dump missing root line, got:\n%s", out)
	}
}
