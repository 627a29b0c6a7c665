package thashmap

import (
	"fmt"
	"io"
)

// Dump writes a depth-first walk of h's trie to w: one line per tagged word,
// decoding each slot's width through SlenCode the way a reader of the
// original's three-word tag encoding would expect to see it, plus every
// entry's key. Intended for eyeballing a trie's shape (cmd/thmdump), not for
// parsing.
func Dump(h *Head, w io.Writer) {
	dumpWord(w, &h.root, 0, -1)
}

func dumpWord(w io.Writer, wd *word, depth int, subkey int) {
	label := fmt.Sprintf("%d", subkey)
	if subkey < 0 {
		label = "root"
	}
	switch {
	case wd.isEmpty():
		fmt.Fprintf(w, "%*s[%s] empty\n", depth*2, "", label)
	case wd.isEntry():
		fmt.Fprintf(w, "%*s[%s] entry key=%d\n", depth*2, "", label, wd.entry.Key())
	case wd.isSlot():
		s := wd.slot
		bit1, bit0, bit2 := SlenCode(s.slen)
		fmt.Fprintf(w, "%*s[%s] slot slen=%d code=%03b page=%d offset=%d\n",
			depth*2, "", label, s.slen, bitsToCode(bit2, bit1, bit0), s.page.id, s.offset)
		ws := s.words()
		if s.isMax() {
			for k := 0; k < 32; k++ {
				if !ws[k].isEmpty() {
					dumpWord(w, &ws[k], depth+1, k)
				}
			}
			return
		}
		pos := 0
		for k := 0; k < 32; k++ {
			if s.present&(1<<uint(k)) != 0 {
				dumpWord(w, &ws[pos], depth+1, k)
				pos++
			}
		}
	}
}

func bitsToCode(b2, b1, b0 bool) int {
	code := 0
	if b2 {
		code |= 0x4
	}
	if b1 {
		code |= 0x2
	}
	if b0 {
		code |= 0x1
	}
	return code
}
