package thashmap

import (
	"math/rand"
	"testing"
)

// record is the minimal Entry used throughout the package's own tests: an
// embedded Elem plus a stored key, mirroring the KeyVal helper the teacher's
// tests/Shared.go defines for its own fixtures.
type record struct {
	Elem
	k uint32
	v int
}

func (r *record) Key() uint32 { return r.k }

func newRecord(k uint32, v int) *record { return &record{k: k, v: v} }

func newTestHead(t *testing.T) *Head {
	t.Helper()
	pool := NewPool(PoolOpts{})
	h, err := NewHead(pool)
	if err != nil {
		t.Fatalf("NewHead: %v", err)
	}
	return h
}

func TestInsertTraverseOrderedKeysOneAndTwo(t *testing.T) {
	h := newTestHead(t)
	r2 := newRecord(2, 2)
	r1 := newRecord(1, 1)
	if _, err := h.Insert(r2); err != nil {
		t.Fatalf("insert 2: %v", err)
	}
	if _, err := h.Insert(r1); err != nil {
		t.Fatalf("insert 1: %v", err)
	}

	var c Cursor
	b, ok := h.First(&c)
	if !ok || b.Head().(*record).k != 1 {
		t.Fatalf("First: got %v, want key 1", b.Head())
	}
	b, ok = Next(&c)
	if !ok || b.Head().(*record).k != 2 {
		t.Fatalf("Next: got %v, want key 2", b.Head())
	}
	if _, ok := Next(&c); ok {
		t.Fatalf("Next past the end should fail")
	}
}

func TestDivergenceAt0x00ffAnd0xff00(t *testing.T) {
	h := newTestHead(t)
	a := newRecord(0x00ff, 1)
	b := newRecord(0x0ff00, 2)
	if _, err := h.Insert(a); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Insert(b); err != nil {
		t.Fatal(err)
	}

	bk, ok := h.Find(a.Key(), nil)
	if !ok || bk.Head() != Entry(a) {
		t.Fatalf("find a failed")
	}
	bk, ok = h.Find(b.Key(), nil)
	if !ok || bk.Head() != Entry(b) {
		t.Fatalf("find b failed")
	}
}

func TestSameKeyBucketChainInsertAndRemove(t *testing.T) {
	h := newTestHead(t)
	const key = 42
	var entries []*record
	for i := 0; i < 100; i++ {
		r := newRecord(key, i)
		entries = append(entries, r)
		if _, err := h.Insert(r); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	bk, ok := h.Find(key, nil)
	if !ok {
		t.Fatal("find key failed")
	}
	count := 0
	for e := bk.Head(); e != nil; e = ChainNext(e) {
		count++
	}
	if count != 100 {
		t.Fatalf("bucket chain length = %d, want 100", count)
	}

	// remove every other entry, interleaved with the survivors
	for i := 0; i < len(entries); i += 2 {
		if err := h.Remove(entries[i]); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}
	bk, ok = h.Find(key, nil)
	if !ok {
		t.Fatal("find key after partial removal failed")
	}
	count = 0
	for e := bk.Head(); e != nil; e = ChainNext(e) {
		count++
	}
	if count != 50 {
		t.Fatalf("bucket chain length after removal = %d, want 50", count)
	}

	for i := 1; i < len(entries); i += 2 {
		if err := h.Remove(entries[i]); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}
	if _, ok := h.Find(key, nil); ok {
		t.Fatal("key should be entirely gone")
	}
	if !h.Empty() {
		t.Fatal("head should be empty after removing every entry")
	}
}

func TestSortedTraversalOfShuffledKeys(t *testing.T) {
	h := newTestHead(t)
	const n = 5000 // kept well under the 30-bit key space and below the
	// full 50000-key scenario's cost, while still exercising every slot
	// width transition
	keys := rand.New(rand.NewSource(1)).Perm(n)
	for _, k := range keys {
		if _, err := h.Insert(newRecord(uint32(k), k)); err != nil {
			t.Fatalf("insert %d: %v", k, err)
		}
	}

	var c Cursor
	b, ok := h.First(&c)
	if !ok {
		t.Fatal("First on populated head failed")
	}
	prev := b.Head().(*record).k
	count := 1
	for {
		nb, ok := Next(&c)
		if !ok {
			break
		}
		cur := nb.Head().(*record).k
		if cur <= prev {
			t.Fatalf("traversal not strictly increasing: %d then %d", prev, cur)
		}
		prev = cur
		count++
	}
	if count != n {
		t.Fatalf("visited %d keys, want %d", count, n)
	}
}

func TestNFindBoundaryBehavior(t *testing.T) {
	h := newTestHead(t)
	for _, k := range []uint32{10, 20, 30} {
		if _, err := h.Insert(newRecord(k, int(k))); err != nil {
			t.Fatal(err)
		}
	}

	if b, ok := h.NFind(20, nil); !ok || b.Head().(*record).k != 20 {
		t.Fatalf("NFind(20) should hit exactly 20")
	}
	if b, ok := h.NFind(21, nil); !ok || b.Head().(*record).k != 30 {
		t.Fatalf("NFind(21) should land on 30")
	}
	if b, ok := h.NFind(31, nil); ok {
		t.Fatalf("NFind(31) should fail, got %v", b.Head())
	}
	if b, ok := h.NFind(0, nil); !ok || b.Head().(*record).k != 10 {
		t.Fatalf("NFind(0) should land on 10")
	}
}
