package thashmap

import "github.com/glk/thashmap/internal/bitops"

// Head is one ordered associative map: a root tagged word that always
// references a slot (never an entry, never empty as a reference -- the
// root slot itself can be empty of entries), plus the pool it allocates
// sub-slots from. A Head is not safe for concurrent use: its trie is read
// and written without locking, so each Head belongs to one goroutine at a
// time. Several heads may share one Pool across goroutines, since the pool
// serializes its own page operations (see Pool).
type Head struct {
	pool *Pool
	root word
}

// NewHead allocates a fresh, empty map backed by pool.
func NewHead(pool *Pool) (*Head, error) {
	s, err := pool.allocSlot(1)
	if err != nil {
		return nil, err
	}
	h := &Head{pool: pool}
	h.root.setSlot(s)
	return h, nil
}

// Empty reports whether h has no entries. A max-layout root still has its
// every dense cell tested for occupancy rather than taking a fast path on
// the (unused) presence bitmap, since a max slot carries none.
func (h *Head) Empty() bool {
	s := h.root.slot
	if s.isMax() {
		for _, w := range s.words() {
			if !w.isEmpty() {
				return false
			}
		}
		return true
	}
	return s.present == 0
}

// Destroy releases every slot reachable from h's root back to its pool.
// Entries themselves are left untouched -- ownership of user records was
// never the map's.
func (h *Head) Destroy() {
	h.destroySlot(h.root.slot)
	h.root.clear()
}

func (h *Head) destroySlot(s *slot) {
	ws := s.words()
	if s.isMax() {
		// every one of the 32 dense cells is independently meaningful.
		for i := range ws {
			if ws[i].isSlot() {
				h.destroySlot(ws[i].slot)
			}
		}
	} else {
		// only the packed prefix holds live cells; anything past popcount
		// is allocator headroom and must not be dereferenced as a word.
		count := bitops.PopCount32(s.present)
		for i := 0; i < count; i++ {
			if ws[i].isSlot() {
				h.destroySlot(ws[i].slot)
			}
		}
	}
	h.pool.freeSlotRun(s)
}
