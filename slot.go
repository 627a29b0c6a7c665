package thashmap

import "github.com/glk/thashmap/internal/bitops"

// slot is a variable-width array of up to 32 word cells, reached via a
// tagged word. Non-max slots (slen 1..7) pack their occupied cells
// contiguously in ascending sub-key order behind a 32-bit presence bitmap;
// a max slot (slen == 8) drops the bitmap and indexes all 32 cells densely
// by sub-key, with an empty word standing in for "absent".
type slot struct {
	page    *page
	offset  int // sub-slot index within page, 0..127
	slen    uint8
	present uint32 // valid only when slen < maxSlen
}

func (s *slot) isMax() bool { return s.slen == maxSlen }

func (s *slot) words() []word { return s.page.wordsAt(s.offset, s.slen) }

func belowMask(k uint8) uint32 { return uint32(1)<<uint(k) - 1 }

// findStep returns the word at sub-key k, or nil if absent.
func (s *slot) findStep(k uint8) *word {
	ws := s.words()
	if s.isMax() {
		if ws[k].isEmpty() {
			return nil
		}
		return &ws[k]
	}
	if s.present&(1<<uint(k)) == 0 {
		return nil
	}
	pos := bitops.PopCount32(s.present & belowMask(k))
	return &ws[pos]
}

func (s *slot) smallestPresent() (*word, uint8, bool) {
	ws := s.words()
	if s.isMax() {
		for k := 0; k < 32; k++ {
			if !ws[k].isEmpty() {
				return &ws[k], uint8(k), true
			}
		}
		return nil, 0, false
	}
	if s.present == 0 {
		return nil, 0, false
	}
	k := uint8(bitops.TrailingZeros32(s.present))
	return &ws[0], k, true
}

func (s *slot) largestPresent() (*word, uint8, bool) {
	ws := s.words()
	if s.isMax() {
		for k := 31; k >= 0; k-- {
			if !ws[k].isEmpty() {
				return &ws[k], uint8(k), true
			}
		}
		return nil, 0, false
	}
	if s.present == 0 {
		return nil, 0, false
	}
	k := uint8(31 - bitops.LeadingZeros32(s.present))
	pos := bitops.PopCount32(s.present) - 1
	return &ws[pos], k, true
}

// smallestAbove returns the word at the smallest sub-key strictly greater
// than used, or false if none is present.
func (s *slot) smallestAbove(used uint8) (*word, uint8, bool) {
	ws := s.words()
	if s.isMax() {
		for k := int(used) + 1; k < 32; k++ {
			if !ws[k].isEmpty() {
				return &ws[k], uint8(k), true
			}
		}
		return nil, 0, false
	}
	if used == 31 {
		return nil, 0, false
	}
	mask := s.present &^ belowMask(used + 1)
	if mask == 0 {
		return nil, 0, false
	}
	k := uint8(bitops.TrailingZeros32(mask))
	pos := bitops.PopCount32(s.present & belowMask(k))
	return &ws[pos], k, true
}

// largestBelow returns the word at the largest sub-key strictly less than
// used, or false if none is present.
func (s *slot) largestBelow(used uint8) (*word, uint8, bool) {
	if used == 0 {
		return nil, 0, false
	}
	ws := s.words()
	if s.isMax() {
		for k := int(used) - 1; k >= 0; k-- {
			if !ws[k].isEmpty() {
				return &ws[k], uint8(k), true
			}
		}
		return nil, 0, false
	}
	mask := s.present & belowMask(used)
	if mask == 0 {
		return nil, 0, false
	}
	k := uint8(31 - bitops.LeadingZeros32(mask))
	pos := bitops.PopCount32(s.present & belowMask(k))
	return &ws[pos], k, true
}

// insertStep returns the word to install an entry at sub-key k under
// parent's slot, growing the slot first if inserting would leave it with
// no free cell of headroom.
func (pool *Pool) insertStep(parent *word, k uint8) (*word, error) {
	s := parent.slot
	if s.isMax() {
		ws := s.words()
		return &ws[k], nil
	}
	if s.present&(1<<uint(k)) != 0 {
		pos := bitops.PopCount32(s.present & belowMask(k))
		ws := s.words()
		return &ws[pos], nil
	}

	count := bitops.PopCount32(s.present)
	capacity := int(s.slen) * subSlotWords
	if count >= capacity-1 {
		grown, err := pool.growSlot(parent, s)
		if err != nil {
			return nil, err
		}
		s = grown
		if s.isMax() {
			ws := s.words()
			return &ws[k], nil
		}
	}

	pos := bitops.PopCount32(s.present & belowMask(k))
	ws := s.words()
	copy(ws[pos+1:count+1], ws[pos:count])
	ws[pos].clear()
	s.present |= uint32(1) << uint(k)
	return &ws[pos], nil
}

// removeStep clears the word at sub-key k, compacting the packed array (or
// zeroing in place for a max slot), shrinking the slot if the population
// now comfortably fits a narrower one. Returns whether the slot is now
// empty.
func (pool *Pool) removeStep(parent *word, k uint8) bool {
	s := parent.slot
	if s.isMax() {
		ws := s.words()
		ws[k].clear()
		count := 0
		for i := range ws {
			if !ws[i].isEmpty() {
				count++
			}
		}
		if count == 0 {
			return true
		}
		target := s.slen - 1
		if uint32(count)+3 <= uint32(target)*subSlotWords {
			pool.shrinkSlot(parent, target)
		}
		return false
	}

	count := bitops.PopCount32(s.present)
	pos := bitops.PopCount32(s.present & belowMask(k))
	ws := s.words()
	copy(ws[pos:count-1], ws[pos+1:count])
	ws[count-1].clear()
	s.present &^= uint32(1) << uint(k)
	count--
	if count == 0 {
		return true
	}
	if s.slen > 1 {
		target := s.slen - 1
		if uint32(count)+3 <= uint32(target)*subSlotWords {
			pool.shrinkSlot(parent, target)
		}
	}
	return false
}

// growSlot widens s by one sub-slot, extending in place when the page has
// room immediately after the run, else relocating to a freshly allocated
// slot (hinted at s's own page first). Converts to the dense max layout
// when the new width reaches maxSlen.
func (pool *Pool) growSlot(parent *word, s *slot) (*slot, error) {
	newLen := s.slen + 1

	pool.mu.Lock()
	extended := s.page.extendRunBits(s.offset, s.slen, newLen)
	if extended {
		pool.resyncAfterAllocLocked(s.page)
	}
	pool.mu.Unlock()

	if extended {
		if newLen == maxSlen {
			convertToMaxInPlace(s)
		}
		s.slen = newLen
		parent.slen = newLen
		return s, nil
	}

	ns, err := pool.allocSlotHint(newLen, s.page)
	if err != nil {
		return nil, err
	}
	migrateGrow(s, ns)
	pool.freeSlotRun(s)
	parent.slot = ns
	parent.slen = ns.slen
	return ns, nil
}

func (pool *Pool) shrinkSlot(parent *word, newLen uint8) {
	s := parent.slot
	if s.slen == maxSlen && newLen < maxSlen {
		convertFromMax(s, newLen)
	}
	pool.mu.Lock()
	s.page.shrinkRunBits(s.offset, s.slen, newLen)
	pool.resyncAfterFreeLocked(s.page)
	pool.mu.Unlock()
	s.slen = newLen
	parent.slen = newLen
}

// migrateGrow copies old's packed entries into ns, which has already been
// allocated at a wider width on a possibly different page; ns has no
// aliasing with old so a direct scatter/copy is safe. Every cell of ns not
// written from old is explicitly cleared rather than trusted to already be
// empty, since ns may be a reused run (see page.clearCells).
func migrateGrow(old *slot, ns *slot) {
	oldWs := old.words()
	if ns.slen == maxSlen {
		newWs := ns.words()
		idx := 0
		for k := 0; k < 32; k++ {
			if old.present&(1<<uint(k)) != 0 {
				newWs[k] = oldWs[idx]
				idx++
			} else {
				newWs[k].clear()
			}
		}
		ns.present = 0
		return
	}
	count := bitops.PopCount32(old.present)
	newWs := ns.words()
	copy(newWs[:count], oldWs[:count])
	ns.present = old.present
}

// convertToMaxInPlace rewrites s's packed sparse array into the dense
// by-sub-key layout after an in-place extension reaches maxSlen. A stack
// buffer is required here (unlike migrateGrow) because the new dense view
// aliases the same physical cells as the old packed view.
func convertToMaxInPlace(s *slot) {
	oldWs := s.words() // still the pre-grow (slen-1) packed view
	full := s.page.wordsAt(s.offset, maxSlen)
	var tmp [32]word
	idx := 0
	for k := 0; k < 32; k++ {
		if s.present&(1<<uint(k)) != 0 {
			tmp[k] = oldWs[idx]
			idx++
		}
	}
	for i := range full {
		full[i] = tmp[i]
	}
	s.present = 0
}

// convertFromMax rewrites s's dense by-sub-key layout back into a packed
// sparse array ahead of shrinking below maxSlen.
func convertFromMax(s *slot, newLen uint8) {
	ws := s.words() // still the dense (slen == maxSlen) view
	var present uint32
	var packed [32]word
	n := 0
	for k := 0; k < 32; k++ {
		if !ws[k].isEmpty() {
			packed[n] = ws[k]
			present |= 1 << uint(k)
			n++
		}
	}
	_ = newLen
	for i := range ws {
		ws[i].clear()
	}
	copy(ws[:n], packed[:n])
	s.present = present
}
