package thashmap

const keyBits = 30
const trieLevels = 6 // 30 bits / 5 bits per level

func maskKey(key uint32) uint32 { return key & (1<<keyBits - 1) }

// subkey extracts the 5-bit group for level (0 = most significant) out of
// a key already masked to 30 bits.
func subkey(key uint32, level int) uint8 {
	shift := uint(keyBits - 5 - level*5)
	return uint8((key >> shift) & 0x1f)
}

// Find looks up key and reports its bucket handle. If cr is non-nil it is
// populated with the traversal path, letting Next/Prev resume from here;
// the cursor remains valid only until the head is next mutated.
func (h *Head) Find(key uint32, cr *Cursor) (*Bucket, bool) {
	mk := maskKey(key)
	var c Cursor
	c.push(&h.root, 0)
	cur := &h.root
	level := 0
	for {
		if cur.isEmpty() {
			if cr != nil {
				*cr = c
			}
			return nil, false
		}
		if cur.isEntry() {
			if cr != nil {
				*cr = c
			}
			if cur.entry.Key() == mk {
				return &Bucket{w: cur}, true
			}
			return nil, false
		}
		k := subkey(mk, level)
		nw := cur.slot.findStep(k)
		if nw == nil {
			if cr != nil {
				*cr = c
			}
			return nil, false
		}
		c.push(nw, k)
		cur = nw
		level++
	}
}

// NFind returns the bucket handle for the least key greater than or equal
// to key.
func (h *Head) NFind(key uint32, cr *Cursor) (*Bucket, bool) {
	mk := maskKey(key)
	var c Cursor
	if b, ok := h.Find(mk, &c); ok {
		if cr != nil {
			*cr = c
		}
		return b, true
	}

	lvl := c.level - 1
	if c.path[lvl].isEntry() {
		if c.path[lvl].entry.Key() > mk {
			if cr != nil {
				*cr = c
			}
			return &Bucket{w: c.path[lvl]}, true
		}
		lvl--
	}

	for ; lvl >= 0; lvl-- {
		parent := c.path[lvl]
		used := subkey(mk, lvl)
		nw, nk, ok := parent.slot.smallestAbove(used)
		if !ok {
			continue
		}
		c.level = lvl + 1
		c.push(nw, nk)
		if nw.isEntry() {
			if cr != nil {
				*cr = c
			}
			return &Bucket{w: nw}, true
		}
		w := descendSmallest(nw, &c)
		if w == nil {
			return nil, false
		}
		if cr != nil {
			*cr = c
		}
		return &Bucket{w: w}, true
	}
	return nil, false
}

// First returns the bucket handle for the smallest key in the map.
func (h *Head) First(cr *Cursor) (*Bucket, bool) {
	var c Cursor
	c.push(&h.root, 0)
	w := descendSmallest(&h.root, &c)
	if cr != nil {
		*cr = c
	}
	if w == nil {
		return nil, false
	}
	return &Bucket{w: w}, true
}

// Last returns the bucket handle for the largest key in the map.
func (h *Head) Last(cr *Cursor) (*Bucket, bool) {
	var c Cursor
	c.push(&h.root, 0)
	w := descendLargest(&h.root, &c)
	if cr != nil {
		*cr = c
	}
	if w == nil {
		return nil, false
	}
	return &Bucket{w: w}, true
}

// Insert installs e under its own key, prepending to any existing bucket
// for that key. Returns the bucket handle for e's key.
func (h *Head) Insert(e Entry) (*Bucket, error) {
	key := maskKey(e.Key())
	cur := &h.root
	level := 0
	for {
		if cur.isEmpty() {
			cur.setEntry(e)
			return &Bucket{w: cur}, nil
		}
		if cur.isEntry() {
			xkey := cur.entry.Key()
			if xkey == key {
				e.link().next = cur.entry
				cur.entry = e
				return &Bucket{w: cur}, nil
			}
			return h.splitLeaf(cur, cur.entry, e, xkey, key, level)
		}
		k := subkey(key, level)
		nw, err := h.pool.insertStep(cur, k)
		if err != nil {
			return nil, err
		}
		cur = nw
		level++
	}
}

// divergeLevel finds the first trie level at or after from where xkey and
// key take different sub-keys. Distinct 30-bit keys always diverge by
// level 5, since six 5-bit groups cover all 30 bits.
func divergeLevel(xkey, key uint32, from int) int {
	for n := from; n < trieLevels; n++ {
		if subkey(xkey, n) != subkey(key, n) {
			return n
		}
	}
	return trieLevels - 1
}

// splitLeaf replaces the entry word cur (holding xentry under xkey) with a
// chain of new single-occupant slots down to the level where xkey and key
// diverge, installing both entries side by side at that final slot.
func (h *Head) splitLeaf(cur *word, xentry, newEntry Entry, xkey, key uint32, level int) (*Bucket, error) {
	n := divergeLevel(xkey, key, level)
	chain := make([]*slot, n-level+1)
	for i := range chain {
		s, err := h.pool.allocSlot(1)
		if err != nil {
			for j := 0; j < i; j++ {
				h.pool.freeSlotRun(chain[j])
			}
			return nil, err
		}
		chain[i] = s
	}

	for i := 0; i < len(chain)-1; i++ {
		shared := subkey(xkey, level+i)
		ws := chain[i].words()
		ws[0].setSlot(chain[i+1])
		chain[i].present = 1 << uint(shared)
	}

	last := chain[len(chain)-1]
	ka, kb := subkey(xkey, n), subkey(key, n)
	loKey, hiKey, loE, hiE := ka, kb, xentry, newEntry
	if ka > kb {
		loKey, hiKey, loE, hiE = kb, ka, newEntry, xentry
	}
	ws := last.words()
	ws[0].setEntry(loE)
	ws[1].setEntry(hiE)
	last.present = (1 << uint(loKey)) | (1 << uint(hiKey))

	cur.setSlot(chain[0])

	if newEntry == loE {
		return &Bucket{w: &ws[0]}, nil
	}
	return &Bucket{w: &ws[1]}, nil
}

// Remove unlinks e from its bucket, shrinking the trie if its bucket
// becomes empty. Returns ErrNotFound if e is not present under its key.
func (h *Head) Remove(e Entry) error {
	key := maskKey(e.Key())
	var c Cursor
	b, ok := h.Find(key, &c)
	if !ok {
		return ErrNotFound
	}
	w := b.w
	if w.entry == e {
		w.entry = e.link().next
		e.link().next = nil
		if w.entry != nil {
			return nil
		}
		w.clear()
		h.collapse(key, &c)
		return nil
	}

	prev := w.entry
	cur := prev.link().next
	for cur != nil {
		if cur == e {
			prev.link().next = cur.link().next
			e.link().next = nil
			return nil
		}
		prev = cur
		cur = cur.link().next
	}
	return ErrNotFound
}

// collapse walks back up c after an entry word has been cleared, excising
// and freeing any ancestor slot that becomes empty as a result. The root
// slot is never freed, even if it ends up empty.
func (h *Head) collapse(key uint32, c *Cursor) {
	lvl := c.level - 2
	if lvl < 0 {
		return
	}
	k := subkey(key, lvl)
	empty := h.pool.removeStep(c.path[lvl], k)
	for {
		if !empty {
			return
		}
		if lvl == 0 {
			return
		}
		childSlot := c.path[lvl].slot
		lvl--
		h.pool.freeSlotRun(childSlot)
		k = subkey(key, lvl)
		empty = h.pool.removeStep(c.path[lvl], k)
	}
}
