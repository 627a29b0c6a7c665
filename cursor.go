package thashmap

// Cursor records the path taken by Find, NFind, First or Last, one tagged
// word per trie level plus the root, so Next and Prev can resume traversal
// without re-walking from the root. It mirrors thm_cursor's bounded-depth
// path vector: six trie levels (30 key bits, 5 bits each) plus the root
// slot makes seven entries. A cursor is valid only until the next mutation
// of the head it was produced from.
type Cursor struct {
	path  [7]*word
	keys  [7]uint8 // keys[i] is the sub-key used to reach path[i] from path[i-1]; keys[0] is unused
	level int
}

func (c *Cursor) reset() { c.level = 0 }

func (c *Cursor) push(w *word, k uint8) {
	c.path[c.level] = w
	c.keys[c.level] = k
	c.level++
}

// descendSmallest follows the smallest present sub-key at each level
// starting from start (already pushed by the caller) until an entry word or
// a dead end is reached.
func descendSmallest(start *word, c *Cursor) *word {
	cur := start
	for {
		if cur.isEntry() {
			return cur
		}
		if cur.isEmpty() {
			return nil
		}
		w, k, ok := cur.slot.smallestPresent()
		if !ok {
			return nil
		}
		c.push(w, k)
		cur = w
	}
}

// descendLargest is descendSmallest's mirror, used by Last and Prev.
func descendLargest(start *word, c *Cursor) *word {
	cur := start
	for {
		if cur.isEntry() {
			return cur
		}
		if cur.isEmpty() {
			return nil
		}
		w, k, ok := cur.slot.largestPresent()
		if !ok {
			return nil
		}
		c.push(w, k)
		cur = w
	}
}

// Next advances c to the bucket handle for the next greater key, or returns
// false if c was already at the last key.
func Next(c *Cursor) (*Bucket, bool) {
	for c.level >= 2 {
		lvl := c.level - 2
		parent := c.path[lvl]
		used := c.keys[c.level-1]
		c.level = lvl + 1

		nw, nk, ok := parent.slot.smallestAbove(used)
		if !ok {
			continue
		}
		c.push(nw, nk)
		if nw.isEntry() {
			return &Bucket{w: nw}, true
		}
		w := descendSmallest(nw, c)
		if w == nil {
			return nil, false
		}
		return &Bucket{w: w}, true
	}
	return nil, false
}

// Prev is Next's mirror, moving c to the bucket handle for the next lesser
// key.
func Prev(c *Cursor) (*Bucket, bool) {
	for c.level >= 2 {
		lvl := c.level - 2
		parent := c.path[lvl]
		used := c.keys[c.level-1]
		c.level = lvl + 1

		nw, nk, ok := parent.slot.largestBelow(used)
		if !ok {
			continue
		}
		c.push(nw, nk)
		if nw.isEntry() {
			return &Bucket{w: nw}, true
		}
		w := descendLargest(nw, c)
		if w == nil {
			return nil, false
		}
		return &Bucket{w: w}, true
	}
	return nil, false
}
