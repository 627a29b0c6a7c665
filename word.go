package thashmap

// wordTag discriminates what a word currently references.
type wordTag uint8

const (
	tagNone wordTag = iota
	tagSlot
	tagEntry
)

// word is the tagged-word the design notes describe, expressed as a small
// discriminated union rather than literal low-bit pointer tagging: Go's
// garbage collector must see every live pointer, so a slot pointer and an
// Entry pointer can't be safely folded into one masked machine word the way
// the original packs slot-vs-entry into the low tag bits of a raw pointer.
// slen caches the referenced slot's width so a slot's size can be read from
// the word that references it without dereferencing the slot.
type word struct {
	tag   wordTag
	slen  uint8
	slot  *slot
	entry Entry
}

func (w *word) isEmpty() bool { return w.tag == tagNone }
func (w *word) isSlot() bool  { return w.tag == tagSlot }
func (w *word) isEntry() bool { return w.tag == tagEntry }

func (w *word) setSlot(s *slot) {
	w.tag = tagSlot
	w.slot = s
	w.slen = s.slen
	w.entry = nil
}

func (w *word) setEntry(e Entry) {
	w.tag = tagEntry
	w.entry = e
	w.slot = nil
	w.slen = 0
}

func (w *word) clear() {
	w.tag = tagNone
	w.slot = nil
	w.entry = nil
	w.slen = 0
}

// SlenCode returns the three tag-bit contributions the original's
// three-word encoding carries for a slot of the given width:
// code = slen-1, split as bit1 into the first word, bit0 into the second,
// bit2 into the third. Exported so Dump (see dump.go) can print a layout a
// reader of the original encoding would recognize.
func SlenCode(slen uint8) (first, second, third bool) {
	code := slen - 1
	first = code&0x2 != 0
	second = code&0x1 != 0
	third = code&0x4 != 0
	return
}
