package thashmap

import "testing"

func TestPoolAllocGrowShrinkFree(t *testing.T) {
	pool := NewPool(PoolOpts{})
	var w word
	s, err := pool.allocSlot(1)
	if err != nil {
		t.Fatalf("allocSlot(1): %v", err)
	}
	w.setSlot(s)

	// force one growth: 5 distinct sub-keys overflow a width-1 slot (4 cells)
	for k := uint8(0); k < 5; k++ {
		if _, err := pool.insertStep(&w, k); err != nil {
			t.Fatalf("insertStep(%d): %v", k, err)
		}
	}
	if w.slen < 2 {
		t.Fatalf("slot should have grown past its initial width, got slen=%d", w.slen)
	}

	for k := uint8(0); k < 5; k++ {
		empty := pool.removeStep(&w, k)
		if k < 4 && empty {
			t.Fatalf("slot reported empty before its last entry was removed (k=%d)", k)
		}
		if k == 4 && !empty {
			t.Fatalf("slot should report empty after its last entry is removed")
		}
	}
}

func TestPoolGetStatsAccounting(t *testing.T) {
	pool := NewPool(PoolOpts{})
	if err := pool.PoolNewBlock(); err != nil {
		t.Fatalf("PoolNewBlock: %v", err)
	}
	st := pool.PoolGetStats()
	if st.Pages != 1 {
		t.Fatalf("Pages = %d, want 1", st.Pages)
	}
	if st.SlotsFree != subSlotsPerPage-headerSubSlots {
		t.Fatalf("SlotsFree = %d, want %d", st.SlotsFree, subSlotsPerPage-headerSubSlots)
	}
	if st.Queues[maxSlen] != 1 {
		t.Fatalf("fresh page should sit in the rank-%d queue", maxSlen)
	}
}

func TestFreeSlotRunClearsCells(t *testing.T) {
	pool := NewPool(PoolOpts{})
	s, err := pool.allocSlot(2)
	if err != nil {
		t.Fatalf("allocSlot(2): %v", err)
	}
	// a second live slot keeps the page from being released once s is freed,
	// so the next allocation of the same width can reuse s's run.
	keep, err := pool.allocSlot(1)
	if err != nil {
		t.Fatalf("allocSlot(1) keeper: %v", err)
	}
	defer pool.freeSlotRun(keep)
	ws := s.words()
	ws[0].setEntry(newRecord(7, 0))
	pool.freeSlotRun(s)

	s2, err := pool.allocSlot(2)
	if err != nil {
		t.Fatalf("allocSlot(2) after free: %v", err)
	}
	if s2.page != s.page || s2.offset != s.offset {
		t.Skip("allocator did not reuse the freed run; nothing to check")
	}
	for i, w := range s2.words() {
		if !w.isEmpty() {
			t.Fatalf("reused cell %d not cleared: tag=%v", i, w.tag)
		}
	}
}

func TestGrowSlotRelocationClearsOldRun(t *testing.T) {
	pool := NewPool(PoolOpts{})
	var w word
	s, err := pool.allocSlot(1)
	if err != nil {
		t.Fatalf("allocSlot(1): %v", err)
	}
	w.setSlot(s)

	// a second, unrelated slot right after s blocks in-place extension, so
	// growSlot has to relocate and free s's old run, which would keep stale
	// entries if cells weren't cleared on free.
	other, err := pool.allocSlot(1)
	if err != nil {
		t.Fatalf("allocSlot(1) blocker: %v", err)
	}

	for k := uint8(0); k < 4; k++ {
		cell, err := pool.insertStep(&w, k)
		if err != nil {
			t.Fatalf("insertStep(%d): %v", k, err)
		}
		cell.setEntry(newRecord(uint32(k), 0))
	}
	if w.slot == s {
		t.Fatalf("growSlot extended in place; the blocker should have forced a relocation")
	}

	s2, err := pool.allocSlot(s.slen)
	if err != nil {
		t.Fatalf("allocSlot re-probe: %v", err)
	}
	if s2.page != s.page || s2.offset != s.offset {
		t.Fatalf("re-probe landed at offset %d, want the old run at offset %d", s2.offset, s.offset)
	}
	for i, c := range s2.words() {
		if !c.isEmpty() {
			t.Fatalf("freshly probed run has non-empty cell %d before use: tag=%v", i, c.tag)
		}
	}
	pool.freeSlotRun(s2)
	pool.freeSlotRun(other)
}

func TestPageAllocRunsDoNotCrossHalfBoundary(t *testing.T) {
	pool := NewPool(PoolOpts{})
	s, err := pool.allocSlot(maxSlen)
	if err != nil {
		t.Fatal(err)
	}
	half, off := splitOffset(s.offset)
	if off+maxSlen > 64 {
		t.Fatalf("allocated run crosses half boundary: half=%d off=%d", half, off)
	}
}
