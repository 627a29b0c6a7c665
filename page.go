package thashmap

import (
	"math/bits"
	"unsafe"

	"github.com/glk/thashmap/internal/bitops"
	"github.com/glk/thashmap/internal/pageio"
)

const (
	subSlotWords    = 4   // words per sub-slot
	subSlotsPerPage = 128 // sub-slots per page, split across two 64-bit bitmaps
	pageCellCount   = subSlotsPerPage * subSlotWords
	maxSlen         = 8 // sub-slots in a dense/max slot
	pageHeaderBytes = 16
)

// headerSubSlots reserves the sub-slots an inline page header would occupy
// (1 sub-slot on 32-bit targets, 2 on 64-bit), kept permanently marked occupied
// in map1 so the bitmap invariant ("popcount(map) == free sub-slots")
// matches what cmd/thmdump and PoolGetStats observe, even though the actual
// header now lives in its own mmap'd block rather than inline in cells.
var headerSubSlots = func() int {
	if bits.UintSize == 32 {
		return 1
	}
	return 2
}()

// pageHeader is the page's scalar metadata: two 64-bit occupancy bitmaps
// (1 == free) covering the page's 128 sub-slots, one half each. It is backed
// by a page-source block (see internal/pageio) the same way the teacher's
// Meta.go casts an unsafe.Pointer over mmap'd bytes to get a typed scalar
// view -- the pointer-bearing slot storage below lives in ordinary
// GC-managed memory instead (see DESIGN.md).
type pageHeader struct {
	map1 uint64
	map2 uint64
}

// page is one allocation unit of the pool: a fixed 128 sub-slots of 4 words
// each, classified into one of nine rank queues by the width of its largest
// free run.
type page struct {
	id    int32
	block []byte
	hdr   *pageHeader
	rank  uint8
	next  *page
	prev  *page
	cells [pageCellCount]word
}

func newPage(id int32, src pageio.Source) (*page, error) {
	block, err := src.Acquire(pageHeaderBytes)
	if err != nil {
		return nil, err
	}
	p := &page{id: id, block: block}
	p.hdr = (*pageHeader)(unsafe.Pointer(&block[0]))
	p.hdr.map1 = ^uint64(0)
	p.hdr.map2 = ^uint64(0)
	reserve := uint64(1)<<uint(headerSubSlots) - 1
	p.hdr.map1 &^= reserve
	p.rank = maxSlen
	return p, nil
}

func splitOffset(globalOff int) (half, off int) {
	if globalOff >= 64 {
		return 1, globalOff - 64
	}
	return 0, globalOff
}

func (p *page) bitmapHalf(half int) *uint64 {
	if half == 0 {
		return &p.hdr.map1
	}
	return &p.hdr.map2
}

func (p *page) wordsAt(globalOff int, length uint8) []word {
	base := globalOff * subSlotWords
	return p.cells[base : base+int(length)*subSlotWords]
}

// allocSlot finds and reserves the first run of w free sub-slots, searching
// the low half before the high half. Both halves are searched independently
// since a slot is never allowed to straddle the 64-sub-slot boundary.
func (p *page) allocSlot(w uint8) (int, bool) {
	if starts := bitops.RunStarts(p.hdr.map1, uint(w)); starts != 0 {
		off := int(bitops.FirstSet(starts))
		p.reserve(0, off, w)
		return off, true
	}
	if starts := bitops.RunStarts(p.hdr.map2, uint(w)); starts != 0 {
		off := int(bitops.FirstSet(starts))
		p.reserve(1, off, w)
		return off + 64, true
	}
	return 0, false
}

func (p *page) reserve(half, off int, w uint8) {
	mask := (uint64(1)<<uint(w) - 1) << uint(off)
	*p.bitmapHalf(half) &^= mask
}

func (p *page) release(half, off int, w uint8) {
	mask := (uint64(1)<<uint(w) - 1) << uint(off)
	*p.bitmapHalf(half) |= mask
}

func (p *page) freeRun(globalOff int, w uint8) {
	p.clearCells(globalOff, w)
	half, off := splitOffset(globalOff)
	p.release(half, off, w)
}

// clearCells zeroes the word cells backing [globalOff, globalOff+w) so a
// later allocation of that run never exposes a previous occupant's tagged
// word. Cells are cleared at free time rather than at allocation time so a
// freshly mmap'd page (whose cells start zeroed as ordinary Go memory) and a
// reused one read identically to every allocSlot caller.
func (p *page) clearCells(globalOff int, w uint8) {
	ws := p.wordsAt(globalOff, w)
	for i := range ws {
		ws[i].clear()
	}
}

// extendRunBits attempts to grow the run [globalOff, globalOff+oldLen) to
// [globalOff, globalOff+newLen) in place. It fails if the extra sub-slots
// would cross the half boundary or are not all free.
func (p *page) extendRunBits(globalOff int, oldLen, newLen uint8) bool {
	half, off := splitOffset(globalOff)
	if off+int(newLen) > 64 {
		return false
	}
	extraOff := off + int(oldLen)
	extraW := int(newLen) - int(oldLen)
	mask := (uint64(1)<<uint(extraW) - 1) << uint(extraOff)
	bm := p.bitmapHalf(half)
	if (*bm)&mask != mask {
		return false
	}
	*bm &^= mask
	return true
}

func (p *page) shrinkRunBits(globalOff int, oldLen, newLen uint8) {
	p.clearCells(globalOff+int(newLen), oldLen-newLen)
	half, off := splitOffset(globalOff)
	extraOff := off + int(newLen)
	extraW := int(oldLen) - int(newLen)
	mask := (uint64(1)<<uint(extraW) - 1) << uint(extraOff)
	*p.bitmapHalf(half) |= mask
}

func (p *page) isFullyFree() bool {
	free := bitops.PopCount64(p.hdr.map1) + bitops.PopCount64(p.hdr.map2)
	return free == subSlotsPerPage-headerSubSlots
}

// exactRank searches directly for the widest run still available, used to
// promote a page after a free (the original promotes to "the highest rank
// where a run reappears").
func (p *page) exactRank() uint8 {
	for w := uint8(maxSlen); w >= 1; w-- {
		if bitops.RunStarts(p.hdr.map1, uint(w)) != 0 || bitops.RunStarts(p.hdr.map2, uint(w)) != 0 {
			return w
		}
	}
	return 0
}

// fragmentHistogram returns the count of maximal free runs by length across
// both halves, index i holding the count of runs of length i+1; a run longer
// than 8 counts once per whole 8-wide run it holds (see
// bitops.FragmentHistogram).
func (p *page) fragmentHistogram() [8]int {
	var hist [8]int
	h1 := bitops.FragmentHistogram(p.hdr.map1, 8)
	h2 := bitops.FragmentHistogram(p.hdr.map2, 8)
	for i := 0; i < 8; i++ {
		hist[i] = h1[i] + h2[i]
	}
	return hist
}

// demotionTarget picks the new rank after an allocation narrows the page's
// best run: the highest w <= current-1 such that the cumulative count of
// runs >= w is at least 2 (so the page isn't demoted past the point where
// it could still satisfy a second allocation of that width), else 0.
func demotionTarget(hist [8]int, current uint8) uint8 {
	for w := int(current) - 1; w >= 1; w-- {
		cum := 0
		for l := w; l <= 8; l++ {
			cum += hist[l-1]
		}
		if cum >= 2 {
			return uint8(w)
		}
	}
	return 0
}
