// Package pageio hands the pool fixed-size memory blocks (page-aligned on
// unix). This mirrors the role the teacher's mmap helpers (IOUtils.go's
// Map/Unmap) play for the file-backed map, but here the block backs only a
// page's scalar header (its two occupancy bitmaps) -- the rank, queue links
// and pointer-bearing slot storage live in ordinary garbage-collected memory
// instead (see DESIGN.md: pages split into a header block and a GC-visible
// cell array).
package pageio

// Source acquires and releases fixed-size byte blocks.
type Source interface {
	// Acquire returns a zeroed block of exactly size bytes. The unix source
	// maps it with mmap, so it starts on a page boundary; the generic source
	// makes no alignment guarantee.
	Acquire(size int) ([]byte, error)
	// Release returns a block obtained from Acquire back to the system.
	Release(block []byte) error
}
