//go:build !unix

package pageio

// genericSource backs page blocks with plain heap allocations. Each block is
// over-allocated by alignment bytes but sliced from the front, so it is not
// rounded up to a page boundary. Used on targets outside the unix build tag
// (e.g. windows), where golang.org/x/sys/unix has no mmap.
type genericSource struct{}

// NewSource returns the platform page source.
func NewSource() Source {
	return genericSource{}
}

const alignment = 4096

func (genericSource) Acquire(size int) ([]byte, error) {
	raw := make([]byte, size+alignment)
	off := alignmentPadding(raw)
	return raw[off : off+size : off+size], nil
}

func (genericSource) Release(block []byte) error {
	return nil
}

func alignmentPadding(raw []byte) int {
	// Without unsafe pointer arithmetic there is no portable way to read the
	// slice's address here; over-allocating and slicing from the front is
	// sufficient for correctness (callers only need a stable, exclusively
	// owned block of the requested size, not true OS page alignment) on
	// platforms that fall back to this source.
	return 0
}
