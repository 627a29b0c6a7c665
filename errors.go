package thashmap

import "errors"

// Sentinel errors returned by map operations. Callers compare with
// errors.Is; pool errors may be wrapped with additional context via %w.
var (
	// ErrNoMemory is returned when the pool's page source cannot satisfy
	// an allocation (the page source itself failed, e.g. mmap returned
	// ENOMEM).
	ErrNoMemory = errors.New("thashmap: out of memory")

	// ErrNotFound is returned by Remove when the given entry is not
	// present under its key.
	ErrNotFound = errors.New("thashmap: entry not found")
)
