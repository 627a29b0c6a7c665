package thashmap

// Bucket is a handle onto the tagged word holding the head of a
// collision chain -- every entry reachable through it shares the same
// 30-bit key. Walk the chain with ChainNext(bucket.Head()), repeating until
// it returns nil.
type Bucket struct {
	w *word
}

// Head returns the first entry in the bucket.
func (b *Bucket) Head() Entry {
	if b == nil || b.w == nil {
		return nil
	}
	return b.w.entry
}
