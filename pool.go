package thashmap

import (
	"fmt"
	"sync"

	"github.com/glk/thashmap/internal/bitops"
	"github.com/glk/thashmap/internal/pageio"
)

const numRanks = maxSlen + 1

type rankQueue struct {
	head, tail *page
}

// Pool owns the pages backing one or more map heads. Pages are classified
// by rank (width of their largest free run) into nine doubly-linked queues,
// exactly mirroring thm_pool's rank-0..8 bucketing. A single mutex
// serializes page allocation, freeing and queue surgery, the "pool-shared"
// discipline described for concurrent heads -- analogous to the RWMutex
// guarding shared mmap state around resize in the teacher's Operation.go,
// just coarser since pages (unlike the teacher's whole-file remap) can be
// mutated independently of one another.
type Pool struct {
	mu     sync.Mutex
	src    pageio.Source
	queues [numRanks]rankQueue
	nextID int32
	pages  int
}

// PoolOpts configures a Pool. A nil Source defaults to the platform page
// source (mmap-backed on unix).
type PoolOpts struct {
	Source pageio.Source
}

// NewPool returns an empty pool with no pages allocated yet.
func NewPool(opts PoolOpts) *Pool {
	src := opts.Source
	if src == nil {
		src = pageio.NewSource()
	}
	return &Pool{src: src}
}

// PoolNewBlock pre-allocates one page directly into rank 8, the way
// thm_pool_new_block primes a pool ahead of a burst of inserts.
func (pool *Pool) PoolNewBlock() error {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	_, err := pool.newPageLocked()
	return err
}

func (pool *Pool) newPageLocked() (*page, error) {
	id := pool.nextID
	pool.nextID++
	p, err := newPage(id, pool.src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMemory, err)
	}
	pool.pages++
	pool.pushHead(maxSlen, p)
	return p, nil
}

func (pool *Pool) releasePageLocked(p *page) {
	pool.unlink(p)
	pool.pages--
	_ = pool.src.Release(p.block)
}

func (pool *Pool) pushHead(rank uint8, p *page) {
	q := &pool.queues[rank]
	p.rank = rank
	p.prev = nil
	p.next = q.head
	if q.head != nil {
		q.head.prev = p
	} else {
		q.tail = p
	}
	q.head = p
}

func (pool *Pool) pushTail(rank uint8, p *page) {
	q := &pool.queues[rank]
	p.rank = rank
	p.next = nil
	p.prev = q.tail
	if q.tail != nil {
		q.tail.next = p
	} else {
		q.head = p
	}
	q.tail = p
}

func (pool *Pool) unlink(p *page) {
	q := &pool.queues[p.rank]
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		q.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	} else {
		q.tail = p.prev
	}
	p.next, p.prev = nil, nil
}

func (pool *Pool) relocate(p *page, newRank uint8) {
	if p.rank == newRank {
		return
	}
	pool.unlink(p)
	pool.pushTail(newRank, p)
}

func (pool *Pool) resyncAfterAllocLocked(p *page) {
	if p.exactRank() >= p.rank {
		return
	}
	hist := p.fragmentHistogram()
	pool.relocate(p, demotionTarget(hist, p.rank))
}

func (pool *Pool) resyncAfterFreeLocked(p *page) {
	target := p.exactRank()
	pool.relocate(p, target)
	if target == maxSlen && p.isFullyFree() {
		pool.releasePageLocked(p)
	}
}

// allocSlot finds a slot of width w, searching queues from rank w upward
// (any page ranked w or higher is guaranteed a run of at least w free
// sub-slots) before allocating a fresh page.
func (pool *Pool) allocSlot(w uint8) (*slot, error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	for rank := int(w); rank <= maxSlen; rank++ {
		for p := pool.queues[rank].head; p != nil; p = p.next {
			if off, ok := p.allocSlot(w); ok {
				pool.resyncAfterAllocLocked(p)
				return &slot{page: p, offset: off, slen: w}, nil
			}
		}
	}
	p, err := pool.newPageLocked()
	if err != nil {
		return nil, err
	}
	off, ok := p.allocSlot(w)
	if !ok {
		return nil, fmt.Errorf("%w: fresh page cannot satisfy width %d", ErrNoMemory, w)
	}
	pool.resyncAfterAllocLocked(p)
	return &slot{page: p, offset: off, slen: w}, nil
}

// allocSlotHint tries hint first (a slot relocating within its own page,
// most commonly) before falling back to a pool-wide search.
func (pool *Pool) allocSlotHint(w uint8, hint *page) (*slot, error) {
	pool.mu.Lock()
	if hint != nil {
		if off, ok := hint.allocSlot(w); ok {
			pool.resyncAfterAllocLocked(hint)
			pool.mu.Unlock()
			return &slot{page: hint, offset: off, slen: w}, nil
		}
	}
	pool.mu.Unlock()
	return pool.allocSlot(w)
}

func (pool *Pool) freeSlotRun(s *slot) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	s.page.freeRun(s.offset, s.slen)
	pool.resyncAfterFreeLocked(s.page)
}

// PoolStats mirrors thm_pool_stats field for field: page/slot counts, the
// per-rank queue occupancy, and the free-run length histogram.
type PoolStats struct {
	Pages     int
	Slots     int
	SlotsFree int
	Queues    [numRanks]int
	Fragments [8]int
}

// PoolGetStats snapshots the pool's current page/slot accounting.
func (pool *Pool) PoolGetStats() PoolStats {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	var st PoolStats
	st.Pages = pool.pages
	st.Slots = pool.pages * (subSlotsPerPage - headerSubSlots)
	for rank := 0; rank < numRanks; rank++ {
		n := 0
		for p := pool.queues[rank].head; p != nil; p = p.next {
			n++
			st.SlotsFree += bitops.PopCount64(p.hdr.map1) + bitops.PopCount64(p.hdr.map2)
			hist := p.fragmentHistogram()
			for i := 0; i < 8; i++ {
				st.Fragments[i] += hist[i]
			}
		}
		st.Queues[rank] = n
	}
	return st
}
