// Command thmselftest fans out independent maps across goroutines sharing
// one pool and checks each converges to the expected sorted contents,
// exercising the pool's mutex-guarded page allocation under real
// concurrency the way a single-process unit test cannot.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/glk/thashmap"
)

type rec struct {
	thashmap.Elem
	k uint32
}

func (r *rec) Key() uint32 { return r.k }

const (
	numHeads     = 16
	keysPerHead  = 2000
	keyUniverse  = 1 << 20
)

func main() {
	pool := thashmap.NewPool(thashmap.PoolOpts{})

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < numHeads; i++ {
		seed := int64(i)
		g.Go(func() error { return runHead(pool, seed) })
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "self-test failed:", err)
		os.Exit(1)
	}
	fmt.Printf("ok: %d heads x %d keys converged\n", numHeads, keysPerHead)
}

func runHead(pool *thashmap.Pool, seed int64) error {
	h, err := thashmap.NewHead(pool)
	if err != nil {
		return fmt.Errorf("new head: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	keys := rng.Perm(keyUniverse)[:keysPerHead]
	for _, k := range keys {
		if _, err := h.Insert(&rec{k: uint32(k)}); err != nil {
			return fmt.Errorf("insert %d: %w", k, err)
		}
	}

	var c thashmap.Cursor
	b, ok := h.First(&c)
	prev := -1
	count := 0
	for ok {
		cur := int(b.Head().(*rec).k)
		if cur <= prev {
			return fmt.Errorf("traversal not strictly increasing: %d then %d", prev, cur)
		}
		prev = cur
		count++
		b, ok = thashmap.Next(&c)
	}
	if count != keysPerHead {
		return fmt.Errorf("visited %d keys, want %d", count, keysPerHead)
	}
	return nil
}
