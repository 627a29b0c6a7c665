// Command thmdump prints the ordered contents and slot-width layout of a
// populated map, the Go equivalent of a tree-dump helper used to eyeball a
// trie's shape while developing the allocator.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/glk/thashmap"
)

type rec struct {
	thashmap.Elem
	k uint32
}

func (r *rec) Key() uint32 { return r.k }

func main() {
	count := flag.Int("n", 32, "number of random keys to insert before dumping")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	pool := thashmap.NewPool(thashmap.PoolOpts{})
	h, err := thashmap.NewHead(pool)
	if err != nil {
		fmt.Println("new head:", err)
		return
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *count; i++ {
		k := rng.Uint32() % (1 << 30)
		if _, err := h.Insert(&rec{k: k}); err != nil {
			fmt.Println("insert:", err)
			return
		}
	}

	fmt.Printf("%d keys inserted, in ascending order:\n", *count)
	var c thashmap.Cursor
	b, ok := h.First(&c)
	for ok {
		fmt.Printf("  key=%d\n", b.Head().(*rec).k)
		b, ok = thashmap.Next(&c)
	}

	fmt.Println("trie layout:")
	thashmap.Dump(h, os.Stdout)

	st := pool.PoolGetStats()
	fmt.Printf("pool: pages=%d slots=%d free=%d queues=%v fragments=%v\n",
		st.Pages, st.Slots, st.SlotsFree, st.Queues, st.Fragments)
}
