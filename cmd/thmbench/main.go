// Command thmbench drives a shuffled insert/find/remove workload against a
// single map and writes its per-phase key counts and timings as a
// pprof-format sample profile, the way the teacher's test
// suite separates correctness tests from throughput measurement but
// wired here to github.com/google/pprof/profile for an offline-inspectable
// profile rather than go test -cpuprofile.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/pprof/profile"

	"github.com/glk/thashmap"
)

type rec struct {
	thashmap.Elem
	k uint32
}

func (r *rec) Key() uint32 { return r.k }

func main() {
	n := flag.Int("n", 200000, "number of keys in the workload")
	out := flag.String("out", "thmbench.pprof", "profile output path")
	flag.Parse()

	pool := thashmap.NewPool(thashmap.PoolOpts{})
	h, err := thashmap.NewHead(pool)
	if err != nil {
		fmt.Fprintln(os.Stderr, "new head:", err)
		os.Exit(1)
	}

	keys := rand.New(rand.NewSource(time.Now().UnixNano())).Perm(*n)
	records := make([]*rec, *n)

	insertStart := time.Now()
	for i, k := range keys {
		records[i] = &rec{k: uint32(k)}
		if _, err := h.Insert(records[i]); err != nil {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
	}
	insertElapsed := time.Since(insertStart)

	findStart := time.Now()
	for _, k := range keys {
		if _, ok := h.Find(uint32(k), nil); !ok {
			fmt.Fprintln(os.Stderr, "missing key", k)
			os.Exit(1)
		}
	}
	findElapsed := time.Since(findStart)

	removeStart := time.Now()
	for _, r := range records {
		if err := h.Remove(r); err != nil {
			fmt.Fprintln(os.Stderr, "remove:", err)
			os.Exit(1)
		}
	}
	removeElapsed := time.Since(removeStart)

	fmt.Printf("n=%d insert=%s find=%s remove=%s\n", *n, insertElapsed, findElapsed, removeElapsed)

	if err := writeProfile(*out, *n, insertElapsed, findElapsed, removeElapsed); err != nil {
		fmt.Fprintln(os.Stderr, "write profile:", err)
		os.Exit(1)
	}
}

// writeProfile emits a minimal pprof sample profile with one sample type
// per workload phase, so the timings above can be inspected with the usual
// pprof tooling (go tool pprof, or the pprof web UI) instead of just text.
func writeProfile(path string, n int, insert, find, remove time.Duration) error {
	phase := func(name string, d time.Duration) *profile.Sample {
		return &profile.Sample{
			Value: []int64{int64(n), d.Nanoseconds()},
			Label: map[string][]string{"phase": {name}},
		}
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "keys", Unit: "count"},
			{Type: "time", Unit: "nanoseconds"},
		},
		Sample: []*profile.Sample{
			phase("insert", insert),
			phase("find", find),
			phase("remove", remove),
		},
		TimeNanos: time.Now().UnixNano(),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Write(f)
}
