// Command bench runs synthetic workloads against the cache policies and
// exposes optional pprof/Prometheus endpoints.
//
// Three scenario generators are built in, plus a Zipf-distributed mixed
// read/write mode:
//
//	hotspot — a small hot set receives most accesses (hot/cold split)
//	loop    — cyclic scan over a window with random jumps and out-of-range reads
//	shift   — the active key range moves between phases
//	zipf    — skewed random mix at a configurable read percentage
//
// Each scenario runs against LRU, LFU, and ARC side by side and reports
// per-policy hit rates.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DestinyOfLove/KamaCache/cache"
	pmet "github.com/DestinyOfLove/KamaCache/metrics/prom"
	"github.com/DestinyOfLove/KamaCache/policy"
	"github.com/DestinyOfLove/KamaCache/policy/arc"
	"github.com/DestinyOfLove/KamaCache/policy/lfu"
	"github.com/DestinyOfLove/KamaCache/policy/lru"
)

func main() {
	var (
		scenario = flag.String("scenario", "hotspot", "workload: hotspot | loop | shift | zipf")
		capacity = flag.Int("cap", 50, "cache capacity (entries)")
		shards   = flag.Int("shards", 1, "number of shards (0=auto)")
		ops      = flag.Int("ops", 200_000, "operations per run")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		// hotspot knobs
		hotKeys  = flag.Int("hot_keys", 20, "hotspot: number of hot keys")
		coldKeys = flag.Int("cold_keys", 5000, "hotspot: number of cold keys")
		hotRatio = flag.Int("hot_ratio", 70, "hotspot: hot access percentage [0..100]")

		// loop knobs
		loopSize = flag.Int("loop_size", 500, "loop: size of the scanned window")
		seqPct   = flag.Int("seq", 60, "loop: sequential scan percentage")
		randPct  = flag.Int("rand", 30, "loop: random jump percentage")

		// shift knobs
		phases = flag.Int("phases", 5, "shift: number of workload phases")

		// zipf knobs
		workers = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "zipf: worker goroutines")
		keys    = flag.Int("keys", 1_000_000, "zipf: keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "zipf: s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "zipf: v")
		readPct = flag.Int("reads", 80, "zipf: read percentage [0..100]")

		lfuDecay = flag.Uint("lfu_max_avg", 0, "LFU max average frequency (0 disables decay)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", "", "serve Prometheus metrics at addr; empty = disabled")
	)
	flag.Parse()

	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	var metrics cache.Metrics
	if *metricsAddr != "" {
		metrics = pmet.New(nil, "kamacache", "bench", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics: serving at %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	build := func(pol policy.Factory[int, string]) cache.Cache[int, string] {
		return cache.New[int, string](cache.Options[int, string]{
			Capacity: *capacity,
			Shards:   *shards,
			Policy:   pol,
			Metrics:  metrics,
		})
	}
	caches := []struct {
		name string
		c    cache.Cache[int, string]
	}{
		{"LRU", build(lru.Policy[int, string]())},
		{"LFU", build(lfu.Policy[int, string](uint32(*lfuDecay)))},
		{"ARC", build(arc.Policy[int, string]())},
	}
	defer func() {
		for _, e := range caches {
			_ = e.c.Close()
		}
	}()

	fmt.Printf("scenario=%s cap=%d shards=%d ops=%d seed=%d\n",
		*scenario, *capacity, *shards, *ops, *seed)

	start := time.Now()
	for _, e := range caches {
		var hits, total int
		switch *scenario {
		case "hotspot":
			hits, total = runHotspot(e.c, *seed, *ops, *hotKeys, *coldKeys, *hotRatio)
		case "loop":
			hits, total = runLoop(e.c, *seed, *ops, *loopSize, *seqPct, *randPct)
		case "shift":
			hits, total = runShift(e.c, *seed, *ops, *phases)
		case "zipf":
			hits, total = runZipf(e.c, *seed, *ops, *workers, *keys, *zipfS, *zipfV, *readPct)
		default:
			log.Fatalf("unknown scenario: %q (use hotspot, loop, shift, or zipf)", *scenario)
		}
		rate := 0.0
		if total > 0 {
			rate = 100 * float64(hits) / float64(total)
		}
		fmt.Printf("%s - ops=%d hits=%d hit-rate=%.2f%% Len()=%d\n",
			e.name, total, hits, rate, e.c.Len())
	}
	fmt.Printf("elapsed=%v\n", time.Since(start))
}

// runHotspot fills the cache from a hot/cold key mix, then measures the hit
// rate of reads drawn from the same distribution.
func runHotspot(c cache.Cache[int, string], seed int64, ops, hotKeys, coldKeys, hotRatio int) (hits, total int) {
	r := rand.New(rand.NewSource(seed))
	pick := func(i int) int {
		if i%100 < hotRatio {
			return r.Intn(hotKeys)
		}
		return hotKeys + r.Intn(coldKeys)
	}

	for i := 0; i < ops; i++ {
		k := pick(i)
		c.Put(k, "value"+strconv.Itoa(k))
	}
	for i := 0; i < ops; i++ {
		total++
		if _, ok := c.Get(pick(i)); ok {
			hits++
		}
	}
	return hits, total
}

// runLoop preloads a window of keys and then reads it with a mix of
// sequential scanning, random jumps, and out-of-range accesses.
func runLoop(c cache.Cache[int, string], seed int64, ops, loopSize, seqPct, randPct int) (hits, total int) {
	r := rand.New(rand.NewSource(seed))
	for k := 0; k < loopSize; k++ {
		c.Put(k, "loop"+strconv.Itoa(k))
	}

	pos := 0
	for i := 0; i < ops; i++ {
		var k int
		switch m := i % 100; {
		case m < seqPct:
			k = pos
			pos = (pos + 1) % loopSize
		case m < seqPct+randPct:
			k = r.Intn(loopSize)
		default:
			k = loopSize + r.Intn(loopSize)
		}
		total++
		if _, ok := c.Get(k); ok {
			hits++
		}
	}
	return hits, total
}

// runShift moves the working set between phases: each phase writes and reads
// a different key range, so policies must adapt or bleed hits.
func runShift(c cache.Cache[int, string], seed int64, ops, phases int) (hits, total int) {
	r := rand.New(rand.NewSource(seed))
	const rangeSize = 1000

	if phases < 1 {
		phases = 1
	}
	for k := 0; k < rangeSize; k++ {
		c.Put(k, "init"+strconv.Itoa(k))
	}

	perPhase := ops / phases
	for ph := 0; ph < phases; ph++ {
		base := ph * rangeSize
		for i := 0; i < perPhase; i++ {
			k := base + r.Intn(rangeSize)
			if r.Intn(100) < 30 {
				c.Put(k, "phase"+strconv.Itoa(ph))
			} else {
				total++
				if _, ok := c.Get(k); ok {
					hits++
				}
			}
		}
	}
	return hits, total
}

// runZipf drives a concurrent read/write mix with Zipf-distributed keys.
func runZipf(c cache.Cache[int, string], seed int64, ops, workers, keys int, s, v float64, readPct int) (hits, total int) {
	if workers < 1 {
		workers = 1
	}
	var hitN, totalN atomic.Int64

	var wg sync.WaitGroup
	wg.Add(workers)
	perWorker := ops / workers
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(seed + int64(id)*9973))
			z := rand.NewZipf(r, s, v, uint64(keys-1))
			for i := 0; i < perWorker; i++ {
				k := int(z.Uint64())
				if int(r.Int31n(100)) < readPct {
					totalN.Add(1)
					if _, ok := c.Get(k); ok {
						hitN.Add(1)
					}
				} else {
					c.Put(k, "v"+strconv.Itoa(k))
				}
			}
		}(w)
	}
	wg.Wait()
	return int(hitN.Load()), int(totalN.Load())
}
