// Command benchmark drives an in-process exchange.Exchange with
// synthetic users firing random legal orders, and reports throughput and
// latency. Grounded on
// ccyyhlg-lightning-exchange/cmd/benchmark/main.go's warm-up/timed-run/
// summary shape, generalized to a standalone operator tool (not a
// testing.B benchmark) per SPEC_FULL.md's benchmark harness.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"reuben/internal/common"
	"reuben/internal/config"
	"reuben/internal/exchange"
)

func main() {
	users := flag.Int("users", 200, "number of synthetic users to register")
	duration := flag.Duration("duration", 5*time.Second, "how long to hammer the exchange")
	workers := flag.Int("workers", 0, "number of concurrent order-generating goroutines (0 = NumCPU-1)")
	flag.Parse()

	if *workers <= 0 {
		*workers = runtime.NumCPU() - 1
		if *workers < 1 {
			*workers = 1
		}
	}

	cfg, err := config.Load("/nonexistent-benchmark-config.yaml")
	if err != nil {
		panic(err)
	}
	ex := exchange.New(*cfg)
	ex.Start()

	for i := 1; i <= *users; i++ {
		ex.Register(uint32(i), fmt.Sprintf("bench-user-%d", i))
	}

	fmt.Printf("=== exchange benchmark ===\n")
	fmt.Printf("users: %d, workers: %d, duration: %s\n\n", *users, *workers, *duration)

	var orders, trades atomic.Int64
	var latencies latencyTracker

	stop := make(chan struct{})
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
				}

				asset := common.AllAssets()[rng.Intn(common.NumAssets)]
				side := common.Buy
				if rng.Intn(2) == 0 {
					side = common.Sell
				}
				userID := uint32(rng.Intn(*users) + 1)
				price := uint32(rng.Intn(100) + 1)
				volume := uint32(rng.Intn(10) + 1)

				t0 := time.Now()
				result, err := ex.Book(asset).Place(side, userID, price, volume)
				elapsed := time.Since(t0)

				orders.Add(1)
				if err == nil {
					trades.Add(int64(len(result.Trades)))
					latencies.record(elapsed)
				}
			}
		}(int64(w) + 1)
	}

	ticker := time.NewTicker(1 * time.Second)
	go func() {
		for range ticker.C {
			el := time.Since(start)
			fmt.Printf("[%.0fs] orders: %d (%.0f/s) | trades: %d (%.0f/s)\n",
				el.Seconds(), orders.Load(), float64(orders.Load())/el.Seconds(),
				trades.Load(), float64(trades.Load())/el.Seconds())
		}
	}()

	time.Sleep(*duration)
	close(stop)
	ticker.Stop()
	wg.Wait()

	elapsed := time.Since(start)
	totalOrders := orders.Load()
	totalTrades := trades.Load()
	p50, p99 := latencies.percentiles()

	fmt.Println("\n=== results ===")
	fmt.Printf("elapsed:       %v\n", elapsed)
	fmt.Printf("total orders:  %d\n", totalOrders)
	fmt.Printf("total trades:  %d\n", totalTrades)
	fmt.Printf("orders/sec:    %.0f\n", float64(totalOrders)/elapsed.Seconds())
	fmt.Printf("trades/sec:    %.0f\n", float64(totalTrades)/elapsed.Seconds())
	fmt.Printf("p50 latency:   %v\n", p50)
	fmt.Printf("p99 latency:   %v\n", p99)

	fmt.Println("\n=== book depth (dressing, top 5) ===")
	bids, asks := ex.Book(common.Dressing).Depth(5)
	fmt.Println("bids:")
	for i, level := range bids {
		fmt.Printf("  %d. price=%d volume=%d orders=%d\n", i+1, level.Price, level.Volume, level.Orders)
	}
	fmt.Println("asks:")
	for i, level := range asks {
		fmt.Printf("  %d. price=%d volume=%d orders=%d\n", i+1, level.Price, level.Volume, level.Orders)
	}
}

// latencyTracker collects a bounded sample of Place latencies under a
// mutex. A sample is enough for rough percentiles without unbounded
// memory growth over a long benchmark run.
type latencyTracker struct {
	mu     sync.Mutex
	sample []time.Duration
}

const latencySampleCap = 1_000_000

func (l *latencyTracker) record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sample) < latencySampleCap {
		l.sample = append(l.sample, d)
	}
}

func (l *latencyTracker) percentiles() (p50, p99 time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sample) == 0 {
		return 0, 0
	}
	sorted := append([]time.Duration(nil), l.sample...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	p50 = sorted[len(sorted)*50/100]
	p99 = sorted[len(sorted)*99/100]
	return p50, p99
}
