// Command slotbench drives pkg/sync's SlotMap under concurrent insert and
// remove load and reports throughput and per-shard balance. It is adapted
// from the arena-cache inspector CLI: the same signal-handling, ticker-based
// watch loop, and JSON/pretty-print toggle, pointed at an in-process
// benchmark run instead of a remote HTTP snapshot endpoint.
//
// © 2025 arena-cache authors. MIT License.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kimhappy/deadlock/internal/benchmetrics"
	syncslot "github.com/kimhappy/deadlock/pkg/sync"
)

type snapshot struct {
	Inserts    int64 `json:"inserts"`
	Removes    int64 `json:"removes"`
	Live       int   `json:"live"`
	ShardLoads []int `json:"shard_loads"`
}

func main() {
	opts := parseFlags()
	if opts.version {
		fmt.Println(buildVersion)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink *benchmetrics.Sink
	if opts.metrics {
		reg := prometheus.NewRegistry()
		sink = benchmetrics.New(reg)
		srv := &http.Server{Addr: opts.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fatal(err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var m *syncslot.SlotMap[int]
	if opts.shards > 0 {
		var err error
		m, err = syncslot.NewSlotMapWithShards[int](opts.shards)
		if err != nil {
			fatal(err)
		}
	} else {
		m = syncslot.NewSlotMap[int]()
	}

	var inserts, removes atomic.Int64
	run := func() error {
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < opts.workers; w++ {
			w := w
			g.Go(func() error {
				return worker(gctx, m, opts, w, &inserts, &removes, sink)
			})
		}
		return g.Wait()
	}

	if !opts.watch {
		start := time.Now()
		if err := run(); err != nil && err != context.Canceled {
			fatal(err)
		}
		printSnapshot(takeSnapshot(m, &inserts, &removes), opts.json)
		fmt.Fprintf(os.Stderr, "elapsed: %s\n", time.Since(start))
		return
	}

	done := make(chan error, 1)
	go func() { done <- run() }()

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			printSnapshot(takeSnapshot(m, &inserts, &removes), opts.json)
		case err := <-done:
			if err != nil && err != context.Canceled {
				fatal(err)
			}
			printSnapshot(takeSnapshot(m, &inserts, &removes), opts.json)
			return
		case <-ctx.Done():
			<-done
			printSnapshot(takeSnapshot(m, &inserts, &removes), opts.json)
			return
		}
	}
}

// worker repeatedly inserts a value and then, with probability one half,
// removes one of its own prior ids chosen at random, so the map's live size
// grows at about half the insert rate while exercising selectShard's
// least-of-four placement under sustained churn. Every id the worker still
// owns at the end is removed before it returns.
func worker(ctx context.Context, m *syncslot.SlotMap[int], opts *options, idx int, inserts, removes *atomic.Int64, sink *benchmetrics.Sink) error {
	rng := rand.New(rand.NewSource(opts.seed + int64(idx)))
	owned := make([]int, 0, opts.opsPerWorker)

	for i := 0; i < opts.opsPerWorker; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		id := m.Insert(rng.Int())
		inserts.Add(1)
		sink.IncOp("insert")
		owned = append(owned, id)

		if len(owned) > 1 && rng.Intn(2) == 0 {
			j := rng.Intn(len(owned))
			if _, ok := m.Remove(owned[j]); ok {
				removes.Add(1)
				sink.IncOp("remove")
			}
			owned[j] = owned[len(owned)-1]
			owned = owned[:len(owned)-1]
		}
	}

	for _, id := range owned {
		if _, ok := m.Remove(id); ok {
			removes.Add(1)
			sink.IncOp("remove")
		}
	}
	return nil
}

func takeSnapshot(m *syncslot.SlotMap[int], inserts, removes *atomic.Int64) snapshot {
	return snapshot{
		Inserts:    inserts.Load(),
		Removes:    removes.Load(),
		Live:       m.Len(),
		ShardLoads: m.ShardLoads(),
	}
}

func printSnapshot(s snapshot, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(s); err != nil {
			fatal(err)
		}
		return
	}
	fmt.Printf("inserts=%d removes=%d live=%d shard_loads=%v\n", s.Inserts, s.Removes, s.Live, s.ShardLoads)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "slotbench:", err)
	os.Exit(1)
}
