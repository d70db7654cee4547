package main

// flags.go parses slotbench's command-line options. Split into its own
// file so main.go stays focused on the run loop, the same separation the
// inspector CLI this tool is adapted from drew between flag parsing and
// control flow.
//
// © 2025 arena-cache authors. MIT License.

import (
	"flag"
	"time"
)

type options struct {
	version bool

	shards      int
	workers     int
	opsPerWorker int
	seed        int64

	watch    bool
	interval time.Duration
	json     bool

	metrics     bool
	metricsAddr string
}

var buildVersion = "dev"

func parseFlags() *options {
	opts := &options{}

	flag.BoolVar(&opts.version, "version", false, "print the build version and exit")
	flag.IntVar(&opts.shards, "shards", 0, "shard count for the concurrent slot map under test (0 = runtime default)")
	flag.IntVar(&opts.workers, "workers", 8, "number of goroutines driving insert/remove load")
	flag.IntVar(&opts.opsPerWorker, "ops", 50_000, "insert/remove operations performed per worker")
	flag.Int64Var(&opts.seed, "seed", 42, "PRNG seed for the synthetic workload")
	flag.BoolVar(&opts.watch, "watch", false, "keep running, printing a snapshot on every -interval tick")
	flag.DurationVar(&opts.interval, "interval", time.Second, "snapshot interval in -watch mode")
	flag.BoolVar(&opts.json, "json", false, "print snapshots as JSON instead of text")
	flag.BoolVar(&opts.metrics, "metrics", false, "serve Prometheus metrics while the run is in progress")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "listen address for -metrics")

	flag.Parse()
	return opts
}
