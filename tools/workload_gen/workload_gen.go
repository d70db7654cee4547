package main

// workload_gen.go is a tiny helper utility to generate deterministic
// operation traces for standalone benchmarking of the slot containers
// (outside `go test`). It emits newline-separated "insert"/"remove <slot>"
// records where the target slot for a remove is drawn from a Zipf
// distribution over the current live count, so a chosen fraction of
// removes fall on a small "hot" set of recently-inserted ids. Purely random
// removal targets were rejected because removal patterns in real workloads
// are often skewed, the same reasoning behind least-of-four shard selection.
//
// Usage:
//   go run tools/workload_gen/workload_gen.go -n 1000000 -removep 0.3 -zipfs 1.2 -seed 42 -out trace.txt
//
// Flags:
//   -n       number of operations to generate (default 1e6)
//   -removep fraction of operations that are removes (default 0.3)
//   -zipfs   Zipf s parameter (>1) biasing removes toward recent inserts (default 1.2)
//   -zipfv   Zipf v parameter (>0) (default 1.0)
//   -seed    RNG seed (default current time)
//   -out     output file (default stdout)
//
// © 2025 arena-cache authors. MIT License.

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of operations to generate")
		removeP = flag.Float64("removep", 0.3, "fraction of operations that are removes")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1), biases removes toward recent inserts")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>0)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *removeP < 0 || *removeP >= 1 {
		fmt.Fprintln(os.Stderr, "removep must be in [0, 1)")
		os.Exit(1)
	}
	if *zipfS <= 1.0 || *zipfV <= 0 {
		fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >0")
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	live := 0
	for i := 0; i < *n; i++ {
		if live > 0 && rnd.Float64() < *removeP {
			// A fresh Zipf generator each draw keeps the bias recomputed
			// against the current live count, so the distribution always
			// favors the most recently inserted (highest-numbered) slots
			// without ever producing an out-of-range index.
			z := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(live-1))
			target := live - 1 - int(z.Uint64())
			fmt.Fprintf(w, "remove %d\n", target)
			live--
		} else {
			fmt.Fprintln(w, "insert")
			live++
		}
	}
}
