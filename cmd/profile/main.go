// Package main provides a profiling wrapper that runs one long predictor
// simulation under the Go profiler.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/bbusim/benchmarks"
	"github.com/sarchlab/bbusim/timing/predictor"
)

// options holds the profiling run parameters.
type options struct {
	cpuProfile string
	memProfile string
	samples    int
	history    uint
	size       int
	ways       int
	seed       uint64
}

// run simulates the predictor, writing the requested profiles, and returns
// the process exit code. The CPU profile is stopped before the heap profile
// is written so it is complete even when the heap profile fails.
func run(opts options, stdout, stderr io.Writer) int {
	config := predictor.DefaultConfig()
	config.HistoryWidth = opts.history
	config.TableSize = opts.size
	config.Associativity = opts.ways

	p, err := predictor.New(config)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error creating predictor: %v\n", err)
		return 1
	}
	defer p.Destroy()

	// Start CPU profiling if requested
	var cpuFile *os.File
	if opts.cpuProfile != "" {
		cpuFile, err = os.Create(opts.cpuProfile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error creating CPU profile: %v\n", err)
			return 1
		}
		defer func() { _ = cpuFile.Close() }()

		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error starting CPU profile: %v\n", err)
			return 1
		}
	}

	// A random stream over a wide history keeps the table under constant
	// eviction pressure.
	start := time.Now()
	result := benchmarks.Run(p, benchmarks.NewRandom(opts.seed, 0.5), opts.samples)
	elapsed := time.Since(start)

	if cpuFile != nil {
		pprof.StopCPUProfile()
	}

	// Write memory profile if requested
	if opts.memProfile != "" {
		f, err := os.Create(opts.memProfile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error creating memory profile: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing memory profile: %v\n", err)
			return 1
		}
	}

	stats := p.Table().Stats()

	_, _ = fmt.Fprintf(stdout, "\nProfiling Results:\n")
	_, _ = fmt.Fprintf(stdout, "Predictions: %d\n", result.Stats.Predictions)
	_, _ = fmt.Fprintf(stdout, "Mismatch rate: %.3f%%\n", result.MismatchRate)
	_, _ = fmt.Fprintf(stdout, "Table hit rate: %.1f%%\n", stats.HitRate())
	_, _ = fmt.Fprintf(stdout, "Table evictions: %d\n", stats.Evictions)
	_, _ = fmt.Fprintf(stdout, "Elapsed time: %v\n", elapsed)
	if elapsed > 0 {
		_, _ = fmt.Fprintf(stdout, "Predictions/second: %.0f\n", float64(result.Stats.Predictions)/elapsed.Seconds())
	}

	return 0
}

func main() {
	var opts options
	flag.StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to file")
	flag.StringVar(&opts.memProfile, "memprofile", "", "write memory profile to file")
	flag.IntVar(&opts.samples, "samples", 50000000, "number of outcomes to simulate")
	flag.UintVar(&opts.history, "history", 16, "history shift register width in bits")
	flag.IntVar(&opts.size, "size", 4096, "number of counters in the prediction table")
	flag.IntVar(&opts.ways, "ways", 0, "table associativity (0 = fully associative)")
	flag.Uint64Var(&opts.seed, "seed", 1, "seed of the random outcome stream")
	flag.Parse()

	os.Exit(run(opts, os.Stdout, os.Stderr))
}
