// Command benchmark sweeps every rotating outcome pattern of a given length
// through a fresh branch history predictor and reports the mismatch count
// for each.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-pattern-len  Width of the pattern register (default: 9)
//	-csv          Output results in CSV format (default: "init; mismatches")
//	-config       Predictor configuration JSON or YAML file
//
// Example:
//
//	# Sweep all 9-bit patterns against the default predictor
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -pattern-len 12 -csv > results.csv
//
// Patterns with the lowest mismatch counts are the ones the predictor
// configuration learns completely.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sarchlab/bbusim/benchmarks"
	"github.com/sarchlab/bbusim/timing/predictor"
)

func main() {
	defaults := benchmarks.DefaultSweepConfig()

	// Parse flags
	patternLen := flag.Uint("pattern-len", defaults.PatternLength, "Width of the rotating pattern register")
	samples := flag.Int("samples", defaults.Samples, "Number of outcomes per pattern")
	workers := flag.Int("workers", 0, "Patterns evaluated in parallel (0 = GOMAXPROCS)")
	configPath := flag.String("config", "", "Path to predictor configuration JSON or YAML file")
	history := flag.Uint("history", defaults.Predictor.HistoryWidth, "History shift register width in bits")
	size := flag.Int("size", defaults.Predictor.TableSize, "Number of counters in the prediction table")
	states := flag.Uint64("states", defaults.Predictor.CounterStates, "Number of saturating counter states")
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	flag.Parse()

	// Configure sweep
	config := defaults
	config.PatternLength = *patternLen
	config.Samples = *samples
	config.Workers = *workers

	if *configPath != "" {
		predictorConfig, err := predictor.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading predictor config: %v\n", err)
			os.Exit(1)
		}
		config.Predictor = predictorConfig
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "history":
			config.Predictor.HistoryWidth = *history
		case "size":
			config.Predictor.TableSize = *size
		case "states":
			config.Predictor.CounterStates = *states
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Run sweep
	results, err := benchmarks.Sweep(ctx, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Output results
	if *csvOutput {
		benchmarks.PrintSweepCSV(os.Stdout, config.PatternLength, results)
	} else {
		benchmarks.PrintSweep(os.Stdout, results)
	}
}
