// Package main provides the entry point for the branch history predictor
// simulator. It feeds a periodic (or random) outcome stream through one
// predictor and reports the mismatch count.
//
// Usage:
//
//	bbusim [options]
//	bbusim [options] <pattern_len> <pattern_init> <history> <size> <states>
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/bbusim/benchmarks"
	"github.com/sarchlab/bbusim/timing/predictor"
)

// options holds everything a single simulation run needs.
type options struct {
	patternLen uint
	pattern    uint64
	random     bool
	seed       uint64
	taken      float64
	samples    int
	dump       bool
	verbosity  int
	config     predictor.Config
}

// parseArgs parses command-line flags. Five positional arguments, when
// given, override the pattern and predictor flags in order.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("bbusim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts       options
		configPath string
		history    uint
		size       int
		states     uint64
		initPolicy string
		ways       int
	)

	defaults := predictor.DefaultConfig()

	fs.UintVar(&opts.patternLen, "pattern-len", 32, "Width of the rotating pattern register")
	fs.Uint64Var(&opts.pattern, "pattern", 3, "Initial value of the pattern register")
	fs.BoolVar(&opts.random, "random", false, "Use a seeded random outcome stream instead of a rotating pattern")
	fs.Uint64Var(&opts.seed, "seed", 1, "Seed of the random outcome stream")
	fs.Float64Var(&opts.taken, "taken", 0.5, "Probability of a taken outcome in the random stream")
	fs.IntVar(&opts.samples, "samples", 1000000, "Number of outcomes to simulate")
	fs.BoolVar(&opts.dump, "dump", true, "Print the predictor table after the run")
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity (2 logs every table eviction)")
	fs.StringVar(&configPath, "config", "", "Path to predictor configuration JSON or YAML file")
	fs.UintVar(&history, "history", defaults.HistoryWidth, "History shift register width in bits")
	fs.IntVar(&size, "size", defaults.TableSize, "Number of counters in the prediction table")
	fs.Uint64Var(&states, "states", defaults.CounterStates, "Number of saturating counter states")
	fs.StringVar(&initPolicy, "init", string(defaults.InitPolicy), "Initial counter policy: history_biased or midpoint")
	fs.IntVar(&ways, "ways", defaults.Associativity, "Table associativity (0 = fully associative)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.config = defaults
	if configPath != "" {
		config, err := predictor.LoadConfig(configPath)
		if err != nil {
			return options{}, err
		}
		opts.config = config
	}

	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "history":
			opts.config.HistoryWidth = history
		case "size":
			opts.config.TableSize = size
		case "states":
			opts.config.CounterStates = states
		case "init":
			opts.config.InitPolicy = predictor.InitPolicy(initPolicy)
		case "ways":
			opts.config.Associativity = ways
		}
	})

	switch fs.NArg() {
	case 0:
	case 5:
		if err := applyPositional(&opts, fs.Args()); err != nil {
			return options{}, err
		}
	default:
		return options{}, errors.New("expected no positional arguments or " +
			"<pattern_len> <pattern_init> <history> <size> <states>")
	}

	return opts, nil
}

func applyPositional(opts *options, args []string) error {
	patternLen, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid pattern length %q: %w", args[0], err)
	}
	pattern, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid pattern value %q: %w", args[1], err)
	}
	history, err := strconv.ParseUint(args[2], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid history width %q: %w", args[2], err)
	}
	size, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid table size %q: %w", args[3], err)
	}
	states, err := strconv.ParseUint(args[4], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid state count %q: %w", args[4], err)
	}

	opts.patternLen = uint(patternLen)
	opts.pattern = pattern
	opts.config.HistoryWidth = uint(history)
	opts.config.TableSize = size
	opts.config.CounterStates = states

	return nil
}

func newLogger(verbosity int, w io.Writer) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

// newSource builds the outcome stream. The rotating register is advanced
// once up front so the first outcome is bit 0 of the rotated pattern.
func newSource(opts options) (benchmarks.Source, error) {
	if opts.random {
		return benchmarks.NewRandom(opts.seed, opts.taken), nil
	}

	if opts.patternLen == 0 || opts.patternLen > benchmarks.MaxPatternLength {
		return nil, fmt.Errorf("pattern length must be in [1, %d], got %d",
			benchmarks.MaxPatternLength, opts.patternLen)
	}

	return benchmarks.NewRotating(opts.patternLen,
		benchmarks.RotateLeft(opts.pattern, opts.patternLen))
}

// run executes one simulation and returns the process exit code.
func run(opts options, stdout, stderr io.Writer) int {
	log := newLogger(opts.verbosity, stderr)

	p, err := predictor.New(opts.config, predictor.WithLogger(log))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error creating predictor: %v\n", err)
		return 1
	}
	defer p.Destroy()

	src, err := newSource(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error creating outcome source: %v\n", err)
		return 1
	}

	log.V(1).Info("starting run",
		"samples", opts.samples,
		"historyWidth", opts.config.HistoryWidth,
		"tableSize", opts.config.TableSize,
		"counterStates", opts.config.CounterStates,
		"initPolicy", opts.config.InitPolicy,
		"associativity", opts.config.Associativity)

	result := benchmarks.Run(p, src, opts.samples)
	log.V(1).Info("run finished", "id", result.ID, "wallTime", result.WallTime)

	benchmarks.PrintResult(stdout, result)
	if opts.dump {
		benchmarks.PrintTable(stdout, p)
	}

	return 0
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	os.Exit(run(opts, os.Stdout, os.Stderr))
}
