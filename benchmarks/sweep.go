package benchmarks

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/bbusim/timing/predictor"
)

// MaxSweepLength bounds the pattern length of a sweep. A sweep runs and
// keeps the results of 2^(length-2) predictors.
const MaxSweepLength = 20

// SweepConfig configures a pattern sweep.
type SweepConfig struct {
	// PatternLength is the width of the rotating pattern register.
	PatternLength uint

	// Samples is the number of outcomes per pattern.
	Samples int

	// Predictor configures the fresh predictor built for every pattern.
	Predictor predictor.Config

	// Workers is the number of patterns evaluated at once.
	// Zero means GOMAXPROCS.
	Workers int
}

// DefaultSweepConfig returns the sweep used by the benchmark command.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		PatternLength: 9,
		Samples:       10000,
		Predictor:     predictor.DefaultConfig(),
	}
}

// SweepResult is the result for one initial pattern.
type SweepResult struct {
	// Init is the pattern register's initial value
	Init uint64 `json:"init"`

	Result
}

// Sweep runs a fresh predictor against every rotating pattern whose initial
// value is odd and below 2^(PatternLength-1). Odd values cover every
// arrangement of zeros and ones up to rotation. Results are in ascending
// order of Init. Patterns run in parallel, each with its own predictor.
func Sweep(ctx context.Context, config SweepConfig) ([]SweepResult, error) {
	if config.PatternLength < 2 || config.PatternLength > MaxSweepLength {
		return nil, fmt.Errorf("sweep pattern length must be in [2, %d], got %d",
			MaxSweepLength, config.PatternLength)
	}
	if err := config.Predictor.Validate(); err != nil {
		return nil, err
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	limit := uint64(1) << (config.PatternLength - 1)
	results := make([]SweepResult, limit/2)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range results {
		init := uint64(2*i + 1)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p, err := predictor.New(config.Predictor)
			if err != nil {
				return err
			}
			defer p.Destroy()

			src, err := NewRotating(config.PatternLength, init)
			if err != nil {
				return err
			}

			results[i] = SweepResult{
				Init:   init,
				Result: Run(p, src, config.Samples),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pattern sweep: %w", err)
	}

	return results, nil
}
