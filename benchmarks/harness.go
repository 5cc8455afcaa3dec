// Package benchmarks drives branch predictors with synthetic outcome streams
// and reports how often they mispredict.
package benchmarks

import (
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/bbusim/timing/predictor"
)

// Result holds the outcome of one predictor run.
type Result struct {
	// ID uniquely identifies the run
	ID string `json:"id"`

	// Samples is the number of outcomes fed to the predictor
	Samples int `json:"samples"`

	// Mismatches is the number of predictions that differed from the outcome
	Mismatches uint64 `json:"mismatches"`

	// MismatchRate is Mismatches as a percentage of Samples
	MismatchRate float64 `json:"mismatch_rate"`

	// Stats is the predictor's cumulative statistics after the run
	Stats predictor.Stats `json:"stats"`

	// WallTime is the actual time taken by the run
	WallTime time.Duration `json:"wall_time_ns"`
}

// Run feeds samples outcomes from src to p, one Predict call per outcome,
// and counts the mismatches.
func Run(p *predictor.Predictor, src Source, samples int) Result {
	start := time.Now()

	var mismatches uint64
	for i := 0; i < samples; i++ {
		outcome := src.Next()
		if p.Predict(outcome) != outcome {
			mismatches++
		}
	}

	result := Result{
		ID:         xid.New().String(),
		Samples:    samples,
		Mismatches: mismatches,
		Stats:      p.Stats(),
		WallTime:   time.Since(start),
	}
	if samples > 0 {
		result.MismatchRate = float64(mismatches) / float64(samples) * 100
	}

	return result
}
