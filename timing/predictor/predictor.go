// Package predictor implements a two-level branch predictor: a shift register
// of recent outcomes selects a saturating counter in a bounded LRU table.
package predictor

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/bbusim/timing/cache"
)

// Stats holds statistics for the predictor.
type Stats struct {
	// Predictions is the total number of predictions made.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
	// TableMisses is the number of predictions whose history had no counter
	// and got a freshly initialized one.
	TableMisses uint64
	// Evictions is the number of counters dropped to make room for another
	// history.
	Evictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s Stats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// TableMissRate returns the share of predictions that missed the table, as
// a percentage.
func (s Stats) TableMissRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.TableMisses) / float64(s.Predictions) * 100
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithTable makes the predictor store its counters in t instead of a table
// built from the config. The predictor takes ownership of t.
func WithTable(t cache.Table) Option {
	return func(p *Predictor) {
		p.table = t
	}
}

// WithLogger sets the logger for table diagnostics. Evictions are logged at
// verbosity 2.
func WithLogger(log logr.Logger) Option {
	return func(p *Predictor) {
		p.log = log
	}
}

// Predictor predicts branch outcomes from the history of previous outcomes.
//
// Counter states run from 0 (strongly not taken) to CounterStates-1
// (strongly taken). A Predictor is not safe for concurrent use; independent
// predictors share nothing.
type Predictor struct {
	config  Config
	mask    uint64
	history uint64

	table cache.Table
	log   logr.Logger
	stats Stats
}

// New creates a predictor with an empty table and a zero history.
func New(config Config, opts ...Option) (*Predictor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Predictor{
		config: config,
		mask:   historyMask(config.HistoryWidth),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.table == nil {
		t, err := newTable(config)
		if err != nil {
			return nil, err
		}
		p.table = t
	}
	p.table.OnEvict(p.evicted)

	return p, nil
}

// newTable builds the counter table described by config.
func newTable(config Config) (cache.Table, error) {
	if config.Associativity == 0 {
		t, err := cache.New(config.TableSize)
		if err != nil {
			return nil, fmt.Errorf("building counter table: %w", err)
		}
		return t, nil
	}

	t, err := cache.NewSetAssociative(cache.SetAssocConfig{
		NumSets:       config.TableSize / config.Associativity,
		Associativity: config.Associativity,
	})
	if err != nil {
		return nil, fmt.Errorf("building counter table: %w", err)
	}
	return t, nil
}

func historyMask(width uint) uint64 {
	if width >= MaxHistoryWidth {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func (p *Predictor) evicted(history, counter uint64) {
	p.stats.Evictions++
	p.log.V(2).Info("counter evicted", "history", history, "counter", counter)
}

// Config returns the predictor configuration.
func (p *Predictor) Config() Config {
	return p.config
}

// History returns the current shift register value.
func (p *Predictor) History() uint64 {
	return p.history
}

// Table returns the counter table. Callers may inspect it with Peek and
// Range; anything that reorders it changes which counter is evicted next.
func (p *Predictor) Table() cache.Table {
	return p.table
}

// Counter returns the counter stored for history without touching the
// table's recency order.
func (p *Predictor) Counter(history uint64) (uint64, bool) {
	e := p.table.Peek(history)
	if e == nil {
		return 0, false
	}
	return e.Value, true
}

// initialCounter returns the starting value for the current history.
func (p *Predictor) initialCounter() uint64 {
	mid := p.config.CounterStates / 2
	if p.config.InitPolicy == InitMidpoint {
		return mid
	}

	// The low history bit is the most recent outcome.
	return min(mid+(p.history&1), p.config.CounterStates-1)
}

// Predict returns the prediction for the current history, then trains the
// counter with the actual outcome and shifts the outcome into the history.
func (p *Predictor) Predict(outcome bool) bool {
	e := p.table.Find(p.history)
	if e == nil {
		p.stats.TableMisses++
		e = p.table.InsertOrUpdate(p.history, p.initialCounter())
	}

	taken := e.Value > p.config.CounterStates/2

	p.stats.Predictions++
	if taken == outcome {
		p.stats.Correct++
	} else {
		p.stats.Mispredictions++
	}

	// Saturating counter update
	if outcome {
		if e.Value < p.config.CounterStates-1 {
			e.Value++
		}
	} else {
		if e.Value > 0 {
			e.Value--
		}
	}

	p.history <<= 1
	if outcome {
		p.history |= 1
	}
	p.history &= p.mask

	return taken
}

// Stats returns the predictor statistics.
func (p *Predictor) Stats() Stats {
	return p.stats
}

// ResetStats clears predictor and table statistics.
func (p *Predictor) ResetStats() {
	p.stats = Stats{}
	p.table.ResetStats()
}

// Reset clears the history, every counter, and all statistics.
func (p *Predictor) Reset() {
	p.history = 0
	p.table.Reset()
	p.ResetStats()
}

// Destroy releases the counter table. The predictor must not be used
// afterwards.
func (p *Predictor) Destroy() {
	p.table.Destroy()
}
