package benchmarks

import (
	"fmt"
	"io"

	"github.com/sarchlab/bbusim/timing/predictor"
)

// formatBits renders the low width bits of v, most significant first.
func formatBits(v uint64, width uint) string {
	return fmt.Sprintf("%0*b", int(width), v&patternMask(width))
}

// PrintResult outputs a single run in a human-readable format.
func PrintResult(w io.Writer, r Result) {
	_, _ = fmt.Fprintf(w, "mismatch count = %d\n", r.Mismatches)
	_, _ = fmt.Fprintf(w, "mismatch rate = %.3f%%\n", r.MismatchRate)
	_, _ = fmt.Fprintf(w, "table misses = %d (%.1f%%)\n", r.Stats.TableMisses, r.Stats.TableMissRate())
	_, _ = fmt.Fprintf(w, "table evictions = %d\n", r.Stats.Evictions)
	_, _ = fmt.Fprintln(w, "")
}

// PrintTable dumps the predictor state: parameters, the shift register, and
// every counter in the table's Range order. For the fully associative table
// that is least to most recently used. A set-associative table lists set by
// set, least recently used first within each set.
func PrintTable(w io.Writer, p *predictor.Predictor) {
	config := p.Config()

	_, _ = fmt.Fprintln(w, "BBU:")
	_, _ = fmt.Fprintf(w, " - history bits: %d\n", config.HistoryWidth)
	_, _ = fmt.Fprintf(w, " - table size: %d\n", config.TableSize)
	_, _ = fmt.Fprintf(w, " - state machine state count: %d\n", config.CounterStates)
	_, _ = fmt.Fprintf(w, " - actual shift register status: %s\n", formatBits(p.History(), config.HistoryWidth))

	_, _ = fmt.Fprintln(w, "Branch-prediction table:")
	p.Table().Range(func(history, counter uint64) bool {
		_, _ = fmt.Fprintf(w, " %s -> %d\n", formatBits(history, config.HistoryWidth), counter)
		return true
	})

	_, _ = fmt.Fprintln(w, "-------------")
	_, _ = fmt.Fprintln(w, "")
}

// PrintSweep outputs one "init; mismatches" line per pattern.
func PrintSweep(w io.Writer, results []SweepResult) {
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%d; %d\n", r.Init, r.Mismatches)
	}
}

// PrintSweepCSV outputs sweep results in CSV format for easy comparison.
func PrintSweepCSV(w io.Writer, length uint, results []SweepResult) {
	_, _ = fmt.Fprintln(w, "init,pattern,samples,mismatches,mismatch_rate,table_misses,evictions")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%d,%s,%d,%d,%.3f,%d,%d\n",
			r.Init,
			formatBits(r.Init, length),
			r.Samples,
			r.Mismatches,
			r.MismatchRate,
			r.Stats.TableMisses,
			r.Stats.Evictions,
		)
	}
}
