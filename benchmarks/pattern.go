package benchmarks

import (
	"fmt"
	"math/rand/v2"
)

// MaxPatternLength is the widest rotating pattern register.
const MaxPatternLength = 64

// Source produces a stream of branch outcomes.
type Source interface {
	// Next returns the next outcome, true meaning taken.
	Next() bool
}

func patternMask(width uint) uint64 {
	if width >= MaxPatternLength {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// RotateLeft rotates the low width bits of v left by one. Bits above width
// are cleared.
func RotateLeft(v uint64, width uint) uint64 {
	mask := patternMask(width)
	v &= mask
	return ((v << 1) | (v >> (width - 1))) & mask
}

// Rotating replays a fixed bit pattern forever. Each call to Next returns the
// low bit of a width-bit register and then rotates the register left, so the
// outcome stream has a period that divides width.
type Rotating struct {
	width uint
	value uint64
}

// NewRotating creates a rotating source over the low width bits of init.
func NewRotating(width uint, init uint64) (*Rotating, error) {
	if width == 0 || width > MaxPatternLength {
		return nil, fmt.Errorf("pattern length must be in [1, %d], got %d", MaxPatternLength, width)
	}

	return &Rotating{
		width: width,
		value: init & patternMask(width),
	}, nil
}

// Value returns the current register contents.
func (r *Rotating) Value() uint64 {
	return r.value
}

// Next returns the low register bit and rotates.
func (r *Rotating) Next() bool {
	taken := r.value&1 == 1
	r.value = RotateLeft(r.value, r.width)
	return taken
}

// Random produces independent outcomes, each taken with a fixed probability.
type Random struct {
	rng   *rand.Rand
	taken float64
}

// NewRandom creates a seeded random source. taken is the probability of a
// taken outcome and is clamped to [0, 1].
func NewRandom(seed uint64, taken float64) *Random {
	return &Random{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		taken: min(max(taken, 0), 1),
	}
}

// Next returns the next random outcome.
func (r *Random) Next() bool {
	return r.rng.Float64() < r.taken
}
