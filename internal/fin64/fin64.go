// Package fin64 implements a finite float64 with a total order suitable for
// use as a sorted-map key. NaN and +/-Inf are rejected at construction time;
// every remaining bit pattern compares consistently with every other.
package fin64

import (
	"fmt"
	"math"
)

// Fin64 wraps a float64 known to be finite (no NaN, no Inf).
type Fin64 struct {
	bits uint64
}

// New validates v and returns a Fin64, or an error if v is NaN or infinite.
func New(v float64) (Fin64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Fin64{}, fmt.Errorf("fin64: %v is not finite", v)
	}
	return Fin64{bits: orderedBits(v)}, nil
}

// MustNew is New but panics on an invalid input. Intended for call sites
// where the value originates from a literal or a prior finiteness check.
func MustNew(v float64) Fin64 {
	f, err := New(v)
	if err != nil {
		panic(err)
	}
	return f
}

// orderedBits maps a float64's bit pattern to a uint64 ordering that agrees
// with float comparison across the full finite range: for non-negative
// floats the IEEE-754 bit pattern already sorts correctly, for negative
// floats every bit must be flipped.
func orderedBits(v float64) uint64 {
	b := math.Float64bits(v)
	if b&(1<<63) != 0 {
		return ^b
	}
	return b | (1 << 63)
}

func fromOrderedBits(b uint64) float64 {
	if b&(1<<63) != 0 {
		return math.Float64frombits(b &^ (1 << 63))
	}
	return math.Float64frombits(^b)
}

// Float64 returns the underlying value.
func (f Fin64) Float64() float64 {
	return fromOrderedBits(f.bits)
}

// Less reports whether f sorts strictly before g.
func (f Fin64) Less(g Fin64) bool {
	return f.bits < g.bits
}

// Compare returns -1, 0, or 1 as f is less than, equal to, or greater than g.
func (f Fin64) Compare(g Fin64) int {
	switch {
	case f.bits < g.bits:
		return -1
	case f.bits > g.bits:
		return 1
	default:
		return 0
	}
}

func (f Fin64) String() string {
	return fmt.Sprintf("%v", f.Float64())
}
