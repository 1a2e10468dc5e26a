// Package book implements the order-book ledger: a price-keyed quantity map
// per side with a maintained best-price tail, and the OrderBook pairing the
// two sides for a single symbol.
package book

import (
	"fmt"

	"github.com/ledgerhand/ledgerhand/internal/fin64"
)

// Ordering selects which extremum a Ledger tracks as its tail.
type Ordering int

const (
	// Lowest tracks the minimum key (used for asks).
	Lowest Ordering = iota
	// Highest tracks the maximum key (used for bids).
	Highest
)

// Ledger is a price->quantity map for one side of an order book, with a
// cached tail equal to the extremum key under its Ordering.
type Ledger struct {
	ordering Ordering
	levels   map[fin64.Fin64]float64
	tail     *fin64.Fin64
}

// NewLedger returns an empty Ledger for the given ordering.
func NewLedger(ordering Ordering) *Ledger {
	return &Ledger{
		ordering: ordering,
		levels:   make(map[fin64.Fin64]float64),
	}
}

// moreExtreme reports whether a is "more extreme toward the tail" than b
// under the ledger's ordering: lower for Lowest, higher for Highest.
func (l *Ledger) moreExtreme(a, b fin64.Fin64) bool {
	if l.ordering == Lowest {
		return a.Less(b)
	}
	return b.Less(a)
}

// Put upserts price->qty when qty > 0, or deletes price when qty == 0.
// Panics if qty is negative: the caller violated the delta contract.
func (l *Ledger) Put(price fin64.Fin64, qty float64) {
	switch {
	case qty > 0:
		l.levels[price] = qty
		if l.tail == nil || l.moreExtreme(price, *l.tail) {
			t := price
			l.tail = &t
		}
	case qty == 0:
		l.remove(price)
	default:
		panic(fmt.Sprintf("book: negative quantity %v for price %v", qty, price))
	}
}

// remove deletes price from the ledger, recomputing tail if necessary.
func (l *Ledger) remove(price fin64.Fin64) {
	if l.tail != nil && l.moreExtreme(price, *l.tail) {
		panic("book: removal more extreme than current tail, ledger invariant broken")
	}
	if _, ok := l.levels[price]; !ok {
		return
	}
	delete(l.levels, price)

	if l.tail == nil || price != *l.tail {
		return
	}
	l.recomputeTail()
}

func (l *Ledger) recomputeTail() {
	if len(l.levels) == 0 {
		l.tail = nil
		return
	}
	var best fin64.Fin64
	first := true
	for p := range l.levels {
		if first || l.moreExtreme(p, best) {
			best = p
			first = false
		}
	}
	l.tail = &best
}

// Clear empties the ledger and resets the tail.
func (l *Ledger) Clear() {
	l.levels = make(map[fin64.Fin64]float64)
	l.tail = nil
}

// Tail returns the current extremum price, or false if the ledger is empty.
func (l *Ledger) Tail() (fin64.Fin64, bool) {
	if l.tail == nil {
		return fin64.Fin64{}, false
	}
	return *l.tail, true
}

// Level returns the resting quantity at price, or false if no such level.
func (l *Ledger) Level(price fin64.Fin64) (float64, bool) {
	q, ok := l.levels[price]
	return q, ok
}

// Len returns the number of resting price levels.
func (l *Ledger) Len() int {
	return len(l.levels)
}

// PriceLevel is a single (price, quantity) entry of IterSorted's output.
type PriceLevel struct {
	Price    fin64.Fin64
	Quantity float64
}

// IterSorted returns all levels sorted most-extreme-first under the
// ledger's ordering. The slice is a snapshot: safe to range over even if
// the ledger mutates afterward.
func (l *Ledger) IterSorted() []PriceLevel {
	out := make([]PriceLevel, 0, len(l.levels))
	for p, q := range l.levels {
		out = append(out, PriceLevel{Price: p, Quantity: q})
	}
	sortLevels(out, l.ordering)
	return out
}

func sortLevels(levels []PriceLevel, ordering Ordering) {
	// insertion sort: order-book depth is small (tens to low hundreds of
	// levels), and this keeps the package free of a sort.Slice closure
	// allocation on the hot iteration path.
	for i := 1; i < len(levels); i++ {
		j := i
		for j > 0 && moreExtremeStatic(levels[j].Price, levels[j-1].Price, ordering) {
			levels[j], levels[j-1] = levels[j-1], levels[j]
			j--
		}
	}
}

func moreExtremeStatic(a, b fin64.Fin64, ordering Ordering) bool {
	if ordering == Lowest {
		return a.Less(b)
	}
	return b.Less(a)
}
