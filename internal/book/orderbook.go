package book

import (
	"sync"

	"github.com/ledgerhand/ledgerhand/internal/fin64"
)

// Side identifies which ledger an Delta targets.
type Side int

const (
	Bid Side = iota
	Ask
)

// Delta is a single order-book update: quantity > 0 upserts, quantity == 0
// deletes the price level.
type Delta struct {
	Side     Side
	Price    fin64.Fin64
	Quantity float64
}

// OrderBook pairs the two sides of a single symbol's book. It is shared
// between exactly one writer (a Bookie) and any number of readers (Brokers,
// status printers); all access is guarded by mu, held only for the
// duration of an apply or a snapshot read, never across a suspension point.
type OrderBook struct {
	mu     sync.Mutex
	Symbol string
	bids   *Ledger
	asks   *Ledger
}

// New returns an empty OrderBook for symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   NewLedger(Highest),
		asks:   NewLedger(Lowest),
	}
}

// Apply routes a single delta to the correct side's ledger.
func (b *OrderBook) Apply(d Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyLocked(d)
}

func (b *OrderBook) applyLocked(d Delta) {
	switch d.Side {
	case Bid:
		b.bids.Put(d.Price, d.Quantity)
	case Ask:
		b.asks.Put(d.Price, d.Quantity)
	}
}

// Update applies a batch of deltas in sequence, in the order given.
func (b *OrderBook) Update(deltas []Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range deltas {
		b.applyLocked(d)
	}
}

// Reload clears both sides and then applies bids and asks as a fresh
// snapshot.
func (b *OrderBook) Reload(bids, asks []Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids.Clear()
	b.asks.Clear()
	for _, d := range bids {
		b.applyLocked(d)
	}
	for _, d := range asks {
		b.applyLocked(d)
	}
}

// HighestBid returns the best bid price, or false if the bid side is empty.
func (b *OrderBook) HighestBid() (fin64.Fin64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Tail()
}

// LowestAsk returns the best ask price, or false if the ask side is empty.
func (b *OrderBook) LowestAsk() (fin64.Fin64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.Tail()
}

// TopOfBook returns (highestBid, lowestAsk) atomically under one lock
// acquisition, along with whether both sides were present.
func (b *OrderBook) TopOfBook() (bid, ask fin64.Fin64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bidV, bidOK := b.bids.Tail()
	askV, askOK := b.asks.Tail()
	if !bidOK || !askOK {
		return fin64.Fin64{}, fin64.Fin64{}, false
	}
	return bidV, askV, true
}

// Spread returns highestBid - lowestAsk, or false if either side is empty.
// A positive spread (ask below bid) indicates a momentarily crossed book;
// it is reported, never rejected.
func (b *OrderBook) Spread() (float64, bool) {
	bid, ask, ok := b.TopOfBook()
	if !ok {
		return 0, false
	}
	return bid.Float64() - ask.Float64(), true
}

// Crossed reports whether the book is currently crossed (ask < bid). It is
// a diagnostic only: callers must not use it to reject venue data.
func (b *OrderBook) Crossed() bool {
	spread, ok := b.Spread()
	return ok && spread > 0
}

// Bids returns a sorted snapshot of the bid side, best-first.
func (b *OrderBook) Bids() []PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.IterSorted()
}

// Asks returns a sorted snapshot of the ask side, best-first.
func (b *OrderBook) Asks() []PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.IterSorted()
}
