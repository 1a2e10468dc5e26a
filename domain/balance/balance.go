// Package balance tracks per-symbol available/locked balances reloaded
// atomically from a venue.
package balance

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Balance is the available and locked amount of a single asset.
type Balance struct {
	Symbol    string
	Available decimal.Decimal
	Locked    decimal.Decimal
}

// Map is a concurrency-safe snapshot of balances for one exchange, replaced
// wholesale on each actionable tick's balance reload.
type Map struct {
	mu   sync.RWMutex
	byID map[string]Balance
}

// NewMap returns an empty balance Map.
func NewMap() *Map {
	return &Map{byID: make(map[string]Balance)}
}

// Reload atomically replaces the entire balance set. Any symbol missing
// from balances afterward reads as zero available/locked.
func (m *Map) Reload(balances []Balance) {
	next := make(map[string]Balance, len(balances))
	for _, b := range balances {
		next[b.Symbol] = b
	}
	m.mu.Lock()
	m.byID = next
	m.mu.Unlock()
}

// Available returns the available amount for symbol, or zero if unknown.
func (m *Map) Available(symbol string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.byID[symbol]; ok {
		return b.Available
	}
	return decimal.Zero
}

// Get returns the full Balance for symbol and whether it is known.
func (m *Map) Get(symbol string) (Balance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byID[symbol]
	return b, ok
}
