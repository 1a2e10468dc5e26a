// Package trader is the registry of Brokers for one exchange driver: it
// broadcasts the per-cycle Tick pulse to every registered broker.
package trader

import "sync"

// TickHandler receives a Tick pulse. Brokers implement this; Trader holds
// no broker-specific knowledge beyond it.
type TickHandler interface {
	OnTick(Tick)
}

// Trader fans one Tick pulse out to every registered handler, in
// registration order. Intents produced by a single handler during its
// OnTick call appear on that handler's own intent channel in generation
// order; Trader makes no ordering guarantee across handlers.
type Trader struct {
	mu       sync.Mutex
	handlers []TickHandler
}

// New returns an empty Trader.
func New() *Trader {
	return &Trader{}
}

// Register adds a handler to receive future Broadcast calls.
func (t *Trader) Register(h TickHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, h)
}

// Broadcast delivers tick to every registered handler synchronously. The
// call is single-writer (the owning exchange driver's tick loop); there is
// no internal queueing, so "latest value wins" falls out of the broadcast
// being synchronous rather than buffered.
func (t *Trader) Broadcast(tick Tick) {
	t.mu.Lock()
	handlers := make([]TickHandler, len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.Unlock()

	for _, h := range handlers {
		h.OnTick(tick)
	}
}
