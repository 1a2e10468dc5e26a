// Package poppy is the fixed-interval scheduler that drives ticks across
// every registered exchange driver.
package poppy

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerhand/ledgerhand/internal/exchange"
	"github.com/rs/zerolog"
)

// Period is the fixed tick interval.
const Period = time.Second

// debugEvery and actionableEvery set how often the debug/actionable flags
// fire, in ticks.
const (
	debugEvery      = 6
	actionableEvery = 20
)

// Poppy ticks every registered driver once per Period, setting debug every
// 6th tick and actionable every 20th.
type Poppy struct {
	mu      sync.Mutex
	drivers map[string]exchange.Driver
	log     zerolog.Logger
}

// New returns an empty Poppy.
func New(log zerolog.Logger) *Poppy {
	return &Poppy{
		drivers: make(map[string]exchange.Driver),
		log:     log,
	}
}

// Register adds an exchange driver to be ticked every cycle.
func (p *Poppy) Register(name string, d exchange.Driver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drivers[name] = d
}

// Run drives ticks until ctx is cancelled. Deadlines are computed by
// advancing a cumulative next-tick time by Period until it is no longer in
// the past, skipping missed ticks rather than stacking them (catch-up
// floor): a long GC pause or blocked tick produces one delayed tick, not a
// burst of queued ones.
func (p *Poppy) Run(ctx context.Context) {
	var count uint64
	nextTick := time.Now().Add(Period)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(nextTick)):
		}

		now := time.Now()
		for !nextTick.After(now) {
			nextTick = nextTick.Add(Period)
		}

		count++
		debug := count%debugEvery == 0
		actionable := count%actionableEvery == 0
		p.fanOut(ctx, debug, actionable)
	}
}

func (p *Poppy) fanOut(ctx context.Context, debug, actionable bool) {
	p.mu.Lock()
	drivers := make(map[string]exchange.Driver, len(p.drivers))
	for name, d := range p.drivers {
		drivers[name] = d
	}
	p.mu.Unlock()

	for name, d := range drivers {
		go func(name string, d exchange.Driver) {
			if err := d.Tick(ctx, debug, actionable); err != nil {
				p.log.Error().Err(err).Str("exchange", name).Msg("tick failed")
			}
		}(name, d)
	}
}
