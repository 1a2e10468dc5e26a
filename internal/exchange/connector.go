package exchange

import (
	"context"

	"github.com/ledgerhand/ledgerhand/domain/balance"
	"github.com/ledgerhand/ledgerhand/domain/intent"
)

// Driver is the capability set a venue adapter must supply: boot, tick,
// balances, execute, check_open_orders. Venues are modeled as a flat
// interface with tagged construction (see factory.go), not an
// inheritance hierarchy.
type Driver interface {
	// Boot lists the venue's tradable pairs, intersects them with the
	// configured coins, and starts the Bookkeeper/Trader/Brokers and the
	// Treasury that drains them.
	Boot(ctx context.Context) error

	// Tick publishes one pulse to the driver's brokers. If actionable,
	// it also reloads balances and polls open orders.
	Tick(ctx context.Context, debug, actionable bool) error

	// Balances returns the venue's current account balances.
	Balances(ctx context.Context) ([]balance.Balance, error)

	// Execute submits an ExecutableTransaction and returns the
	// venue-issued order id.
	Execute(ctx context.Context, exec intent.Executable) (venueOrderID string, err error)

	// CheckOpenOrders polls venue status for every open Transaction and
	// advances its stage.
	CheckOpenOrders(ctx context.Context) error
}
