// Package intent defines the TransactionIntent produced by a Broker and the
// ExecutableTransaction the Treasury derives from it after sizing.
package intent

import "github.com/shopspring/decimal"

// Kind distinguishes a buy intent from a sell intent.
type Kind int

const (
	Buy Kind = iota
	Sell
)

func (k Kind) String() string {
	if k == Sell {
		return "Sell"
	}
	return "Buy"
}

// Meta carries the existing Transaction id a Sell intent closes out. It is
// nil for Buy intents.
type Meta struct {
	ExistingTransaction *string
}

// Intent is a proposed transaction before sizing. For Buy, Amount is
// unset (sizing happens in the Treasury); for Sell, Amount is the lot
// chosen by the Broker from the Hodl row it is closing.
type Intent struct {
	Kind   Kind
	Symbol string
	Price  decimal.Decimal
	Amount decimal.Decimal
	Meta   Meta
}

// Sink accepts intents from a Broker. treasury.Queue satisfies it.
type Sink interface {
	Send(Intent)
}

// Executable is an Intent after the Treasury has materialized a buy
// Amount (or passed a sell Amount through unchanged), ready to submit to
// the venue.
type Executable struct {
	Kind   Kind
	Symbol string
	Price  decimal.Decimal
	Amount decimal.Decimal
	Meta   Meta
}
