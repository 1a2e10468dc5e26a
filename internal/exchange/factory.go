package exchange

import (
	"fmt"

	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/ledgerhand/ledgerhand/internal/treasury"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store is the persistence surface a Driver needs: everything the Broker
// reads plus everything the Treasury reads and writes.
type Store interface {
	Insert(tx *transaction.Transaction) error
	Get(id string) (transaction.Transaction, error)
	Save(tx *transaction.Transaction) error
	InsertFinished(ft *transaction.FinishedTransaction) error
	OpenTransactions(exchangeName string) ([]transaction.Transaction, error)
	CountOpen(exchangeName, symbol string) (int64, error)
	HodlRows(exchangeName, symbol string) ([]transaction.Transaction, error)
}

// Params is everything a venue Constructor needs beyond its own Config:
// the shared sizing parameters, the configured coins, the persistence
// layer, and a logger. main builds one Params value per enabled venue.
type Params struct {
	Config                Config
	QuoteCurrency         string
	Coins                 []coin.Config
	MaxTransactionPerCoin int64
	MaxTradeSize          decimal.Decimal
	MinTradeSize          decimal.Decimal
	FeeHaircut            decimal.Decimal
	Store                 Store
	Notifier              treasury.Notifier
	Log                   zerolog.Logger
}

// Constructor builds a Driver for one venue from Params. Each venue
// package registers a Constructor under its own name at init time rather
// than the registry hardcoding concrete venue types.
type Constructor func(p Params) (Driver, error)

var registry = map[string]Constructor{}

// Register associates a venue name with its Constructor. Intended to be
// called from each venue package's init().
func Register(venue string, constructor Constructor) {
	registry[venue] = constructor
}

// New constructs the Driver registered under venue, or an error if no
// venue package registered that name.
func New(venue string, p Params) (Driver, error) {
	constructor, ok := registry[venue]
	if !ok {
		return nil, fmt.Errorf("exchange: unregistered venue %q", venue)
	}
	return constructor(p)
}
