// Package treasury is the per-exchange single-consumer intent handler: it
// sizes orders against live balances, submits them to the venue, and
// advances the persisted transaction stage machine.
package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerhand/ledgerhand/domain/balance"
	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/intent"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Venue submits an Executable to the exchange and returns the venue-issued
// order id.
type Venue interface {
	Execute(ctx context.Context, exec intent.Executable) (venueOrderID string, err error)
}

// Store is the persistence surface Treasury needs: creating Transaction
// rows on Buy, updating them and recording FinishedTransaction rows on
// Sell.
type Store interface {
	Insert(tx *transaction.Transaction) error
	Get(id string) (transaction.Transaction, error)
	Save(tx *transaction.Transaction) error
	InsertFinished(ft *transaction.FinishedTransaction) error
	OpenTransactions(exchangeName string) ([]transaction.Transaction, error)
}

// Config holds the sizing parameters from the top-level bot config that
// apply to every coin on this exchange.
type Config struct {
	QuoteCurrency string
	MaxTradeSize  decimal.Decimal
	MinTradeSize  decimal.Decimal
	// FeeHaircut is applied on BuyFilled -> Hodl to reserve venue
	// commissions (see stage.go). Venue- and asset-specific; 0.99 is a
	// common default, not a hardcoded constant.
	FeeHaircut decimal.Decimal
}

// Notifier publishes a Transaction's current stage to an external
// dashboard. Best-effort: Treasury never lets a Notifier failure affect
// its own processing. internal/notify.Publisher satisfies this.
type Notifier interface {
	PublishStage(tx transaction.Transaction)
}

// Treasury processes one exchange's intent Queue sequentially. Sequential
// processing is the concurrency discipline that protects available
// balance from oversell: there is exactly one consumer per exchange.
type Treasury struct {
	ExchangeName string
	cfg          Config
	coins        map[string]coin.Config
	balances     *balance.Map
	store        Store
	venue        Venue
	notifier     Notifier
	log          zerolog.Logger
}

// New returns a Treasury for one exchange. notifier may be nil: stage
// publication is then skipped entirely. coins is keyed by symbol and
// supplies the per-symbol lot metadata (integer-lot flooring) sizeBuy
// needs; a symbol absent from coins is sized with no lot adjustment.
func New(exchangeName string, cfg Config, coins []coin.Config, balances *balance.Map, store Store, venue Venue, notifier Notifier, log zerolog.Logger) *Treasury {
	bySymbol := make(map[string]coin.Config, len(coins))
	for _, c := range coins {
		bySymbol[c.Symbol] = c
	}
	return &Treasury{
		ExchangeName: exchangeName,
		cfg:          cfg,
		coins:        bySymbol,
		balances:     balances,
		store:        store,
		venue:        venue,
		notifier:     notifier,
		log:          log.With().Str("exchange", exchangeName).Logger(),
	}
}

func (t *Treasury) notify(tx transaction.Transaction) {
	if t.notifier == nil {
		return
	}
	t.notifier.PublishStage(tx)
}

// Run drains q until ctx is cancelled, processing one intent at a time.
func (t *Treasury) Run(ctx context.Context, q *Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		iv, err := q.RecvTimeout(500 * time.Millisecond)
		if err != nil {
			continue
		}
		t.process(ctx, iv)
	}
}

func (t *Treasury) process(ctx context.Context, iv intent.Intent) {
	switch iv.Kind {
	case intent.Buy:
		t.processBuy(ctx, iv)
	case intent.Sell:
		t.processSell(ctx, iv)
	}
}

func (t *Treasury) processBuy(ctx context.Context, iv intent.Intent) {
	exec, ok := t.sizeBuy(iv)
	if !ok {
		return
	}

	orderID, err := t.venue.Execute(ctx, exec)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", iv.Symbol).Msg("buy submission failed, not retried")
		return
	}

	tx := &transaction.Transaction{
		ID:            uuid.NewString(),
		ExchangeName:  t.ExchangeName,
		BuyExchangeID: &orderID,
		Amount:        exec.Amount,
		Symbol:        exec.Symbol,
		Price:         exec.Price,
		Stage:         transaction.BuyTransactionOpen,
	}
	if err := t.store.Insert(tx); err != nil {
		// Insert failures on this table are fatal: schema or
		// connectivity has collapsed.
		panic(err)
	}
	t.notify(*tx)
}

// sizeBuy implements the buy-sizing algorithm: shrink quote_size by 1%
// multiplicative steps until it no longer exceeds the available quote
// balance, drop if the result falls below min_trade_size, then convert to
// base-asset amount rounded down to 2 decimals (further floored to an
// integer for venue-declared integer-lot symbols).
func (t *Treasury) sizeBuy(iv intent.Intent) (intent.Executable, bool) {
	available, known := t.balances.Get(t.cfg.QuoteCurrency)
	if !known {
		panic(fmt.Sprintf("treasury: no balance loaded for quote currency %q, misconfiguration", t.cfg.QuoteCurrency))
	}
	b := available.Available

	quoteSize := t.cfg.MaxTradeSize
	for quoteSize.GreaterThan(b) {
		quoteSize = quoteSize.Sub(quoteSize.Mul(decimal.NewFromFloat(0.01)))
	}

	if quoteSize.LessThan(t.cfg.MinTradeSize) {
		t.log.Info().Str("symbol", iv.Symbol).Str("quote_size", quoteSize.String()).Msg("buy intent dropped below min_trade_size")
		return intent.Executable{}, false
	}

	amount := quoteSize.Div(iv.Price).Truncate(2)
	amount = ApplyLotStep(t.coins[iv.Symbol], amount)

	return intent.Executable{
		Kind:   intent.Buy,
		Symbol: iv.Symbol,
		Price:  iv.Price,
		Amount: amount,
		Meta:   iv.Meta,
	}, true
}

// ApplyLotStep floors amount to a whole unit for integer-lot symbols, per
// the coin config sizeBuy resolved for the intent's symbol. Exported so a
// venue driver can also apply it to amounts it sizes outside the normal
// buy path (e.g. a retry against refreshed venue symbol metadata).
func ApplyLotStep(c coin.Config, amount decimal.Decimal) decimal.Decimal {
	if c.IntegerLot {
		return amount.Truncate(0)
	}
	return amount
}

func (t *Treasury) processSell(ctx context.Context, iv intent.Intent) {
	if iv.Meta.ExistingTransaction == nil {
		t.log.Error().Str("symbol", iv.Symbol).Msg("sell intent missing existing_transaction, dropped")
		return
	}

	exec := intent.Executable{
		Kind:   intent.Sell,
		Symbol: iv.Symbol,
		Price:  iv.Price,
		Amount: iv.Amount,
		Meta:   iv.Meta,
	}

	orderID, err := t.venue.Execute(ctx, exec)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", iv.Symbol).Msg("sell submission failed, not retried")
		return
	}

	tx, err := t.store.Get(*iv.Meta.ExistingTransaction)
	if err != nil {
		t.log.Error().Err(err).Str("transaction_id", *iv.Meta.ExistingTransaction).Msg("load transaction for sell")
		return
	}

	tx.SellExchangeID = &orderID
	tx.Advance(transaction.SellTransactionOpen)
	if err := t.store.Save(&tx); err != nil {
		t.log.Error().Err(err).Msg("save transaction after sell submission")
		return
	}
	t.notify(tx)

	ft := &transaction.FinishedTransaction{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		AmountBought:  tx.Amount,
		BuyPrice:      tx.Price,
		AmountSold:    exec.Amount,
		SellPrice:     exec.Price,
	}
	if err := t.store.InsertFinished(ft); err != nil {
		panic(err)
	}
}
