// Package broker implements the per-(exchange,symbol) signal generator: it
// evaluates top-of-book against a support band and emits TransactionIntents.
package broker

import (
	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/intent"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/trader"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionSource is the read side of persisted transactions a Broker
// needs: the per-symbol open count for the inventory cap, and the Hodl
// rows it scans for sell opportunities.
type TransactionSource interface {
	CountOpen(exchangeName, symbol string) (int64, error)
	HodlRows(exchangeName, symbol string) ([]transaction.Transaction, error)
}

// Broker evaluates one symbol's book against its coin config on every Tick
// and emits intents onto Intents. It implements trader.TickHandler.
type Broker struct {
	ExchangeName          string
	Coin                  coin.Config
	MaxTransactionPerCoin int64

	book    *book.OrderBook
	store   TransactionSource
	Intents intent.Sink
	log     zerolog.Logger
}

// New returns a Broker wired to book, reading through store and emitting
// onto intents.
func New(exchangeName string, c coin.Config, maxPerCoin int64, ob *book.OrderBook, store TransactionSource, intents intent.Sink, log zerolog.Logger) *Broker {
	return &Broker{
		ExchangeName:          exchangeName,
		Coin:                  c,
		MaxTransactionPerCoin: maxPerCoin,
		book:                  ob,
		store:                 store,
		Intents:               intents,
		log:                   log.With().Str("exchange", exchangeName).Str("symbol", c.Symbol).Logger(),
	}
}

// OnTick evaluates the signal rules for this pulse. Silent does nothing;
// Output additionally logs a status line; Actionable's balance/open-order
// side effects are the driver's responsibility, not the Broker's.
func (b *Broker) OnTick(tick trader.Tick) {
	if tick == trader.Silent {
		return
	}

	bid, ask, ok := b.book.TopOfBook()
	if !ok {
		return
	}

	if tick == trader.Output {
		b.log.Info().Float64("bid", bid.Float64()).Float64("ask", ask.Float64()).Msg("top of book")
	}

	band := b.Coin.Band()
	if ask.Float64() <= band.Lower {
		b.evaluateBuy(ask.Float64())
	}
	if bid.Float64() >= band.Upper {
		b.evaluateSell(bid.Float64())
	}
}

func (b *Broker) evaluateBuy(ask float64) {
	n, err := b.store.CountOpen(b.ExchangeName, b.Coin.Symbol)
	if err != nil {
		b.log.Error().Err(err).Msg("count open transactions")
		return
	}
	if n >= b.MaxTransactionPerCoin {
		return
	}

	b.Intents.Send(intent.Intent{
		Kind:   intent.Buy,
		Symbol: b.Coin.Symbol,
		Price:  decimal.NewFromFloat(ask),
	})
}

func (b *Broker) evaluateSell(bid float64) {
	rows, err := b.store.HodlRows(b.ExchangeName, b.Coin.Symbol)
	if err != nil {
		b.log.Error().Err(err).Msg("load hodl rows")
		return
	}

	threshold := 1 + b.Coin.ProfitWanted
	for _, row := range rows {
		trigger := row.Price.Mul(decimal.NewFromFloat(threshold))
		if decimal.NewFromFloat(bid).LessThan(trigger) {
			continue
		}
		id := row.ID
		b.Intents.Send(intent.Intent{
			Kind:   intent.Sell,
			Symbol: b.Coin.Symbol,
			Price:  decimal.NewFromFloat(bid),
			Amount: row.Amount,
			Meta:   intent.Meta{ExistingTransaction: &id},
		})
	}
}
