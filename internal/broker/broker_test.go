package broker

import (
	"io"
	"testing"

	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/intent"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/fin64"
	"github.com/ledgerhand/ledgerhand/internal/trader"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSink chan intent.Intent

func (c chanSink) Send(i intent.Intent) { c <- i }

type fakeStore struct {
	openCount int64
	hodl      []transaction.Transaction
}

func (f *fakeStore) CountOpen(exchangeName, symbol string) (int64, error) {
	return f.openCount, nil
}

func (f *fakeStore) HodlRows(exchangeName, symbol string) ([]transaction.Transaction, error) {
	return f.hodl, nil
}

func priceDelta(t *testing.T, side book.Side, v float64) book.Delta {
	t.Helper()
	f, err := fin64.New(v)
	require.NoError(t, err)
	return book.Delta{Side: side, Price: f, Quantity: 1}
}

func TestBrokerEmitsBuyWhenAskAtOrBelowLower(t *testing.T) {
	ob := book.New("BTCUSDT")
	ob.Apply(priceDelta(t, book.Bid, 90))
	ob.Apply(priceDelta(t, book.Ask, 98))

	store := &fakeStore{openCount: 0}
	intents := make(chanSink, 4)
	c := coin.Config{Symbol: "BTCUSDT", Support: 100, ProfitWanted: 0.04} // band [98,102]
	b := New("mandala", c, 3, ob, store, intents, zerolog.New(io.Discard))

	b.OnTick(trader.Output)

	select {
	case got := <-intents:
		assert.Equal(t, intent.Buy, got.Kind)
		assert.True(t, got.Price.Equal(decimal.NewFromFloat(98)))
	default:
		t.Fatal("expected a buy intent")
	}
}

func TestBrokerSkipsBuyAtCap(t *testing.T) {
	ob := book.New("BTCUSDT")
	ob.Apply(priceDelta(t, book.Bid, 90))
	ob.Apply(priceDelta(t, book.Ask, 98))

	store := &fakeStore{openCount: 3}
	intents := make(chanSink, 4)
	c := coin.Config{Symbol: "BTCUSDT", Support: 100, ProfitWanted: 0.04}
	b := New("mandala", c, 3, ob, store, intents, zerolog.New(io.Discard))

	b.OnTick(trader.Output)

	select {
	case got := <-intents:
		t.Fatalf("expected no intent, got %+v", got)
	default:
	}
}

func TestBrokerSellOpportunity(t *testing.T) {
	ob := book.New("BTCUSDT")
	ob.Apply(priceDelta(t, book.Bid, 101.5))
	ob.Apply(priceDelta(t, book.Ask, 110))

	store := &fakeStore{hodl: []transaction.Transaction{
		{ID: "low-cost", Symbol: "BTCUSDT", Price: decimal.NewFromFloat(98), Amount: decimal.NewFromFloat(1)},
		{ID: "too-high", Symbol: "BTCUSDT", Price: decimal.NewFromFloat(100), Amount: decimal.NewFromFloat(1)},
	}}
	intents := make(chanSink, 4)
	c := coin.Config{Symbol: "BTCUSDT", Support: 100, ProfitWanted: 0.02} // band [99,101]
	b := New("mandala", c, 3, ob, store, intents, zerolog.New(io.Discard))

	b.OnTick(trader.Output)
	close(intents)

	var sells []intent.Intent
	for i := range intents {
		sells = append(sells, i)
	}

	require.Len(t, sells, 1)
	assert.Equal(t, "low-cost", *sells[0].Meta.ExistingTransaction)
	assert.True(t, sells[0].Price.Equal(decimal.NewFromFloat(101.5)))
}

func TestBrokerDoesNothingWhenBookIncomplete(t *testing.T) {
	ob := book.New("BTCUSDT")
	ob.Apply(priceDelta(t, book.Bid, 90))

	store := &fakeStore{}
	intents := make(chanSink, 1)
	c := coin.Config{Symbol: "BTCUSDT", Support: 100, ProfitWanted: 0.04}
	b := New("mandala", c, 3, ob, store, intents, zerolog.New(io.Discard))

	b.OnTick(trader.Output)

	select {
	case got := <-intents:
		t.Fatalf("expected no intent, got %+v", got)
	default:
	}
}
