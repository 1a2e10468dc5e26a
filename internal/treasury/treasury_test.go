package treasury

import (
	"context"
	"io"
	"testing"

	"github.com/ledgerhand/ledgerhand/domain/balance"
	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/intent"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVenue struct {
	executed []intent.Executable
	nextID   string
	err      error
}

func (f *fakeVenue) Execute(ctx context.Context, exec intent.Executable) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.executed = append(f.executed, exec)
	return f.nextID, nil
}

type fakeStore struct {
	inserted []*transaction.Transaction
	byID     map[string]transaction.Transaction
	finished []*transaction.FinishedTransaction
	saved    []*transaction.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]transaction.Transaction)}
}

func (s *fakeStore) Insert(tx *transaction.Transaction) error {
	s.inserted = append(s.inserted, tx)
	s.byID[tx.ID] = *tx
	return nil
}

func (s *fakeStore) Get(id string) (transaction.Transaction, error) {
	return s.byID[id], nil
}

func (s *fakeStore) Save(tx *transaction.Transaction) error {
	s.saved = append(s.saved, tx)
	s.byID[tx.ID] = *tx
	return nil
}

func (s *fakeStore) InsertFinished(ft *transaction.FinishedTransaction) error {
	s.finished = append(s.finished, ft)
	return nil
}

func (s *fakeStore) OpenTransactions(exchangeName string) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	for _, tx := range s.byID {
		if tx.Stage.IsOpen() {
			out = append(out, tx)
		}
	}
	return out, nil
}

func testTreasury(t *testing.T, available decimal.Decimal, venue *fakeVenue, store *fakeStore) *Treasury {
	t.Helper()
	balances := balance.NewMap()
	balances.Reload([]balance.Balance{{Symbol: "USDT", Available: available}})
	cfg := Config{
		QuoteCurrency: "USDT",
		MaxTradeSize:  decimal.NewFromFloat(100),
		MinTradeSize:  decimal.NewFromFloat(10),
		FeeHaircut:    decimal.NewFromFloat(0.99),
	}
	return New("mandala", cfg, nil, balances, store, venue, nil, zerolog.New(io.Discard))
}

func TestBuySizingShrinksToAvailable(t *testing.T) {
	venue := &fakeVenue{nextID: "order-1"}
	store := newFakeStore()
	tr := testTreasury(t, decimal.NewFromFloat(47.3), venue, store)

	tr.processBuy(context.Background(), intent.Intent{
		Kind: intent.Buy, Symbol: "BTCUSDT", Price: decimal.NewFromFloat(2.0),
	})

	require.Len(t, venue.executed, 1)
	exec := venue.executed[0]
	assert.True(t, exec.Amount.GreaterThan(decimal.Zero))

	quoteSize := exec.Amount.Mul(decimal.NewFromFloat(2.0))
	assert.True(t, quoteSize.LessThanOrEqual(decimal.NewFromFloat(47.3)))
	require.Len(t, store.inserted, 1)
	assert.Equal(t, transaction.BuyTransactionOpen, store.inserted[0].Stage)
}

func TestBuySizingFloorsIntegerLotSymbols(t *testing.T) {
	venue := &fakeVenue{nextID: "order-1"}
	store := newFakeStore()
	balances := balance.NewMap()
	balances.Reload([]balance.Balance{{Symbol: "USDT", Available: decimal.NewFromFloat(1000)}})
	cfg := Config{QuoteCurrency: "USDT", MaxTradeSize: decimal.NewFromFloat(100), MinTradeSize: decimal.NewFromFloat(10), FeeHaircut: decimal.NewFromFloat(0.99)}
	coins := []coin.Config{{Symbol: "DOGEUSDT", IntegerLot: true}}
	tr := New("mandala", cfg, coins, balances, store, venue, nil, zerolog.New(io.Discard))

	tr.processBuy(context.Background(), intent.Intent{
		Kind: intent.Buy, Symbol: "DOGEUSDT", Price: decimal.NewFromFloat(0.15),
	})

	require.Len(t, venue.executed, 1)
	assert.True(t, venue.executed[0].Amount.Equal(venue.executed[0].Amount.Truncate(0)))
}

func TestBuySizingDropsBelowMinTradeSize(t *testing.T) {
	venue := &fakeVenue{nextID: "order-1"}
	store := newFakeStore()
	tr := testTreasury(t, decimal.NewFromFloat(5), venue, store)

	tr.processBuy(context.Background(), intent.Intent{
		Kind: intent.Buy, Symbol: "BTCUSDT", Price: decimal.NewFromFloat(2.0),
	})

	assert.Empty(t, venue.executed)
	assert.Empty(t, store.inserted)
}

func TestBuyMissingQuoteBalancePanics(t *testing.T) {
	venue := &fakeVenue{nextID: "order-1"}
	store := newFakeStore()
	balances := balance.NewMap() // no USDT loaded
	cfg := Config{QuoteCurrency: "USDT", MaxTradeSize: decimal.NewFromFloat(100), MinTradeSize: decimal.NewFromFloat(10), FeeHaircut: decimal.NewFromFloat(0.99)}
	tr := New("mandala", cfg, nil, balances, store, venue, nil, zerolog.New(io.Discard))

	assert.Panics(t, func() {
		tr.processBuy(context.Background(), intent.Intent{Kind: intent.Buy, Symbol: "BTCUSDT", Price: decimal.NewFromFloat(2.0)})
	})
}

func TestSellPassesAmountThroughAndRecordsFinished(t *testing.T) {
	venue := &fakeVenue{nextID: "sell-order-1"}
	store := newFakeStore()
	store.byID["tx-1"] = transaction.Transaction{
		ID: "tx-1", ExchangeName: "mandala", Symbol: "BTCUSDT",
		Amount: decimal.NewFromFloat(9.9), Price: decimal.NewFromFloat(100),
		Stage: transaction.Hodl,
	}
	tr := testTreasury(t, decimal.NewFromFloat(1000), venue, store)

	id := "tx-1"
	tr.processSell(context.Background(), intent.Intent{
		Kind: intent.Sell, Symbol: "BTCUSDT", Price: decimal.NewFromFloat(101.5),
		Amount: decimal.NewFromFloat(9.9), Meta: intent.Meta{ExistingTransaction: &id},
	})

	require.Len(t, venue.executed, 1)
	assert.True(t, venue.executed[0].Amount.Equal(decimal.NewFromFloat(9.9)))

	require.Len(t, store.saved, 1)
	assert.Equal(t, transaction.SellTransactionOpen, store.saved[0].Stage)

	require.Len(t, store.finished, 1)
	assert.True(t, store.finished[0].AmountSold.Equal(decimal.NewFromFloat(9.9)))
}

func TestStageAdvancesOnFilledWithFeeHaircut(t *testing.T) {
	venue := &fakeVenue{}
	store := newFakeStore()
	tr := testTreasury(t, decimal.NewFromFloat(1000), venue, store)

	tx := transaction.Transaction{ID: "tx-1", Stage: transaction.BuyTransactionOpen}
	changed := tr.advanceOnStatus(&tx, StatusFilled, decimal.NewFromFloat(10))

	assert.True(t, changed)
	assert.Equal(t, transaction.Hodl, tx.Stage)
	assert.True(t, tx.Amount.Equal(decimal.NewFromFloat(9.9)))
}

type fakeNotifier struct {
	published []transaction.Transaction
}

func (f *fakeNotifier) PublishStage(tx transaction.Transaction) {
	f.published = append(f.published, tx)
}

func TestProcessBuyNotifiesOnInsert(t *testing.T) {
	venue := &fakeVenue{nextID: "order-1"}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	balances := balance.NewMap()
	balances.Reload([]balance.Balance{{Symbol: "USDT", Available: decimal.NewFromFloat(100)}})
	cfg := Config{QuoteCurrency: "USDT", MaxTradeSize: decimal.NewFromFloat(100), MinTradeSize: decimal.NewFromFloat(10), FeeHaircut: decimal.NewFromFloat(0.99)}
	tr := New("mandala", cfg, nil, balances, store, venue, notifier, zerolog.New(io.Discard))

	tr.processBuy(context.Background(), intent.Intent{Kind: intent.Buy, Symbol: "BTCUSDT", Price: decimal.NewFromFloat(2.0)})

	require.Len(t, notifier.published, 1)
	assert.Equal(t, transaction.BuyTransactionOpen, notifier.published[0].Stage)
}

func TestStageNeverMovesBackward(t *testing.T) {
	tx := transaction.Transaction{ID: "tx-1", Stage: transaction.Hodl}
	assert.Panics(t, func() {
		tx.Advance(transaction.BuyTransactionOpen)
	})
}
