package mandala

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ledgerhand/ledgerhand/domain/balance"
	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/intent"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/bookie"
	"github.com/ledgerhand/ledgerhand/internal/bookkeeper"
	"github.com/ledgerhand/ledgerhand/internal/broker"
	"github.com/ledgerhand/ledgerhand/internal/exchange"
	"github.com/ledgerhand/ledgerhand/internal/trader"
	"github.com/ledgerhand/ledgerhand/internal/treasury"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const name = "mandala"

func init() {
	exchange.Register(name, New)
}

// Driver is the mandala venue adapter: owns the Bookkeeper, the Trader's
// brokers, and the Treasury that executes against this venue.
type Driver struct {
	client                *Client
	wssURL                string
	coins                 []coin.Config
	maxTransactionPerCoin int64
	store                 exchange.Store
	balances              *balance.Map
	log                   zerolog.Logger

	bk       *bookkeeper.Bookkeeper
	trd      *trader.Trader
	treasury *treasury.Treasury
	queue    *treasury.Queue

	streamErr atomic.Pointer[error]
}

// New builds a mandala Driver; it is the exchange.Constructor that init
// registers under the name "mandala".
func New(p exchange.Params) (exchange.Driver, error) {
	d := &Driver{
		client:                NewClient(p.Config.Credentials.APIKey, p.Config.Credentials.APISecret, p.Config.RestURL),
		wssURL:                p.Config.WSSURL,
		coins:                 p.Coins,
		maxTransactionPerCoin: p.MaxTransactionPerCoin,
		store:                 p.Store,
		balances:              balance.NewMap(),
		log:                   p.Log.With().Str("exchange", name).Logger(),
		trd:                   trader.New(),
		queue:                 treasury.NewQueue(),
	}

	d.treasury = treasury.New(name, treasury.Config{
		QuoteCurrency: p.QuoteCurrency,
		MaxTradeSize:  p.MaxTradeSize,
		MinTradeSize:  p.MinTradeSize,
		FeeHaircut:    p.FeeHaircut,
	}, p.Coins, d.balances, p.Store, d, p.Notifier, p.Log)

	return d, nil
}

// Boot lists the venue's tradable pairs, intersects them with the
// configured coins, starts the Bookkeeper's reconciliation loops and depth
// stream, registers one Broker per accepted coin feeding the Treasury's
// queue, and starts the Treasury consuming that queue.
func (d *Driver) Boot(ctx context.Context) error {
	venueSymbols, err := d.client.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("mandala: list symbols: %w", err)
	}
	available := make(map[string]bool, len(venueSymbols))
	for _, s := range venueSymbols {
		available[s] = true
	}

	var accepted []string
	for _, c := range d.coins {
		if !available[c.Symbol] {
			d.log.Warn().Str("symbol", c.Symbol).Msg("configured coin not listed on venue, rejected")
			continue
		}
		accepted = append(accepted, c.Symbol)
	}

	d.bk = bookkeeper.New(name, accepted, d.log)
	d.bk.StartBookies(ctx, func(symbol string) bookie.SnapshotFetcher {
		return func(ctx context.Context) (bookie.Snapshot, error) {
			return d.fetchSnapshot(ctx, symbol)
		}
	})

	books := d.bk.IterBooks()
	for _, c := range d.coins {
		ob, ok := books[c.Symbol]
		if !ok {
			continue
		}
		br := broker.New(name, c, d.maxTransactionPerCoin, ob, d.store, d.queue, d.log)
		d.trd.Register(br)
	}

	subscribeMsg := buildSubscribeMessage(accepted)
	go func() {
		if err := d.bk.Run(ctx, d.wssURL, subscribeMsg, decodeDepthEvent); err != nil && ctx.Err() == nil {
			wrapped := fmt.Errorf("mandala: depth stream terminated: %w", err)
			d.streamErr.Store(&wrapped)
			d.log.Error().Err(err).Msg("depth stream closed, affected books now stale")
		}
	}()

	go d.treasury.Run(ctx, d.queue)

	return nil
}

// Tick publishes one pulse to every registered broker. On an actionable
// tick it also reloads balances and polls open orders.
func (d *Driver) Tick(ctx context.Context, debug, actionable bool) error {
	d.trd.Broadcast(trader.Combine(debug, actionable))

	if !actionable {
		return nil
	}

	balances, err := d.Balances(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("balance reload failed")
	} else {
		d.balances.Reload(balances)
	}

	if err := d.CheckOpenOrders(ctx); err != nil {
		d.log.Error().Err(err).Msg("open order check failed")
	}
	return nil
}

// Balances returns the venue's current account balances.
func (d *Driver) Balances(ctx context.Context) ([]balance.Balance, error) {
	wire, err := d.client.AccountBalances(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]balance.Balance, 0, len(wire))
	for _, b := range wire {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			continue
		}
		out = append(out, balance.Balance{Symbol: b.Asset, Available: free, Locked: locked})
	}
	return out, nil
}

// Execute submits exec as a market order and returns the venue order id.
func (d *Driver) Execute(ctx context.Context, exec intent.Executable) (string, error) {
	side := "BUY"
	if exec.Kind == intent.Sell {
		side = "SELL"
	}

	order, err := d.client.PlaceMarketOrder(ctx, exec.Symbol, side, exec.Amount.String())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", order.OrderID), nil
}

// CheckOpenOrders polls every open transaction on this exchange and
// advances its stage.
func (d *Driver) CheckOpenOrders(ctx context.Context) error {
	return d.treasury.PollOpenOrders(ctx, d.fetchOrderStatus)
}

// Books exposes the symbol -> OrderBook map booted by the Bookkeeper, for
// wiring into httpapi.Registry. Safe to call only after Boot has
// returned.
func (d *Driver) Books() map[string]*book.OrderBook {
	return d.bk.IterBooks()
}

func (d *Driver) fetchSnapshot(ctx context.Context, symbol string) (bookie.Snapshot, error) {
	snap, err := d.client.DepthSnapshot(ctx, symbol, 1000)
	if err != nil {
		return bookie.Snapshot{}, err
	}

	bids, err := toDeltas(book.Bid, snap.Bids)
	if err != nil {
		return bookie.Snapshot{}, err
	}
	asks, err := toDeltas(book.Ask, snap.Asks)
	if err != nil {
		return bookie.Snapshot{}, err
	}

	return bookie.Snapshot{
		LastUpdateID: snap.LastUpdateID,
		Bids:         bids,
		Asks:         asks,
	}, nil
}

func (d *Driver) fetchOrderStatus(ctx context.Context, tx transaction.Transaction) (treasury.VenueStatus, decimal.Decimal, error) {
	orderID := tx.BuyExchangeID
	if tx.Stage == transaction.SellTransactionOpen || tx.Stage == transaction.SellTransactionPartiallyFilled {
		orderID = tx.SellExchangeID
	}
	if orderID == nil {
		return "", decimal.Zero, fmt.Errorf("mandala: transaction %s has no venue order id for stage %s", tx.ID, tx.Stage)
	}

	order, err := d.client.OrderStatus(ctx, tx.Symbol, *orderID)
	if err != nil {
		return "", decimal.Zero, err
	}

	executed, err := decimal.NewFromString(order.ExecutedQty)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("mandala: parse executed qty: %w", err)
	}

	return mapStatus(order.Status), executed, nil
}

func mapStatus(wire string) treasury.VenueStatus {
	switch wire {
	case "PARTIALLY_FILLED":
		return treasury.StatusPartiallyFilled
	case "FILLED":
		return treasury.StatusFilled
	default:
		return treasury.StatusOpen
	}
}
