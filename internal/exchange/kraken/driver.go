package kraken

import (
	"context"
	"fmt"

	"github.com/ledgerhand/ledgerhand/domain/balance"
	"github.com/ledgerhand/ledgerhand/domain/coin"
	"github.com/ledgerhand/ledgerhand/domain/intent"
	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/bookkeeper"
	"github.com/ledgerhand/ledgerhand/internal/broker"
	"github.com/ledgerhand/ledgerhand/internal/exchange"
	"github.com/ledgerhand/ledgerhand/internal/trader"
	"github.com/ledgerhand/ledgerhand/internal/treasury"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const name = "kraken"

func init() {
	exchange.Register(name, New)
}

// Driver is the kraken venue adapter. Boot, balances and execute are
// fully implemented against Kraken's REST shape; the depth WebSocket is
// not wired, so books registered here never receive updates and the
// brokers attached to them never fire. Left this way deliberately rather
// than fabricated: the source this was adapted from never finished the
// snapshot/update parsing either.
type Driver struct {
	client                *Client
	wssURL                string
	coins                 []coin.Config
	quoteCurrency         string
	maxTransactionPerCoin int64
	store                 exchange.Store
	balances              *balance.Map
	log                   zerolog.Logger

	bk       *bookkeeper.Bookkeeper
	trd      *trader.Trader
	treasury *treasury.Treasury
	queue    *treasury.Queue
}

// New builds a kraken Driver; it is the exchange.Constructor registered
// under the name "kraken".
func New(p exchange.Params) (exchange.Driver, error) {
	d := &Driver{
		client:                NewClient(p.Config.Credentials.APIKey, p.Config.Credentials.APISecret, p.Config.RestURL),
		wssURL:                p.Config.WSSURL,
		coins:                 p.Coins,
		quoteCurrency:         p.QuoteCurrency,
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

// Boot lists Kraken's tradable pairs, intersects them with the configured
// coins, and registers one Broker per accepted coin against a fresh,
// permanently-empty book.
//
// TODO(depth): subscribe to Kraken's "book" WebSocket channel, parse the
// initial snapshot message and the incremental "a"/"b" update messages
// into book.Delta batches, and feed them through a bookie.Bookie the way
// internal/exchange/mandala does. Until that lands, books here never
// populate and the attached Brokers never see a TopOfBook.
func (d *Driver) Boot(ctx context.Context) error {
	pairs, err := d.client.TradablePairs(ctx)
	if err != nil {
		return fmt.Errorf("kraken: list tradable pairs: %w", err)
	}

	var accepted []string
	for _, asset := range pairs {
		for _, c := range d.coins {
			if asset.Base == c.Symbol && asset.Quote == d.quoteCurrency {
				accepted = append(accepted, c.Symbol)
			}
		}
	}
	d.log.Info().Int("accepted", len(accepted)).Int("listed", len(pairs)).Msg("boot: intersected tradable pairs")

	d.bk = bookkeeper.New(name, accepted, d.log)

	books := d.bk.IterBooks()
	for _, c := range d.coins {
		ob, ok := books[c.Symbol]
		if !ok {
			continue
		}
		br := broker.New(name, c, d.maxTransactionPerCoin, ob, d.store, d.queue, d.log)
		d.trd.Register(br)
	}

	go d.treasury.Run(ctx, d.queue)

	d.log.Warn().Msg("boot: depth websocket not wired, registered books will never populate")
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

// Balances returns the venue's current account balances. Kraken's
// Balance endpoint reports only a single total figure per asset, so
// Locked is always zero; this mirrors the reference implementation,
// which never distinguished held-in-order amounts either.
func (d *Driver) Balances(ctx context.Context) ([]balance.Balance, error) {
	wire, err := d.client.AccountBalances(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]balance.Balance, 0, len(wire))
	for asset, amount := range wire {
		total, err := decimal.NewFromString(amount)
		if err != nil {
			continue
		}
		out = append(out, balance.Balance{Symbol: asset, Available: total})
	}
	return out, nil
}

// Execute submits exec as a market order and returns the venue order id.
func (d *Driver) Execute(ctx context.Context, exec intent.Executable) (string, error) {
	side := "buy"
	if exec.Kind == intent.Sell {
		side = "sell"
	}
	return d.client.AddOrder(ctx, exec.Symbol, side, exec.Amount.String())
}

// CheckOpenOrders polls every open transaction on this exchange and
// advances its stage.
func (d *Driver) CheckOpenOrders(ctx context.Context) error {
	return d.treasury.PollOpenOrders(ctx, d.fetchOrderStatus)
}

// Books exposes the symbol -> OrderBook map booted by the Bookkeeper, for
// wiring into httpapi.Registry. Since Boot never wires the depth
// websocket here, every book stays empty; exposed anyway so the endpoint
// shape is consistent across venues.
func (d *Driver) Books() map[string]*book.OrderBook {
	return d.bk.IterBooks()
}

func (d *Driver) fetchOrderStatus(ctx context.Context, tx transaction.Transaction) (treasury.VenueStatus, decimal.Decimal, error) {
	orderID := tx.BuyExchangeID
	if tx.Stage == transaction.SellTransactionOpen || tx.Stage == transaction.SellTransactionPartiallyFilled {
		orderID = tx.SellExchangeID
	}
	if orderID == nil {
		return "", decimal.Zero, fmt.Errorf("kraken: transaction %s has no venue order id for stage %s", tx.ID, tx.Stage)
	}

	info, err := d.client.QueryOrder(ctx, *orderID)
	if err != nil {
		return "", decimal.Zero, err
	}

	executed, err := decimal.NewFromString(info.VolExec)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("kraken: parse vol_exec: %w", err)
	}

	return mapStatus(info.Status), executed, nil
}

func mapStatus(wire string) treasury.VenueStatus {
	switch wire {
	case "open":
		return treasury.StatusOpen
	case "closed":
		return treasury.StatusFilled
	default:
		return treasury.StatusPartiallyFilled
	}
}
