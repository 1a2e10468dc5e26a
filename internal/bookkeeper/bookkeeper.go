// Package bookkeeper owns one venue's multiplexed depth WebSocket and fans
// each inbound update to the right symbol's Bookie.
package bookkeeper

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/bookie"
	"github.com/rs/zerolog"
)

// Decoder turns one inbound text frame into a DepthUpdate. It is
// venue-specific; Bookkeeper itself only knows how to route by symbol.
type Decoder func(frame []byte) (bookie.DepthUpdate, error)

// Bookkeeper owns one Bookie per tradable symbol for a single venue.
type Bookkeeper struct {
	Venue   string
	bookies map[string]*bookie.Bookie
	log     zerolog.Logger
}

// New creates a Bookkeeper with one Bookie per symbol, ready to have its
// WebSocket driven by Run.
func New(venue string, symbols []string, log zerolog.Logger) *Bookkeeper {
	bookies := make(map[string]*bookie.Bookie, len(symbols))
	for _, s := range symbols {
		bookies[s] = bookie.New(s, log)
	}
	return &Bookkeeper{
		Venue:   venue,
		bookies: bookies,
		log:     log.With().Str("venue", venue).Logger(),
	}
}

// Bookie returns the Bookie for symbol, if registered.
func (bk *Bookkeeper) Bookie(symbol string) (*bookie.Bookie, bool) {
	b, ok := bk.bookies[symbol]
	return b, ok
}

// IterBooks returns shared OrderBook handles for every registered symbol,
// for downstream Broker construction.
func (bk *Bookkeeper) IterBooks() map[string]*book.OrderBook {
	out := make(map[string]*book.OrderBook, len(bk.bookies))
	for symbol, b := range bk.bookies {
		out[symbol] = b.Book()
	}
	return out
}

// StartBookies launches each Bookie's reconciliation loop. fetchSnapshot
// must return a per-symbol SnapshotFetcher; Run should be started only
// after this, so every Bookie is already buffering before the first
// frame arrives.
func (bk *Bookkeeper) StartBookies(ctx context.Context, fetchSnapshot func(symbol string) bookie.SnapshotFetcher) {
	for symbol, b := range bk.bookies {
		b := b
		go func(symbol string) {
			if err := b.Run(ctx, fetchSnapshot(symbol)); err != nil && ctx.Err() == nil {
				bk.log.Error().Err(err).Str("symbol", symbol).Msg("bookie reconciliation terminated")
			}
		}(symbol)
	}
}

// Run dials the venue's depth WebSocket, optionally sends subscribeMsg,
// then reads frames until ctx is cancelled or the connection closes. A
// Close is a fatal stream failure and is returned as an error: the data
// path fails loudly rather than stalling silently. Reconnection is the
// caller's responsibility and is out of scope here.
func (bk *Bookkeeper) Run(ctx context.Context, wssURL string, subscribeMsg []byte, decode Decoder) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wssURL, nil)
	if err != nil {
		return fmt.Errorf("bookkeeper: dial %s: %w", bk.Venue, err)
	}
	defer conn.Close()

	if subscribeMsg != nil {
		if err := conn.WriteMessage(websocket.TextMessage, subscribeMsg); err != nil {
			return fmt.Errorf("bookkeeper: subscribe %s: %w", bk.Venue, err)
		}
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bookkeeper: %s stream closed: %w", bk.Venue, err)
		}

		if msgType != websocket.TextMessage {
			bk.log.Debug().Int("frame_type", msgType).Msg("ignoring non-text frame")
			continue
		}

		update, err := decode(data)
		if err != nil {
			bk.log.Warn().Err(err).Msg("failed to decode depth update")
			continue
		}

		b, ok := bk.bookies[update.Symbol]
		if !ok {
			bk.log.Warn().Str("symbol", update.Symbol).Msg("depth update for unregistered symbol")
			continue
		}
		if err := b.Submit(update); err != nil {
			bk.log.Error().Err(err).Str("symbol", update.Symbol).Msg("submit depth update")
		}
	}
}
