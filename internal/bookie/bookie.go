// Package bookie reconciles a venue's depth snapshot with its live
// incremental update stream into a single internal/book.OrderBook, without
// losing any update that straddles the snapshot boundary.
package bookie

import (
	"context"
	"fmt"

	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/rs/zerolog"
)

// DepthUpdate is one incremental depth message for a symbol. LastID is a
// monotonically nondecreasing per-symbol sequence number assigned by the
// venue.
type DepthUpdate struct {
	Symbol  string
	FirstID int64
	LastID  int64
	Bids    []book.Delta
	Asks    []book.Delta
}

// Snapshot is a full depth snapshot as of LastUpdateID.
type Snapshot struct {
	LastUpdateID int64
	Bids         []book.Delta
	Asks         []book.Delta
}

// SnapshotFetcher requests a fresh REST depth snapshot for a symbol.
type SnapshotFetcher func(ctx context.Context) (Snapshot, error)

// inboundBuffer is generous enough to absorb the REST round-trip latency
// between the snapshot request and its response without ever blocking the
// Bookkeeper's fan-out loop.
const inboundBuffer = 4096

// Bookie owns one OrderBook and reconciles it against a snapshot plus a
// live stream of DepthUpdates.
type Bookie struct {
	Symbol        string
	book          *book.OrderBook
	inbound       chan DepthUpdate
	lastAppliedID int64
	log           zerolog.Logger
}

// New returns a Bookie for symbol, already buffering inbound updates.
func New(symbol string, log zerolog.Logger) *Bookie {
	return &Bookie{
		Symbol:  symbol,
		book:    book.New(symbol),
		inbound: make(chan DepthUpdate, inboundBuffer),
		log:     log.With().Str("symbol", symbol).Logger(),
	}
}

// Book returns the shared OrderBook handle for downstream readers.
func (b *Bookie) Book() *book.OrderBook {
	return b.book
}

// Submit enqueues an update from the Bookkeeper's fan-out loop. It never
// blocks on a healthy stream; a full buffer indicates the snapshot fetch is
// stuck and is reported as an error rather than silently dropping data.
func (b *Bookie) Submit(u DepthUpdate) error {
	select {
	case b.inbound <- u:
		return nil
	default:
		return fmt.Errorf("bookie: inbound buffer full for %s, snapshot reconciliation stalled", b.Symbol)
	}
}

// snapshotResult carries the outcome of an in-flight snapshot fetch back
// into Run's select loop.
type snapshotResult struct {
	snap Snapshot
	err  error
}

// Run executes the reconciliation protocol: buffering begins the instant
// Run starts (any Submit before or after the snapshot request lands in
// inbound), the snapshot is requested concurrently, and once it arrives the
// buffered updates are replayed in order before the loop switches to
// applying live updates directly. Run blocks until ctx is cancelled or the
// inbound channel closes; both are treated as normal shutdown.
func (b *Bookie) Run(ctx context.Context, fetch SnapshotFetcher) error {
	buffer := make([]DepthUpdate, 0, 64)
	gateOpen := false

	resultCh := make(chan snapshotResult, 1)
	go func() {
		snap, err := fetch(ctx)
		resultCh <- snapshotResult{snap: snap, err: err}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-b.inbound:
			if !ok {
				return nil
			}
			if !gateOpen {
				buffer = append(buffer, u)
				continue
			}
			b.applyIfNewer(u)

		case res, ok := <-resultCh:
			if !ok {
				continue
			}
			resultCh = nil
			if res.err != nil {
				return fmt.Errorf("bookie: snapshot fetch for %s: %w", b.Symbol, res.err)
			}
			b.book.Reload(res.snap.Bids, res.snap.Asks)
			b.lastAppliedID = res.snap.LastUpdateID
			gateOpen = true
			for _, u := range buffer {
				b.applyIfNewer(u)
			}
			buffer = nil
			b.log.Debug().Int64("last_update_id", b.lastAppliedID).Msg("snapshot reconciled")
		}
	}
}

// applyIfNewer drops U if it is stale relative to lastAppliedID, otherwise
// applies it and advances lastAppliedID. Gap detection (U.FirstID >
// lastAppliedID+1) is diagnostic only: the response to a detected gap is a
// fresh snapshot, which is out of scope for this reconciliation pass.
func (b *Bookie) applyIfNewer(u DepthUpdate) {
	if u.LastID <= b.lastAppliedID {
		b.log.Debug().Int64("last_id", u.LastID).Int64("prior", b.lastAppliedID).Msg("dropping stale depth update")
		return
	}
	if u.FirstID > b.lastAppliedID+1 {
		b.log.Warn().Int64("first_id", u.FirstID).Int64("prior", b.lastAppliedID).Msg("depth update gap detected")
	}
	b.book.Update(u.Bids)
	b.book.Update(u.Asks)
	b.lastAppliedID = u.LastID
}

// LastAppliedID returns the sequence number of the last applied update or
// snapshot, for diagnostics and tests.
func (b *Bookie) LastAppliedID() int64 {
	return b.lastAppliedID
}
