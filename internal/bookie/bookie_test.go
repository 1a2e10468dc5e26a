package bookie

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/fin64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func mustDelta(t *testing.T, side book.Side, price, qty float64) book.Delta {
	t.Helper()
	f, err := fin64.New(price)
	require.NoError(t, err)
	return book.Delta{Side: side, Price: f, Quantity: qty}
}

func TestBookieAppliesSnapshotThenBufferedUpdates(t *testing.T) {
	b := New("BTCUSDT", testLogger())

	snapshotRequested := make(chan struct{})
	fetch := func(ctx context.Context) (Snapshot, error) {
		close(snapshotRequested)
		return Snapshot{
			LastUpdateID: 100,
			Bids:         []book.Delta{mustDelta(t, book.Bid, 99, 1)},
			Asks:         []book.Delta{mustDelta(t, book.Ask, 101, 1)},
		}, nil
	}

	// Buffer an update that straddles the snapshot boundary before Run
	// even starts, mirroring "buffering begins before the snapshot
	// request" from the reconciliation protocol.
	require.NoError(t, b.Submit(DepthUpdate{
		Symbol: "BTCUSDT", FirstID: 101, LastID: 105,
		Bids: []book.Delta{mustDelta(t, book.Bid, 98, 2)},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, fetch) }()

	select {
	case <-snapshotRequested:
	case <-time.After(time.Second):
		t.Fatal("snapshot never requested")
	}

	require.Eventually(t, func() bool {
		return b.LastAppliedID() == 105
	}, time.Second, time.Millisecond)

	bid, ok := b.Book().HighestBid()
	require.True(t, ok)
	assert.Equal(t, 99.0, bid.Float64())

	cancel()
	<-done
}

func TestBookieDropsStaleUpdate(t *testing.T) {
	b := New("BTCUSDT", testLogger())
	fetch := func(ctx context.Context) (Snapshot, error) {
		return Snapshot{LastUpdateID: 100}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, fetch) }()

	require.Eventually(t, func() bool { return b.LastAppliedID() == 100 }, time.Second, time.Millisecond)

	require.NoError(t, b.Submit(DepthUpdate{
		Symbol: "BTCUSDT", FirstID: 95, LastID: 98,
		Bids: []book.Delta{mustDelta(t, book.Bid, 50, 1)},
	}))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(100), b.LastAppliedID())
	_, ok := b.Book().HighestBid()
	assert.False(t, ok)

	cancel()
	<-done
}

func TestBookieSnapshotFetchErrorSurfaces(t *testing.T) {
	b := New("BTCUSDT", testLogger())
	fetch := func(ctx context.Context) (Snapshot, error) {
		return Snapshot{}, assert.AnError
	}

	err := b.Run(context.Background(), fetch)
	assert.Error(t, err)
}
