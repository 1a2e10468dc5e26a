package bookkeeper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ledgerhand/ledgerhand/internal/bookie"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type wireUpdate struct {
	Symbol  string `json:"symbol"`
	FirstID int64  `json:"first_id"`
	LastID  int64  `json:"last_id"`
}

func decodeWire(frame []byte) (bookie.DepthUpdate, error) {
	var w wireUpdate
	if err := json.Unmarshal(frame, &w); err != nil {
		return bookie.DepthUpdate{}, err
	}
	return bookie.DepthUpdate{Symbol: w.Symbol, FirstID: w.FirstID, LastID: w.LastID}, nil
}

// emptySnapshot lets the Bookie's gate open immediately so a routed
// update becomes observable as LastAppliedID advancing.
func emptySnapshot(ctx context.Context) (bookie.Snapshot, error) {
	return bookie.Snapshot{LastUpdateID: 0}, nil
}

func TestBookkeeperRoutesFramesBySymbol(t *testing.T) {
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, _, _ = conn.ReadMessage() // subscribe message

		payload, _ := json.Marshal(wireUpdate{Symbol: "BTCUSDT", FirstID: 1, LastID: 5})
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	bk := New("mandala", []string{"BTCUSDT"}, zerolog.New(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bk.StartBookies(ctx, func(symbol string) bookie.SnapshotFetcher { return emptySnapshot })
	go func() { _ = bk.Run(ctx, wsURL, []byte("subscribe"), decodeWire) }()

	b, ok := bk.Bookie("BTCUSDT")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return b.LastAppliedID() == 5
	}, 500*time.Millisecond, 10*time.Millisecond)
}

func TestBookkeeperHasNoBookieForUnregisteredSymbol(t *testing.T) {
	bk := New("mandala", []string{"BTCUSDT"}, zerolog.New(io.Discard))
	_, ok := bk.Bookie("ETHUSDT")
	require.False(t, ok)
}
