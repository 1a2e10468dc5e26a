package mandala

import (
	"testing"

	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDepthEvent(t *testing.T) {
	frame := []byte(`{"e":"depthUpdate","s":"BTCUSDT","U":100,"u":105,"b":[["27000.50","1.2"]],"a":[["27001.00","0.5"]]}`)

	u, err := decodeDepthEvent(frame)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", u.Symbol)
	assert.Equal(t, int64(100), u.FirstID)
	assert.Equal(t, int64(105), u.LastID)
	require.Len(t, u.Bids, 1)
	require.Len(t, u.Asks, 1)
	assert.Equal(t, book.Bid, u.Bids[0].Side)
	assert.Equal(t, 1.2, u.Bids[0].Quantity)
	assert.Equal(t, book.Ask, u.Asks[0].Side)
}

func TestDecodeDepthEventRejectsMalformedRow(t *testing.T) {
	frame := []byte(`{"e":"depthUpdate","s":"BTCUSDT","U":1,"u":2,"b":[["27000.50"]],"a":[]}`)

	_, err := decodeDepthEvent(frame)
	assert.Error(t, err)
}

func TestDecodeDepthEventRejectsNonFiniteLevel(t *testing.T) {
	frame := []byte(`{"e":"depthUpdate","s":"BTCUSDT","U":1,"u":2,"b":[["NaN","1.0"]],"a":[]}`)

	_, err := decodeDepthEvent(frame)
	assert.Error(t, err)
}
