package kraken

import (
	"testing"

	"github.com/ledgerhand/ledgerhand/internal/treasury"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIsDeterministicForSameNonce(t *testing.T) {
	c := NewClient("key", "c2VjcmV0", "") // "secret" base64-encoded

	sig1, err := c.sign("/0/private/AddOrder", "12345", "pair=XBTUSD&nonce=12345")
	require.NoError(t, err)
	sig2, err := c.sign("/0/private/AddOrder", "12345", "pair=XBTUSD&nonce=12345")
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2)
}

func TestSignVariesWithPath(t *testing.T) {
	c := NewClient("key", "c2VjcmV0", "")

	sigAdd, err := c.sign("/0/private/AddOrder", "1", "nonce=1")
	require.NoError(t, err)
	sigBalance, err := c.sign("/0/private/Balance", "1", "nonce=1")
	require.NoError(t, err)

	assert.NotEqual(t, sigAdd, sigBalance)
}

func TestSignFailsWithoutSecret(t *testing.T) {
	c := NewClient("key", "", "")

	_, err := c.sign("/0/private/Balance", "1", "nonce=1")
	assert.Error(t, err)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, treasury.StatusOpen, mapStatus("open"))
	assert.Equal(t, treasury.StatusFilled, mapStatus("closed"))
	assert.Equal(t, treasury.StatusPartiallyFilled, mapStatus("pending"))
}
