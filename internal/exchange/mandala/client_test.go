package mandala

import (
	"testing"

	"github.com/ledgerhand/ledgerhand/internal/treasury"
	"github.com/stretchr/testify/assert"
)

func TestSignIsDeterministic(t *testing.T) {
	c := NewClient("key", "secret", "")

	sig1 := c.sign("symbol=BTCUSDT&timestamp=1")
	sig2 := c.sign("symbol=BTCUSDT&timestamp=1")

	assert.Equal(t, sig1, sig2)
}

func TestSignVariesWithQuery(t *testing.T) {
	c := NewClient("key", "secret", "")

	assert.NotEqual(t, c.sign("a=1"), c.sign("a=2"))
}

func TestNewClientDefaultsRestURL(t *testing.T) {
	c := NewClient("key", "secret", "")
	assert.Equal(t, defaultRestURL, c.baseURL)
}

func TestNewClientHonorsOverrideRestURL(t *testing.T) {
	c := NewClient("key", "secret", "https://testnet.mandala.exchange")
	assert.Equal(t, "https://testnet.mandala.exchange", c.baseURL)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, treasury.StatusPartiallyFilled, mapStatus("PARTIALLY_FILLED"))
	assert.Equal(t, treasury.StatusFilled, mapStatus("FILLED"))
	assert.Equal(t, treasury.StatusOpen, mapStatus("NEW"))
}
