package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/fin64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ob := book.New("BTCUSDT")
	bid, err := fin64.New(100)
	require.NoError(t, err)
	ob.Apply(book.Delta{Side: book.Bid, Price: bid, Quantity: 2})

	reg := NewRegistry()
	reg.Register("mandala", map[string]*book.OrderBook{"BTCUSDT": ob})

	s := New(reg)
	r := gin.New()
	s.Register(r.Group(""))
	return r, reg
}

func TestHealthz(t *testing.T) {
	r, _ := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetBookReturnsKnownSymbol(t *testing.T) {
	r, _ := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/exchanges/mandala/books/BTCUSDT", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "100")
}

func TestGetBookUnknownVenueReturns404(t *testing.T) {
	r, _ := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/exchanges/kraken/books/BTCUSDT", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
