// Package httpapi exposes a read-only gin HTTP surface for operability:
// a liveness probe and a per-venue, per-symbol book snapshot endpoint.
// It never accepts trading commands; all decisions stay inside the
// Broker/Treasury pipeline.
package httpapi

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/ledgerhand/ledgerhand/internal/book"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// BookSource resolves a venue+symbol pair to its live order book. The
// poppy scheduler's registered drivers supply this indirectly; Server
// only needs read access.
type BookSource interface {
	Book(venue, symbol string) (*book.OrderBook, bool)
}

// Registry is the default BookSource: a venue -> symbol -> OrderBook map
// populated once per venue after its Driver has booted.
type Registry struct {
	mu     sync.RWMutex
	venues map[string]map[string]*book.OrderBook
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{venues: make(map[string]map[string]*book.OrderBook)}
}

// Register records venue's books, replacing any prior registration for
// that venue wholesale.
func (r *Registry) Register(venue string, books map[string]*book.OrderBook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[venue] = books
}

// Book implements BookSource.
func (r *Registry) Book(venue, symbol string) (*book.OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	books, ok := r.venues[venue]
	if !ok {
		return nil, false
	}
	ob, ok := books[symbol]
	return ob, ok
}

// Server wires the operability routes onto a gin engine.
type Server struct {
	books BookSource
}

// New returns a Server reading books through src.
func New(src BookSource) *Server {
	return &Server{books: src}
}

// Register mounts this Server's routes onto rg, plus a swagger-ui route
// serving the docs generated from the @Summary/@Router annotations below.
func (s *Server) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", s.healthz)
	rg.GET("/exchanges/:venue/books/:symbol", s.getBook)
	rg.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// @Summary Liveness probe
// @Description Always returns ok once the process is serving HTTP
// @Produce json
// @Success 200 {object} string "ok"
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type priceLevelResponse struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

type bookResponse struct {
	Venue   string               `json:"venue"`
	Symbol  string               `json:"symbol"`
	Bids    []priceLevelResponse `json:"bids"`
	Asks    []priceLevelResponse `json:"asks"`
	Crossed bool                 `json:"crossed"`
}

// @Summary Get an order book snapshot
// @Description Returns every live bid and ask level (best first) and the crossed flag for one venue/symbol pair
// @Produce json
// @Param venue path string true "venue name"
// @Param symbol path string true "symbol"
// @Success 200 {object} bookResponse
// @Failure 404 {object} string "unknown venue or symbol"
// @Router /exchanges/{venue}/books/{symbol} [get]
func (s *Server) getBook(c *gin.Context) {
	venue := c.Param("venue")
	symbol := c.Param("symbol")

	ob, ok := s.books.Book(venue, symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown venue or symbol"})
		return
	}

	resp := bookResponse{
		Venue:   venue,
		Symbol:  symbol,
		Crossed: ob.Crossed(),
	}
	for _, lvl := range ob.Bids() {
		resp.Bids = append(resp.Bids, priceLevelResponse{Price: lvl.Price.Float64(), Quantity: lvl.Quantity})
	}
	for _, lvl := range ob.Asks() {
		resp.Asks = append(resp.Asks, priceLevelResponse{Price: lvl.Price.Float64(), Quantity: lvl.Quantity})
	}

	c.JSON(http.StatusOK, resp)
}
