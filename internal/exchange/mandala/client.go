// Package mandala is a complete exchange driver for a Binance-style spot
// venue: REST client with HMAC request signing, a multiplexed depth
// WebSocket, and the full boot/tick/execute/check_open_orders contract.
package mandala

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultRestURL = "https://api.mandala.exchange"

// Client is the venue's REST API client, signing authenticated requests
// with HMAC-SHA256 over the query string.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for restURL, falling back to the venue's
// production endpoint if restURL is empty.
func NewClient(apiKey, apiSecret, restURL string) *Client {
	if restURL == "" {
		restURL = defaultRestURL
	}
	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   restURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) authenticatedURL(endpoint string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	params.Set("signature", c.sign(query))
	return fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())
}

func (c *Client) publicURL(endpoint string, params url.Values) string {
	if params == nil || len(params) == 0 {
		return c.baseURL + endpoint
	}
	return fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())
}

// apiError is the venue's error envelope, returned on non-200 responses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e apiError) Error() string {
	return fmt.Sprintf("mandala: api error %d: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, authenticated bool, out any) error {
	var reqURL string
	if authenticated {
		reqURL = c.authenticatedURL(endpoint, params)
	} else {
		reqURL = c.publicURL(endpoint, params)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("mandala: build request: %w", err)
	}
	if authenticated {
		req.Header.Set("X-MANDALA-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mandala: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mandala: read response %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return apiErr
		}
		return fmt.Errorf("mandala: %s returned status %d", endpoint, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mandala: decode %s response: %w", endpoint, err)
	}
	return nil
}

// wireSymbol is one entry of the exchange-info symbol list.
type wireSymbol struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	Status     string `json:"status"`
}

// ListSymbols returns every tradable symbol the venue currently lists.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	var out struct {
		Symbols []wireSymbol `json:"symbols"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v3/exchangeInfo", nil, false, &out); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(out.Symbols))
	for _, s := range out.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

type wireBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// AccountBalances returns every asset balance on the account.
func (c *Client) AccountBalances(ctx context.Context) ([]wireBalance, error) {
	var out struct {
		Balances []wireBalance `json:"balances"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v3/account", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Balances, nil
}

type wireDepthSnapshot struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// DepthSnapshot fetches a full depth snapshot for symbol.
func (c *Client) DepthSnapshot(ctx context.Context, symbol string, limit int) (wireDepthSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var out wireDepthSnapshot
	err := c.do(ctx, http.MethodGet, "/api/v3/depth", params, false, &out)
	return out, err
}

type wireOrder struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
}

// PlaceMarketOrder submits a market order and returns the venue's order
// record, which carries the venue-assigned OrderID.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side, quantity string) (wireOrder, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", quantity)

	var out wireOrder
	err := c.do(ctx, http.MethodPost, "/api/v3/order", params, true, &out)
	return out, err
}

// OrderStatus polls a single order's current status.
func (c *Client) OrderStatus(ctx context.Context, symbol string, orderID string) (wireOrder, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var out wireOrder
	err := c.do(ctx, http.MethodGet, "/api/v3/order", params, true, &out)
	return out, err
}
