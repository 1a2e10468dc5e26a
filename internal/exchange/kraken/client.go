// Package kraken is an intentionally partial exchange driver: REST boot,
// balances and order execution are implemented against Kraken's public and
// private API shape, but depth snapshot/update handling is left as TODOs
// matching the state of the reference implementation this driver was
// adapted from.
package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultRestURL = "https://api.kraken.com"

// Client is Kraken's REST API client. Private endpoints are signed with
// HMAC-SHA512 over the URI path followed by SHA256(nonce + POST body),
// keyed by the base64-decoded
// API secret, per Kraken's authentication scheme.
type Client struct {
	apiKey     string
	apiSecret  []byte
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for restURL, falling back to Kraken's
// production endpoint if restURL is empty. A malformed apiSecret yields a
// Client that will fail to sign any private request rather than panicking
// at construction time.
func NewClient(apiKey, apiSecret, restURL string) *Client {
	if restURL == "" {
		restURL = defaultRestURL
	}
	decoded, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		decoded = nil
	}
	return &Client{
		apiKey:    apiKey,
		apiSecret: decoded,
		baseURL:   restURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) nonce() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (c *Client) sign(path, nonce, postData string) (string, error) {
	if len(c.apiSecret) == 0 {
		return "", fmt.Errorf("kraken: no api secret configured")
	}

	shaSum := sha256.Sum256([]byte(nonce + postData))

	mac := hmac.New(sha512.New, c.apiSecret)
	mac.Write([]byte(path))
	mac.Write(shaSum[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// krakenResult is the envelope every Kraken REST response wraps its
// payload in: a non-empty Error slice means the call failed regardless of
// HTTP status.
type krakenResult struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) publicGet(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("kraken: build request: %w", err)
	}
	return c.doAndDecode(req, out)
}

func (c *Client) privatePost(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	nonce := c.nonce()
	params.Set("nonce", nonce)
	body := params.Encode()

	sig, err := c.sign(path, nonce, body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kraken: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", sig)

	var result krakenResult
	if err := c.doAndDecode(req, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

func (c *Client) doAndDecode(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kraken: request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kraken: read response %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kraken: %s returned status %d", req.URL.Path, resp.StatusCode)
	}

	switch v := out.(type) {
	case *krakenResult:
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("kraken: decode %s envelope: %w", req.URL.Path, err)
		}
		if len(v.Error) > 0 {
			return fmt.Errorf("kraken: %s: %v", req.URL.Path, v.Error)
		}
		return nil
	default:
		var env krakenResult
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("kraken: decode %s envelope: %w", req.URL.Path, err)
		}
		if len(env.Error) > 0 {
			return fmt.Errorf("kraken: %s: %v", req.URL.Path, env.Error)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("kraken: decode %s result: %w", req.URL.Path, err)
		}
		return nil
	}
}

// wireAsset is one entry of Kraken's AssetPairs listing.
type wireAsset struct {
	Altname string `json:"altname"`
	WsName  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
}

// TradablePairs returns every asset pair Kraken currently lists, keyed by
// its altname.
func (c *Client) TradablePairs(ctx context.Context) (map[string]wireAsset, error) {
	var out map[string]wireAsset
	if err := c.publicGet(ctx, "/0/public/AssetPairs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AccountBalances returns the raw asset -> balance string map from
// Kraken's private Balance endpoint.
func (c *Client) AccountBalances(ctx context.Context) (map[string]string, error) {
	raw, err := c.privatePost(ctx, "/0/private/Balance", nil)
	if err != nil {
		return nil, err
	}
	var balances map[string]string
	if err := json.Unmarshal(raw, &balances); err != nil {
		return nil, fmt.Errorf("kraken: decode balances: %w", err)
	}
	return balances, nil
}

type wireOrderAdd struct {
	TxID []string `json:"txid"`
}

// AddOrder submits a market order and returns the venue-assigned order id.
func (c *Client) AddOrder(ctx context.Context, pair, side, volume string) (string, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("type", side)
	params.Set("ordertype", "market")
	params.Set("volume", volume)

	raw, err := c.privatePost(ctx, "/0/private/AddOrder", params)
	if err != nil {
		return "", err
	}
	var out wireOrderAdd
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("kraken: decode add order: %w", err)
	}
	if len(out.TxID) == 0 {
		return "", fmt.Errorf("kraken: add order returned no txid")
	}
	return out.TxID[0], nil
}

type wireOrderInfo struct {
	Status    string `json:"status"`
	VolExec   string `json:"vol_exec"`
	Price     string `json:"price"`
	Vol       string `json:"vol"`
	Descr     struct {
		Pair string `json:"pair"`
		Type string `json:"type"`
	} `json:"descr"`
}

// QueryOrder polls a single order's current status.
func (c *Client) QueryOrder(ctx context.Context, txID string) (wireOrderInfo, error) {
	params := url.Values{}
	params.Set("txid", txID)

	raw, err := c.privatePost(ctx, "/0/private/QueryOrders", params)
	if err != nil {
		return wireOrderInfo{}, err
	}
	var byID map[string]wireOrderInfo
	if err := json.Unmarshal(raw, &byID); err != nil {
		return wireOrderInfo{}, fmt.Errorf("kraken: decode order query: %w", err)
	}
	info, ok := byID[txID]
	if !ok {
		return wireOrderInfo{}, fmt.Errorf("kraken: order %s not found", txID)
	}
	return info, nil
}
