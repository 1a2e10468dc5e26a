// Package config loads the process-wide bot configuration once at
// startup: quote currency, trade sizing, configured coins, and the
// per-venue credential blocks.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ledgerhand/ledgerhand/domain/coin"
)

// VenueConfig is one venue's block: { enabled, api_key, api_secret,
// rest_url?, wss_url? }.
type VenueConfig struct {
	Enabled   bool   `json:"enabled"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	RestURL   string `json:"rest_url"`
	WSSURL    string `json:"wss_url"`
}

// Config is the root configuration document loaded once at process start.
type Config struct {
	QuoteCurrency         string                 `json:"quote_currency"`
	MaxTradeSize          float64                `json:"max_trade_size"`
	MinTradeSize          float64                `json:"min_trade_size"`
	MaxTransactionPerCoin int64                  `json:"max_transaction_per_coin"`
	FeeHaircut            float64                `json:"fee_haircut"`
	Coins                 []coin.Config          `json:"coins"`
	Venues                map[string]VenueConfig `json:"-"`
	DatabaseURL           string                 `json:"database_url"`
	NatsURL               string                 `json:"nats_url"`
	HTTPAddr              string                 `json:"http_addr"`
}

// Load reads and parses the JSON config at path. Venue blocks are keyed by
// venue name at the document's top level alongside the fixed fields
// (mirroring the source's one-JSON-document-per-bot convention), so
// unmarshaling happens in two passes: the fixed shape, then a raw map scan
// for any key that isn't one of the fixed field names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	fixedFields := map[string]bool{
		"quote_currency": true, "max_trade_size": true, "min_trade_size": true,
		"max_transaction_per_coin": true, "fee_haircut": true, "coins": true,
		"database_url": true, "nats_url": true, "http_addr": true,
	}

	cfg.Venues = make(map[string]VenueConfig)
	for key, value := range raw {
		if fixedFields[key] {
			continue
		}
		var v VenueConfig
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, fmt.Errorf("config: parse venue block %q: %w", key, err)
		}
		cfg.Venues[key] = v
	}

	if cfg.QuoteCurrency == "" {
		return nil, fmt.Errorf("config: quote_currency is required")
	}

	return &cfg, nil
}
