// Package coin holds per-symbol trading configuration and the derived
// support band used by the signal layer.
package coin

// Config is one configured tradable coin: a symbol, a support price level,
// and the desired round-trip profit fraction around it.
type Config struct {
	Symbol       string  `json:"symbol"`
	Support      float64 `json:"support"`
	ProfitWanted float64 `json:"profit_wanted"`
	// IntegerLot marks venue-declared integer-lot symbols: after rounding
	// to 2 decimals, the buy amount is floored further to a whole unit.
	// Declared per symbol rather than hardcoded to any one coin.
	IntegerLot bool `json:"integer_lot"`
}

// Band is the derived buy/sell trigger window around Support.
type Band struct {
	Lower float64
	Upper float64
}

// Band derives [support*(1-profit/2), support*(1+profit/2)].
func (c Config) Band() Band {
	half := c.ProfitWanted / 2
	return Band{
		Lower: c.Support * (1 - half),
		Upper: c.Support * (1 + half),
	}
}
