package mandala

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ledgerhand/ledgerhand/internal/book"
	"github.com/ledgerhand/ledgerhand/internal/bookie"
	"github.com/ledgerhand/ledgerhand/internal/fin64"
)

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("mandala: parse float %q: %w", s, err)
	}
	return v, nil
}

// wsDepthEvent is a combined-stream depth diff event.
type wsDepthEvent struct {
	EventType string     `json:"e"` // Event type, "depthUpdate"
	Symbol    string     `json:"s"` // Symbol
	FirstID   int64      `json:"U"` // First update ID in event
	FinalID   int64      `json:"u"` // Final update ID in event
	Bids      [][]string `json:"b"` // Bids to update
	Asks      [][]string `json:"a"` // Asks to update
}

// decodeDepthEvent parses one inbound WebSocket frame into a
// bookie.DepthUpdate, the Decoder a Bookkeeper needs.
func decodeDepthEvent(frame []byte) (bookie.DepthUpdate, error) {
	var ev wsDepthEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return bookie.DepthUpdate{}, fmt.Errorf("mandala: decode depth event: %w", err)
	}

	bids, err := toDeltas(book.Bid, ev.Bids)
	if err != nil {
		return bookie.DepthUpdate{}, err
	}
	asks, err := toDeltas(book.Ask, ev.Asks)
	if err != nil {
		return bookie.DepthUpdate{}, err
	}

	return bookie.DepthUpdate{
		Symbol:  ev.Symbol,
		FirstID: ev.FirstID,
		LastID:  ev.FinalID,
		Bids:    bids,
		Asks:    asks,
	}, nil
}

func toDeltas(side book.Side, rows [][]string) ([]book.Delta, error) {
	deltas := make([]book.Delta, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("mandala: malformed depth row %v", row)
		}
		price, err := parseFin64(row[0])
		if err != nil {
			return nil, err
		}
		qty, err := parseFloat(row[1])
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, book.Delta{Side: side, Price: price, Quantity: qty})
	}
	return deltas, nil
}

func parseFin64(s string) (fin64.Fin64, error) {
	v, err := parseFloat(s)
	if err != nil {
		return fin64.Fin64{}, err
	}
	return fin64.New(v)
}
