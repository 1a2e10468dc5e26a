// Package notify best-effort publishes Transaction stage transitions to
// NATS for external dashboards. Publish failures are logged and
// swallowed; notification is observability, never a dependency of the
// stage machine itself.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher publishes stage transitions onto subjects of the form
// transactions.<exchange>.<symbol>.
type Publisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// New returns a Publisher using an existing NATS connection. nc must not
// be nil: callers that did not configure NATS should skip constructing a
// Publisher entirely.
func New(nc *nats.Conn, log zerolog.Logger) *Publisher {
	return &Publisher{nc: nc, log: log}
}

// Connect dials url and returns a ready Publisher.
func Connect(url string, log zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to nats: %w", err)
	}
	return New(nc, log), nil
}

type stageEvent struct {
	TransactionID string            `json:"transaction_id"`
	ExchangeName  string            `json:"exchange_name"`
	Symbol        string            `json:"symbol"`
	Stage         transaction.Stage `json:"stage"`
}

// PublishStage publishes tx's current stage. It never returns an error
// to the caller; failures are logged.
func (p *Publisher) PublishStage(tx transaction.Transaction) {
	subject := fmt.Sprintf("transactions.%s.%s", tx.ExchangeName, tx.Symbol)

	payload, err := json.Marshal(stageEvent{
		TransactionID: tx.ID,
		ExchangeName:  tx.ExchangeName,
		Symbol:        tx.Symbol,
		Stage:         tx.Stage,
	})
	if err != nil {
		p.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("notify: encode stage event")
		return
	}

	if err := p.nc.Publish(subject, payload); err != nil {
		p.log.Error().Err(err).Str("subject", subject).Msg("notify: publish stage event")
	}
}

// Close closes the underlying NATS connection.
func (p *Publisher) Close() {
	p.nc.Close()
}
