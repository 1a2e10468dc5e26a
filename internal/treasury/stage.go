package treasury

import (
	"context"

	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"github.com/shopspring/decimal"
)

// VenueStatus is a normalized order status returned by an order-status
// poll, independent of any one venue's wire vocabulary.
type VenueStatus string

const (
	StatusOpen            VenueStatus = "Open"
	StatusPartiallyFilled VenueStatus = "PartiallyFilled"
	StatusFilled          VenueStatus = "Filled"
)

// OrderStatusFetcher polls the venue for one open transaction's current
// order status and executed quantity.
type OrderStatusFetcher func(ctx context.Context, tx transaction.Transaction) (VenueStatus, decimal.Decimal, error)

// advanceOnStatus applies the stage table in the transaction stage machine
// to a single venue status observation. It reports whether the stage
// changed; BuyFilled -> Hodl applies the configured fee haircut to the
// executed quantity.
func (t *Treasury) advanceOnStatus(tx *transaction.Transaction, status VenueStatus, executedQty decimal.Decimal) bool {
	switch tx.Stage {
	case transaction.BuyTransactionOpen, transaction.BuyTransactionPartiallyFilled:
		switch status {
		case StatusPartiallyFilled:
			tx.Advance(transaction.BuyTransactionPartiallyFilled)
			return true
		case StatusFilled:
			tx.Amount = executedQty.Mul(t.cfg.FeeHaircut)
			tx.Advance(transaction.Hodl)
			return true
		}
	case transaction.SellTransactionOpen, transaction.SellTransactionPartiallyFilled:
		switch status {
		case StatusPartiallyFilled:
			tx.Advance(transaction.SellTransactionPartiallyFilled)
			return true
		case StatusFilled:
			tx.Advance(transaction.Finished)
			return true
		}
	}
	return false
}

// PollOpenOrders polls every non-terminal transaction on this exchange via
// fetch and persists any resulting stage advance. Fetch errors are logged
// and that row is left for the next actionable tick; this is the
// "check_open_orders" half of an exchange driver's tick(debug, actionable).
func (t *Treasury) PollOpenOrders(ctx context.Context, fetch OrderStatusFetcher) error {
	rows, err := t.store.OpenTransactions(t.ExchangeName)
	if err != nil {
		return err
	}

	for i := range rows {
		tx := rows[i]
		status, executedQty, err := fetch(ctx, tx)
		if err != nil {
			t.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("order status poll failed")
			continue
		}
		if !t.advanceOnStatus(&tx, status, executedQty) {
			continue
		}
		if err := t.store.Save(&tx); err != nil {
			t.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("save transaction after stage advance")
			continue
		}
		t.notify(tx)
	}
	return nil
}
