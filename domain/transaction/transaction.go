// Package transaction defines the persisted Transaction record and its
// stage state machine.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is a Transaction's position in the buy -> hodl -> sell lifecycle.
type Stage string

const (
	BuyTransactionOpen            Stage = "BuyTransactionOpen"
	BuyTransactionPartiallyFilled Stage = "BuyTransactionPartiallyFilled"
	BuyTransactionFilled           Stage = "BuyTransactionFilled"
	Hodl                           Stage = "Hodl"
	SellTransactionOpen            Stage = "SellTransactionOpen"
	SellTransactionPartiallyFilled Stage = "SellTransactionPartiallyFilled"
	SellTransactionFilled          Stage = "SellTransactionFilled"
	Finished                       Stage = "Finished"
)

// openOrder is the fixed successor order of the stage machine; there is no
// backward transition and no branching outside VenueStatus-driven advances.
var openOrder = []Stage{
	BuyTransactionOpen,
	BuyTransactionPartiallyFilled,
	BuyTransactionFilled,
	Hodl,
	SellTransactionOpen,
	SellTransactionPartiallyFilled,
	SellTransactionFilled,
	Finished,
}

func indexOf(s Stage) int {
	for i, v := range openOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// IsOpen reports whether a transaction in this stage still commits
// inventory: every stage except Finished and SellTransactionFilled.
func (s Stage) IsOpen() bool {
	return s != Finished && s != SellTransactionFilled
}

// CanAdvanceTo reports whether to is a legal, non-backward successor of s.
// A terminal stage (Finished) can never advance further.
func (s Stage) CanAdvanceTo(to Stage) bool {
	from := indexOf(s)
	dest := indexOf(to)
	if from < 0 || dest < 0 {
		return false
	}
	return dest > from
}

// Transaction is the persisted lifecycle record for one buy/sell cycle.
type Transaction struct {
	ID             string `gorm:"primaryKey;type:char(36)"`
	ExchangeName   string
	BuyExchangeID  *string
	SellExchangeID *string
	Amount         decimal.Decimal `gorm:"type:numeric"`
	Symbol         string
	Price          decimal.Decimal `gorm:"type:numeric"`
	Stage          Stage           `gorm:"type:varchar(40)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Transaction) TableName() string {
	return "transactions"
}

// Advance moves the transaction to stage to, panicking if the move is
// backward or originates from a terminal stage: that indicates the
// caller's own bookkeeping is broken, not a recoverable venue condition.
func (t *Transaction) Advance(to Stage) {
	if !t.Stage.CanAdvanceTo(to) {
		panic("transaction: illegal stage transition from " + string(t.Stage) + " to " + string(to))
	}
	t.Stage = to
}

// FinishedTransaction records both sides of a completed round trip, created
// exactly once at the sell acknowledgement.
type FinishedTransaction struct {
	ID            string `gorm:"primaryKey;type:char(36)"`
	TransactionID string `gorm:"type:char(36);index"`
	AmountBought  decimal.Decimal `gorm:"type:numeric"`
	BuyPrice      decimal.Decimal `gorm:"type:numeric"`
	AmountSold    decimal.Decimal `gorm:"type:numeric"`
	SellPrice     decimal.Decimal `gorm:"type:numeric"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (FinishedTransaction) TableName() string {
	return "finished_transactions"
}
