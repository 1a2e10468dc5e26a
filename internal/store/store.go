// Package store is the Postgres persistence layer for Transaction and
// FinishedTransaction records.
package store

import (
	"fmt"

	"github.com/ledgerhand/ledgerhand/domain/transaction"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store wraps a gorm.DB scoped to the transactions/finished_transactions
// tables.
type Store struct {
	db *gorm.DB
}

// Open dials Postgres using a standard "postgres://" DSN and auto-migrates
// the transaction tables.
func Open(databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := db.AutoMigrate(&transaction.Transaction{}, &transaction.FinishedTransaction{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// CountOpen returns the number of transactions for symbol whose stage is in
// the open set (see transaction.Stage.IsOpen), for the Broker's per-symbol
// inventory cap.
func (s *Store) CountOpen(exchangeName, symbol string) (int64, error) {
	var openStages []transaction.Stage
	for _, st := range []transaction.Stage{
		transaction.BuyTransactionOpen,
		transaction.BuyTransactionPartiallyFilled,
		transaction.BuyTransactionFilled,
		transaction.Hodl,
		transaction.SellTransactionOpen,
		transaction.SellTransactionPartiallyFilled,
	} {
		openStages = append(openStages, st)
	}

	var count int64
	result := s.db.Model(&transaction.Transaction{}).
		Where("exchange_name = ? AND symbol = ? AND stage IN ?", exchangeName, symbol, openStages).
		Count(&count)
	return count, result.Error
}

// HodlRows returns every transaction resting in Hodl for symbol, the set
// the Broker scans for sell opportunities.
func (s *Store) HodlRows(exchangeName, symbol string) ([]transaction.Transaction, error) {
	var rows []transaction.Transaction
	result := s.db.
		Where("exchange_name = ? AND symbol = ? AND stage = ?", exchangeName, symbol, transaction.Hodl).
		Find(&rows)
	return rows, result.Error
}

// Insert persists a new Transaction row. Per the error taxonomy, insert
// failures on this table are fatal: they indicate schema or connectivity
// collapse, not a recoverable condition.
func (s *Store) Insert(tx *transaction.Transaction) error {
	if err := s.db.Create(tx).Error; err != nil {
		return fmt.Errorf("store: insert transaction (fatal): %w", err)
	}
	return nil
}

// Get loads a transaction by id.
func (s *Store) Get(id string) (transaction.Transaction, error) {
	var tx transaction.Transaction
	result := s.db.Where("id = ?", id).First(&tx)
	return tx, result.Error
}

// OpenTransactions returns every non-terminal transaction for an exchange,
// the working set check_open_orders polls each actionable tick.
func (s *Store) OpenTransactions(exchangeName string) ([]transaction.Transaction, error) {
	var rows []transaction.Transaction
	result := s.db.
		Where("exchange_name = ? AND stage NOT IN ?", exchangeName,
			[]transaction.Stage{transaction.Finished, transaction.SellTransactionFilled}).
		Find(&rows)
	return rows, result.Error
}

// Save persists mutations to an existing Transaction row. Update failures
// are logged by the caller, not fatal.
func (s *Store) Save(tx *transaction.Transaction) error {
	return s.db.Save(tx).Error
}

// InsertFinished persists a FinishedTransaction, created exactly once at
// the sell acknowledgement.
func (s *Store) InsertFinished(ft *transaction.FinishedTransaction) error {
	if err := s.db.Create(ft).Error; err != nil {
		return fmt.Errorf("store: insert finished_transaction (fatal): %w", err)
	}
	return nil
}
