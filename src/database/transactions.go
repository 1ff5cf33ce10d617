package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TxManager runs statements inside transactions with a bounded lifetime.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// TxOptions defines options for transaction execution
type TxOptions struct {
	ReadOnly bool
	Timeout  time.Duration
}

// DefaultTxOptions returns sensible defaults for template writes
func DefaultTxOptions() *TxOptions {
	return &TxOptions{
		ReadOnly: false,
		Timeout:  5 * time.Second,
	}
}

// ReadOnlyTxOptions returns options for read-only transactions
func ReadOnlyTxOptions() *TxOptions {
	return &TxOptions{
		ReadOnly: true,
		Timeout:  5 * time.Second,
	}
}

// ExecuteInTransaction executes a function within a transaction with proper error handling
func (tm *TxManager) ExecuteInTransaction(ctx context.Context, opts *TxOptions, fn func(*sql.Tx) error) error {
	if opts == nil {
		opts = DefaultTxOptions()
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// libSQL ignores isolation levels; a single local writer is assumed.
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure rollback on panic
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if opts.ReadOnly {
		// Nothing to persist; release the transaction without a commit.
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExecuteInReadTransaction is a convenience method for read-only transactions
func (tm *TxManager) ExecuteInReadTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return tm.ExecuteInTransaction(ctx, ReadOnlyTxOptions(), fn)
}

// ExecuteInWriteTransaction is a convenience method for write transactions
func (tm *TxManager) ExecuteInWriteTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return tm.ExecuteInTransaction(ctx, DefaultTxOptions(), fn)
}
