package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mjesec7/aced-billing/internal/model"
)

const transactionColumns = `id, account_id, transaction_id, upstream_transaction_id, amount, kind, status,
	COALESCE(description, ''), created_at, completed_at, cancelled_at, cancel_reason`

// TransactionRepository handles the transaction ledger. Every mutation locks
// the owning account row first, so concurrent gateway callbacks for the same
// account serialize deterministically, and the status transition plus the
// balance adjustment commit in a single database transaction.
type TransactionRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewTransactionRepository creates a new transaction repository. lockTimeout
// bounds how long a mutation waits on the account row lock before failing
// with ErrLockContention.
func NewTransactionRepository(db *sql.DB, lockTimeout time.Duration) *TransactionRepository {
	return &TransactionRepository{db: db, lockTimeout: lockTimeout}
}

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	txn := &model.Transaction{}
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.TransactionID,
		&txn.UpstreamTransactionID,
		&txn.Amount,
		&txn.Kind,
		&txn.Status,
		&txn.Description,
		&txn.CreatedAt,
		&txn.CompletedAt,
		&txn.CancelledAt,
		&txn.CancelReason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// mapLockError converts a postgres lock_timeout failure into the retryable
// sentinel; everything else passes through.
func mapLockError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
		return ErrLockContention
	}
	return err
}

// begin opens a database transaction and applies the lock timeout so a
// handler blocked on a contended account fails fast with a retryable error
// instead of hanging.
func (r *TransactionRepository) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	return tx, nil
}

// lockAccount takes the row-level lock on the account and returns its current
// balance and status. All ledger mutations go through this lock.
func (r *TransactionRepository) lockAccount(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) (int64, model.AccountStatus, error) {
	query := `SELECT balance, status FROM accounts WHERE id = $1 FOR UPDATE`

	var balance int64
	var status model.AccountStatus
	err := tx.QueryRowContext(ctx, query, accountID).Scan(&balance, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, "", ErrAccountNotFound
		}
		return 0, "", mapLockError(err)
	}

	return balance, status, nil
}

func (r *TransactionRepository) getForAccount(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, accountID uuid.UUID, transactionID string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 AND transaction_id = $2`
	return scanTransaction(q.QueryRowContext(ctx, query, accountID, transactionID))
}

// GetByTransactionID retrieves a transaction by its caller-supplied id.
func (r *TransactionRepository) GetByTransactionID(ctx context.Context, accountID uuid.UUID, transactionID string) (*model.Transaction, error) {
	txn, err := r.getForAccount(ctx, r.db, accountID, transactionID)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// HasPending reports whether the account has any pending transaction.
func (r *TransactionRepository) HasPending(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM transactions WHERE account_id = $1 AND status = 'pending' LIMIT 1`

	var one int
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check pending transactions: %w", err)
	}
	return true, nil
}

// AppendPending appends a new pending transaction to the account's ledger.
// The caller-supplied transaction id is the idempotency key: if a record with
// that id already exists, the existing record is returned unchanged and
// nothing is written. The acceptance policy is re-evaluated on the status
// read under the row lock, so a credit racing an account block cannot slip a
// pending transaction onto a blocked account. Appending moves an active
// account to processing.
func (r *TransactionRepository) AppendPending(ctx context.Context, accountID uuid.UUID, txn *model.Transaction) (*model.Transaction, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, status, err := r.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	existing, err := r.getForAccount(ctx, tx, accountID, txn.TransactionID)
	if err == nil {
		// Redelivered request: return the record the first delivery created.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return existing, nil
	}
	if err != ErrTransactionNotFound {
		return nil, fmt.Errorf("failed to check existing transaction: %w", err)
	}

	var hasPending int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM transactions WHERE account_id = $1 AND status = 'pending' LIMIT 1`,
		accountID,
	).Scan(&hasPending)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check pending transactions: %w", err)
	}

	locked := &model.Account{Status: status}
	if allowed, reason := locked.CanAcceptCredit(hasPending == 1); !allowed {
		if reason == model.ReasonPendingConflict {
			return nil, ErrPendingConflict
		}
		return nil, ErrAccountBlocked
	}

	insert := `
		INSERT INTO transactions (account_id, transaction_id, upstream_transaction_id, amount, kind, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`
	err = tx.QueryRowContext(ctx, insert,
		accountID,
		txn.TransactionID,
		txn.UpstreamTransactionID,
		txn.Amount,
		txn.Kind,
		model.TransactionStatusPending,
		txn.Description,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	txn.AccountID = accountID
	txn.Status = model.TransactionStatusPending

	touch := `
		UPDATE accounts
		SET status = CASE WHEN status = 'active' THEN 'processing' ELSE status END,
		    last_activity_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, touch, accountID); err != nil {
		return nil, fmt.Errorf("failed to update account activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

// Complete transitions a pending transaction to completed and applies its
// amount to the balance in the same database transaction. Re-invoking on an
// already-completed transaction returns it unchanged with no second balance
// update; invoking on a cancelled or refunded transaction fails with
// ErrIllegalTransition.
func (r *TransactionRepository) Complete(ctx context.Context, accountID uuid.UUID, transactionID string) (*model.Transaction, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	balance, _, err := r.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	txn, err := r.getForAccount(ctx, tx, accountID, transactionID)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	switch txn.Status {
	case model.TransactionStatusCompleted:
		// Redelivered confirmation: already applied, nothing to do.
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return txn, nil
	case model.TransactionStatusCancelled, model.TransactionStatusRefunded:
		return nil, ErrIllegalTransition
	}

	delta := txn.SignedAmount()
	if _, err := model.AddBalance(balance, delta); err != nil {
		return nil, ErrInsufficientBalance
	}

	if err := r.applyTransition(ctx, tx, txn, model.TransactionStatusCompleted, nil, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

// Reverse cancels a pending transaction (no balance effect, it was never
// applied) or refunds a completed one (the original balance effect is
// reversed). Reversing an already cancelled or refunded transaction is a
// no-op returning the existing record.
func (r *TransactionRepository) Reverse(ctx context.Context, accountID uuid.UUID, transactionID string, reason int) (*model.Transaction, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	balance, _, err := r.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	txn, err := r.getForAccount(ctx, tx, accountID, transactionID)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	var target model.TransactionStatus
	var delta int64
	switch txn.Status {
	case model.TransactionStatusPending:
		target = model.TransactionStatusCancelled
	case model.TransactionStatusCompleted:
		target = model.TransactionStatusRefunded
		delta = -txn.SignedAmount()
	case model.TransactionStatusCancelled, model.TransactionStatusRefunded:
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return txn, nil
	}

	if _, err := model.AddBalance(balance, delta); err != nil {
		return nil, ErrInsufficientBalance
	}

	if err := r.applyTransition(ctx, tx, txn, target, &reason, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

// applyTransition performs the conditional status update and the balance
// adjustment together, then restores the account to active when its last
// pending transaction has settled. The WHERE status = 'pending'/'completed'
// guard plus the held account lock make a second writer impossible.
func (r *TransactionRepository) applyTransition(ctx context.Context, tx *sql.Tx, txn *model.Transaction, target model.TransactionStatus, reason *int, delta int64) error {
	update := `
		UPDATE transactions
		SET status = $1,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 IN ('cancelled', 'refunded') THEN NOW() ELSE cancelled_at END,
		    cancel_reason = COALESCE($2, cancel_reason)
		WHERE id = $3 AND status = $4
		RETURNING completed_at, cancelled_at, cancel_reason
	`
	err := tx.QueryRowContext(ctx, update, target, reason, txn.ID, txn.Status).Scan(
		&txn.CompletedAt,
		&txn.CancelledAt,
		&txn.CancelReason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// Status changed underneath us despite the account lock; refuse
			// rather than guess.
			return ErrIllegalTransition
		}
		return fmt.Errorf("failed to transition transaction: %w", err)
	}
	txn.Status = target

	adjust := `
		UPDATE accounts
		SET balance = balance + $1, last_activity_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`
	if _, err := tx.ExecContext(ctx, adjust, delta, txn.AccountID); err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	settle := `
		UPDATE accounts
		SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
		  AND NOT EXISTS (SELECT 1 FROM transactions WHERE account_id = $1 AND status = 'pending')
	`
	if _, err := tx.ExecContext(ctx, settle, txn.AccountID); err != nil {
		return fmt.Errorf("failed to settle account status: %w", err)
	}

	return nil
}

// ListByAccount retrieves an account's transactions, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		txn := &model.Transaction{}
		err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&txn.TransactionID,
			&txn.UpstreamTransactionID,
			&txn.Amount,
			&txn.Kind,
			&txn.Status,
			&txn.Description,
			&txn.CreatedAt,
			&txn.CompletedAt,
			&txn.CancelledAt,
			&txn.CancelReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
