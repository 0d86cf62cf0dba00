package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mjesec7/aced-billing/internal/model"
)

const accountColumns = `id, account_number, owner_id, balance, currency, status, type,
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(name, ''),
	last_activity_at, created_at, updated_at`

// AccountRepository handles account-related database operations
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.OwnerID,
		&account.Balance,
		&account.Currency,
		&account.Status,
		&account.Type,
		&account.Metadata.Email,
		&account.Metadata.Phone,
		&account.Metadata.Name,
		&account.LastActivityAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// Create inserts a new account. Exactly one account exists per owner, so a
// second insert for the same owner fails with ErrOwnerHasAccount.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (account_number, owner_id, balance, currency, status, type, email, phone, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		account.AccountNumber,
		account.OwnerID,
		account.Balance,
		account.Currency,
		account.Status,
		account.Type,
		account.Metadata.Email,
		account.Metadata.Phone,
		account.Metadata.Name,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "owner") {
				return ErrOwnerHasAccount
			}
			return ErrNumberTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByNumber retrieves an account by its account number, case-insensitively.
// Suspended accounts are excluded: their numbers are retired from lookup even
// though the rows are kept for audit.
func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 AND status <> 'suspended'`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, strings.ToUpper(number)))
	if err != nil {
		if err == ErrAccountNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}
	return account, nil
}

// GetByOwnerID retrieves the account belonging to a platform owner id.
// Owner ids are stored lowercase, so the lookup normalizes its argument.
func (r *AccountRepository) GetByOwnerID(ctx context.Context, ownerID string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = LOWER($1)`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if err == ErrAccountNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by owner: %w", err)
	}
	return account, nil
}

// GetByContact retrieves an account whose metadata email or phone matches the
// given identifier. Oldest account wins if a contact is shared.
func (r *AccountRepository) GetByContact(ctx context.Context, contact string) (*model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(email) = LOWER($1) OR phone = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, contact))
	if err != nil {
		if err == ErrAccountNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by contact: %w", err)
	}
	return account, nil
}

// NumberExists checks whether an account number is already taken. Used by the
// number generator's collision check.
func (r *AccountRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	query := `SELECT 1 FROM accounts WHERE account_number = $1 LIMIT 1`

	var exists int
	err := r.db.QueryRowContext(ctx, query, strings.ToUpper(number)).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check account number: %w", err)
	}

	return true, nil
}

// SetStatus updates an account's lifecycle status. Accounts are never
// deleted; suspension is the terminal archival state.
func (r *AccountRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
