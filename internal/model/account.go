package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	AccountStatusActive     AccountStatus = "active"
	AccountStatusBlocked    AccountStatus = "blocked"
	AccountStatusSuspended  AccountStatus = "suspended"
	AccountStatusProcessing AccountStatus = "processing"
)

// AccountType represents the kind of account
type AccountType string

const (
	AccountTypePersonal AccountType = "personal"
	AccountTypeBusiness AccountType = "business"
	AccountTypeSavings  AccountType = "savings"
)

// Currency is the ISO 4217 code of an account's currency
type Currency string

const (
	CurrencyUZS Currency = "UZS"
	CurrencyUSD Currency = "USD"
)

// Metadata holds the contact details attached to an account.
// Always explicit fields, never a free-form map.
type Metadata struct {
	Email string `json:"email,omitempty" db:"email"`
	Phone string `json:"phone,omitempty" db:"phone"`
	Name  string `json:"name,omitempty" db:"name"`
}

// Account represents a customer balance account. Balance is stored in minor
// currency units (tiyin for UZS, cents for USD) and is written only by the
// ledger service.
type Account struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	AccountNumber  string        `json:"account_number" db:"account_number"`
	OwnerID        string        `json:"owner_id" db:"owner_id"`
	Balance        int64         `json:"balance" db:"balance"`
	Currency       Currency      `json:"currency" db:"currency"`
	Status         AccountStatus `json:"status" db:"status"`
	Type           AccountType   `json:"type" db:"type"`
	Metadata       Metadata      `json:"metadata"`
	LastActivityAt *time.Time    `json:"last_activity_at,omitempty" db:"last_activity_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// ownerIDPattern matches the 24-hex-character owner identifiers issued by the
// platform's user store.
var ownerIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsOwnerID reports whether s has the shape of a platform owner identifier.
func IsOwnerID(s string) bool {
	return ownerIDPattern.MatchString(s)
}

// CanAcceptCredit reports whether the account may receive a new pending
// credit. hasPending tells whether any pending transaction already exists on
// the account. On rejection the returned reason code is caller-facing.
func (a *Account) CanAcceptCredit(hasPending bool) (bool, int) {
	switch a.Status {
	case AccountStatusBlocked, AccountStatusSuspended:
		return false, ReasonAccountBlocked
	case AccountStatusProcessing:
		if hasPending {
			return false, ReasonPendingConflict
		}
	}
	return true, 0
}

// OpenAccountRequest represents the request to open a new account
type OpenAccountRequest struct {
	OwnerID  string      `json:"owner_id"`
	Currency Currency    `json:"currency"`
	Type     AccountType `json:"type"`
	Metadata Metadata    `json:"metadata"`
}

// Validate validates the open account request. Empty currency and type fall
// back to the platform defaults.
func (r *OpenAccountRequest) Validate() error {
	if !IsOwnerID(r.OwnerID) {
		return &ValidationError{
			Field:   "owner_id",
			Message: "owner id must be a 24-character hex string",
		}
	}

	switch r.Currency {
	case CurrencyUZS, CurrencyUSD:
	case "":
		r.Currency = CurrencyUZS
	default:
		return &ValidationError{
			Field:   "currency",
			Message: "unsupported currency",
		}
	}

	switch r.Type {
	case AccountTypePersonal, AccountTypeBusiness, AccountTypeSavings:
	case "":
		r.Type = AccountTypePersonal
	default:
		return &ValidationError{
			Field:   "type",
			Message: "unsupported account type",
		}
	}

	if r.Metadata.Email != "" && !strings.Contains(r.Metadata.Email, "@") {
		return &ValidationError{
			Field:   "metadata.email",
			Message: "invalid email address",
		}
	}

	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
