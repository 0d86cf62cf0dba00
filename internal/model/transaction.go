package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the status of a ledger transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// TransactionKind distinguishes balance-increasing from balance-decreasing
// transactions
type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "credit"
	TransactionKindDebit  TransactionKind = "debit"
)

// Transaction represents a single balance-affecting event on an account.
// It is appended once as pending and thereafter mutated only through status
// transitions. TransactionID is the caller-supplied idempotency key;
// UpstreamTransactionID is the payment gateway's own identifier when one
// exists.
type Transaction struct {
	ID                    uuid.UUID         `json:"id" db:"id"`
	AccountID             uuid.UUID         `json:"account_id" db:"account_id"`
	TransactionID         string            `json:"transaction_id" db:"transaction_id"`
	UpstreamTransactionID *string           `json:"upstream_transaction_id,omitempty" db:"upstream_transaction_id"`
	Amount                int64             `json:"amount" db:"amount"`
	Kind                  TransactionKind   `json:"kind" db:"kind"`
	Status                TransactionStatus `json:"status" db:"status"`
	Description           string            `json:"description" db:"description"`
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt           *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason          *int              `json:"cancel_reason,omitempty" db:"cancel_reason"`
}

// legalTransitions is the full transition graph. Absent statuses are
// terminal.
var legalTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:   {TransactionStatusCompleted, TransactionStatusCancelled},
	TransactionStatusCompleted: {TransactionStatusRefunded},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s TransactionStatus) bool {
	return len(legalTransitions[s]) == 0
}

// TransitionError indicates an attempted move outside the legal transition
// graph.
type TransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transaction state transition %s -> %s", e.From, e.To)
}

// Transition moves the transaction to the given status, stamping the matching
// timestamp. Re-applying a transition already satisfied is a success no-op:
// payment gateways redeliver callbacks at least once, so every transition
// must tolerate duplicates. Illegal transitions leave the transaction
// untouched.
func (t *Transaction) Transition(to TransactionStatus, now time.Time) error {
	if t.Status == to {
		return nil
	}
	if !CanTransition(t.Status, to) {
		return &TransitionError{From: t.Status, To: to}
	}

	t.Status = to
	switch to {
	case TransactionStatusCompleted:
		at := now
		t.CompletedAt = &at
	case TransactionStatusCancelled, TransactionStatusRefunded:
		at := now
		t.CancelledAt = &at
	}
	return nil
}

// SignedAmount is the effect of the transaction on the balance once
// completed: positive for credits, negative for debits.
func (t *Transaction) SignedAmount() int64 {
	if t.Kind == TransactionKindDebit {
		return -t.Amount
	}
	return t.Amount
}

// CreditRequest represents a request to post a pending credit to an account.
type CreditRequest struct {
	AccountIdentifier     string  `json:"account"`
	TransactionID         string  `json:"transaction_id"`
	UpstreamTransactionID *string `json:"upstream_transaction_id,omitempty"`
	Amount                int64   `json:"amount"`
	Description           string  `json:"description"`
}

// Validate validates the credit request
func (r *CreditRequest) Validate() error {
	if r.AccountIdentifier == "" {
		return &ValidationError{
			Field:   "account",
			Message: "account identifier is required",
		}
	}

	if r.TransactionID == "" {
		return &ValidationError{
			Field:   "transaction_id",
			Message: "transaction id is required",
		}
	}

	if len(r.TransactionID) > 64 {
		return &ValidationError{
			Field:   "transaction_id",
			Message: "transaction id cannot exceed 64 characters",
		}
	}

	if r.Amount <= 0 {
		return &ValidationError{
			Field:   "amount",
			Message: "amount must be positive",
		}
	}

	if len(r.Description) > 255 {
		return &ValidationError{
			Field:   "description",
			Message: "description cannot exceed 255 characters",
		}
	}

	return nil
}
