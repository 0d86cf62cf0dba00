package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{"pending to completed", TransactionStatusPending, TransactionStatusCompleted, true},
		{"pending to cancelled", TransactionStatusPending, TransactionStatusCancelled, true},
		{"completed to refunded", TransactionStatusCompleted, TransactionStatusRefunded, true},
		{"pending to refunded", TransactionStatusPending, TransactionStatusRefunded, false},
		{"completed to cancelled", TransactionStatusCompleted, TransactionStatusCancelled, false},
		{"completed to pending", TransactionStatusCompleted, TransactionStatusPending, false},
		{"cancelled to completed", TransactionStatusCancelled, TransactionStatusCompleted, false},
		{"cancelled to refunded", TransactionStatusCancelled, TransactionStatusRefunded, false},
		{"refunded to completed", TransactionStatusRefunded, TransactionStatusCompleted, false},
		{"refunded to pending", TransactionStatusRefunded, TransactionStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(TransactionStatusPending))
	assert.False(t, IsTerminal(TransactionStatusCompleted))
	assert.True(t, IsTerminal(TransactionStatusCancelled))
	assert.True(t, IsTerminal(TransactionStatusRefunded))
}

func TestTransaction_Transition(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("pending to completed stamps completed_at", func(t *testing.T) {
		txn := &Transaction{Status: TransactionStatusPending}

		err := txn.Transition(TransactionStatusCompleted, now)

		require.NoError(t, err)
		assert.Equal(t, TransactionStatusCompleted, txn.Status)
		require.NotNil(t, txn.CompletedAt)
		assert.Equal(t, now, *txn.CompletedAt)
		assert.Nil(t, txn.CancelledAt)
	})

	t.Run("pending to cancelled stamps cancelled_at", func(t *testing.T) {
		txn := &Transaction{Status: TransactionStatusPending}

		err := txn.Transition(TransactionStatusCancelled, now)

		require.NoError(t, err)
		assert.Equal(t, TransactionStatusCancelled, txn.Status)
		require.NotNil(t, txn.CancelledAt)
		assert.Nil(t, txn.CompletedAt)
	})

	t.Run("re-applying a satisfied transition is a no-op", func(t *testing.T) {
		completedAt := now.Add(-time.Hour)
		txn := &Transaction{Status: TransactionStatusCompleted, CompletedAt: &completedAt}

		err := txn.Transition(TransactionStatusCompleted, now)

		require.NoError(t, err)
		assert.Equal(t, completedAt, *txn.CompletedAt, "timestamp must not be re-stamped")
	})

	t.Run("illegal transition leaves state untouched", func(t *testing.T) {
		txn := &Transaction{Status: TransactionStatusCancelled}

		err := txn.Transition(TransactionStatusCompleted, now)

		var transitionErr *TransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, TransactionStatusCancelled, transitionErr.From)
		assert.Equal(t, TransactionStatusCompleted, transitionErr.To)
		assert.Equal(t, TransactionStatusCancelled, txn.Status)
		assert.Nil(t, txn.CompletedAt)
	})
}

func TestTransaction_SignedAmount(t *testing.T) {
	credit := &Transaction{Kind: TransactionKindCredit, Amount: 15000}
	debit := &Transaction{Kind: TransactionKindDebit, Amount: 15000}

	assert.Equal(t, int64(15000), credit.SignedAmount())
	assert.Equal(t, int64(-15000), debit.SignedAmount())
}

func TestCreditRequest_Validate(t *testing.T) {
	valid := func() *CreditRequest {
		return &CreditRequest{
			AccountIdentifier: "ACC2603123456",
			TransactionID:     "tx1",
			Amount:            15000,
			Description:       "course purchase",
		}
	}

	tests := []struct {
		name     string
		mutate   func(*CreditRequest)
		errorMsg string
	}{
		{
			name:   "valid request",
			mutate: func(r *CreditRequest) {},
		},
		{
			name:     "missing account identifier",
			mutate:   func(r *CreditRequest) { r.AccountIdentifier = "" },
			errorMsg: "account identifier is required",
		},
		{
			name:     "missing transaction id",
			mutate:   func(r *CreditRequest) { r.TransactionID = "" },
			errorMsg: "transaction id is required",
		},
		{
			name:     "oversized transaction id",
			mutate:   func(r *CreditRequest) { r.TransactionID = string(make([]byte, 65)) },
			errorMsg: "transaction id cannot exceed 64 characters",
		},
		{
			name:     "zero amount",
			mutate:   func(r *CreditRequest) { r.Amount = 0 },
			errorMsg: "amount must be positive",
		},
		{
			name:     "negative amount",
			mutate:   func(r *CreditRequest) { r.Amount = -100 },
			errorMsg: "amount must be positive",
		},
		{
			name:     "oversized description",
			mutate:   func(r *CreditRequest) { r.Description = string(make([]byte, 256)) },
			errorMsg: "description cannot exceed 255 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := req.Validate()

			if tt.errorMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			}
		})
	}
}
