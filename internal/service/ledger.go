package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mjesec7/aced-billing/internal/model"
	"github.com/mjesec7/aced-billing/internal/repository"
)

// AccountLedger is the sole writer of account balances. Every mutation is
// validated before anything is written and either fully applies or fully
// fails; the stores guarantee atomicity of the transition-plus-balance pair.
type AccountLedger struct {
	accounts     AccountStore
	transactions TransactionStore
	resolver     *AccountLookupResolver
	numbers      *AccountNumberGenerator
}

// NewAccountLedger creates a new account ledger
func NewAccountLedger(accounts AccountStore, transactions TransactionStore) *AccountLedger {
	return &AccountLedger{
		accounts:     accounts,
		transactions: transactions,
		resolver:     NewAccountLookupResolver(accounts),
		numbers:      NewAccountNumberGenerator(accounts),
	}
}

// OpenAccount creates the account for an owner at signup: zero balance,
// active status, collision-checked account number.
func (l *AccountLedger) OpenAccount(ctx context.Context, req *model.OpenAccountRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &ServiceError{
				Code:    model.ErrCodeValidation,
				Message: validationErr.Message,
			}
		}
		return nil, err
	}

	number, err := l.numbers.Generate(ctx)
	if err != nil {
		if errors.Is(err, ErrNumberSpaceContended) {
			return nil, &ServiceError{
				Code:    model.ErrCodeRetryLater,
				Reason:  model.ReasonRetryLater,
				Message: "Could not allocate an account number, retry later",
			}
		}
		return nil, err
	}

	account := &model.Account{
		AccountNumber: strings.ToUpper(number),
		OwnerID:       strings.ToLower(req.OwnerID),
		Balance:       0,
		Currency:      req.Currency,
		Status:        model.AccountStatusActive,
		Type:          req.Type,
		Metadata:      req.Metadata,
	}

	if err := l.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrOwnerHasAccount) {
			return nil, &ServiceError{
				Code:    model.ErrCodeValidation,
				Message: "Owner already has an account",
			}
		}
		return nil, err
	}

	return account, nil
}

// RequestCredit posts a pending credit against an account. The
// caller-supplied transaction id is the idempotency key: a redelivered
// request returns the record its first delivery created, and that lookup
// happens before any acceptance check so a pending credit can never reject
// its own redelivery.
func (l *AccountLedger) RequestCredit(ctx context.Context, req *model.CreditRequest) (*model.Transaction, error) {
	if err := req.Validate(); err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &ServiceError{
				Code:    model.ErrCodeValidation,
				Message: validationErr.Message,
			}
		}
		return nil, err
	}

	account, err := l.resolver.Resolve(ctx, req.AccountIdentifier)
	if err != nil {
		return nil, err
	}

	if existing, err := l.transactions.GetByTransactionID(ctx, account.ID, req.TransactionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, err
	}

	hasPending, err := l.transactions.HasPending(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	// Fast path: the store re-evaluates this policy under the account row
	// lock, so a status change racing this check still cannot append.
	if allowed, reason := account.CanAcceptCredit(hasPending); !allowed {
		return nil, creditRejection(reason)
	}

	txn := &model.Transaction{
		TransactionID:         req.TransactionID,
		UpstreamTransactionID: req.UpstreamTransactionID,
		Amount:                req.Amount,
		Kind:                  model.TransactionKindCredit,
		Description:           req.Description,
	}

	txn, err = l.transactions.AppendPending(ctx, account.ID, txn)
	if err != nil {
		return nil, mapLedgerError(err)
	}

	return txn, nil
}

// ConfirmTransaction settles a pending transaction and applies its amount to
// the balance. Confirming an already-completed transaction is an idempotent
// no-op; confirming a cancelled or refunded one fails and never re-credits.
func (l *AccountLedger) ConfirmTransaction(ctx context.Context, identifier, transactionID string) (*model.Transaction, error) {
	account, err := l.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	txn, err := l.transactions.Complete(ctx, account.ID, transactionID)
	if err != nil {
		return nil, mapLedgerError(err)
	}

	return txn, nil
}

// ReverseTransaction cancels a pending transaction or refunds a completed
// one, reversing its balance effect. The gateway's cancel reason is recorded
// on the transaction.
func (l *AccountLedger) ReverseTransaction(ctx context.Context, identifier, transactionID string, reason int) (*model.Transaction, error) {
	account, err := l.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	txn, err := l.transactions.Reverse(ctx, account.ID, transactionID, reason)
	if err != nil {
		return nil, mapLedgerError(err)
	}

	return txn, nil
}

// GetAccount resolves and returns an account for read-only display.
func (l *AccountLedger) GetAccount(ctx context.Context, identifier string) (*model.Account, error) {
	return l.resolver.Resolve(ctx, identifier)
}

// GetTransaction returns a single transaction on an account.
func (l *AccountLedger) GetTransaction(ctx context.Context, identifier, transactionID string) (*model.Transaction, error) {
	account, err := l.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	txn, err := l.transactions.GetByTransactionID(ctx, account.ID, transactionID)
	if err != nil {
		return nil, mapLedgerError(err)
	}

	return txn, nil
}

// ListTransactions returns an account's transaction history, newest first.
func (l *AccountLedger) ListTransactions(ctx context.Context, identifier string, limit, offset int) (*model.Account, []*model.Transaction, error) {
	account, err := l.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := l.transactions.ListByAccount(ctx, account.ID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	return account, transactions, nil
}

// SuspendAccount moves an account to the suspended archival state. Accounts
// are never deleted; suspension retires the account number from lookup while
// keeping the ledger history auditable.
func (l *AccountLedger) SuspendAccount(ctx context.Context, identifier string) (*model.Account, error) {
	account, err := l.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := l.accounts.SetStatus(ctx, account.ID, model.AccountStatusSuspended); err != nil {
		return nil, mapLedgerError(err)
	}
	account.Status = model.AccountStatusSuspended

	return account, nil
}

func creditRejection(reason int) *ServiceError {
	switch reason {
	case model.ReasonPendingConflict:
		return &ServiceError{
			Code:    model.ErrCodePendingConflict,
			Reason:  reason,
			Message: "A pending transaction already exists on this account",
		}
	default:
		return &ServiceError{
			Code:    model.ErrCodeAccountBlocked,
			Reason:  model.ReasonAccountBlocked,
			Message: "Account cannot accept credits",
		}
	}
}

// mapLedgerError translates repository sentinels into caller-facing service
// errors with their gateway reason codes.
func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		return &ServiceError{
			Code:    model.ErrCodeAccountNotFound,
			Reason:  model.ReasonAccountNotFound,
			Message: "Account not found",
		}
	case errors.Is(err, repository.ErrAccountBlocked):
		return creditRejection(model.ReasonAccountBlocked)
	case errors.Is(err, repository.ErrPendingConflict):
		return creditRejection(model.ReasonPendingConflict)
	case errors.Is(err, repository.ErrTransactionNotFound):
		return &ServiceError{
			Code:    model.ErrCodeTransactionNotFound,
			Reason:  model.ReasonTransactionNotFound,
			Message: "Transaction not found",
		}
	case errors.Is(err, repository.ErrIllegalTransition):
		return &ServiceError{
			Code:    model.ErrCodeIllegalTransition,
			Reason:  model.ReasonIllegalTransition,
			Message: "Transaction state does not permit this operation",
		}
	case errors.Is(err, repository.ErrInsufficientBalance):
		return &ServiceError{
			Code:    model.ErrCodeInsufficientBalance,
			Reason:  model.ReasonInsufficientBalance,
			Message: "Insufficient balance",
		}
	case errors.Is(err, repository.ErrLockContention):
		return &ServiceError{
			Code:    model.ErrCodeRetryLater,
			Reason:  model.ReasonRetryLater,
			Message: "Account is busy, retry later",
		}
	default:
		return err
	}
}

// ServiceError represents a caller-facing service failure. Reason carries the
// gateway error code when the failure maps onto the gateway's error model.
type ServiceError struct {
	Code    string
	Reason  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}
