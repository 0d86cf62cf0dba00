package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mjesec7/aced-billing/internal/model"
)

// AccountStore is the persistence surface the resolver and ledger need for
// accounts. *repository.AccountRepository is the production implementation.
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByNumber(ctx context.Context, number string) (*model.Account, error)
	GetByOwnerID(ctx context.Context, ownerID string) (*model.Account, error)
	GetByContact(ctx context.Context, contact string) (*model.Account, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error
}

// TransactionStore is the persistence surface the ledger needs for the
// transaction lifecycle. Implementations guarantee that Complete and Reverse
// perform the status transition and the balance adjustment atomically with
// respect to other writers of the same account.
type TransactionStore interface {
	GetByTransactionID(ctx context.Context, accountID uuid.UUID, transactionID string) (*model.Transaction, error)
	HasPending(ctx context.Context, accountID uuid.UUID) (bool, error)
	AppendPending(ctx context.Context, accountID uuid.UUID, txn *model.Transaction) (*model.Transaction, error)
	Complete(ctx context.Context, accountID uuid.UUID, transactionID string) (*model.Transaction, error)
	Reverse(ctx context.Context, accountID uuid.UUID, transactionID string, reason int) (*model.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error)
}
