package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mjesec7/aced-billing/internal/model"
	"github.com/mjesec7/aced-billing/internal/repository"
)

// memoryStore is an in-memory AccountStore + TransactionStore with the same
// atomic semantics the SQL repositories provide: every mutation holds the
// store lock for the whole check-and-mutate, and the status transition and
// balance adjustment happen together or not at all.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
	txns     map[uuid.UUID][]*model.Transaction
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[uuid.UUID]*model.Account),
		txns:     make(map[uuid.UUID][]*model.Transaction),
	}
}

func (s *memoryStore) Create(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.OwnerID == account.OwnerID {
			return repository.ErrOwnerHasAccount
		}
		if existing.AccountNumber == account.AccountNumber {
			return repository.ErrNumberTaken
		}
	}

	account.ID = uuid.New()
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	s.accounts[account.ID] = account
	return nil
}

func (s *memoryStore) GetByNumber(ctx context.Context, number string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	number = strings.ToUpper(number)
	for _, account := range s.accounts {
		if account.AccountNumber == number && account.Status != model.AccountStatusSuspended {
			return account, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (s *memoryStore) GetByOwnerID(ctx context.Context, ownerID string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Exact match on the stored lowercase form, same as the SQL repository.
	ownerID = strings.ToLower(ownerID)
	for _, account := range s.accounts {
		if account.OwnerID == ownerID {
			return account, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (s *memoryStore) GetByContact(ctx context.Context, contact string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match *model.Account
	for _, account := range s.accounts {
		if strings.EqualFold(account.Metadata.Email, contact) && account.Metadata.Email != "" ||
			account.Metadata.Phone == contact && account.Metadata.Phone != "" {
			if match == nil || account.CreatedAt.Before(match.CreatedAt) {
				match = account
			}
		}
	}
	if match == nil {
		return nil, repository.ErrAccountNotFound
	}
	return match, nil
}

func (s *memoryStore) NumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	number = strings.ToUpper(number)
	for _, account := range s.accounts {
		if account.AccountNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) SetStatus(ctx context.Context, id uuid.UUID, status model.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.Status = status
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryStore) findTxn(accountID uuid.UUID, transactionID string) *model.Transaction {
	for _, txn := range s.txns[accountID] {
		if txn.TransactionID == transactionID {
			return txn
		}
	}
	return nil
}

func (s *memoryStore) GetByTransactionID(ctx context.Context, accountID uuid.UUID, transactionID string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn := s.findTxn(accountID, transactionID); txn != nil {
		return txn, nil
	}
	return nil, repository.ErrTransactionNotFound
}

func (s *memoryStore) HasPending(ctx context.Context, accountID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range s.txns[accountID] {
		if txn.Status == model.TransactionStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) AppendPending(ctx context.Context, accountID uuid.UUID, txn *model.Transaction) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	if existing := s.findTxn(accountID, txn.TransactionID); existing != nil {
		return existing, nil
	}

	hasPending := false
	for _, existing := range s.txns[accountID] {
		if existing.Status == model.TransactionStatusPending {
			hasPending = true
			break
		}
	}
	if allowed, reason := account.CanAcceptCredit(hasPending); !allowed {
		if reason == model.ReasonPendingConflict {
			return nil, repository.ErrPendingConflict
		}
		return nil, repository.ErrAccountBlocked
	}

	now := time.Now().UTC()
	txn.ID = uuid.New()
	txn.AccountID = accountID
	txn.Status = model.TransactionStatusPending
	txn.CreatedAt = now
	s.txns[accountID] = append(s.txns[accountID], txn)

	if account.Status == model.AccountStatusActive {
		account.Status = model.AccountStatusProcessing
	}
	account.LastActivityAt = &now
	account.UpdatedAt = now

	return txn, nil
}

func (s *memoryStore) Complete(ctx context.Context, accountID uuid.UUID, transactionID string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	txn := s.findTxn(accountID, transactionID)
	if txn == nil {
		return nil, repository.ErrTransactionNotFound
	}

	switch txn.Status {
	case model.TransactionStatusCompleted:
		return txn, nil
	case model.TransactionStatusCancelled, model.TransactionStatusRefunded:
		return nil, repository.ErrIllegalTransition
	}

	next, err := model.AddBalance(account.Balance, txn.SignedAmount())
	if err != nil {
		return nil, repository.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	if err := txn.Transition(model.TransactionStatusCompleted, now); err != nil {
		return nil, repository.ErrIllegalTransition
	}
	account.Balance = next
	s.settle(account, now)

	return txn, nil
}

func (s *memoryStore) Reverse(ctx context.Context, accountID uuid.UUID, transactionID string, reason int) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	txn := s.findTxn(accountID, transactionID)
	if txn == nil {
		return nil, repository.ErrTransactionNotFound
	}

	now := time.Now().UTC()
	switch txn.Status {
	case model.TransactionStatusPending:
		if err := txn.Transition(model.TransactionStatusCancelled, now); err != nil {
			return nil, repository.ErrIllegalTransition
		}
		txn.CancelReason = &reason
	case model.TransactionStatusCompleted:
		next, err := model.AddBalance(account.Balance, -txn.SignedAmount())
		if err != nil {
			return nil, repository.ErrInsufficientBalance
		}
		if err := txn.Transition(model.TransactionStatusRefunded, now); err != nil {
			return nil, repository.ErrIllegalTransition
		}
		txn.CancelReason = &reason
		account.Balance = next
	default:
		return txn, nil
	}

	s.settle(account, now)
	return txn, nil
}

func (s *memoryStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.txns[accountID]
	if offset >= len(all) {
		return nil, nil
	}

	var out []*model.Transaction
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// settle restores a processing account to active once its last pending
// transaction has been resolved, mirroring the SQL repository.
func (s *memoryStore) settle(account *model.Account, now time.Time) {
	account.LastActivityAt = &now
	account.UpdatedAt = now

	if account.Status != model.AccountStatusProcessing {
		return
	}
	for _, txn := range s.txns[account.ID] {
		if txn.Status == model.TransactionStatusPending {
			return
		}
	}
	account.Status = model.AccountStatusActive
}
