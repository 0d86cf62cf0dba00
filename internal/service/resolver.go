package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mjesec7/aced-billing/internal/model"
	"github.com/mjesec7/aced-billing/internal/repository"
)

// AccountLookupResolver resolves an opaque caller-supplied identifier to
// exactly one account. The lookup order is load-bearing: account numbers are
// globally authoritative and are checked before fuzzier identifiers, so two
// users sharing a phone or email prefix can never shadow a number match.
type AccountLookupResolver struct {
	accounts AccountStore
}

// NewAccountLookupResolver creates a new resolver
func NewAccountLookupResolver(accounts AccountStore) *AccountLookupResolver {
	return &AccountLookupResolver{accounts: accounts}
}

// Resolve finds the account for an identifier, trying in order:
// account number (case-insensitive, suspended accounts excluded), then
// 24-hex owner id, then email/phone in metadata.
func (r *AccountLookupResolver) Resolve(ctx context.Context, identifier string) (*model.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &ServiceError{
			Code:    model.ErrCodeInvalidInput,
			Message: "Account identifier is required",
		}
	}

	account, err := r.accounts.GetByNumber(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	if model.IsOwnerID(identifier) {
		account, err = r.accounts.GetByOwnerID(ctx, identifier)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
	}

	account, err = r.accounts.GetByContact(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	return nil, &ServiceError{
		Code:    model.ErrCodeAccountNotFound,
		Reason:  model.ReasonAccountNotFound,
		Message: "Account not found",
	}
}
