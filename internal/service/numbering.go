package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrNumberSpaceContended is returned when the generator failed to find a free
// account number within its retry budget.
var ErrNumberSpaceContended = errors.New("could not generate a unique account number")

const numberAttempts = 5

// AccountNumberGenerator produces unique human-readable account numbers of
// the form ACC + two-digit year + two-digit month + six random digits.
// The keyspace is large but not collision-free, so uniqueness is enforced by
// checking against persisted accounts and regenerating on conflict.
type AccountNumberGenerator struct {
	accounts AccountStore
	now      func() time.Time
}

// NewAccountNumberGenerator creates a new account number generator
func NewAccountNumberGenerator(accounts AccountStore) *AccountNumberGenerator {
	return &AccountNumberGenerator{
		accounts: accounts,
		now:      time.Now,
	}
}

// Generate returns an account number not currently taken by any persisted
// account. The check-then-insert window is closed by the unique constraint on
// the accounts table; this retry loop keeps that constraint from firing in
// practice.
func (g *AccountNumberGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number, err := g.candidate()
		if err != nil {
			return "", err
		}

		taken, err := g.accounts.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}

	return "", ErrNumberSpaceContended
}

func (g *AccountNumberGenerator) candidate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}
	return fmt.Sprintf("ACC%s%06d", g.now().Format("0601"), n.Int64()), nil
}
