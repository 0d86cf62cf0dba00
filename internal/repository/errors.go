package repository

import "errors"

// Repository errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountBlocked      = errors.New("account cannot accept credits")
	ErrPendingConflict     = errors.New("a pending transaction already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrIllegalTransition   = errors.New("illegal transaction state transition")
	ErrNumberTaken         = errors.New("account number already taken")
	ErrOwnerHasAccount     = errors.New("owner already has an account")
	ErrLockContention      = errors.New("account is locked by a concurrent operation")
)
