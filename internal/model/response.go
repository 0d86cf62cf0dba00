package model

import "time"

// ErrorResponse represents a standardized error response. ReasonCode carries
// the gateway-facing negative integer when one applies, so a webhook adapter
// can translate failures into its provider's error payload without knowing
// anything about this service.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	ReasonCode int    `json:"reason_code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Database  DatabaseHealth `json:"database"`
}

// DatabaseHealth represents database connectivity status
type DatabaseHealth struct {
	Status         string `json:"status"`
	ConnectionPool string `json:"connection_pool,omitempty"`
}

// Common error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	ErrCodeAccountBlocked      = "ACCOUNT_BLOCKED"
	ErrCodePendingConflict     = "PENDING_TRANSACTION_EXISTS"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeIllegalTransition   = "ILLEGAL_STATE_TRANSITION"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeRetryLater          = "RETRY_LATER"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidInput        = "INVALID_INPUT"
)

// Gateway-facing reason codes. The gateway error model uses negative
// integers in the -31000 band; -31051 and -31052 are fixed by the upstream
// contract, the rest sit in the same band.
const (
	ReasonInsufficientBalance = -31001
	ReasonTransactionNotFound = -31003
	ReasonIllegalTransition   = -31008
	ReasonAccountNotFound     = -31050
	ReasonAccountBlocked      = -31051
	ReasonPendingConflict     = -31052
	ReasonRetryLater          = -31099
)
