package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mjesec7/aced-billing/internal/model"
	"github.com/mjesec7/aced-billing/internal/service"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	ledger *service.AccountLedger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(ledger *service.AccountLedger) *AccountHandler {
	return &AccountHandler{
		ledger: ledger,
	}
}

// accountResponse wraps an account with its balance rendered in major units
// for display collaborators (messaging, notifications).
type accountResponse struct {
	*model.Account
	BalanceDisplay string `json:"balance_display"`
}

func renderAccount(account *model.Account) accountResponse {
	return accountResponse{
		Account:        account,
		BalanceDisplay: model.FormatAmount(account.Balance, account.Currency),
	}
}

// OpenAccount handles POST /v1/accounts
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return
	}

	var req model.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", model.ErrCodeInvalidInput)
		return
	}

	account, err := h.ledger.OpenAccount(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(renderAccount(account))
}

// GetAccount handles GET /v1/accounts/{identifier}. The identifier may be an
// account number, owner id, email or phone.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return
	}

	identifier := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if identifier == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Account identifier is required", model.ErrCodeInvalidInput)
		return
	}

	account, err := h.ledger.GetAccount(r.Context(), identifier)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(renderAccount(account))
}

// SuspendAccount handles POST /v1/accounts/{identifier}/suspend
func (h *AccountHandler) SuspendAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return
	}

	identifier := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	identifier = strings.TrimSuffix(identifier, "/suspend")
	if identifier == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Account identifier is required", model.ErrCodeInvalidInput)
		return
	}

	account, err := h.ledger.SuspendAccount(r.Context(), identifier)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(renderAccount(account))
}

// handleServiceError converts service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	if serviceErr, ok := err.(*service.ServiceError); ok {
		switch serviceErr.Code {
		case model.ErrCodeAccountNotFound, model.ErrCodeTransactionNotFound:
			writeReasonResponse(w, http.StatusNotFound, serviceErr)
		case model.ErrCodeValidation, model.ErrCodeInvalidInput:
			writeErrorResponse(w, http.StatusBadRequest, serviceErr.Message, serviceErr.Code)
		case model.ErrCodeAccountBlocked, model.ErrCodeInsufficientBalance:
			writeReasonResponse(w, http.StatusUnprocessableEntity, serviceErr)
		case model.ErrCodePendingConflict, model.ErrCodeIllegalTransition:
			writeReasonResponse(w, http.StatusConflict, serviceErr)
		case model.ErrCodeRetryLater:
			writeReasonResponse(w, http.StatusServiceUnavailable, serviceErr)
		default:
			writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", model.ErrCodeInternalError)
		}
		return
	}

	// Unknown error
	writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", model.ErrCodeInternalError)
}

// writeReasonResponse renders a service error together with its gateway
// reason code so the webhook adapter can translate the failure directly.
func writeReasonResponse(w http.ResponseWriter, statusCode int, serviceErr *service.ServiceError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:      serviceErr.Message,
		Code:       serviceErr.Code,
		ReasonCode: serviceErr.Reason,
	})
}

// parseQueryParams extracts and validates pagination query parameters
func parseQueryParams(values url.Values) (limit, offset int, err error) {
	limit = 20 // default
	offset = 0 // default

	if limitStr := values.Get("limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil || limit <= 0 || limit > 100 {
			return 0, 0, fmt.Errorf("invalid limit parameter")
		}
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter")
		}
	}

	return limit, offset, nil
}
