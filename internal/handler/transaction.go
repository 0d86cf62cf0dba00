package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mjesec7/aced-billing/internal/model"
	"github.com/mjesec7/aced-billing/internal/service"
)

// TransactionHandler handles the transaction lifecycle endpoints the payment
// webhook adapter calls into.
type TransactionHandler struct {
	ledger *service.AccountLedger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledger *service.AccountLedger) *TransactionHandler {
	return &TransactionHandler{
		ledger: ledger,
	}
}

// RequestCredit handles POST /v1/credits
func (h *TransactionHandler) RequestCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return
	}

	var req model.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", model.ErrCodeInvalidInput)
		return
	}

	txn, err := h.ledger.RequestCredit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// A redelivered transaction id returns the original record, still 201:
	// the caller cannot tell a retry from the first delivery and should not
	// have to.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(txn)
}

// transitionRequest is the body for confirm/reverse calls.
type transitionRequest struct {
	AccountIdentifier string `json:"account"`
	Reason            int    `json:"reason,omitempty"`
}

// ConfirmTransaction handles POST /v1/transactions/{transactionId}/confirm
func (h *TransactionHandler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, req, ok := h.decodeTransition(w, r, "/confirm")
	if !ok {
		return
	}

	txn, err := h.ledger.ConfirmTransaction(r.Context(), req.AccountIdentifier, transactionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(txn)
}

// ReverseTransaction handles POST /v1/transactions/{transactionId}/reverse
func (h *TransactionHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, req, ok := h.decodeTransition(w, r, "/reverse")
	if !ok {
		return
	}

	txn, err := h.ledger.ReverseTransaction(r.Context(), req.AccountIdentifier, transactionID, req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(txn)
}

func (h *TransactionHandler) decodeTransition(w http.ResponseWriter, r *http.Request, suffix string) (string, *transitionRequest, bool) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return "", nil, false
	}

	transactionID := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")
	transactionID = strings.TrimSuffix(transactionID, suffix)
	if transactionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Transaction ID is required", model.ErrCodeInvalidInput)
		return "", nil, false
	}

	req := &transitionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", model.ErrCodeInvalidInput)
		return "", nil, false
	}
	if req.AccountIdentifier == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Account identifier is required", model.ErrCodeInvalidInput)
		return "", nil, false
	}

	return transactionID, req, true
}

// GetTransaction handles GET /v1/transactions/{transactionId}?account=...
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return
	}

	transactionID := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")
	if transactionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Transaction ID is required", model.ErrCodeInvalidInput)
		return
	}

	identifier := r.URL.Query().Get("account")
	if identifier == "" {
		writeErrorResponse(w, http.StatusBadRequest, "account query parameter is required", model.ErrCodeInvalidInput)
		return
	}

	txn, err := h.ledger.GetTransaction(r.Context(), identifier, transactionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(txn)
}

// GetAccountTransactions handles GET /v1/accounts/{identifier}/transactions
func (h *TransactionHandler) GetAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", model.ErrCodeInvalidInput)
		return
	}

	identifier := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	identifier = strings.TrimSuffix(identifier, "/transactions")
	if identifier == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Account identifier is required", model.ErrCodeInvalidInput)
		return
	}

	limit, offset, err := parseQueryParams(r.URL.Query())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), model.ErrCodeInvalidInput)
		return
	}

	account, transactions, err := h.ledger.ListTransactions(r.Context(), identifier, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"account_id":     account.ID,
		"account_number": account.AccountNumber,
		"transactions":   transactions,
		"pagination": map[string]interface{}{
			"limit":  limit,
			"offset": offset,
			"count":  len(transactions),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
