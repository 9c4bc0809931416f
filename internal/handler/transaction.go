package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/internal/ledger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/validator"
)

// TransactionHandler manages ledger transaction endpoints.
type TransactionHandler struct {
	service   *ledger.Service
	validator *validator.Validator
	logger    Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(service *ledger.Service, val *validator.Validator, log Logger) *TransactionHandler {
	return &TransactionHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// CreateTransaction records a new pending transaction.
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateTransactionRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	tx, err := h.service.CreateTransaction(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create transaction", map[string]interface{}{
			"error": err.Error(),
			"from":  req.FromAccountID,
			"to":    req.ToAccountID,
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// GetTransaction returns a single transaction by ID.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

// ListAccountTransactions pages through the entries touching an account.
func (h *TransactionHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	limit, offset := pagination(r)

	txs, err := h.service.AccountTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

// SettleTransaction applies a terminal outcome reported by the provider.
func (h *TransactionHandler) SettleTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	var req struct {
		Outcome string `json:"outcome" validate:"required,oneof=successful failed"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	if err := h.service.Settle(r.Context(), id, domain.TransactionStatus(req.Outcome)); err != nil {
		h.logger.Error("Failed to settle transaction", map[string]interface{}{
			"error":   err.Error(),
			"tx_id":   id,
			"outcome": req.Outcome,
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "settled", "outcome": req.Outcome})
}
