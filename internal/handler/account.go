package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sahartak2025/Code-samples-sub000/internal/registry"
	"github.com/sahartak2025/Code-samples-sub000/pkg/validator"
)

// AccountHandler manages account registry endpoints.
type AccountHandler struct {
	service   *registry.Service
	validator *validator.Validator
	logger    Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(service *registry.Service, val *validator.Validator, log Logger) *AccountHandler {
	return &AccountHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// CreateAccount handles account creation.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req registry.CreateAccountRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
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

	account, err := h.service.CreateAccount(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create account", map[string]interface{}{
			"error":      err.Error(),
			"owner_kind": req.OwnerKind,
			"currency":   req.Currency,
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// ListAccounts pages through registered accounts.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	accounts, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list accounts", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAccount returns a single account by ID.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// GetBalance returns the cached balance of an account. With the as_of_tx
// query parameter it instead replays settled history up to and including
// that transaction.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	if v := r.URL.Query().Get("as_of_tx"); v != "" {
		txID, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid as_of_tx transaction ID")
			return
		}
		balance, err := h.service.BalanceAsOf(r.Context(), id, txID)
		if err != nil {
			h.logger.Error("Failed to replay balance", map[string]interface{}{
				"error":      err.Error(),
				"account_id": id,
				"as_of_tx":   txID,
			})
			respondError(w, statusFor(err), err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"account_id": id,
			"as_of_tx":   txID,
			"amount":     balance.Units,
			"currency":   balance.Currency,
		})
		return
	}

	balance, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": id,
		"amount":     balance.Units,
		"currency":   balance.Currency,
	})
}

// RecomputeBalance forces a balance recomputation from transaction history
// and returns the authoritative figure.
func (h *AccountHandler) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	if _, err := h.service.GetAccount(r.Context(), id); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	balance := h.service.Recompute(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": id,
		"amount":     balance.Units,
		"currency":   balance.Currency,
	})
}

// GetFeeSubAccount returns the fee sub-account attached to an account.
func (h *AccountHandler) GetFeeSubAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	account, err := h.service.FeeSubAccount(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, account)
}
