package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sahartak2025/Code-samples-sub000/internal/domain"
	"github.com/sahartak2025/Code-samples-sub000/internal/operation"
	"github.com/sahartak2025/Code-samples-sub000/pkg/validator"
)

// OperationHandler manages operation orchestration endpoints.
type OperationHandler struct {
	service   *operation.Service
	validator *validator.Validator
	logger    Logger
}

// NewOperationHandler creates an OperationHandler.
func NewOperationHandler(service *operation.Service, val *validator.Validator, log Logger) *OperationHandler {
	return &OperationHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// OpenOperation opens a new operation after running the limit gate.
func (h *OperationHandler) OpenOperation(w http.ResponseWriter, r *http.Request) {
	var req operation.OpenRequest

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

	op, decision, err := h.service.Open(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to open operation", map[string]interface{}{
			"error":             err.Error(),
			"kind":              req.Kind,
			"client_profile_id": req.Profile.ID,
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	resp := map[string]interface{}{"operation": op}
	if decision != nil {
		resp["gate"] = decision
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ListOperations pages through a client profile's operations.
func (h *OperationHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(r.URL.Query().Get("client_profile_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "client_profile_id query parameter is required")
		return
	}
	limit, offset := pagination(r)

	ops, err := h.service.ListByClientProfile(r.Context(), profileID, limit, offset)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"operations": ops,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetOperation returns a single operation by ID.
func (h *OperationHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid operation ID")
		return
	}

	op, err := h.service.GetOperation(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, op)
}

// GetOperationTransactions lists the transactions belonging to an operation.
func (h *OperationHandler) GetOperationTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid operation ID")
		return
	}

	txs, err := h.service.Transactions(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        len(txs),
	})
}

// ReevaluateOperation re-runs the limit gate for an escalated operation,
// typically after the client's compliance level was raised.
func (h *OperationHandler) ReevaluateOperation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid operation ID")
		return
	}

	var req struct {
		Profile domain.ClientProfile `json:"profile" validate:"required"`
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

	decision, err := h.service.Reevaluate(r.Context(), id, req.Profile)
	if err != nil {
		h.logger.Error("Failed to reevaluate operation", map[string]interface{}{
			"error": err.Error(),
			"op_id": id,
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"gate": decision})
}
