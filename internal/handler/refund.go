package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sahartak2025/Code-samples-sub000/internal/refund"
	"github.com/sahartak2025/Code-samples-sub000/pkg/validator"
)

// RefundHandler manages refund endpoints.
type RefundHandler struct {
	service   *refund.Service
	validator *validator.Validator
	logger    Logger
}

// NewRefundHandler creates a RefundHandler.
func NewRefundHandler(service *refund.Service, val *validator.Validator, log Logger) *RefundHandler {
	return &RefundHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// CreateRefund opens a compensating transaction for an operation.
func (h *RefundHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req refund.RefundRequest

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

	tx, err := h.service.Refund(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create refund", map[string]interface{}{
			"error":        err.Error(),
			"operation_id": req.OperationID,
		})
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// GetRefund returns a single refund record by ID.
func (h *RefundHandler) GetRefund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid refund ID")
		return
	}

	ref, err := h.service.GetRefund(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ref)
}
