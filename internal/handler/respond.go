// Package handler provides HTTP handlers for the settlement ledger services.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errors map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":             "Validation failed",
		"validation_errors": errors,
	})
}

// pagination reads limit/offset query parameters, capping page size.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 200 {
		limit = 200
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// statusFor maps service errors onto HTTP statuses so handlers stay uniform.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound),
		errors.Is(err, apperrors.ErrFeeAccountNotFound),
		errors.Is(err, apperrors.ErrOperationNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrRefundNotFound),
		errors.Is(err, apperrors.ErrCommissionNotFound),
		errors.Is(err, apperrors.ErrLimitNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrAccountExists),
		errors.Is(err, apperrors.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrLimitExceeded),
		errors.Is(err, apperrors.ErrAccountInactive),
		errors.Is(err, apperrors.ErrOperationNotRefundable),
		errors.Is(err, apperrors.ErrRefundExceedsEntitlement):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrCurrencyMismatch),
		errors.Is(err, apperrors.ErrExchangeRateRequired),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrInvalidOutcome),
		errors.Is(err, apperrors.ErrInvalidCurrency):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
