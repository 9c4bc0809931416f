// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAccountNotFound          = errors.New("account not found")
	ErrAccountInactive          = errors.New("account inactive")
	ErrAccountExists            = errors.New("account already exists")
	ErrFeeAccountNotFound       = errors.New("fee sub-account not found")
	ErrOperationNotFound        = errors.New("operation not found")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrRefundNotFound           = errors.New("refund not found")
	ErrCommissionNotFound       = errors.New("commission rule not found")
	ErrLimitNotFound            = errors.New("limit not found")
	ErrAlreadySettled           = errors.New("transaction already settled")
	ErrLimitExceeded            = errors.New("operation limit exceeded")
	ErrCurrencyMismatch         = errors.New("currency mismatch")
	ErrExchangeRateRequired     = errors.New("exchange rate required for cross-currency transaction")
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInvalidOutcome           = errors.New("settlement outcome must be terminal")
	ErrInvalidCurrency          = errors.New("unknown currency code")
	ErrOperationNotRefundable   = errors.New("operation not refundable")
	ErrRefundExceedsEntitlement = errors.New("refund amount exceeds remaining entitlement")
	ErrDuplicateRequest         = errors.New("duplicate request")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
