package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionExpired     = errors.New("session expired")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrOperationInFlight  = errors.New("operation already in progress")
)

// Credential errors
var (
	ErrInvalidIdentifier      = errors.New("invalid identifier")
	ErrWeakSecret             = errors.New("secret does not meet strength policy")
	ErrNoRememberedCredential = errors.New("no remembered credential")
)

// Ledger errors
var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrInstallmentAlreadyPaid = errors.New("installment already paid")
	ErrOutOfOrderPayment      = errors.New("installment is not the next payable")
	ErrNothingPayable         = errors.New("no pending installment")
	ErrPaymentExceedsBalance  = errors.New("payment exceeds remaining balance")
	ErrInvalidPaymentAmount   = errors.New("invalid payment amount")
	ErrInconsistentLedger     = errors.New("inconsistent ledger snapshot")
	ErrDeleteNotRequested     = errors.New("delete was not requested")
	ErrDeleteTokenMismatch    = errors.New("delete confirmation token mismatch")
	ErrDeleteIntentExpired    = errors.New("delete confirmation expired")
)

// ValidationError is a request rejected before reaching the payroll API.
// Message is user facing; Kind is the sentinel it matches with errors.Is.
type ValidationError struct {
	Kind    error
	Message string
}

// NewValidationError creates a ValidationError
func NewValidationError(kind error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// IsValidation reports whether err is a local validation failure
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// RemoteError is a refusal reported by the payroll API ({"success": false})
type RemoteError struct {
	Operation string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request rejected", e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}
