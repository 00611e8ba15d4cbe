package donation

import (
	"errors"
	"fmt"
)

// ValidationCode categorizes validation failures.
type ValidationCode string

const (
	// ErrCodeAmountNotPositive indicates a missing, zero or negative amount.
	ErrCodeAmountNotPositive ValidationCode = "AMOUNT_NOT_POSITIVE"

	// ErrCodeDonorRequired indicates both donor name and organization name
	// were blank.
	ErrCodeDonorRequired ValidationCode = "DONOR_REQUIRED"

	// ErrCodeReferenceRequired indicates a non-cash payment without a
	// payment reference.
	ErrCodeReferenceRequired ValidationCode = "REFERENCE_REQUIRED"

	// ErrCodeBadAmount indicates an amount string that could not be parsed
	// as a decimal.
	ErrCodeBadAmount ValidationCode = "BAD_AMOUNT"
)

// ValidationError is returned by create-time validation. Validation errors
// surface synchronously to the caller and never reach the sync queue.
type ValidationError struct {
	Code    ValidationCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
