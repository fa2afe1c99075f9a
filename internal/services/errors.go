package services

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input along with the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports that a referenced rider, batch or ride does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError reports a delete blocked by references, a duplicate batch key
// or a full batch in strict capacity mode.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// PaymentNotRequiredError reports a settlement attempt below the billing
// threshold. UnpaidCount carries the current unpaid-class count so the caller
// can display it.
type PaymentNotRequiredError struct {
	UnpaidCount int
}

func (e *PaymentNotRequiredError) Error() string {
	return fmt.Sprintf("payment not required. Only %d unpaid classes", e.UnpaidCount)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsPaymentNotRequiredError(err error) bool {
	var pe *PaymentNotRequiredError
	return errors.As(err, &pe)
}
