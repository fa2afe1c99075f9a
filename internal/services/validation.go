package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendDomainError maps the service error taxonomy onto HTTP statuses and
// writes the JSON error body. Unknown errors become 500s.
func SendDomainError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		pe *PaymentNotRequiredError
	)

	switch {
	case errors.As(err, &ve):
		w.WriteHeader(http.StatusBadRequest)
		resp := ErrorResponse{Error: ve.Message}
		if ve.Field != "" {
			resp.Details = map[string]string{ve.Field: ve.Message}
		}
		json.NewEncoder(w).Encode(resp)
	case errors.As(err, &nf):
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
	case errors.As(err, &ce):
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
	case errors.As(err, &pe):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   err.Error(),
			Details: map[string]string{"unpaidCount": fmt.Sprintf("%d", pe.UnpaidCount)},
		})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
	}
}
