package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidState         = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrWrongWorkflow        = NewDomainError("WRONG_WORKFLOW", "Item type does not match this workflow")
	ErrInvalidQuantity      = NewDomainError("INVALID_QUANTITY", "Requested quantity must be at least 1")
	ErrInsufficientQuantity = NewDomainError("INSUFFICIENT_QUANTITY", "Requested quantity exceeds available quantity")
	ErrProjectMismatch      = NewDomainError("PROJECT_MISMATCH", "All items in a batch must belong to the same project")
	ErrSameActor            = NewDomainError("SAME_ACTOR", "The same person cannot act in more than one approval role")
	ErrPersistenceFailure   = NewDomainError("PERSISTENCE_FAILURE", "The operation could not be completed")
	ErrConcurrencyConflict  = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)

// FieldError describes a single invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field failures for malformed requests
type ValidationError struct {
	DomainError
	Fields []FieldError `json:"fields"`
}

// NewValidationError creates a validation error with field details
func NewValidationError(fields ...FieldError) *ValidationError {
	msg := "Request validation failed"
	if len(fields) == 1 {
		msg = fmt.Sprintf("Request validation failed: %s %s", fields[0].Field, fields[0].Message)
	}
	return &ValidationError{
		DomainError: DomainError{Code: "VALIDATION_FAILED", Message: msg},
		Fields:      fields,
	}
}
