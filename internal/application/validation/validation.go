package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/toolroom/backend/internal/domain/shared"
)

// New returns a validator whose error reports use json tag names, so field
// names in failures match the request contract rather than Go identifiers.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Wrap converts a validator failure into the domain's field-level
// validation error. Unknown error shapes collapse into a single
// request-level field so callers never see raw validator internals.
func Wrap(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return shared.NewValidationError(shared.FieldError{
			Field:   "request",
			Message: "Malformed request",
		})
	}

	fields := make([]shared.FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, shared.FieldError{
			Field:   fieldErr.Field(),
			Message: message(fieldErr),
		})
	}
	return shared.NewValidationError(fields...)
}

// message returns a human-readable description for a failed rule
func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String || e.Type().Kind() == reflect.Slice {
			return "Must have at least " + e.Param() + " entries or characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	default:
		return "Failed validation rule: " + e.Tag()
	}
}
