package apierror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldErrorsFrom turns a binding error into field errors. It returns nil
// when err is not a validator error (malformed JSON, wrong types).
func FieldErrorsFrom(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have at least %s characters or items", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %q check", fe.Tag())
	}
}

// FromBindingError builds the problem for a failed ShouldBindJSON call.
func FromBindingError(requestID string, err error) *ProblemDetails {
	if fields := FieldErrorsFrom(err); len(fields) > 0 {
		return NewValidationError(requestID, fields)
	}
	return NewBadRequestError(requestID, err.Error(), "The request body could not be read")
}
