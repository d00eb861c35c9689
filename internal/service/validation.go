package service

import (
	"errors"
	"strings"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct turns the first failing rule into an InvalidInput error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.Errorf(domain.ErrInvalidInput, "Invalid input")
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return domain.Errorf(domain.ErrInvalidInput, "%s is required", field)
	case "email":
		return domain.Errorf(domain.ErrInvalidInput, "%s must be a valid email address", field)
	case "min":
		return domain.Errorf(domain.ErrInvalidInput, "%s must be at least %s characters", field, fe.Param())
	case "max":
		return domain.Errorf(domain.ErrInvalidInput, "%s must be at most %s characters", field, fe.Param())
	default:
		return domain.Errorf(domain.ErrInvalidInput, "%s is invalid", field)
	}
}
