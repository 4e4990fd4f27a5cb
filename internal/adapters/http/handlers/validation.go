package handlers

import (
	"errors"
	"fmt"

	"paydesk/internal/pkg/password"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return password.ValidateIdentifier(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return password.ValidatePassword(fl.Field().String())
	})
	return v
}

// validationMessage turns the first failed rule into a user facing message
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Invalid request body"
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fe.Field())
	case "identifier":
		return "Number must be exactly 10 digits"
	case "strongpassword":
		return fmt.Sprintf("Password must be at least %d characters and include upper and lower case letters, a digit and a special character", password.MinLength)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
