package auth

import (
	"errors"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type signUpRequest struct {
	Name     string `validate:"required,max=64"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,strong_password"`
}

type resetRequest struct {
	Password string `validate:"required,strong_password"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("strong_password", validateStrongPassword)
	return v
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

// validationError maps the first failing field to an auth error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	switch verrs[0].Field() {
	case "Email":
		return ErrInvalidEmail
	case "Password":
		return ErrWeakPassword
	case "Name":
		return ErrInvalidName
	default:
		return err
	}
}
