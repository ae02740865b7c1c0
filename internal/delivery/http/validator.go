package http

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator plugs go-playground/validator into echo
type CustomValidator struct {
	validate *validator.Validate
}

// NewValidator creates a new CustomValidator
func NewValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

// Validate implements echo.Validator
func (v *CustomValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
