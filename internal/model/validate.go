package model

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/izposoja/internal/apperr"
)

// DateLayout is the format of calendar dates (event and return dates).
const DateLayout = "2006-01-02"

var validate = validator.New()

// ValidateEmail checks that s looks like an email address.
func ValidateEmail(s string) error {
	if err := validate.Var(s, "required,email"); err != nil {
		return apperr.Validation("invalid email address")
	}
	return nil
}

// ValidateDate checks that s is empty or a YYYY-MM-DD date.
func ValidateDate(field, s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return apperr.Validation("%s must be a YYYY-MM-DD date", field)
	}
	return nil
}
