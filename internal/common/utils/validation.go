package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"github.com/hirosato/finance-ledger/internal/domain/errors"
)

var (
	// EmailRegex validates email addresses
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// TokenRegex validates non-ISO currency symbols such as USDT
	TokenRegex = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

	// DateRegex validates ISO 8601 date strings (YYYY-MM-DD)
	DateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// MaxScale bounds account scales; int64 minor units overflow quickly beyond it
const MaxScale = 18

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !EmailRegex.MatchString(email) {
		return errors.NewValidationError("invalid email format")
	}
	return nil
}

// ValidateCurrency accepts ISO 4217 codes known to go-money and token
// symbols of wallet accounts
func ValidateCurrency(currency string) error {
	if money.GetCurrency(currency) != nil || TokenRegex.MatchString(currency) {
		return nil
	}
	return errors.NewValidationError("invalid currency code, should be an ISO code (e.g., USD) or a token symbol")
}

// ValidateScale checks an account's minor-unit scale
func ValidateScale(scale int32) error {
	if scale < 0 || scale > MaxScale {
		return errors.NewValidationError("scale must be between 0 and 18")
	}
	return nil
}

// ParseISODate parses an ISO 8601 date string (YYYY-MM-DD) as midnight UTC
func ParseISODate(date string) (time.Time, error) {
	if !DateRegex.MatchString(date) {
		return time.Time{}, errors.NewValidationError("invalid date format, should be YYYY-MM-DD")
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return time.Time{}, errors.NewValidationError("invalid date value")
	}
	return t, nil
}

// ValidateRequiredString validates that a string is not empty
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(fieldName + " is required")
	}
	return nil
}
