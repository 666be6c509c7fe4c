package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidCondition   = errors.New("invalid condition")
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var conditions = map[string]struct{}{
	"NEW":      {},
	"LIKE_NEW": {},
	"GOOD":     {},
	"FAIR":     {},
	"POOR":     {},
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 || len(trimmed) > 60 {
		return ErrInvalidDisplayName
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateCondition(condition string) error {
	if _, ok := conditions[condition]; !ok {
		return ErrInvalidCondition
	}
	return nil
}
