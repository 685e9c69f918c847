package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	ErrEmailDomain  = errors.New("email must be an institutional address")
	ErrWeakPassword = errors.New("password must be at least 8 characters and include an uppercase letter, a lowercase letter, and a number")
)

var localPart = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+$`)

// ValidateEmail checks that email belongs to domain, e.g. "bu.edu".
func ValidateEmail(email, domain string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return ErrEmailDomain
	}
	if !localPart.MatchString(email[:at]) || !strings.EqualFold(email[at+1:], domain) {
		return ErrEmailDomain
	}
	return nil
}

// ValidatePassword enforces length bounds and character classes. bcrypt only
// reads the first 72 bytes, so longer passwords are refused.
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 72 {
		return ErrWeakPassword
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return ErrWeakPassword
	}
	return nil
}
