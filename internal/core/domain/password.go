package domain

import (
	"regexp"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// PasswordViolation names the first password rule a candidate fails.
type PasswordViolation int

const (
	ViolationNone PasswordViolation = iota
	ViolationMissingPassword
	ViolationMissingConfirmation
	ViolationMismatch
	ViolationTooShort
	ViolationNoLowercase
	ViolationNoUppercase
	ViolationNoDigit
	ViolationNoSpecial
)

var violationMessages = map[PasswordViolation]string{
	ViolationMissingPassword:     "must provide password",
	ViolationMissingConfirmation: "must confirm password",
	ViolationMismatch:            "passwords do not match",
	ViolationTooShort:            "Your password must be at least 8 characters long",
	ViolationNoLowercase:         "Your password must contain at least one lowercase alphabetical character",
	ViolationNoUppercase:         "Your password must contain at least one uppercase alphabetical character",
	ViolationNoDigit:             "Your password must contain at least one number",
	ViolationNoSpecial:           "Your password must contain at least one special character",
}

func (v PasswordViolation) String() string {
	if v == ViolationNone {
		return "valid"
	}
	return violationMessages[v]
}

// Err converts the violation into a *ValidationError, or nil when valid.
func (v PasswordViolation) Err() error {
	if v == ViolationNone {
		return nil
	}
	field := "password"
	if v == ViolationMissingConfirmation || v == ViolationMismatch {
		field = "confirmation"
	}
	return NewValidationError(field, v.String())
}

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^\p{L}\p{N}_]|_`)
)

// ValidatePassword checks a password/confirmation pair against the
// composition rules. Rules are evaluated in a fixed order and the first
// failure is returned.
func ValidatePassword(password, confirmation string) PasswordViolation {
	switch {
	case password == "":
		return ViolationMissingPassword
	case confirmation == "":
		return ViolationMissingConfirmation
	case password != confirmation:
		return ViolationMismatch
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return ViolationTooShort
	case !lowerRe.MatchString(password):
		return ViolationNoLowercase
	case !upperRe.MatchString(password):
		return ViolationNoUppercase
	case !digitRe.MatchString(password):
		return ViolationNoDigit
	case !specialRe.MatchString(password):
		return ViolationNoSpecial
	}
	return ViolationNone
}
