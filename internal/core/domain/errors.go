package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrSymbolNotRecognized = errors.New("symbol not recognized")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrNoSuchPosition      = errors.New("no such position")
	ErrInvalidCredentials  = errors.New("invalid username and/or password")
	ErrUserExists          = errors.New("username already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrQuoteNotFound       = errors.New("quote not found")
	ErrNoSession           = errors.New("no session")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

// ValidationError reports bad or missing user input. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TradeSide identifies the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeError is a business-rule rejection of a buy or sell. Kind is one of
// ErrInsufficientFunds, ErrInsufficientShares or ErrNoSuchPosition; the
// remaining fields let the caller build its own message.
type TradeError struct {
	Kind   error
	Side   TradeSide
	Symbol string
	Shares int64
	// Held is the number of shares owned at rejection time (sell only).
	Held int64
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("%s %d %s: %v", e.Side, e.Shares, e.Symbol, e.Kind)
}

func (e *TradeError) Unwrap() error { return e.Kind }
