package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision money is rounded to.
const CurrencyPlaces = 2

// SymbolPlaceholder is the unselected option of the sell form.
const SymbolPlaceholder = "Symbol"

// Quote is a point-in-time price resolution for a ticker.
type Quote struct {
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Position is a user's holding of one symbol. Shares is always positive; a
// position that would reach zero is deleted instead.
type Position struct {
	UserID int64  `json:"-"`
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// Transaction is an immutable record of one executed trade. Shares and Total
// are signed: a purchase has Shares > 0 and Total = -cost, a sale has
// Shares < 0 and Total = +proceeds.
type Transaction struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"-"`
	Symbol     string          `json:"symbol"`
	Shares     int64           `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Kind labels the transaction for history listings.
func (t Transaction) Kind() string {
	if t.Shares < 0 {
		return "Sale"
	}
	return "Purchase"
}

// Amount returns price × shares rounded half away from zero to cents. It is
// the only place trade amounts are rounded.
func Amount(price decimal.Decimal, shares int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(shares)).Round(CurrencyPlaces)
}

// NormalizeSymbol trims incidental whitespace and upper-cases a ticker.
func NormalizeSymbol(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", NewValidationError("symbol", "must provide symbol")
	}
	return s, nil
}

// NormalizeSellSymbol is NormalizeSymbol that also rejects the form placeholder.
func NormalizeSellSymbol(raw string) (string, error) {
	if strings.TrimSpace(raw) == SymbolPlaceholder {
		return "", NewValidationError("symbol", "must select symbol")
	}
	s, err := NormalizeSymbol(raw)
	if err != nil {
		return "", NewValidationError("symbol", "must select symbol")
	}
	return s, nil
}

// ParseShares parses raw form input as a positive whole share count.
func ParseShares(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewValidationError("shares", "must provide number of shares")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewValidationError("shares", "shares must be a whole number")
	}
	return n, ValidateShares(n)
}

// ValidateShares rejects zero and negative share counts.
func ValidateShares(n int64) error {
	if n <= 0 {
		return NewValidationError("shares", "shares must be a positive integer")
	}
	return nil
}
