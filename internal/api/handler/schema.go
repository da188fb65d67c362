package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---
//
// Every request binds from JSON, form posts and (for GET) query strings, so
// the same handlers serve API clients and plain HTML forms.

type registerRequest struct {
	Username     string `json:"username"     form:"username"`
	Password     string `json:"password"     form:"password"`
	Confirmation string `json:"confirmation" form:"confirmation"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required"`
}

type passwordRequest struct {
	Password     string `json:"password"     form:"password"`
	Confirmation string `json:"confirmation" form:"confirmation"`
}

type quoteRequest struct {
	Symbol string `json:"symbol" form:"symbol" query:"symbol" validate:"max=10"`
}

type tradeRequest struct {
	Symbol string    `json:"symbol" form:"symbol" validate:"max=10"`
	Shares rawShares `json:"shares" form:"shares"`
}

// rawShares keeps the submitted share count as text so that empty,
// fractional and non-numeric input all reach domain.ParseShares and get its
// messages, whether the client sent a JSON number or a string.
type rawShares string

func (r *rawShares) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		s = ""
	}
	*r = rawShares(strings.Trim(s, `"`))
	return nil
}

// UnmarshalParam satisfies echo.BindUnmarshaler for form and query values.
func (r *rawShares) UnmarshalParam(s string) error {
	*r = rawShares(s)
	return nil
}

// --- Response types ---

type userResponse struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	Cash        decimal.Decimal `json:"cash"`
	CashDisplay string          `json:"cash_display"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type quoteResponse struct {
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
}

type tradeResponse struct {
	Message       string           `json:"message"`
	Side          domain.TradeSide `json:"side"`
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	Shares        int64            `json:"shares"`
	Price         decimal.Decimal  `json:"price"`
	Amount        decimal.Decimal  `json:"amount"`
	AmountDisplay string           `json:"amount_display"`
	Cash          decimal.Decimal  `json:"cash"`
	CashDisplay   string           `json:"cash_display"`
}

type holdingsResponse struct {
	Positions []domain.Position `json:"positions"`
}

type portfolioRow struct {
	ports.ValuedPosition
	PriceDisplay string `json:"price_display,omitempty"`
	TotalDisplay string `json:"total_display"`
}

type portfolioResponse struct {
	Message      string          `json:"message"`
	Positions    []portfolioRow  `json:"positions"`
	Cash         decimal.Decimal `json:"cash"`
	CashDisplay  string          `json:"cash_display"`
	TotalValue   decimal.Decimal `json:"total_value"`
	TotalDisplay string          `json:"total_display"`
	Incomplete   bool            `json:"incomplete"`
}

type historyEntry struct {
	Kind         string          `json:"kind"`
	Symbol       string          `json:"symbol"`
	Shares       int64           `json:"shares"`
	Price        decimal.Decimal `json:"price"`
	PriceDisplay string          `json:"price_display"`
	Total        decimal.Decimal `json:"total"`
	ExecutedAt   time.Time       `json:"executed_at"`
}

type historyResponse struct {
	Message      string         `json:"message"`
	Transactions []historyEntry `json:"transactions"`
}

type activityResponse struct {
	Activity []domain.Activity `json:"activity"`
}
