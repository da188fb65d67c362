package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityKind enumerates audited account events.
type ActivityKind string

const (
	ActivityRegister       ActivityKind = "register"
	ActivityLogin          ActivityKind = "login"
	ActivityLogout         ActivityKind = "logout"
	ActivityBuy            ActivityKind = "buy"
	ActivitySell           ActivityKind = "sell"
	ActivityPasswordChange ActivityKind = "password_change"
)

// Activity is an audit trail entry. It is informational only; trade history
// is always read from transactions.
type Activity struct {
	UserID   int64           `json:"user_id"`
	Username string          `json:"username"`
	Kind     ActivityKind    `json:"kind"`
	Symbol   string          `json:"symbol,omitempty"`
	Shares   int64           `json:"shares,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	At       time.Time       `json:"at"`
}
