package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultInitialCash is the simulated balance every new account starts with.
var DefaultInitialCash = decimal.NewFromInt(10000)

// User models a registered trader and their cash balance.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Cash         decimal.Decimal `json:"cash"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Identity is the authenticated principal carried by a session.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
