package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// AccountStore is the persistent home of users, positions and transactions.
type AccountStore interface {
	// CreateUser inserts a user. A taken username yields domain.ErrUserExists.
	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (*domain.User, error)
	// FindUsersByUsername returns every row matching username exactly.
	FindUsersByUsername(ctx context.Context, username string) ([]domain.User, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
	// ListPositions returns the user's positions ordered by symbol.
	ListPositions(ctx context.Context, userID int64) ([]domain.Position, error)
	// ListTransactions returns the user's transactions in execution order.
	ListTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error)
	// InTx runs fn inside one store transaction. The transaction commits only
	// if fn returns nil; any error rolls back every write made through tx.
	InTx(ctx context.Context, fn func(tx AccountTx) error) error
}

// AccountTx is the set of writes a trade performs atomically.
type AccountTx interface {
	// LockCash reads the user's cash and holds the row until commit.
	LockCash(ctx context.Context, userID int64) (decimal.Decimal, error)
	SetCash(ctx context.Context, userID int64, cash decimal.Decimal) error
	// GetPosition returns nil, nil when the user holds no shares of symbol.
	GetPosition(ctx context.Context, userID int64, symbol string) (*domain.Position, error)
	CreatePosition(ctx context.Context, userID int64, symbol string, shares int64) error
	SetPositionShares(ctx context.Context, userID int64, symbol string, shares int64) error
	DeletePosition(ctx context.Context, userID int64, symbol string) error
	AppendTransaction(ctx context.Context, t *domain.Transaction) error
}
