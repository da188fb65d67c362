package ports

import (
	"context"
	"time"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// SessionStore keeps session state keyed by an opaque id, with per-entry expiry.
type SessionStore interface {
	Save(ctx context.Context, s domain.Session, ttl time.Duration) error
	// Get returns domain.ErrNoSession for unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.Session, error)
	SetMessage(ctx context.Context, id, message string) error
	// PopMessage returns the pending one-shot message and clears it.
	PopMessage(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

// IdempotencyGuard records client-supplied request keys so a replayed trade
// is not executed twice.
type IdempotencyGuard interface {
	// Claim reports false when key was already claimed within scope.
	Claim(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}
