package ports

import (
	"context"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, confirmation string) (*domain.User, error)
	// Authenticate never reveals which of username or password was wrong.
	Authenticate(ctx context.Context, username, password string) (domain.Identity, error)
	ChangePassword(ctx context.Context, id domain.Identity, password, confirmation string) error
}

// SessionService binds identities to session tokens.
type SessionService interface {
	// Start creates a session for id and returns the signed token naming it.
	Start(ctx context.Context, id domain.Identity, message string) (string, error)
	// Resolve returns domain.ErrNoSession for a missing, forged, expired or
	// unknown token.
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	// End clears the session named by token. Invalid tokens are ignored.
	End(ctx context.Context, token string) error
	SetMessage(ctx context.Context, sessionID, message string) error
	PopMessage(ctx context.Context, sessionID string) (string, error)
}
