package ports

import (
	"context"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// ActivityRecorder accepts audit entries without blocking the caller.
type ActivityRecorder interface {
	Record(a domain.Activity)
}

// ActivityRepository persists and lists audit entries.
type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.Activity) error
	// ListByUser returns the most recent entries first.
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Activity, error)
}

// ActivityService serves a user's audit trail.
type ActivityService interface {
	Recent(ctx context.Context, id domain.Identity, limit int) ([]domain.Activity, error)
}
