package service

import (
	"context"
	"fmt"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type activityService struct {
	repo ports.ActivityRepository
}

// NewActivityService returns an ActivityService. A nil repo yields an empty
// trail, which is how the service runs when no audit database is configured.
func NewActivityService(repo ports.ActivityRepository) ports.ActivityService {
	return &activityService{repo: repo}
}

func (s *activityService) Recent(ctx context.Context, id domain.Identity, limit int) ([]domain.Activity, error) {
	if s.repo == nil {
		return []domain.Activity{}, nil
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	entries, err := s.repo.ListByUser(ctx, id.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return entries, nil
}
