package repositories

import (
	"context"

	"github.com/google/uuid"
	"paywatch.backend/internal/domain/entities"
)

// RollupRepository defines daily metric rollup data operations
type RollupRepository interface {
	// GetOrCreate returns the rollup for (merchant, date), creating an empty
	// one if none exists yet.
	GetOrCreate(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error)
	Get(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error)
	Save(ctx context.Context, rollup *entities.DailyMetricRollup) error
	ListRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error)
}
