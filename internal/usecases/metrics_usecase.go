package usecases

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/internal/domain/repositories"
	"paywatch.backend/pkg/logger"
)

const rollupDateLayout = "2006-01-02"

// MetricsUsecase maintains the per-merchant daily rollups. Every state
// transition is applied as a reverse delta for the status being left plus a
// forward delta for the status being entered. Application is idempotent:
// transition event IDs already recorded on the rollup are skipped, which
// makes at-least-once delivery safe.
type MetricsUsecase struct {
	rollupRepo repositories.RollupRepository
}

// NewMetricsUsecase creates a new metrics aggregator
func NewMetricsUsecase(rollupRepo repositories.RollupRepository) *MetricsUsecase {
	return &MetricsUsecase{rollupRepo: rollupRepo}
}

// ApplyTransition folds one transition event into the rollup for the day the
// transition occurred. The reverse delta always uses the fiat amount frozen
// on the intent at creation, never a refreshed rate, so it cancels the
// forward delta exactly.
func (u *MetricsUsecase) ApplyTransition(ctx context.Context, event *entities.TransitionEvent, intent *entities.PaymentIntent) error {
	date := event.OccurredAt.UTC().Format(rollupDateLayout)

	rollup, err := u.rollupRepo.GetOrCreate(ctx, intent.MerchantID, date)
	if err != nil {
		return err
	}

	if rollup.HasApplied(event.ID) {
		logger.Debug(ctx, "transition already applied to rollup",
			zap.String("event_id", event.ID.String()),
			zap.String("intent_id", intent.ID.String()),
		)
		return nil
	}

	if event.From != "" {
		u.applyDelta(rollup, event.From, intent, -1)
	}
	u.applyDelta(rollup, event.To, intent, +1)

	rollup.Recompute()
	rollup.AppliedTransitions = append(rollup.AppliedTransitions, event.ID)

	return u.rollupRepo.Save(ctx, rollup)
}

// GetRollup returns the rollup for one merchant and date
func (u *MetricsUsecase) GetRollup(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	return u.rollupRepo.Get(ctx, merchantID, date)
}

// GetRange returns the rollups for a merchant between two dates inclusive
func (u *MetricsUsecase) GetRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error) {
	return u.rollupRepo.ListRange(ctx, merchantID, from, to)
}

// applyDelta adds (sign=+1) or removes (sign=-1) the contribution one status
// makes to the rollup. Only COMPLETED contributes volume and sales.
func (u *MetricsUsecase) applyDelta(rollup *entities.DailyMetricRollup, status entities.IntentStatus, intent *entities.PaymentIntent, sign int) {
	// Counts may go negative on a rollup: a reversal landing on a later UTC
	// day than the forward delta must keep its -1 so summing the days still
	// nets to the truth, mirroring how volume is kept negative.
	rollup.CountsByStatus[status] += sign
	if rollup.CountsByStatus[status] == 0 {
		delete(rollup.CountsByStatus, status)
	}

	if status != entities.IntentStatusCompleted {
		return
	}

	contribution := intent.FiatAmount
	current := rollup.VolumeByAsset[intent.Asset]

	if sign > 0 {
		rollup.VolumeByAsset[intent.Asset] = current.Add(contribution)
		rollup.TotalSales = rollup.TotalSales.Add(contribution)
		rollup.TransactionCount++
	} else {
		updated := current.Sub(contribution)
		if updated.IsZero() {
			delete(rollup.VolumeByAsset, intent.Asset)
		} else {
			rollup.VolumeByAsset[intent.Asset] = updated
		}
		rollup.TotalSales = rollup.TotalSales.Sub(contribution)
		rollup.TransactionCount--
	}
}
