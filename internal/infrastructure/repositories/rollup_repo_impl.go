package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/infrastructure/models"
)

// RollupRepository implements daily metric rollup data operations
type RollupRepository struct {
	db *gorm.DB
}

// NewRollupRepository creates a new rollup repository
func NewRollupRepository(db *gorm.DB) *RollupRepository {
	return &RollupRepository{db: db}
}

// GetOrCreate returns the rollup for (merchant, date), inserting an empty
// row on first use of the day. The read takes a row lock so concurrent
// transitions serialize on the day's rollup instead of overwriting each
// other's deltas.
func (r *RollupRepository) GetOrCreate(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	rollup, err := r.fetch(ctx, merchantID, date, true)
	if err == nil {
		return rollup, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	fresh := entities.NewDailyMetricRollup(merchantID, date)
	m, err := r.toModel(fresh)
	if err != nil {
		return nil, err
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		// Lost the first-of-day insert race on (merchant_id, date); the row
		// exists now, so load and lock it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.fetch(ctx, merchantID, date, true)
		}
		return nil, err
	}
	fresh.CreatedAt = m.CreatedAt
	fresh.UpdatedAt = m.UpdatedAt
	return fresh, nil
}

// Get returns the rollup for (merchant, date) or ErrNotFound
func (r *RollupRepository) Get(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	return r.fetch(ctx, merchantID, date, false)
}

func (r *RollupRepository) fetch(ctx context.Context, merchantID uuid.UUID, date string, forUpdate bool) (*entities.DailyMetricRollup, error) {
	var m models.DailyMetricRollup
	db := GetDB(ctx, r.db)
	q := db.WithContext(ctx)
	// sqlite has no SELECT ... FOR UPDATE; its single writer already
	// serializes the read-modify-write there.
	if forUpdate && db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.
		Where("merchant_id = ? AND date = ?", merchantID, date).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m)
}

// Save persists the full state of a rollup
func (r *RollupRepository) Save(ctx context.Context, rollup *entities.DailyMetricRollup) error {
	m, err := r.toModel(rollup)
	if err != nil {
		return err
	}

	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.DailyMetricRollup{}).
		Where("id = ?", rollup.ID).
		Updates(map[string]interface{}{
			"volume_by_asset":     m.VolumeByAsset,
			"counts_by_status":    m.CountsByStatus,
			"total_sales":         m.TotalSales,
			"transaction_count":   m.TransactionCount,
			"average_value":       m.AverageValue,
			"top_asset":           m.TopAsset,
			"applied_transitions": m.AppliedTransitions,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// ListRange returns rollups for a merchant between from and to inclusive,
// ordered by date.
func (r *RollupRepository) ListRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error) {
	var ms []models.DailyMetricRollup
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("merchant_id = ? AND date >= ? AND date <= ?", merchantID, from, to).
		Order("date ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	rollups := make([]*entities.DailyMetricRollup, 0, len(ms))
	for i := range ms {
		e, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		rollups = append(rollups, e)
	}
	return rollups, nil
}

func (r *RollupRepository) toModel(e *entities.DailyMetricRollup) (*models.DailyMetricRollup, error) {
	volumes := make(map[string]string, len(e.VolumeByAsset))
	for asset, vol := range e.VolumeByAsset {
		volumes[string(asset)] = vol.String()
	}
	volumeJSON, err := json.Marshal(volumes)
	if err != nil {
		return nil, fmt.Errorf("marshal volume_by_asset: %w", err)
	}

	counts := make(map[string]int, len(e.CountsByStatus))
	for status, n := range e.CountsByStatus {
		counts[string(status)] = n
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("marshal counts_by_status: %w", err)
	}

	appliedJSON, err := json.Marshal(e.AppliedTransitions)
	if err != nil {
		return nil, fmt.Errorf("marshal applied_transitions: %w", err)
	}

	return &models.DailyMetricRollup{
		ID:                 e.ID,
		MerchantID:         e.MerchantID,
		Date:               e.Date,
		VolumeByAsset:      string(volumeJSON),
		CountsByStatus:     string(countsJSON),
		TotalSales:         e.TotalSales.String(),
		TransactionCount:   e.TransactionCount,
		AverageValue:       e.AverageValue.String(),
		TopAsset:           string(e.TopAsset),
		AppliedTransitions: string(appliedJSON),
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}, nil
}

func (r *RollupRepository) toEntity(m *models.DailyMetricRollup) (*entities.DailyMetricRollup, error) {
	e := entities.NewDailyMetricRollup(m.MerchantID, m.Date)
	e.ID = m.ID
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	e.TransactionCount = m.TransactionCount
	e.TopAsset = entities.Asset(m.TopAsset)

	var err error
	if e.TotalSales, err = decimal.NewFromString(orZero(m.TotalSales)); err != nil {
		return nil, fmt.Errorf("corrupt total_sales on rollup %s: %w", m.ID, err)
	}
	if e.AverageValue, err = decimal.NewFromString(orZero(m.AverageValue)); err != nil {
		return nil, fmt.Errorf("corrupt average_value on rollup %s: %w", m.ID, err)
	}

	var volumes map[string]string
	if err := json.Unmarshal([]byte(orEmptyObject(m.VolumeByAsset)), &volumes); err != nil {
		return nil, fmt.Errorf("corrupt volume_by_asset on rollup %s: %w", m.ID, err)
	}
	for asset, raw := range volumes {
		vol, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt volume for %s on rollup %s: %w", asset, m.ID, err)
		}
		e.VolumeByAsset[entities.Asset(asset)] = vol
	}

	var counts map[string]int
	if err := json.Unmarshal([]byte(orEmptyObject(m.CountsByStatus)), &counts); err != nil {
		return nil, fmt.Errorf("corrupt counts_by_status on rollup %s: %w", m.ID, err)
	}
	for status, n := range counts {
		e.CountsByStatus[entities.IntentStatus(status)] = n
	}

	if m.AppliedTransitions != "" {
		if err := json.Unmarshal([]byte(m.AppliedTransitions), &e.AppliedTransitions); err != nil {
			return nil, fmt.Errorf("corrupt applied_transitions on rollup %s: %w", m.ID, err)
		}
	}

	return e, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func orEmptyObject(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
