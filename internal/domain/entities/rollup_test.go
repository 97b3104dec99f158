package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDailyMetricRollup_HasApplied(t *testing.T) {
	rollup := NewDailyMetricRollup(uuid.New(), "2026-03-14")
	eventID := uuid.New()

	assert.False(t, rollup.HasApplied(eventID))
	rollup.AppliedTransitions = append(rollup.AppliedTransitions, eventID)
	assert.True(t, rollup.HasApplied(eventID))
	assert.False(t, rollup.HasApplied(uuid.New()))
}

func TestDailyMetricRollup_Recompute(t *testing.T) {
	rollup := NewDailyMetricRollup(uuid.New(), "2026-03-14")
	rollup.VolumeByAsset[AssetETH] = decimal.NewFromInt(300)
	rollup.VolumeByAsset[AssetUSDT] = decimal.NewFromInt(100)
	rollup.TotalSales = decimal.NewFromInt(400)
	rollup.TransactionCount = 3

	rollup.Recompute()

	assert.Equal(t, "133.33", rollup.AverageValue.String())
	assert.Equal(t, AssetETH, rollup.TopAsset)
}

func TestDailyMetricRollup_RecomputeEmpty(t *testing.T) {
	rollup := NewDailyMetricRollup(uuid.New(), "2026-03-14")
	rollup.Recompute()

	assert.True(t, rollup.AverageValue.IsZero())
	assert.Equal(t, Asset(""), rollup.TopAsset)
}

func TestDailyMetricRollup_RecomputeTieKeepsFirst(t *testing.T) {
	rollup := NewDailyMetricRollup(uuid.New(), "2026-03-14")
	rollup.VolumeByAsset[AssetBTC] = decimal.NewFromInt(100)
	rollup.VolumeByAsset[AssetSOL] = decimal.NewFromInt(100)
	rollup.TotalSales = decimal.NewFromInt(200)
	rollup.TransactionCount = 2

	rollup.Recompute()

	// Equal volumes resolve by enumeration order, not map iteration order.
	assert.Equal(t, AssetBTC, rollup.TopAsset)
}
