package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyMetricRollup is the per-merchant, per-day aggregate of payment
// activity. It is upserted lazily on the first transition of a day and must
// stay losslessly recomputable from the intent transition history.
type DailyMetricRollup struct {
	ID            uuid.UUID `json:"id"`
	MerchantID    uuid.UUID `json:"merchantId"`
	Date          string    `json:"date"` // UTC calendar date, YYYY-MM-DD

	VolumeByAsset map[Asset]decimal.Decimal `json:"volumeByAsset"`
	CountsByStatus map[IntentStatus]int     `json:"countsByStatus"`

	TotalSales       decimal.Decimal `json:"totalSales"`
	TransactionCount int             `json:"transactionCount"`
	AverageValue     decimal.Decimal `json:"averageTransactionValue"`
	TopAsset         Asset           `json:"topAsset,omitempty"`

	// AppliedTransitions is the audit log of transition event IDs already
	// folded into this rollup. Re-applying a seen event is a no-op.
	AppliedTransitions []uuid.UUID `json:"appliedTransitions"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDailyMetricRollup returns an empty rollup for a merchant and date.
func NewDailyMetricRollup(merchantID uuid.UUID, date string) *DailyMetricRollup {
	return &DailyMetricRollup{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		Date:           date,
		VolumeByAsset:  make(map[Asset]decimal.Decimal),
		CountsByStatus: make(map[IntentStatus]int),
	}
}

// HasApplied reports whether a transition event has already been folded in.
func (r *DailyMetricRollup) HasApplied(eventID uuid.UUID) bool {
	for _, id := range r.AppliedTransitions {
		if id == eventID {
			return true
		}
	}
	return false
}

// Recompute refreshes the derived fields from the accumulated ones.
func (r *DailyMetricRollup) Recompute() {
	if r.TransactionCount > 0 {
		r.AverageValue = r.TotalSales.Div(decimal.NewFromInt(int64(r.TransactionCount))).Round(2)
	} else {
		r.AverageValue = decimal.Zero
	}

	r.TopAsset = ""
	best := decimal.Zero
	for _, asset := range Assets {
		vol, ok := r.VolumeByAsset[asset]
		if !ok {
			continue
		}
		if vol.GreaterThan(best) {
			best = vol
			r.TopAsset = asset
		}
	}
}
