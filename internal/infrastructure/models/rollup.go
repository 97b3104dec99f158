package models

import (
	"time"

	"github.com/google/uuid"
)

type DailyMetricRollup struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rollups_merchant_date,priority:1"`
	Date               string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_rollups_merchant_date,priority:2"`
	VolumeByAsset      string    `gorm:"type:jsonb;default:'{}'"`
	CountsByStatus     string    `gorm:"type:jsonb;default:'{}'"`
	TotalSales         string    `gorm:"type:decimal(36,18);default:'0'"`
	TransactionCount   int       `gorm:"default:0"`
	AverageValue       string    `gorm:"type:decimal(36,18);default:'0'"`
	TopAsset           string    `gorm:"type:varchar(20)"`
	AppliedTransitions string    `gorm:"type:jsonb;default:'[]'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (DailyMetricRollup) TableName() string {
	return "daily_metric_rollups"
}
