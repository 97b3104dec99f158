package models

import (
	"time"

	"github.com/google/uuid"
)

type MerchantWallet struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wallets_merchant_asset_network,priority:1"`
	Asset      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallets_merchant_asset_network,priority:2"`
	Network    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_wallets_merchant_asset_network,priority:3"`
	Address    string    `gorm:"type:varchar(255);not null"`
	Enabled    bool      `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (MerchantWallet) TableName() string {
	return "merchant_wallets"
}
