package repositories

import (
	"context"

	"github.com/google/uuid"
	"paywatch.backend/internal/domain/entities"
)

// WalletRepository defines merchant wallet configuration operations
type WalletRepository interface {
	// GetEnabled returns the enabled wallet for (merchant, asset, network),
	// or domain ErrNotFound when none is configured.
	GetEnabled(ctx context.Context, merchantID uuid.UUID, asset entities.Asset, network entities.Network) (*entities.MerchantWallet, error)
	Upsert(ctx context.Context, wallet *entities.MerchantWallet) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*entities.MerchantWallet, error)
}
