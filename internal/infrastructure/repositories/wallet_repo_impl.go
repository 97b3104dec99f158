package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/infrastructure/models"
)

// WalletRepository implements merchant wallet configuration operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetEnabled returns the enabled wallet for (merchant, asset, network)
func (r *WalletRepository) GetEnabled(ctx context.Context, merchantID uuid.UUID, asset entities.Asset, network entities.Network) (*entities.MerchantWallet, error) {
	var m models.MerchantWallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("merchant_id = ? AND asset = ? AND network = ? AND enabled = ?",
			merchantID, string(asset), string(network), true).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Upsert inserts or replaces the wallet for (merchant, asset, network)
func (r *WalletRepository) Upsert(ctx context.Context, wallet *entities.MerchantWallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	m := &models.MerchantWallet{
		ID:         wallet.ID,
		MerchantID: wallet.MerchantID,
		Asset:      string(wallet.Asset),
		Network:    string(wallet.Network),
		Address:    wallet.Address,
		Enabled:    wallet.Enabled,
	}

	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "merchant_id"}, {Name: "asset"}, {Name: "network"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"address":    m.Address,
			"enabled":    m.Enabled,
			"updated_at": time.Now(),
		}),
	}).Create(m).Error
}

// ListByMerchant returns all wallets configured for a merchant
func (r *WalletRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*entities.MerchantWallet, error) {
	var ms []models.MerchantWallet
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("asset ASC, network ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	wallets := make([]*entities.MerchantWallet, 0, len(ms))
	for i := range ms {
		wallets = append(wallets, r.toEntity(&ms[i]))
	}
	return wallets, nil
}

func (r *WalletRepository) toEntity(m *models.MerchantWallet) *entities.MerchantWallet {
	return &entities.MerchantWallet{
		ID:         m.ID,
		MerchantID: m.MerchantID,
		Asset:      entities.Asset(m.Asset),
		Network:    entities.Network(m.Network),
		Address:    m.Address,
		Enabled:    m.Enabled,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
