package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

func TestWalletRepository_UpsertAndGetEnabled(t *testing.T) {
	db := newTestDB(t)
	createWalletTable(t, db)
	repo := NewWalletRepository(db)

	merchantID := uuid.New()
	wallet := &entities.MerchantWallet{
		MerchantID: merchantID,
		Asset:      entities.AssetUSDT,
		Network:    entities.NetworkPolygon,
		Address:    "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Enabled:    true,
	}
	require.NoError(t, repo.Upsert(context.Background(), wallet))

	got, err := repo.GetEnabled(context.Background(), merchantID, entities.AssetUSDT, entities.NetworkPolygon)
	require.NoError(t, err)
	assert.Equal(t, wallet.Address, got.Address)

	// Upsert replaces the address in place.
	wallet.Address = "0x0000000000000000000000000000000000000001"
	require.NoError(t, repo.Upsert(context.Background(), wallet))

	got, err = repo.GetEnabled(context.Background(), merchantID, entities.AssetUSDT, entities.NetworkPolygon)
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", got.Address)
}

func TestWalletRepository_GetEnabled_DisabledIsNotFound(t *testing.T) {
	db := newTestDB(t)
	createWalletTable(t, db)
	repo := NewWalletRepository(db)

	merchantID := uuid.New()
	wallet := &entities.MerchantWallet{
		MerchantID: merchantID,
		Asset:      entities.AssetETH,
		Network:    entities.NetworkEthereum,
		Address:    "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Enabled:    false,
	}
	require.NoError(t, repo.Upsert(context.Background(), wallet))

	_, err := repo.GetEnabled(context.Background(), merchantID, entities.AssetETH, entities.NetworkEthereum)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestWalletRepository_ListByMerchant(t *testing.T) {
	db := newTestDB(t)
	createWalletTable(t, db)
	repo := NewWalletRepository(db)

	merchantID := uuid.New()
	for _, asset := range []entities.Asset{entities.AssetBTC, entities.AssetETH} {
		require.NoError(t, repo.Upsert(context.Background(), &entities.MerchantWallet{
			MerchantID: merchantID,
			Asset:      asset,
			Network:    entities.NetworkEthereum,
			Address:    "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
			Enabled:    true,
		}))
	}

	got, err := repo.ListByMerchant(context.Background(), merchantID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
