package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/domain/repositories"
	"paywatch.backend/internal/infrastructure/explorer"
	"paywatch.backend/pkg/logger"
)

// WalletUsecase manages merchant receiving addresses. Addresses are validated
// and normalized at write time; the allocator only ever reads them back.
type WalletUsecase struct {
	walletRepo repositories.WalletRepository
}

// NewWalletUsecase creates a new wallet usecase
func NewWalletUsecase(walletRepo repositories.WalletRepository) *WalletUsecase {
	return &WalletUsecase{walletRepo: walletRepo}
}

// Configure validates and stores one receiving address for a merchant.
func (u *WalletUsecase) Configure(ctx context.Context, wallet *entities.MerchantWallet) error {
	if wallet.MerchantID == uuid.Nil {
		return domainerrors.BadRequest("merchant ID is required")
	}
	if !wallet.Asset.Valid() {
		return domainerrors.NewAppError(http.StatusBadRequest, "unsupported asset", domainerrors.ErrUnsupportedAsset)
	}
	if !wallet.Network.Valid() {
		return domainerrors.NewAppError(http.StatusBadRequest, "unsupported network", domainerrors.ErrUnsupportedNetwork)
	}
	if !explorer.ValidAddress(wallet.Network, wallet.Address) {
		return domainerrors.BadRequest(fmt.Sprintf("invalid address for network %s", wallet.Network))
	}

	wallet.Address = explorer.NormalizeAddress(wallet.Network, wallet.Address)
	return u.walletRepo.Upsert(ctx, wallet)
}

// List returns a merchant's configured wallets
func (u *WalletUsecase) List(ctx context.Context, merchantID uuid.UUID) ([]*entities.MerchantWallet, error) {
	return u.walletRepo.ListByMerchant(ctx, merchantID)
}

// SeedFromFile upserts wallet configuration from a JSON file at startup.
// Returns the number of wallets applied.
func (u *WalletUsecase) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read wallet seed file: %w", err)
	}

	var wallets []*entities.MerchantWallet
	if err := json.Unmarshal(raw, &wallets); err != nil {
		return 0, fmt.Errorf("parse wallet seed file: %w", err)
	}

	for i, wallet := range wallets {
		if err := u.Configure(ctx, wallet); err != nil {
			return i, fmt.Errorf("seed wallet %d (%s/%s): %w", i, wallet.Asset, wallet.Network, err)
		}
		logger.Debug(ctx, "seeded merchant wallet",
			zap.String("merchant_id", wallet.MerchantID.String()),
			zap.String("asset", string(wallet.Asset)),
			zap.String("network", string(wallet.Network)),
		)
	}
	return len(wallets), nil
}
