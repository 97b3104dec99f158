package usecases

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/domain/repositories"
	"paywatch.backend/pkg/logger"
)

// Allocation is the result of fingerprinting one payment request
type Allocation struct {
	CryptoAmount       decimal.Decimal
	DestinationAddress string
	Quote              *entities.PriceQuote
}

// AllocatorUsecase mints crypto amounts that are unique among pending
// intents on the same address. The fractional offset is what lets the
// watcher attribute an inbound transfer to exactly one intent, so a
// colliding value is never reused: the draw is retried up to the configured
// budget and then the allocation fails.
type AllocatorUsecase struct {
	walletRepo repositories.WalletRepository
	intentRepo repositories.IntentRepository
	oracle     *PriceOracleUsecase
	cfg        config.FingerprintConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocatorUsecase creates a new fingerprint allocator
func NewAllocatorUsecase(
	walletRepo repositories.WalletRepository,
	intentRepo repositories.IntentRepository,
	oracle *PriceOracleUsecase,
	cfg config.FingerprintConfig,
) *AllocatorUsecase {
	return &AllocatorUsecase{
		walletRepo: walletRepo,
		intentRepo: intentRepo,
		oracle:     oracle,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allocate resolves the merchant's receiving address and draws a crypto
// amount unique among pending intents on it. Callers that need the
// check-then-insert race closed must invoke this inside a UnitOfWork scope
// together with the intent insert.
func (u *AllocatorUsecase) Allocate(
	ctx context.Context,
	merchantID uuid.UUID,
	asset entities.Asset,
	network entities.Network,
	fiatAmount decimal.Decimal,
) (*Allocation, error) {
	wallet, err := u.walletRepo.GetEnabled(ctx, merchantID, asset, network)
	if err != nil {
		if err == domainerrors.ErrNotFound {
			return nil, domainerrors.ErrWalletNotConfigured
		}
		return nil, err
	}
	if wallet.Address == "" {
		return nil, domainerrors.ErrWalletNotConfigured
	}

	quote, err := u.oracle.GetPrice(ctx, asset)
	if err != nil {
		return nil, err
	}

	// Integer part of the naive conversion. The fractional fingerprint is
	// layered on top of this, so two intents for the same fiat amount still
	// differ on-chain.
	baseAmount := fiatAmount.Div(quote.Price).Floor()

	for attempt := 0; attempt < u.cfg.MaxAttempts; attempt++ {
		amount := baseAmount.Add(u.drawOffset(asset))

		exists, err := u.intentRepo.ExistsPendingAmount(ctx, wallet.Address, amount)
		if err != nil {
			return nil, err
		}
		if !exists {
			return &Allocation{
				CryptoAmount:       amount,
				DestinationAddress: wallet.Address,
				Quote:              quote,
			}, nil
		}

		logger.Debug(ctx, "fingerprint collision, redrawing",
			zap.String("address", wallet.Address),
			zap.String("amount", amount.String()),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, domainerrors.ErrAllocationExhausted
}

// drawOffset draws a fractional offset in [OffsetMin, OffsetMax), rounded to
// the asset's fingerprint precision.
func (u *AllocatorUsecase) drawOffset(asset entities.Asset) decimal.Decimal {
	u.mu.Lock()
	f := u.cfg.OffsetMin + u.rng.Float64()*(u.cfg.OffsetMax-u.cfg.OffsetMin)
	u.mu.Unlock()

	return decimal.NewFromFloat(f).Round(asset.Precision())
}
