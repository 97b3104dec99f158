package usecases

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/infrastructure/cache"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/metrics"
)

// PriceFeed is the external feed consumed by the oracle
type PriceFeed interface {
	GetPrice(ctx context.Context, asset entities.Asset) (decimal.Decimal, error)
	GetTrend(ctx context.Context, asset entities.Asset) (*entities.Trend, error)
}

// PriceOracleUsecase resolves fiat prices for crypto assets: live feed with a
// shared TTL cache, static fallback when the feed is down. Price
// unavailability degrades to the fallback and never reaches the caller.
type PriceOracleUsecase struct {
	feed      PriceFeed
	cache     cache.Cache
	cacheTTL  time.Duration
	fallbacks map[entities.Asset]decimal.Decimal
}

// NewPriceOracleUsecase creates a new price oracle
func NewPriceOracleUsecase(
	feed PriceFeed,
	priceCache cache.Cache,
	cacheTTL time.Duration,
	fallbacks map[entities.Asset]decimal.Decimal,
) *PriceOracleUsecase {
	return &PriceOracleUsecase{
		feed:      feed,
		cache:     priceCache,
		cacheTTL:  cacheTTL,
		fallbacks: fallbacks,
	}
}

func priceCacheKey(asset entities.Asset) string {
	return "price:" + string(asset)
}

// GetPrice returns the current fiat price for one unit of the asset.
// Stablecoins short-circuit to 1.0. The only error is an unsupported asset.
func (u *PriceOracleUsecase) GetPrice(ctx context.Context, asset entities.Asset) (*entities.PriceQuote, error) {
	if !asset.Valid() {
		return nil, domainerrors.ErrUnsupportedAsset
	}

	if asset.IsStablecoin() {
		return &entities.PriceQuote{
			Asset:     asset,
			Price:     decimal.NewFromInt(1),
			Source:    entities.QuoteSourceLive,
			FetchedAt: time.Now(),
		}, nil
	}

	if quote := u.cachedQuote(ctx, asset); quote != nil {
		return quote, nil
	}

	price, err := u.feed.GetPrice(ctx, asset)
	if err != nil {
		logger.Warn(ctx, "price feed failed, serving fallback",
			zap.String("asset", string(asset)),
			zap.Error(err),
		)
		metrics.PriceFeedFallbacks.WithLabelValues(string(asset)).Inc()
		return u.fallbackQuote(asset), nil
	}

	quote := &entities.PriceQuote{
		Asset:     asset,
		Price:     price,
		Source:    entities.QuoteSourceLive,
		FetchedAt: time.Now(),
	}
	u.storeQuote(ctx, quote)
	return quote, nil
}

// GetPrices resolves prices for several assets, reusing valid cache entries
// and falling back per asset independently.
func (u *PriceOracleUsecase) GetPrices(ctx context.Context, assets []entities.Asset) (map[entities.Asset]decimal.Decimal, error) {
	out := make(map[entities.Asset]decimal.Decimal, len(assets))
	for _, asset := range assets {
		if _, seen := out[asset]; seen {
			continue
		}
		quote, err := u.GetPrice(ctx, asset)
		if err != nil {
			return nil, err
		}
		out[asset] = quote.Price
	}
	return out, nil
}

// GetTrend returns best-effort 24h market data. Failures yield an unknown
// trend, never an error.
func (u *PriceOracleUsecase) GetTrend(ctx context.Context, asset entities.Asset) *entities.Trend {
	if !asset.Valid() {
		return &entities.Trend{Asset: asset, Known: false}
	}

	trend, err := u.feed.GetTrend(ctx, asset)
	if err != nil {
		logger.Debug(ctx, "trend data unavailable",
			zap.String("asset", string(asset)),
			zap.Error(err),
		)
		return &entities.Trend{Asset: asset, Known: false}
	}
	return trend
}

func (u *PriceOracleUsecase) cachedQuote(ctx context.Context, asset entities.Asset) *entities.PriceQuote {
	raw, ok, err := u.cache.Get(ctx, priceCacheKey(asset))
	if err != nil || !ok {
		return nil
	}

	var quote entities.PriceQuote
	if err := json.Unmarshal([]byte(raw), &quote); err != nil {
		return nil
	}
	return &quote
}

func (u *PriceOracleUsecase) storeQuote(ctx context.Context, quote *entities.PriceQuote) {
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	if err := u.cache.Set(ctx, priceCacheKey(quote.Asset), string(raw), u.cacheTTL); err != nil {
		logger.Warn(ctx, "failed to cache price quote",
			zap.String("asset", string(quote.Asset)),
			zap.Error(err),
		)
	}
}

// fallbackQuote builds a statically-priced quote. Fallback quotes are not
// cached so the next call retries the live feed.
func (u *PriceOracleUsecase) fallbackQuote(asset entities.Asset) *entities.PriceQuote {
	price, ok := u.fallbacks[asset]
	if !ok {
		price = decimal.NewFromInt(1)
	}
	return &entities.PriceQuote{
		Asset:     asset,
		Price:     price,
		Source:    entities.QuoteSourceFallback,
		FetchedAt: time.Now(),
	}
}
