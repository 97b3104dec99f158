package usecases

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/internal/infrastructure/cache"
	"paywatch.backend/pkg/logger"
)

// StatusCache is a read-through cache in front of intent status lookups. It
// exists to absorb client-side status polling: terminal records are cached
// with a long TTL (they never change again), pending ones with a short TTL
// to bound staleness. Transitions evict proactively, so the TTL is a
// backstop rather than the invalidation mechanism.
type StatusCache struct {
	cache       cache.Cache
	loader      func(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	pendingTTL  time.Duration
	terminalTTL time.Duration
}

// NewStatusCache creates a status cache over the given loader
func NewStatusCache(
	c cache.Cache,
	loader func(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error),
	pendingTTL, terminalTTL time.Duration,
) *StatusCache {
	return &StatusCache{
		cache:       c,
		loader:      loader,
		pendingTTL:  pendingTTL,
		terminalTTL: terminalTTL,
	}
}

func statusCacheKey(id uuid.UUID) string {
	return "intent:" + id.String()
}

// GetStatus returns the intent, served from cache when possible
func (s *StatusCache) GetStatus(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	raw, ok, err := s.cache.Get(ctx, statusCacheKey(id))
	if err == nil && ok {
		var intent entities.PaymentIntent
		if err := json.Unmarshal([]byte(raw), &intent); err == nil {
			return &intent, nil
		}
	}

	intent, err := s.loader(ctx, id)
	if err != nil {
		return nil, err
	}

	s.store(ctx, intent)
	return intent, nil
}

// Evict drops the cached record for an intent. Called on every transition.
func (s *StatusCache) Evict(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, statusCacheKey(id)); err != nil {
		logger.Warn(ctx, "failed to evict intent from status cache",
			zap.String("intent_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *StatusCache) store(ctx context.Context, intent *entities.PaymentIntent) {
	raw, err := json.Marshal(intent)
	if err != nil {
		return
	}

	ttl := s.pendingTTL
	if intent.IsTerminal() {
		ttl = s.terminalTTL
	}

	if err := s.cache.Set(ctx, statusCacheKey(intent.ID), string(raw), ttl); err != nil {
		logger.Warn(ctx, "failed to cache intent status",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err),
		)
	}
}
