package usecases

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/domain/repositories"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/metrics"
)

// IntentUsecase owns the payment intent lifecycle: creation with fingerprint
// allocation, the state machine, and the read-through status cache. All
// mutations happen through named transition operations; nothing writes the
// status column directly.
type IntentUsecase struct {
	intentRepo repositories.IntentRepository
	eventRepo  repositories.TransitionEventRepository
	allocator  *AllocatorUsecase
	aggregator *MetricsUsecase
	uow        repositories.UnitOfWork

	statusCache *StatusCache
}

// NewIntentUsecase creates a new intent usecase
func NewIntentUsecase(
	intentRepo repositories.IntentRepository,
	eventRepo repositories.TransitionEventRepository,
	allocator *AllocatorUsecase,
	aggregator *MetricsUsecase,
	uow repositories.UnitOfWork,
) *IntentUsecase {
	return &IntentUsecase{
		intentRepo: intentRepo,
		eventRepo:  eventRepo,
		allocator:  allocator,
		aggregator: aggregator,
		uow:        uow,
	}
}

// SetStatusCache attaches the read-through status cache. Wired after
// construction because the cache loads through this usecase.
func (u *IntentUsecase) SetStatusCache(c *StatusCache) {
	u.statusCache = c
}

// CreateIntent mints a fingerprinted payment intent for an order. The
// allocation uniqueness check and the insert run in one transaction so two
// concurrent allocations cannot both claim the same amount.
func (u *IntentUsecase) CreateIntent(ctx context.Context, merchantID uuid.UUID, input *entities.CreateIntentInput) (*entities.CreateIntentResponse, error) {
	if !input.Asset.Valid() {
		return nil, domainerrors.BadRequest("unsupported asset")
	}

	fiatAmount, err := decimal.NewFromString(input.FiatAmount)
	if err != nil || fiatAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domainerrors.BadRequest("fiat amount must be a positive decimal")
	}

	var intent *entities.PaymentIntent
	var allocation *Allocation

	// The transactional uniqueness check can still lose the insert race to a
	// concurrent allocation of the same amount; the partial unique index on
	// pending intents rejects the loser, which redraws like any collision.
	for attempt := 0; ; attempt++ {
		intent, allocation, err = u.createOnce(ctx, merchantID, input, fiatAmount)
		if !errors.Is(err, domainerrors.ErrAlreadyExists) {
			break
		}
		if attempt+1 >= u.allocator.cfg.MaxAttempts {
			err = domainerrors.ErrAllocationExhausted
			break
		}
		logger.Debug(ctx, "allocated amount lost the insert race, redrawing",
			zap.String("order_id", input.OrderID),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		return nil, mapAllocationError(err)
	}

	metrics.IntentTransitions.WithLabelValues(string(entities.IntentStatusPending)).Inc()
	logger.Info(ctx, "payment intent created",
		zap.String("intent_id", intent.ID.String()),
		zap.String("order_id", intent.OrderID),
		zap.String("asset", string(intent.Asset)),
		zap.String("crypto_amount", intent.CryptoAmount.String()),
		zap.String("rate_source", string(allocation.Quote.Source)),
	)

	return &entities.CreateIntentResponse{
		IntentID:           intent.ID,
		OrderID:            intent.OrderID,
		Asset:              intent.Asset,
		Network:            intent.Network,
		CryptoAmount:       intent.CryptoAmount.String(),
		DestinationAddress: intent.DestinationAddress,
		ExchangeRate:       intent.ExchangeRate.String(),
		RateSource:         string(allocation.Quote.Source),
		Status:             intent.Status,
		CreatedAt:          intent.CreatedAt,
	}, nil
}

// createOnce runs one allocation attempt: the draw, the uniqueness check and
// the insert with its audit event and metrics delta, all in one transaction.
func (u *IntentUsecase) createOnce(ctx context.Context, merchantID uuid.UUID, input *entities.CreateIntentInput, fiatAmount decimal.Decimal) (*entities.PaymentIntent, *Allocation, error) {
	var intent *entities.PaymentIntent
	var allocation *Allocation

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		allocation, err = u.allocator.Allocate(txCtx, merchantID, input.Asset, input.Network, fiatAmount)
		if err != nil {
			return err
		}

		now := time.Now()
		intent = &entities.PaymentIntent{
			ID:                 uuid.New(),
			OrderID:            input.OrderID,
			MerchantID:         merchantID,
			Asset:              input.Asset,
			Network:            input.Network,
			FiatAmount:         fiatAmount,
			CryptoAmount:       allocation.CryptoAmount,
			ExchangeRate:       allocation.Quote.Price,
			DestinationAddress: allocation.DestinationAddress,
			Status:             entities.IntentStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if input.CustomerEmail != "" {
			intent.CustomerEmail = null.StringFrom(input.CustomerEmail)
		}

		if err := u.intentRepo.Create(txCtx, intent); err != nil {
			return err
		}

		event := &entities.TransitionEvent{
			ID:         uuid.New(),
			IntentID:   intent.ID,
			MerchantID: intent.MerchantID,
			From:       "",
			To:         entities.IntentStatusPending,
			OccurredAt: now,
		}
		if err := u.eventRepo.Create(txCtx, event); err != nil {
			return err
		}
		return u.aggregator.ApplyTransition(txCtx, event, intent)
	})
	if err != nil {
		return nil, nil, err
	}
	return intent, allocation, nil
}

// GetIntent loads an intent directly from the store
func (u *IntentUsecase) GetIntent(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	return u.intentRepo.GetByID(ctx, id)
}

// GetStatus serves an intent through the read-through status cache
func (u *IntentUsecase) GetStatus(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	if u.statusCache == nil {
		return u.intentRepo.GetByID(ctx, id)
	}
	return u.statusCache.GetStatus(ctx, id)
}

// ListByMerchant returns a merchant's intents with pagination
func (u *IntentUsecase) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*entities.PaymentIntent, int, error) {
	return u.intentRepo.ListByMerchant(ctx, merchantID, limit, offset)
}

// Transition moves a pending intent into a terminal status. Terminal intents
// are returned unchanged: the watcher and manual APIs may race, and the
// no-op keeps the second caller harmless. Persistence, the audit event and
// the metrics delta commit as one transaction.
func (u *IntentUsecase) Transition(ctx context.Context, id uuid.UUID, next entities.IntentStatus, opts entities.TransitionOptions) (*entities.PaymentIntent, error) {
	if !next.IsTerminal() {
		return nil, domainerrors.ErrInvalidState
	}

	var intent *entities.PaymentIntent
	var applied bool

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		intent, err = u.intentRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if intent.IsTerminal() {
			return nil
		}

		if err := u.applyTransition(txCtx, intent, next, opts); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		u.afterTransition(ctx, intent)
	}
	return intent, nil
}

// Cancel cancels a pending intent. Cancelling a terminal intent is rejected;
// refunds are outside this engine.
func (u *IntentUsecase) Cancel(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	var intent *entities.PaymentIntent

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		intent, err = u.intentRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if intent.Status != entities.IntentStatusPending {
			return domainerrors.Conflict("intent is not pending", domainerrors.ErrInvalidState)
		}
		return u.applyTransition(txCtx, intent, entities.IntentStatusCancelled, entities.TransitionOptions{Reason: "cancelled by merchant"})
	})
	if err != nil {
		return nil, err
	}

	u.afterTransition(ctx, intent)
	return intent, nil
}

// Override is the operator path. Unlike Transition it may move an intent out
// of a terminal status; the aggregator reverses the old status's
// contribution using the creation-time amounts. A reason is mandatory.
func (u *IntentUsecase) Override(ctx context.Context, id uuid.UUID, next entities.IntentStatus, reason string) (*entities.PaymentIntent, error) {
	if !next.IsTerminal() {
		return nil, domainerrors.BadRequest("override target must be a terminal status")
	}
	if reason == "" {
		return nil, domainerrors.BadRequest("override reason is required")
	}

	var intent *entities.PaymentIntent
	var applied bool

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		var err error
		intent, err = u.intentRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if intent.Status == next {
			return nil
		}

		if err := u.applyTransition(txCtx, intent, next, entities.TransitionOptions{Reason: reason}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		logger.Warn(ctx, "intent manually overridden",
			zap.String("intent_id", intent.ID.String()),
			zap.String("status", string(intent.Status)),
			zap.String("reason", reason),
		)
		u.afterTransition(ctx, intent)
	}
	return intent, nil
}

// applyTransition mutates the record, writes the audit event and applies the
// metrics delta. Must run inside a UnitOfWork scope.
func (u *IntentUsecase) applyTransition(ctx context.Context, intent *entities.PaymentIntent, next entities.IntentStatus, opts entities.TransitionOptions) error {
	previous := intent.Status
	now := time.Now()

	intent.Status = next
	intent.UpdatedAt = now

	switch next {
	case entities.IntentStatusCompleted:
		intent.CompletedAt = &now
		if opts.OnchainReference != "" {
			intent.OnchainReference = null.StringFrom(opts.OnchainReference)
		}
	case entities.IntentStatusFailed, entities.IntentStatusCancelled:
		if opts.Reason != "" {
			intent.FailureReason = null.StringFrom(opts.Reason)
		}
		// Leaving COMPLETED via override: the record keeps its reference for
		// audit, but the completion stamp no longer applies.
		if previous == entities.IntentStatusCompleted {
			intent.CompletedAt = nil
		}
	}

	if err := u.intentRepo.Update(ctx, intent); err != nil {
		return err
	}

	event := &entities.TransitionEvent{
		ID:         uuid.New(),
		IntentID:   intent.ID,
		MerchantID: intent.MerchantID,
		From:       previous,
		To:         next,
		OccurredAt: now,
	}
	if opts.Reason != "" {
		event.Reason = null.StringFrom(opts.Reason)
	}
	if err := u.eventRepo.Create(ctx, event); err != nil {
		return err
	}

	return u.aggregator.ApplyTransition(ctx, event, intent)
}

// afterTransition handles the side effects that live outside the
// transaction: cache eviction and operational counters.
func (u *IntentUsecase) afterTransition(ctx context.Context, intent *entities.PaymentIntent) {
	metrics.IntentTransitions.WithLabelValues(string(intent.Status)).Inc()
	if u.statusCache != nil {
		u.statusCache.Evict(ctx, intent.ID)
	}
}

func mapAllocationError(err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrWalletNotConfigured):
		return domainerrors.Unprocessable("no enabled wallet for this asset and network", domainerrors.ErrWalletNotConfigured)
	case errors.Is(err, domainerrors.ErrAllocationExhausted):
		return domainerrors.NewAppError(http.StatusConflict,
			"could not allocate a unique payment amount, retry shortly", domainerrors.ErrAllocationExhausted)
	default:
		return err
	}
}
