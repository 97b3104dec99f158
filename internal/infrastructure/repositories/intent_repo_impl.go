package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/infrastructure/models"
)

// IntentRepository implements payment intent data operations
type IntentRepository struct {
	db *gorm.DB
}

// NewIntentRepository creates a new intent repository
func NewIntentRepository(db *gorm.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// Create creates a new payment intent. A pending intent that collides with
// another pending amount on the same address is rejected by the partial
// unique index and surfaces as ErrAlreadyExists so the caller can redraw.
func (r *IntentRepository) Create(ctx context.Context, intent *entities.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	m := r.toModel(intent)

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	intent.CreatedAt = m.CreatedAt
	intent.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets a payment intent by ID
func (r *IntentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	var m models.PaymentIntent
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m)
}

// Update persists the mutable fields of an intent
func (r *IntentRepository) Update(ctx context.Context, intent *entities.PaymentIntent) error {
	db := GetDB(ctx, r.db)
	updates := map[string]interface{}{
		"status":            string(intent.Status),
		"onchain_reference": intent.OnchainReference.Ptr(),
		"failure_reason":    intent.FailureReason.Ptr(),
		"completed_at":      intent.CompletedAt,
		"updated_at":        time.Now(),
	}

	result := db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ?", intent.ID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// ExistsPendingAmount reports whether another pending intent on the address
// already expects exactly this crypto amount.
func (r *IntentRepository) ExistsPendingAmount(ctx context.Context, address string, amount decimal.Decimal) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db)
	err := db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("destination_address = ? AND crypto_amount = ? AND status = ?",
			address, amount.String(), string(entities.IntentStatusPending)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPending returns all pending intents, oldest first. Used by the watcher
// supervisor to resume after a restart.
func (r *IntentRepository) ListPending(ctx context.Context) ([]*entities.PaymentIntent, error) {
	var ms []models.PaymentIntent
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("status = ?", string(entities.IntentStatusPending)).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	intents := make([]*entities.PaymentIntent, 0, len(ms))
	for i := range ms {
		e, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		intents = append(intents, e)
	}
	return intents, nil
}

// ListByMerchant gets intents for a merchant with pagination
func (r *IntentRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*entities.PaymentIntent, int, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("merchant_id = ?", merchantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.PaymentIntent
	if err := db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	intents := make([]*entities.PaymentIntent, 0, len(ms))
	for i := range ms {
		e, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, 0, err
		}
		intents = append(intents, e)
	}
	return intents, int(total), nil
}

func (r *IntentRepository) toModel(p *entities.PaymentIntent) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:                 p.ID,
		OrderID:            p.OrderID,
		MerchantID:         p.MerchantID,
		Asset:              string(p.Asset),
		Network:            string(p.Network),
		FiatAmount:         p.FiatAmount.String(),
		CryptoAmount:       p.CryptoAmount.String(),
		ExchangeRate:       p.ExchangeRate.String(),
		DestinationAddress: p.DestinationAddress,
		Status:             string(p.Status),
		OnchainReference:   p.OnchainReference.Ptr(),
		FailureReason:      p.FailureReason.Ptr(),
		CustomerEmail:      p.CustomerEmail.Ptr(),
		CompletedAt:        p.CompletedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (r *IntentRepository) toEntity(m *models.PaymentIntent) (*entities.PaymentIntent, error) {
	fiat, err := decimal.NewFromString(m.FiatAmount)
	if err != nil {
		return nil, fmt.Errorf("corrupt fiat amount on intent %s: %w", m.ID, err)
	}
	crypto, err := decimal.NewFromString(m.CryptoAmount)
	if err != nil {
		return nil, fmt.Errorf("corrupt crypto amount on intent %s: %w", m.ID, err)
	}
	rate, err := decimal.NewFromString(m.ExchangeRate)
	if err != nil {
		return nil, fmt.Errorf("corrupt exchange rate on intent %s: %w", m.ID, err)
	}

	return &entities.PaymentIntent{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		MerchantID:         m.MerchantID,
		Asset:              entities.Asset(m.Asset),
		Network:            entities.Network(m.Network),
		FiatAmount:         fiat,
		CryptoAmount:       crypto,
		ExchangeRate:       rate,
		DestinationAddress: m.DestinationAddress,
		Status:             entities.IntentStatus(m.Status),
		OnchainReference:   null.StringFromPtr(m.OnchainReference),
		FailureReason:      null.StringFromPtr(m.FailureReason),
		CustomerEmail:      null.StringFromPtr(m.CustomerEmail),
		CompletedAt:        m.CompletedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}
