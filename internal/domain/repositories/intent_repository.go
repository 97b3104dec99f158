package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"paywatch.backend/internal/domain/entities"
)

// IntentRepository defines payment intent data operations
type IntentRepository interface {
	Create(ctx context.Context, intent *entities.PaymentIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	Update(ctx context.Context, intent *entities.PaymentIntent) error
	// ExistsPendingAmount reports whether another PENDING intent on the same
	// destination address expects exactly this crypto amount.
	ExistsPendingAmount(ctx context.Context, address string, amount decimal.Decimal) (bool, error)
	ListPending(ctx context.Context) ([]*entities.PaymentIntent, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*entities.PaymentIntent, int, error)
}

// TransitionEventRepository persists the transition audit trail
type TransitionEventRepository interface {
	Create(ctx context.Context, event *entities.TransitionEvent) error
	ListByIntent(ctx context.Context, intentID uuid.UUID) ([]*entities.TransitionEvent, error)
}
