package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/internal/infrastructure/models"
)

// TransitionEventRepository implements the transition audit trail
type TransitionEventRepository struct {
	db *gorm.DB
}

// NewTransitionEventRepository creates a new transition event repository
func NewTransitionEventRepository(db *gorm.DB) *TransitionEventRepository {
	return &TransitionEventRepository{db: db}
}

// Create persists a transition event
func (r *TransitionEventRepository) Create(ctx context.Context, event *entities.TransitionEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	m := &models.TransitionEvent{
		ID:         event.ID,
		IntentID:   event.IntentID,
		MerchantID: event.MerchantID,
		FromStatus: string(event.From),
		ToStatus:   string(event.To),
		Reason:     event.Reason.Ptr(),
		OccurredAt: event.OccurredAt,
	}

	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Create(m).Error
}

// ListByIntent returns the events of one intent in causal order
func (r *TransitionEventRepository) ListByIntent(ctx context.Context, intentID uuid.UUID) ([]*entities.TransitionEvent, error) {
	var ms []models.TransitionEvent
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("intent_id = ?", intentID).
		Order("occurred_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	events := make([]*entities.TransitionEvent, 0, len(ms))
	for i := range ms {
		m := ms[i]
		events = append(events, &entities.TransitionEvent{
			ID:         m.ID,
			IntentID:   m.IntentID,
			MerchantID: m.MerchantID,
			From:       entities.IntentStatus(m.FromStatus),
			To:         entities.IntentStatus(m.ToStatus),
			Reason:     null.StringFromPtr(m.Reason),
			OccurredAt: m.OccurredAt,
		})
	}
	return events, nil
}
