package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentIntent carries a partial unique index: at most one PENDING intent
// may expect a given crypto amount on an address. Terminal rows are exempt
// so settled history can repeat amounts.
type PaymentIntent struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID            string    `gorm:"type:varchar(255);not null;index"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Asset              string    `gorm:"type:varchar(20);not null"`
	Network            string    `gorm:"type:varchar(50);not null"`
	FiatAmount         string    `gorm:"type:decimal(36,18);not null"`
	CryptoAmount       string    `gorm:"type:decimal(36,18);not null;uniqueIndex:idx_intents_pending_amount,priority:2,where:status = 'PENDING'"`
	ExchangeRate       string    `gorm:"type:decimal(36,18);not null"`
	DestinationAddress string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_intents_pending_amount,priority:1,where:status = 'PENDING'"`
	Status             string    `gorm:"type:varchar(20);not null;index"`
	OnchainReference   *string   `gorm:"type:varchar(255);index"`
	FailureReason      *string   `gorm:"type:varchar(500)"`
	CustomerEmail      *string   `gorm:"type:varchar(255)"`
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

type TransitionEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	IntentID   uuid.UUID `gorm:"type:uuid;not null;index"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index"`
	FromStatus string    `gorm:"type:varchar(20);not null"`
	ToStatus   string    `gorm:"type:varchar(20);not null"`
	Reason     *string   `gorm:"type:varchar(500)"`
	OccurredAt time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (TransitionEvent) TableName() string {
	return "transition_events"
}
