package entities

import (
	"time"

	"github.com/google/uuid"
)

// MerchantWallet is a merchant's configured receiving address for one
// asset on one network. The address is resolved at intent creation and
// frozen onto the intent; editing the wallet never touches in-flight intents.
type MerchantWallet struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"merchantId"`
	Asset      Asset     `json:"asset"`
	Network    Network   `json:"network"`
	Address    string    `json:"address"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
