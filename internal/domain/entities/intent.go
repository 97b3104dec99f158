package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Asset represents a supported crypto asset
type Asset string

const (
	AssetBTC   Asset = "BTC"
	AssetETH   Asset = "ETH"
	AssetUSDT  Asset = "USDT"
	AssetUSDC  Asset = "USDC"
	AssetMATIC Asset = "MATIC"
	AssetSOL   Asset = "SOL"
)

// Assets lists every supported asset in enumeration order. Rollup tie-breaks
// rely on this order being stable.
var Assets = []Asset{AssetBTC, AssetETH, AssetUSDT, AssetUSDC, AssetMATIC, AssetSOL}

// IsStablecoin reports whether the asset is USD-pegged and priced at 1.0
// without consulting the feed.
func (a Asset) IsStablecoin() bool {
	return a == AssetUSDT || a == AssetUSDC
}

// Precision returns the number of decimals a fingerprinted amount for this
// asset is rounded to.
func (a Asset) Precision() int32 {
	switch a {
	case AssetBTC:
		return 8
	case AssetETH:
		return 6
	default:
		return 4
	}
}

// Decimals returns the decimals of the asset's smallest on-chain unit.
func (a Asset) Decimals() int32 {
	switch a {
	case AssetBTC:
		return 8
	case AssetETH, AssetMATIC:
		return 18
	case AssetSOL:
		return 9
	default:
		return 6
	}
}

// Valid reports whether a is one of the supported assets.
func (a Asset) Valid() bool {
	for _, known := range Assets {
		if a == known {
			return true
		}
	}
	return false
}

// Network represents the chain a transfer is expected on
type Network string

const (
	NetworkBitcoin  Network = "BITCOIN"
	NetworkEthereum Network = "ETHEREUM"
	NetworkPolygon  Network = "POLYGON"
	NetworkSolana   Network = "SOLANA"
)

// Networks lists every supported network.
var Networks = []Network{NetworkBitcoin, NetworkEthereum, NetworkPolygon, NetworkSolana}

// IsEVM reports whether addresses on this network are EVM hex addresses.
func (n Network) IsEVM() bool {
	return n == NetworkEthereum || n == NetworkPolygon
}

// Valid reports whether n is one of the supported networks.
func (n Network) Valid() bool {
	for _, known := range Networks {
		if n == known {
			return true
		}
	}
	return false
}

// IntentStatus represents payment intent status
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "PENDING"
	IntentStatusCompleted IntentStatus = "COMPLETED"
	IntentStatusFailed    IntentStatus = "FAILED"
	IntentStatusCancelled IntentStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusCompleted || s == IntentStatusFailed || s == IntentStatusCancelled
}

// PaymentIntent represents an invoiced request to receive a fingerprinted
// crypto quantity at a merchant address, awaiting on-chain confirmation.
type PaymentIntent struct {
	ID                 uuid.UUID       `json:"id"`
	OrderID            string          `json:"orderId"`
	MerchantID         uuid.UUID       `json:"merchantId"`
	Asset              Asset           `json:"asset"`
	Network            Network         `json:"network"`
	FiatAmount         decimal.Decimal `json:"fiatAmount"`
	CryptoAmount       decimal.Decimal `json:"cryptoAmount"`
	ExchangeRate       decimal.Decimal `json:"exchangeRateAtCreation"`
	DestinationAddress string          `json:"destinationAddress"`
	Status             IntentStatus    `json:"status"`
	OnchainReference   null.String     `json:"onchainReference,omitempty"`
	FailureReason      null.String     `json:"failureReason,omitempty"`
	CustomerEmail      null.String     `json:"customerEmail,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// IsTerminal reports whether the intent has reached a terminal status.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// CanTransitionTo reports whether the state machine permits moving to next.
// Only PENDING has outgoing edges.
func (p *PaymentIntent) CanTransitionTo(next IntentStatus) bool {
	if p.Status != IntentStatusPending {
		return false
	}
	return next.IsTerminal()
}

// SmallestUnitAmount returns CryptoAmount expressed in the asset's smallest
// on-chain unit. The watcher compares this for exact equality against
// explorer transaction values.
func (p *PaymentIntent) SmallestUnitAmount() decimal.Decimal {
	return p.CryptoAmount.Shift(p.Asset.Decimals())
}

// PublicStatus maps the internal status to the customer-facing string.
// Internal failure detail is never exposed here.
func (p *PaymentIntent) PublicStatus() string {
	switch p.Status {
	case IntentStatusCompleted:
		return "completed"
	case IntentStatusFailed:
		return "failed"
	case IntentStatusCancelled:
		return "cancelled"
	default:
		return "processing"
	}
}

// TransitionEvent records one state transition of an intent. Events are the
// aggregator's delivery unit; their IDs make rollup application idempotent.
type TransitionEvent struct {
	ID         uuid.UUID    `json:"id"`
	IntentID   uuid.UUID    `json:"intentId"`
	MerchantID uuid.UUID    `json:"merchantId"`
	From       IntentStatus `json:"from"`
	To         IntentStatus `json:"to"`
	Reason     null.String  `json:"reason,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// CreateIntentInput represents input for creating a payment intent
type CreateIntentInput struct {
	OrderID       string  `json:"orderId" binding:"required"`
	Asset         Asset   `json:"asset" binding:"required"`
	Network       Network `json:"network" binding:"required"`
	FiatAmount    string  `json:"fiatAmount" binding:"required"`
	CustomerEmail string  `json:"customerEmail,omitempty"`
}

// CreateIntentResponse represents response for intent creation
type CreateIntentResponse struct {
	IntentID           uuid.UUID    `json:"intentId"`
	OrderID            string       `json:"orderId"`
	Asset              Asset        `json:"asset"`
	Network            Network      `json:"network"`
	CryptoAmount       string       `json:"cryptoAmount"`
	DestinationAddress string       `json:"destinationAddress"`
	ExchangeRate       string       `json:"exchangeRate"`
	RateSource         string       `json:"rateSource"`
	Status             IntentStatus `json:"status"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// TransitionOptions carries optional data for a state transition
type TransitionOptions struct {
	OnchainReference string
	Reason           string
}
