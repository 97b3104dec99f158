package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSource indicates where a price came from
type QuoteSource string

const (
	QuoteSourceLive     QuoteSource = "live"
	QuoteSourceFallback QuoteSource = "fallback"
)

// PriceQuote is an ephemeral fiat price for one asset unit. Quotes live only
// in the oracle's cache and are never persisted.
type PriceQuote struct {
	Asset     Asset           `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	Source    QuoteSource     `json:"source"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Trend is best-effort 24h market data for an asset. Known is false whenever
// the feed could not supply it; price retrieval is unaffected.
type Trend struct {
	Asset            Asset           `json:"asset"`
	Known            bool            `json:"known"`
	ChangePercent24h decimal.Decimal `json:"changePercent24h"`
	High24h          decimal.Decimal `json:"high24h"`
	Low24h           decimal.Decimal `json:"low24h"`
	Volume24h        decimal.Decimal `json:"volume24h"`
}
