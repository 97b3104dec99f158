package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

// Client fetches live prices and 24h market data from the external feed.
// Every failure mode (transport, non-2xx, malformed body) is wrapped in
// ErrPriceFeedUnavailable so callers can fall back uniformly.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a price feed client with the given timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type priceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type trendResponse struct {
	Symbol           string `json:"symbol"`
	ChangePercent24h string `json:"changePercent24h"`
	High24h          string `json:"high24h"`
	Low24h           string `json:"low24h"`
	Volume24h        string `json:"volume24h"`
}

// GetPrice fetches the current fiat price for one asset unit
func (c *Client) GetPrice(ctx context.Context, asset entities.Asset) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/simple/price?symbol=%s&currency=usd", c.baseURL, url.QueryEscape(string(asset)))

	var body priceResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed price %q for %s", domainerrors.ErrPriceFeedUnavailable, body.Price, asset)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: non-positive price for %s", domainerrors.ErrPriceFeedUnavailable, asset)
	}
	return price, nil
}

// GetTrend fetches 24h market data for an asset
func (c *Client) GetTrend(ctx context.Context, asset entities.Asset) (*entities.Trend, error) {
	endpoint := fmt.Sprintf("%s/market/trend?symbol=%s", c.baseURL, url.QueryEscape(string(asset)))

	var body trendResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	trend := &entities.Trend{Asset: asset, Known: true}
	var err error
	if trend.ChangePercent24h, err = decimal.NewFromString(body.ChangePercent24h); err != nil {
		return nil, fmt.Errorf("%w: malformed trend for %s", domainerrors.ErrPriceFeedUnavailable, asset)
	}
	if trend.High24h, err = decimal.NewFromString(body.High24h); err != nil {
		return nil, fmt.Errorf("%w: malformed trend for %s", domainerrors.ErrPriceFeedUnavailable, asset)
	}
	if trend.Low24h, err = decimal.NewFromString(body.Low24h); err != nil {
		return nil, fmt.Errorf("%w: malformed trend for %s", domainerrors.ErrPriceFeedUnavailable, asset)
	}
	if trend.Volume24h, err = decimal.NewFromString(body.Volume24h); err != nil {
		return nil, fmt.Errorf("%w: malformed trend for %s", domainerrors.ErrPriceFeedUnavailable, asset)
	}
	return trend, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrPriceFeedUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrPriceFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", domainerrors.ErrPriceFeedUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrPriceFeedUnavailable, err)
	}
	return nil
}
