package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

// Transaction is one inbound transfer as reported by the ledger explorer.
// Value is a base-10 integer string in the asset's smallest unit.
type Transaction struct {
	To    string `json:"to"`
	Value string `json:"value"`
	Hash  string `json:"hash"`
}

// Client queries a ledger-explorer REST API for recent transactions to an
// address. Transport and status errors are wrapped in ErrExplorerUnavailable;
// an empty result list is a valid "no match yet" answer, not an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an explorer client with the given timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// RecentTransactions returns up to limit most recent transactions to address
func (c *Client) RecentTransactions(ctx context.Context, network entities.Network, address string, limit int) ([]Transaction, error) {
	endpoint := fmt.Sprintf("%s/address/%s/transactions?network=%s&limit=%d",
		c.baseURL, url.PathEscape(NormalizeAddress(network, address)), url.QueryEscape(string(network)), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrExplorerUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrExplorerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", domainerrors.ErrExplorerUnavailable, resp.StatusCode)
	}

	var body transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrExplorerUnavailable, err)
	}
	return body.Transactions, nil
}

// NormalizeAddress canonicalizes an address for comparison. EVM addresses go
// through their checksummed form so casing differences never matter; other
// networks pass through unchanged.
func NormalizeAddress(network entities.Network, address string) string {
	if network.IsEVM() && common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}

// ValidAddress reports whether an address is plausible for the network.
// Non-EVM networks only require a non-empty value here; their formats are
// validated upstream by the wallet configuration flow.
func ValidAddress(network entities.Network, address string) bool {
	if address == "" {
		return false
	}
	if network.IsEVM() {
		return common.IsHexAddress(address)
	}
	return true
}
