// Package market fetches coin metadata and pricing from the launch
// platform's public frontend API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single metadata request.
const DefaultTimeout = 15 * time.Second

// CoinInfo is the slice of a coin's metadata this system reads.
type CoinInfo struct {
	Mint         string  `json:"mint"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	MarketCapSol float64 `json:"market_cap"`
	USDMarketCap float64 `json:"usd_market_cap"`
	TotalSupply  float64 `json:"total_supply"`
}

// Client queries the platform frontend API.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a frontend API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCoinInfo fetches a coin's metadata by mint. Returns (nil, nil)
// when the platform does not know the coin.
func (c *Client) GetCoinInfo(ctx context.Context, mint string) (*CoinInfo, error) {
	url := fmt.Sprintf("%s/coins/%s?sync=false", c.baseURL, mint)

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("coin info status %d: %s", status, string(body))
	}

	var info CoinInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("unmarshal coin info: %w", err)
	}
	return &info, nil
}

// GetSolPrice fetches the platform's current SOL/USD quote.
func (c *Client) GetSolPrice(ctx context.Context) (float64, error) {
	body, status, err := c.get(ctx, c.baseURL+"/sol-price")
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("sol price status %d: %s", status, string(body))
	}

	var result struct {
		SolPrice float64 `json:"solPrice"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("unmarshal sol price: %w", err)
	}
	return result.SolPrice, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
