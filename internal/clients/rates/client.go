// Package rates implements the external exchange-rate provider client:
// a single HTTP GET returning a JSON map of currency -> rate for a base
// currency.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// Client fetches rates from a provider endpoint shaped like
// GET {baseURL}/{BASE} -> {"rates": {"EUR": 0.92, ...}}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a rate provider client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates retrieves all rates for the base currency. Non-2xx responses
// and malformed bodies are returned as errors; the caller decides whether
// to degrade.
func (c *Client) FetchRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, baseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate provider request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rate provider response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate provider returned no rates for %s", baseCurrency)
	}

	return body.Rates, nil
}
