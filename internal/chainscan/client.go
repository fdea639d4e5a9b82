package chainscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin BscScan API client used to sanity-check fee-proof
// transaction hashes. Lookups are a hint for admins, never a gate: callers
// must treat errors as "unknown", not as rejection.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a BscScan client. An empty apiKey disables lookups.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the client is configured to perform lookups
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type txStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  struct {
		Status string `json:"status"` // "1" = success, "0" = failed
	} `json:"result"`
}

// TxExists checks whether the given transaction hash is a confirmed,
// successful transaction on BSC.
func (c *Client) TxExists(ctx context.Context, txHash string) (bool, error) {
	endpoint := fmt.Sprintf("%s?module=transaction&action=gettxreceiptstatus&txhash=%s&apikey=%s",
		c.baseURL, url.QueryEscape(txHash), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("bscscan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("bscscan returned status %d", resp.StatusCode)
	}

	var parsed txStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("failed to decode bscscan response: %w", err)
	}

	return parsed.Result.Status == "1", nil
}
