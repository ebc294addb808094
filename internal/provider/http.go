package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient talks to the aggregator over JSON REST.
type HTTPClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewHTTPClient creates an aggregator client. httpClient may be nil, in
// which case http.DefaultClient is used.
func NewHTTPClient(baseURL, secret string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, secret: secret, http: httpClient}
}

func (c *HTTPClient) GetItemDetails(ctx context.Context, accessToken string) (*ItemStatus, error) {
	var status ItemStatus
	err := c.post(ctx, "/item/get", map[string]string{"access_token": accessToken}, &status)
	if err != nil {
		return nil, fmt.Errorf("get item details: %w", err)
	}
	return &status, nil
}

func (c *HTTPClient) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var resp struct {
		Accounts []Account `json:"accounts"`
	}
	err := c.post(ctx, "/accounts/get", map[string]string{"access_token": accessToken}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	return resp.Accounts, nil
}

func (c *HTTPClient) GetTransactions(ctx context.Context, accessToken, connectionID string, accountIDs []string, startDate, endDate string) ([]Transaction, error) {
	body := map[string]any{
		"access_token":  accessToken,
		"connection_id": connectionID,
		"account_ids":   accountIDs,
		"start_date":    startDate,
		"end_date":      endDate,
	}
	var resp struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.post(ctx, "/transactions/get", body, &resp); err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return resp.Transactions, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upstream returned %d: %s", resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
