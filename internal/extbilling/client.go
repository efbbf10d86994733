package extbilling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client calls the upstream billing panel: the secondary charge path used
// when a wallet cannot cover a scaling cost, and the best-effort mirror of
// current allocations onto the panel's service records.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a billing panel client with a per-call timeout
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chargeRequest struct {
	AccountID   string  `json:"account_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type chargeResponse struct {
	InvoiceRef string `json:"invoice_ref"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type syncRequest struct {
	RAMMB int `json:"ram_mb"`
	CPU   int `json:"cpu_percent"`
}

type syncResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AddCharge adds a billable item to the upstream account and returns the
// invoice reference
func (c *Client) AddCharge(ctx context.Context, externalAccountID string, amount float64, description string) (string, error) {
	log.Printf("[ExtBilling] Adding charge for %s: %.2f (%s)", externalAccountID, amount, description)

	body, err := json.Marshal(&chargeRequest{
		AccountID:   externalAccountID,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/charges", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result chargeResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w (body: %s)", err, string(data))
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("billing panel returned status %d: %s", resp.StatusCode, result.Error)
	}

	log.Printf("[ExtBilling] Charge added: %s", result.InvoiceRef)
	return result.InvoiceRef, nil
}

// SyncResources mirrors the current allocation onto the upstream service
// record. Best-effort: callers log and move on when it fails.
func (c *Client) SyncResources(ctx context.Context, externalServiceID string, ramMB, cpuPercent int) error {
	body, err := json.Marshal(&syncRequest{RAMMB: ramMB, CPU: cpuPercent})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+"/api/services/"+externalServiceID+"/resources", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result syncResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode response: %w (body: %s)", err, string(data))
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		return fmt.Errorf("billing panel returned status %d: %s", resp.StatusCode, result.Error)
	}

	return nil
}
