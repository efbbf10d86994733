package provisioner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrUsageUnavailable is returned when the panel cannot report usage for an
// account (not yet provisioned there, agent down, etc.)
var ErrUsageUnavailable = errors.New("usage not available")

// Usage is a point-in-time resource consumption snapshot for one account,
// in the same units as the account allocation.
type Usage struct {
	RAMUsageMB      int `json:"ram_usage_mb"`
	CPUUsagePercent int `json:"cpu_usage_percent"`
}

// Client calls the resource manager panel that owns the actual hosting
// accounts: create/delete/suspend accounts, apply RAM/CPU ceilings, and read
// per-account usage.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a panel client with a per-call timeout
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateAccountRequest is the request to provision a hosting account
type CreateAccountRequest struct {
	Username string `json:"username"`
	Domain   string `json:"domain,omitempty"`
	RAMMB    int    `json:"ram_mb"`
	CPU      int    `json:"cpu_percent"`
}

// CreateAccountResponse is the panel's response to account creation
type CreateAccountResponse struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}

type limitsRequest struct {
	RAMMB int `json:"ram_mb"`
	CPU   int `json:"cpu_percent"`
}

type panelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type usageResponse struct {
	Available bool  `json:"available"`
	Usage     Usage `json:"usage"`
	Error     string `json:"error,omitempty"`
}

// CreateAccount provisions a new account on the panel
func (c *Client) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	log.Printf("[Provisioner] Creating account %s (ram: %dMB, cpu: %d%%)", req.Username, req.RAMMB, req.CPU)

	var result CreateAccountResponse
	if err := c.do(ctx, "POST", "/api/accounts", req, &result); err != nil {
		return nil, err
	}

	log.Printf("[Provisioner] Account created: %s (status: %s)", result.ExternalID, result.Status)
	return &result, nil
}

// DeleteAccount removes an account from the panel
func (c *Client) DeleteAccount(ctx context.Context, externalID string) error {
	log.Printf("[Provisioner] Deleting account: %s", externalID)
	var result panelResponse
	return c.do(ctx, "DELETE", "/api/accounts/"+externalID, nil, &result)
}

// SuspendAccount suspends an account on the panel without deleting it
func (c *Client) SuspendAccount(ctx context.Context, externalID string) error {
	var result panelResponse
	return c.do(ctx, "POST", "/api/accounts/"+externalID+"/suspend", nil, &result)
}

// UnsuspendAccount lifts a suspension
func (c *Client) UnsuspendAccount(ctx context.Context, externalID string) error {
	var result panelResponse
	return c.do(ctx, "POST", "/api/accounts/"+externalID+"/unsuspend", nil, &result)
}

// SetLimits applies a new RAM/CPU ceiling to an account. A timeout or any
// non-OK response is a hard failure; the caller must not assume the limits
// were applied.
func (c *Client) SetLimits(ctx context.Context, externalID string, ramMB, cpuPercent int) error {
	log.Printf("[Provisioner] Setting limits for %s: ram=%dMB cpu=%d%%", externalID, ramMB, cpuPercent)

	var result panelResponse
	if err := c.do(ctx, "PUT", "/api/accounts/"+externalID+"/limits", &limitsRequest{RAMMB: ramMB, CPU: cpuPercent}, &result); err != nil {
		return err
	}
	return nil
}

// GetUsage reads the current usage snapshot for an account. Returns
// ErrUsageUnavailable when the panel has no data for it.
func (c *Client) GetUsage(ctx context.Context, externalID string) (Usage, error) {
	var result usageResponse
	if err := c.do(ctx, "GET", "/api/accounts/"+externalID+"/usage", nil, &result); err != nil {
		return Usage{}, err
	}
	if !result.Available {
		return Usage{}, fmt.Errorf("%w: %s", ErrUsageUnavailable, externalID)
	}
	return result.Usage, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
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

	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("decode response: %w (body: %s)", err, string(data))
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("panel returned status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
