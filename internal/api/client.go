package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client represents a CRM REST API client
type Client struct {
	baseURL string
	apiKey  string
	http    *resty.Client
}

// NewClient creates a new CRM API client authenticated with an API key
func NewClient(baseURL, apiKey string) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}

	// Configure resty client. No HTTP-level retries: the upload pipeline owns
	// retry policy, and stacking resty retries would multiply its attempt budget.
	client.http = resty.New().
		SetHeader("X-API-Key", apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(120 * time.Second) // Generous ceiling; per-batch budgets come from request contexts

	return client
}

// BulkUpsertResponse is the outcome the server reports for one submitted batch
type BulkUpsertResponse struct {
	Total      int               `json:"total"`
	Created    int               `json:"created"`
	Updated    int               `json:"updated"`
	Duplicates int               `json:"duplicates"`
	Errors     []BulkRecordError `json:"errors"`
}

// BulkRecordError is a per-record rejection inside an otherwise accepted batch.
// Index is relative to the submitted batch.
type BulkRecordError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkUpsert submits one batch of records to the bulk endpoint for the given
// entity type ("company" or "contact"). The context carries the per-batch
// timeout budget; a deadline overrun surfaces as a retryable transport error.
func (c *Client) BulkUpsert(ctx context.Context, entityType string, records any) (*BulkUpsertResponse, error) {
	var endpoint string
	switch entityType {
	case "company":
		endpoint = "api/v1/bulk/companies"
	case "contact":
		endpoint = "api/v1/bulk/contacts"
	default:
		return nil, fmt.Errorf("unknown entity type: %s", entityType)
	}

	payload := map[string]any{
		"records": records,
		"upsert":  true,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.buildURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("bulk upsert request failed: %w", err)
	}

	if !resp.IsSuccess() {
		// 422 means the server rejected the payload shape; anything else is transport-flavored
		if resp.StatusCode() == 422 {
			return nil, fmt.Errorf("bulk upsert rejected as invalid (HTTP 422): %s", resp.String())
		}
		return nil, fmt.Errorf("bulk upsert failed with HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	var result BulkUpsertResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse bulk upsert response: %w", err)
	}

	return &result, nil
}

// Health checks the server's health endpoint
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.buildURL("health"))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode())
	}

	return nil
}

// Me fetches the authenticated principal, used to validate an API key
func (c *Client) Me(ctx context.Context) (*resty.Response, error) {
	return c.http.R().SetContext(ctx).Get(c.buildURL("api/v1/users/me"))
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// SetTimeout allows customizing the timeout for specific operations
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}
