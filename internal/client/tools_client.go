package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

const (
	resourceTags  = "tags"
	resourceTools = "tools"

	maxBodyBytes  = 4 << 20
	maxErrorBytes = 512
)

// FetchObserver receives one call per upstream fetch. kind is "" on success.
type FetchObserver interface {
	ObserveFetch(resource string, duration time.Duration, kind string)
}

// ToolsClient communicates with the tools directory REST API.
// It performs no retries: every failure is returned to the caller.
type ToolsClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	observer   FetchObserver
}

// Option configures a ToolsClient.
type Option func(*ToolsClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *ToolsClient) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *ToolsClient) { c.httpClient.Timeout = d }
}

// WithObserver reports every fetch to o.
func WithObserver(o FetchObserver) Option {
	return func(c *ToolsClient) { c.observer = o }
}

// NewToolsClient creates a new client targeting the given API base URL.
func NewToolsClient(baseURL string, opts ...Option) *ToolsClient {
	c := &ToolsClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  config.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL.
func (c *ToolsClient) BaseURL() string {
	return c.baseURL
}

// FetchTags fetches the tag list.
// GET /tags -> ["tag", ...]
func (c *ToolsClient) FetchTags(ctx context.Context) (tags []string, err error) {
	start := time.Now()
	defer func() { c.observe(resourceTags, start, err) }()

	endpoint := c.baseURL + "/tags"
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "expected a JSON array of strings", Err: err}
	}
	if tags == nil {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "tag list is null"}
	}
	return tags, nil
}

// FetchTools fetches one page of tools. An empty tag means unfiltered.
// GET /tools?tag=<tag>&page=<page>&limit=<limit> -> { tools: [...], info: {...} }
func (c *ToolsClient) FetchTools(ctx context.Context, tag string, page, limit int) (result *models.Page, err error) {
	start := time.Now()
	defer func() { c.observe(resourceTools, start, err) }()

	if page < 1 {
		return nil, fmt.Errorf("page must be positive, got %d", page)
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := url.Values{}
	query.Set("tag", tag)
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/tools?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return decodePage(endpoint, body)
}

// decodePage parses and validates a /tools response body.
func decodePage(endpoint string, body []byte) (*models.Page, error) {
	var raw struct {
		Tools rawJSON `json:"tools"`
		Info  rawJSON `json:"info"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "expected a JSON object", Err: err}
	}
	if raw.Tools.isNull() {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "missing tools array"}
	}
	if raw.Info.isNull() {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "missing info object"}
	}

	page := &models.Page{}
	if err := json.Unmarshal(raw.Tools, &page.Tools); err != nil {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "tools is not an array of tool objects", Err: err}
	}
	if err := json.Unmarshal(raw.Info, &page.Info); err != nil {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "info is not a page info object", Err: err}
	}
	for i, tool := range page.Tools {
		if tool.Slug == "" {
			return nil, &MalformedResponseError{URL: endpoint, Reason: fmt.Sprintf("tool %d has no slug", i)}
		}
	}
	return page, nil
}

// get issues a GET and returns the body of a 2xx response.
func (c *ToolsClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{URL: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > maxErrorBytes {
			snippet = snippet[:maxErrorBytes]
		}
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	return body, nil
}

func (c *ToolsClient) observe(resource string, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveFetch(resource, time.Since(start), ErrorKind(err))
}

// rawJSON keeps a field's raw bytes so presence can be checked before decoding.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r rawJSON) isNull() bool {
	return len(r) == 0 || string(r) == "null"
}
