package memos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRecentLimit is how many memos a recent listing returns when the
	// caller does not say otherwise.
	DefaultRecentLimit = 10

	defaultTimeout = 30 * time.Second
)

// Client performs authenticated requests against a Memos instance. It holds
// no mutable state and is safe for concurrent use. Every call is a single
// synchronous round trip; there is no retry and nothing is cached.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient validates the configuration and returns a client. A missing base
// URL or credential is a startup configuration error, never a per-call one.
func NewClient(baseURL, apiKey string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("memos base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid memos base URL %q: %w", baseURL, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("memos API key is required")
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// ListRecent returns the most recent memos. A non-positive limit falls back
// to DefaultRecentLimit.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]Memo, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var out listMemosResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/memos", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Memos, nil
}

// ListAll returns every memo visible to the credential.
func (c *Client) ListAll(ctx context.Context) ([]Memo, error) {
	var out listMemosResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/memos", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Memos, nil
}

// GetByID fetches a single memo. The id may carry the "memos/" prefix.
func (c *Client) GetByID(ctx context.Context, id string) (*Memo, error) {
	id = NormalizeID(id)
	if id == "" {
		return nil, newValidationError("memo id is required")
	}

	var memo Memo
	if err := c.do(ctx, http.MethodGet, "/api/v1/memos/"+url.PathEscape(id), nil, nil, &memo); err != nil {
		return nil, err
	}
	return &memo, nil
}

// Search lists memos whose content contains query, further narrowed by expr
// when one is supplied. The keyword predicate is built with escaping and the
// two constraints are combined with logical AND into the single filter
// parameter the service accepts; both always apply.
func (c *Client) Search(ctx context.Context, query string, expr FilterExpression) ([]Memo, error) {
	combined := expr
	if query != "" {
		built, err := NewFilterBuilder().ContentContains(query).Build()
		if err != nil {
			return nil, err
		}
		combined = built.And(expr)
	}
	return c.Filter(ctx, combined)
}

// Filter lists memos matching a filter expression. The expression is passed
// through verbatim; its grammar is never interpreted here. An empty
// expression means no filter and lists everything.
func (c *Client) Filter(ctx context.Context, expr FilterExpression) ([]Memo, error) {
	var query url.Values
	if !expr.Empty() {
		query = url.Values{}
		query.Set("filter", expr.String())
	}

	var out listMemosResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/memos", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Memos, nil
}

// Create stores a new memo and returns the service's copy of it. Tags become
// hashtag tokens appended to the content, skipping any already present.
func (c *Client) Create(ctx context.Context, content string, visibility Visibility, tags []string) (*Memo, error) {
	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("memo content is required")
	}
	vis, err := ParseVisibility(string(visibility))
	if err != nil {
		return nil, err
	}

	body := struct {
		Content    string     `json:"content"`
		Visibility Visibility `json:"visibility"`
	}{Content: AppendTags(content, tags), Visibility: vis}

	var memo Memo
	if err := c.do(ctx, http.MethodPost, "/api/v1/memos", nil, body, &memo); err != nil {
		return nil, err
	}
	return &memo, nil
}

// Update patches a memo, sending only the supplied fields. At least one field
// must be set. Concurrent updates to the same memo are not coordinated; the
// service applies them in arrival order and the last write wins.
func (c *Client) Update(ctx context.Context, id string, patch MemoPatch) (*Memo, error) {
	id = NormalizeID(id)
	if id == "" {
		return nil, newValidationError("memo id is required")
	}
	if patch.Content == nil && patch.Visibility == nil {
		return nil, newValidationError("update requires content or visibility")
	}

	body := make(map[string]any, 2)
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, newValidationError("memo content is required")
		}
		body["content"] = *patch.Content
	}
	if patch.Visibility != nil {
		vis, err := ParseVisibility(string(*patch.Visibility))
		if err != nil {
			return nil, err
		}
		body["visibility"] = vis
	}

	var memo Memo
	if err := c.do(ctx, http.MethodPatch, "/api/v1/memos/"+url.PathEscape(id), nil, body, &memo); err != nil {
		return nil, err
	}
	return &memo, nil
}

// Delete removes a memo. Deleting an id the service no longer knows surfaces
// NotFoundError rather than succeeding silently.
func (c *Client) Delete(ctx context.Context, id string) error {
	id = NormalizeID(id)
	if id == "" {
		return newValidationError("memo id is required")
	}
	return c.do(ctx, http.MethodDelete, "/api/v1/memos/"+url.PathEscape(id), nil, nil, nil)
}

// RemoveTag deletes a hashtag from a memo's content. Since the service
// derives tags from content, this reads the memo, strips the token, and
// writes the content back. When the tag is not present the memo is returned
// as is and no write is issued.
func (c *Client) RemoveTag(ctx context.Context, id, tag string) (*Memo, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, newValidationError("tag is required")
	}

	memo, err := c.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stripped := StripTag(memo.Content, tag)
	if stripped == memo.Content {
		return memo, nil
	}

	return c.Update(ctx, id, MemoPatch{Content: &stripped})
}

// ListTags returns the service's tag catalog.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.do(ctx, http.MethodGet, "/api/v1/tag", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// AuthStatus asks the service who the configured credential belongs to.
func (c *Client) AuthStatus(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/status", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do performs one request and decodes the response into out when out is
// non-nil. Non-2xx statuses and undecodable bodies are mapped to the error
// taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnavailableError{
			Message: fmt.Sprintf("request to %s failed: %v", path, err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UnavailableError{
			Message: fmt.Sprintf("failed to read response from %s: %v", path, err),
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, data, path)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedResponseError{
			Err: fmt.Errorf("failed to decode response from %s: %w", path, err),
		}
	}
	return nil
}
