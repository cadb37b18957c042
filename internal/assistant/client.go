package assistant

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

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the OpenAI Assistants v2 REST API over plain HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// Timeout bounds each individual HTTP call, not the whole turn.
	Timeout time.Duration
	// Limiter paces outbound calls. Nil means unthrottled.
	Limiter *rate.Limiter
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}

	return &Client{
		BaseURL: u,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// WithThrottle sets an outbound token bucket. rps <= 0 disables throttling.
func (c *Client) WithThrottle(rps float64, burst int) *Client {
	if rps <= 0 {
		c.Limiter = nil
		return c
	}
	if burst <= 0 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

func (c *Client) CreateMessage(ctx context.Context, threadID string, req CreateMessageRequest) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/messages", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRun(ctx context.Context, threadID string, req CreateRunRequest) (*Run, error) {
	var out Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var out Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMessages(ctx context.Context, threadID string, params ListMessagesParams) (*MessageList, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Order != "" {
		q.Set("order", string(params.Order))
	}
	if params.Before != "" {
		q.Set("before", params.Before)
	}
	if params.After != "" {
		q.Set("after", params.After)
	}

	var out MessageList
	if err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID)+"/messages", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var out Thread
	if err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAssistant(ctx context.Context, assistantID string) (*Assistant, error) {
	var out Assistant
	if err := c.do(ctx, http.MethodGet, "/assistants/"+url.PathEscape(assistantID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c == nil {
		return fmt.Errorf("assistant client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return throttleError(ctx, err)
		}
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("OpenAI-Beta", "assistants=v2")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}

// throttleError keeps a throttled call classifiable as a timeout. Wait refuses
// early, without a context error, when the next token lands past the deadline.
func throttleError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("throttle: %w", ctxErr)
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("throttle: %v: %w", err, context.DeadlineExceeded)
	}
	return fmt.Errorf("throttle: %w", err)
}
