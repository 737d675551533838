package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRequestTimeout = 10 * time.Second
	healthPollInterval    = 500 * time.Millisecond
	idempotencyHeader     = "Idempotency-Key"
)

// HttpClient is a thin JSON client for the showings API, used by integration tests and
// operational tooling.
type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) ToString() string {
	if r == nil || r.Response == nil {
		return "<nil response>"
	}
	return fmt.Sprintf("%s %s -> %d: %s", r.Request.Method, r.Request.URL.Path, r.StatusCode, string(r.Body))
}

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// WithIdempotencyKey sets the idempotency header; an empty key gets a random one.
func WithIdempotencyKey(key string) RequestOption {
	if key == "" {
		key = uuid.NewString()
	}
	return WithHeader(idempotencyHeader, key)
}

func (c *HttpClient) GET(path string) (*Response, error) {
	return c.Do(context.Background(), http.MethodGet, path, nil)
}

func (c *HttpClient) POST(path string, body any) (*Response, error) {
	return c.Do(context.Background(), http.MethodPost, path, body)
}

func (c *HttpClient) PATCH(path string, body any) (*Response, error) {
	return c.Do(context.Background(), http.MethodPatch, path, body)
}

func (c *HttpClient) PUT(path string, body any) (*Response, error) {
	return c.Do(context.Background(), http.MethodPut, path, body)
}

func (c *HttpClient) DELETE(path string) (*Response, error) {
	return c.Do(context.Background(), http.MethodDelete, path, nil)
}

func (c *HttpClient) POSTWithHeaders(path string, body any, headers map[string]string) (*Response, error) {
	opts := make([]RequestOption, 0, len(headers))
	for k, v := range headers {
		opts = append(opts, WithHeader(k, v))
	}
	return c.Do(context.Background(), http.MethodPost, path, body, opts...)
}

// POSTRaw sends rawBody unchanged, for malformed-payload tests.
func (c *HttpClient) POSTRaw(path string, rawBody []byte) (*Response, error) {
	return c.send(context.Background(), http.MethodPost, path, bytes.NewReader(rawBody), true)
}

// Do sends body as JSON (nil sends no body) and buffers the whole response.
func (c *HttpClient) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	if body == nil {
		return c.send(ctx, method, path, nil, false, opts...)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.send(ctx, method, path, bytes.NewReader(data), true, opts...)
}

func (c *HttpClient) send(ctx context.Context, method, path string, body io.Reader, isJSON bool, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{Response: resp, Body: data}, nil
}

// WaitForHealthy polls /health until it answers 200 or maxWait passes.
func (c *HttpClient) WaitForHealthy(maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	defer cancel()

	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	for {
		resp, err := c.Do(ctx, http.MethodGet, "/health", nil)
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}

// GetErrorMessage extracts the message of an error response.
func GetErrorMessage(resp *Response) string {
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return fmt.Sprintf("failed to unmarshal error: %v", err)
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Code
}
