// Package client is the Go SDK for the DTI-Insight HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DTI-Insight/pkg/errors"
)

const Version = "0.1.0"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client is the DTI-Insight SDK client.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	apiKey       string
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	board          *BoardClient
	boardOnce      sync.Once
	structures     *StructuresClient
	structuresOnce sync.Once
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return fmt.Sprintf("dti: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, msg, e.RequestID)
}

func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsValidation reports a rejected payload (bad candidate, property range).
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.ErrInvalidConfig
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", errors.ErrInvalidConfig, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", errors.ErrInvalidConfig)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		userAgent:    fmt.Sprintf("dti-go-sdk/%s", Version),
		logger:       &noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Board returns the board sub-client (lazy initialization, thread-safe)
func (c *Client) Board() *BoardClient {
	c.boardOnce.Do(func() {
		c.board = &BoardClient{client: c}
	})
	return c.board
}

// Structures returns the structure-diagram sub-client.
func (c *Client) Structures() *StructuresClient {
	c.structuresOnce.Do(func() {
		c.structures = &StructuresClient{client: c}
	})
	return c.structures
}

// rawResponse is a successful response body with its headers.
type rawResponse struct {
	header http.Header
	body   []byte
}

// do performs a JSON request with retry logic and decodes the reply into result.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	raw, err := c.send(ctx, method, path, body, "application/json", nil)
	if err != nil {
		return err
	}
	if result != nil && len(raw.body) > 0 {
		if err := json.Unmarshal(raw.body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// send performs the request, retrying transport failures, 5xx replies and
// 429 replies that carry Retry-After. onError may claim an error reply
// before it becomes an APIError.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, accept string, onError func(status int, body []byte) error) (*rawResponse, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyBytes = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.New().String()
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			continue
		}

		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, duration)

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.retryMax {
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				c.logger.Infof("Rate limited, retrying after %d seconds", seconds)
				select {
				case <-time.After(time.Duration(seconds) * time.Second):
					lastErr = c.apiError(resp.StatusCode, requestID, respBody)
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			if onError != nil {
				if err := onError(resp.StatusCode, respBody); err != nil {
					return nil, err
				}
			}
			apiErr := c.apiError(resp.StatusCode, requestID, respBody)
			lastErr = apiErr
			if c.shouldRetry(resp.StatusCode) {
				continue
			}
			return nil, apiErr
		}
		return &rawResponse{header: resp.Header, body: respBody}, nil
	}
	return nil, lastErr
}

func (c *Client) apiError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	if len(body) == 0 {
		return apiErr
	}
	var errResp struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Detail    string `json:"detail"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Message
		apiErr.Detail = errResp.Detail
		if errResp.RequestID != "" {
			apiErr.RequestID = errResp.RequestID
		}
	} else {
		apiErr.Message = string(body)
	}
	return apiErr
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// shouldRetry retries 5xx replies; 4xx replies are final.
func (c *Client) shouldRetry(status int) bool {
	return status >= 500 && status < 600
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	// 0-25% jitter
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}

//Personal.AI order the ending
