// Package prediction calls the drug-discovery backend that turns a protein
// sequence into ranked drug candidates.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// EndpointPath is the backend function path appended to the base URL.
const EndpointPath = "/functions/v1/drug-discovery"

const (
	defaultTimeout       = 60 * time.Second
	defaultMaxRetries    = 2
	defaultRetryWaitMin  = 500 * time.Millisecond
	defaultRetryWaitMax  = 5 * time.Second
	defaultRetryAfterCap = 30 * time.Second
	maxErrorBody         = 4 << 10
)

// Config carries the backend location and retry policy.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// Predictor is satisfied by Client.
type Predictor interface {
	Predict(ctx context.Context, sequence string) (*types.PredictionResponse, error)
}

// Client is an HTTP client for the prediction backend.
type Client struct {
	endpoint      string
	apiKey        string
	httpClient    *http.Client
	logger        logging.Logger
	metrics       *prometheus.BoardMetrics
	maxRetries    int
	retryWaitMin  time.Duration
	retryWaitMax  time.Duration
	retryAfterCap time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func WithLogger(l logging.Logger) Option { return func(c *Client) { c.logger = l } }

func WithMetrics(m *prometheus.BoardMetrics) Option { return func(c *Client) { c.metrics = m } }

// WithRetryWait sets the exponential backoff bounds.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.retryWaitMin = min
			if max >= min {
				c.retryWaitMax = max
			}
		}
	}
}

// WithRetryAfterCap bounds how long a 429 Retry-After is honoured.
func WithRetryAfterCap(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryAfterCap = d
		}
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "prediction base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Newf(errors.ErrCodeValidation, "prediction base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	c := &Client{
		endpoint:      strings.TrimSuffix(cfg.BaseURL, "/") + EndpointPath,
		apiKey:        cfg.APIKey,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logging.NewNopLogger(),
		maxRetries:    retries,
		retryWaitMin:  defaultRetryWaitMin,
		retryWaitMax:  defaultRetryWaitMax,
		retryAfterCap: defaultRetryAfterCap,
	}
	if cfg.RetryBackoff > 0 {
		c.retryWaitMin = cfg.RetryBackoff
		if c.retryWaitMax < c.retryWaitMin {
			c.retryWaitMax = c.retryWaitMin
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full function URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Predict submits sequence and decodes the candidate response. A blank
// sequence is rejected before any request is made.
func (c *Client) Predict(ctx context.Context, sequence string) (*types.PredictionResponse, error) {
	sequence = strings.TrimSpace(sequence)
	if sequence == "" {
		return nil, errors.New(errors.ErrCodePredictionSequenceEmpty,
			errors.DefaultMessageForCode(errors.ErrCodePredictionSequenceEmpty))
	}

	start := time.Now()
	body, err := json.Marshal(types.PredictionRequest{ProteinSequence: sequence})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode prediction request")
	}

	raw, err := c.do(ctx, body)
	if err != nil {
		prometheus.RecordPrediction(c.metrics, false, time.Since(start))
		return nil, err
	}

	var resp types.PredictionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		prometheus.RecordPrediction(c.metrics, false, time.Since(start))
		return nil, errors.Wrap(err, errors.ErrCodePredictionDecode,
			errors.DefaultMessageForCode(errors.ErrCodePredictionDecode))
	}
	prometheus.RecordPrediction(c.metrics, true, time.Since(start))
	c.logger.Info("prediction completed",
		logging.Int("sequence_length", len(sequence)),
		logging.Int("candidates", len(resp.DrugCandidates)),
		logging.Duration("duration", time.Since(start)))
	return &resp, nil
}

func (c *Client) do(ctx context.Context, body []byte) ([]byte, error) {
	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	log := c.logger.With(logging.String(logging.FieldRequestID, requestID))

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = c.backoff(attempt)
			}
			log.Debug("retrying prediction request", logging.Int("attempt", attempt), logging.Duration("wait", wait))
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			wait = 0
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "build prediction request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
			req.Header.Set("apikey", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("prediction request failed", logging.Err(err), logging.Int("attempt", attempt))
			lastErr = errors.Wrap(err, errors.ErrCodePredictionBackend,
				errors.DefaultMessageForCode(errors.ErrCodePredictionBackend))
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = errors.Wrap(readErr, errors.ErrCodePredictionBackend, "read prediction response")
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return raw, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			wait = c.retryAfter(resp.Header.Get("Retry-After"))
			lastErr = errors.New(errors.ErrCodePredictionRateLimited,
				errors.DefaultMessageForCode(errors.ErrCodePredictionRateLimited)).
				WithDetail(backendMessage(raw))
			log.Warn("prediction backend rate limited", logging.Duration("retry_after", wait))
		case resp.StatusCode >= 500:
			lastErr = backendError(resp.StatusCode, raw)
			log.Warn("prediction backend error", logging.Int("status", resp.StatusCode), logging.Int("attempt", attempt))
		default:
			return nil, backendError(resp.StatusCode, raw)
		}
	}
	return nil, lastErr
}

func backendError(status int, raw []byte) *errors.AppError {
	return errors.New(errors.ErrCodePredictionBackend,
		errors.DefaultMessageForCode(errors.ErrCodePredictionBackend)).
		WithDetail("HTTP " + strconv.Itoa(status) + ": " + backendMessage(raw))
}

// backendMessage extracts {"error": ...} or {"message": ...} from an error
// body, falling back to the truncated raw text.
func backendMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return strings.TrimSpace(string(raw))
}

// backoff is exponential with up to 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin << uint(attempt-1)
	if d <= 0 || d > c.retryWaitMax {
		d = c.retryWaitMax
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

// retryAfter parses delta-seconds or an HTTP date, capped at retryAfterCap.
func (c *Client) retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	}
	if d < 0 {
		d = 0
	}
	if d > c.retryAfterCap {
		d = c.retryAfterCap
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

//Personal.AI order the ending
