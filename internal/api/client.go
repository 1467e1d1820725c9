package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mailactivate/client-go/internal/apierrors"
)

const (
	// DefaultBaseURL is the SMS-Activate handler endpoint.
	DefaultBaseURL = "https://api.sms-activate.org/stubs/handler_api.php"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "mailactivate-go"
)

// Client is the HTTP API client.
type Client struct {
	baseURL        string
	apiKey         string
	userAgent      string
	httpClient     *http.Client
	retry          *RetryConfig
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	telemetry      *telemetry
}

// Option configures the API client.
type Option func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetries sets the number of transport retries.
func WithRetries(retries int) Option {
	return func(c *Client) {
		c.retry.MaxRetries = retries
	}
}

// WithRetryDelay sets the fixed delay between transport retries.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retry.Delay = delay
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
func WithRetryOn(statusCodes []int) Option {
	return func(c *Client) {
		set := make(map[int]struct{}, len(statusCodes))
		for _, code := range statusCodes {
			set[code] = struct{}{}
		}
		c.retry.RetryableOn = func(statusCode int) bool {
			_, ok := set[statusCode]
			return ok
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider sets the tracer provider used for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider used for request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// New creates a new API client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retry:          DefaultRetryConfig(),
		logger:         zap.NewNop(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	t, err := newTelemetry(c.tracerProvider, c.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	c.telemetry = t

	return c, nil
}

// SetHTTPClient sets a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the client logger.
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// StartSpan starts a span for a multi-request operation. The returned
// function ends the span and records err on it.
func (c *Client) StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	return c.telemetry.startSpan(ctx, name, trace.SpanKindInternal)
}

// Call issues a GET request for the given action and returns the raw value of
// the "response" key of a successful envelope.
func (c *Client) Call(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, end := c.telemetry.startRequestSpan(ctx, action, requestID)

	statusCode, body, err := c.get(ctx, c.requestURL(action, params), requestID)
	var payload json.RawMessage
	if err == nil {
		payload, err = Decode(statusCode, body)
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		svcErr.RequestID = requestID
	}

	elapsed := time.Since(start)
	end(statusCode, err)
	c.telemetry.record(ctx, action, elapsed, err)

	fields := []zap.Field{
		zap.String("action", action),
		zap.Int("status_code", statusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		c.logger.Debug("api request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	c.logger.Debug("api request", fields...)

	return payload, nil
}

// requestURL builds the query string. The API key and action cannot be
// overridden by params.
func (c *Client) requestURL(action string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.apiKey)
	q.Set("action", action)

	u, _ := url.Parse(c.baseURL)
	existing := u.Query()
	for k, vs := range existing {
		if _, ok := q[k]; !ok {
			q[k] = vs
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) get(ctx context.Context, reqURL, requestID string) (int, []byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, nil, ctx.Err()
			}
			if c.retry.ShouldRetryError(attempt) {
				c.logger.Warn("request failed, retrying",
					zap.String("request_id", requestID),
					zap.Int("attempt", attempt+1),
					zap.Error(c.redact(err)),
				)
				if err := c.retry.Wait(ctx); err != nil {
					return 0, nil, err
				}
				continue
			}
			return 0, nil, &NetworkError{Err: c.redact(err), URL: c.baseURL, Attempt: attempt + 1}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, &NetworkError{Err: fmt.Errorf("read response body: %w", err), URL: c.baseURL, Attempt: attempt + 1}
		}

		if c.retry.ShouldRetry(attempt, resp.StatusCode) {
			c.logger.Warn("retryable status, retrying",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt+1),
				zap.Int("status_code", resp.StatusCode),
			)
			if err := c.retry.Wait(ctx); err != nil {
				return 0, nil, err
			}
			continue
		}

		return resp.StatusCode, body, nil
	}
}

// redact replaces the request URL in transport errors, which carries the
// API key, with the bare base URL.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: c.baseURL, Err: urlErr.Err}
	}
	return err
}

// Decode applies the response envelope contract to a raw HTTP response:
// status code first, then JSON well-formedness, then a recognised "error"
// code, then the "status" field. On success it returns the "response" value.
// A null or unrecognised "error" value does not fail an OK response.
func Decode(statusCode int, body []byte) (json.RawMessage, error) {
	if statusCode != http.StatusOK {
		return nil, &ServiceError{StatusCode: statusCode}
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil || env == nil {
		return nil, &ServiceError{StatusCode: statusCode, Body: string(body)}
	}

	status := rawText(env["status"])

	var code string
	if raw := env["error"]; len(raw) > 0 && string(raw) != "null" {
		code = rawText(raw)
	}
	if _, known := apierrors.Lookup(code); known {
		return nil, &ServiceError{StatusCode: statusCode, Code: code, Status: status}
	}

	if status != "OK" {
		return nil, &ServiceError{StatusCode: statusCode, Code: code, Status: status}
	}

	payload, ok := env["response"]
	if !ok {
		return json.RawMessage("null"), nil
	}
	return payload, nil
}

// rawText returns a JSON string value unquoted, or any other value verbatim.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
