package mailactivate

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Sort orders for ListActivations.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

const (
	defaultBaseURL     = "https://api.sms-activate.org/stubs/handler_api.php"
	defaultTimeout     = 30 * time.Second
	defaultRetryDelay  = time.Second
	defaultPollPeriod  = 5 * time.Second
	defaultPollAttempt = 10
	defaultPage        = 1
	defaultPerPage     = 10
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	retries        int
	retryDelay     time.Duration
	retryOn        []int
	userAgent      string
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// fetchConfig holds configuration for waiting on a message.
type fetchConfig struct {
	period   time.Duration
	attempts int
}

// historyConfig holds the activation history query.
type historyConfig struct {
	page    int
	perPage int
	search  string
	sort    string
}

// Option configures the client.
type Option func(*clientConfig)

// FetchOption configures FetchMessage.
type FetchOption func(*fetchConfig)

// HistoryOption configures ListActivations.
type HistoryOption func(*historyConfig)

// WithBaseURL sets the API endpoint.
// Default: https://api.sms-activate.org/stubs/handler_api.php
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client. Its own timeout applies and
// WithTimeout is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout for a single request.
// Default: 30 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of transport retries for failed requests.
// Default: 0
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryDelay sets the fixed delay between transport retries.
// Default: 1 second
func WithRetryDelay(delay time.Duration) Option {
	return func(c *clientConfig) {
		c.retryDelay = delay
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *clientConfig) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger. Requests are logged at debug level.
// Default: no-op logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// Default: the global provider
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *clientConfig) {
		c.meterProvider = mp
	}
}

// WithPollPeriod sets the wait between message checks.
// Default: 5 seconds
func WithPollPeriod(period time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.period = period
	}
}

// WithAttempts sets the maximum number of message checks.
// Default: 10
func WithAttempts(attempts int) FetchOption {
	return func(c *fetchConfig) {
		c.attempts = attempts
	}
}

// WithPage sets the history page. Default: 1
func WithPage(page int) HistoryOption {
	return func(c *historyConfig) {
		c.page = page
	}
}

// WithPerPage sets the history page size. Default: 10
func WithPerPage(perPage int) HistoryOption {
	return func(c *historyConfig) {
		c.perPage = perPage
	}
}

// WithSearch filters the history by mailbox email.
func WithSearch(email string) HistoryOption {
	return func(c *historyConfig) {
		c.search = email
	}
}

// WithSort sets the history order by id, SortAsc or SortDesc. The value is
// sent to the service unchecked. Default: SortDesc
func WithSort(sort string) HistoryOption {
	return func(c *historyConfig) {
		c.sort = sort
	}
}
