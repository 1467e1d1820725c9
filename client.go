package mailactivate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mailactivate/client-go/internal/api"
)

// Version is the SDK version reported in the default User-Agent.
const Version = "0.3.0"

// Client talks to the SMS-Activate email activation API.
// A Client holds no mutable state after New and is safe for concurrent use.
type Client struct {
	apiClient *api.Client
	logger    *zap.Logger
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := &clientConfig{
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		retryDelay: defaultRetryDelay,
		userAgent:  "mailactivate-go/" + Version,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	apiClient, err := buildAPIClient(apiKey, cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		apiClient: apiClient,
		logger:    cfg.logger,
	}, nil
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(apiKey string, cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
		api.WithUserAgent(cfg.userAgent),
		api.WithLogger(cfg.logger),
		api.WithTracerProvider(cfg.tracerProvider),
		api.WithMeterProvider(cfg.meterProvider),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries > 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if cfg.retryDelay > 0 {
		apiOpts = append(apiOpts, api.WithRetryDelay(cfg.retryDelay))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}

	apiClient, err := api.New(apiKey, apiOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.httpClient != nil {
		apiClient.SetHTTPClient(cfg.httpClient)
	}

	return apiClient, nil
}

// BaseURL returns the API endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.apiClient.BaseURL()
}

// ListDomains returns the domains that can receive mail from site, zones
// first and then popular domains, each in the order the service lists them.
func (c *Client) ListDomains(ctx context.Context, site string) ([]Domain, error) {
	resp, err := c.apiClient.GetDomains(ctx, site)
	if err != nil {
		return nil, wrapError(err)
	}

	domains := make([]Domain, 0, len(resp.Zones)+len(resp.Popular))
	for _, d := range resp.Zones {
		domains = append(domains, newDomain(d, CategoryZone))
	}
	for _, d := range resp.Popular {
		domains = append(domains, newDomain(d, CategoryPopular))
	}
	return domains, nil
}

func newDomain(dto api.DomainDTO, category DomainCategory) Domain {
	d := NewDomain(dto.Name, category)
	if dto.Cost != nil {
		d.Cost = float64(*dto.Cost)
	}
	if dto.Count != nil {
		d.Count = int(*dto.Count)
	}
	return d
}

// PurchaseMailbox buys a mailbox on domain for receiving mail from site.
// The returned activation carries only ID and Email.
func (c *Client) PurchaseMailbox(ctx context.Context, site string, domain Domain) (*Activation, error) {
	dto, err := c.apiClient.BuyMailActivation(ctx, site, int(domain.Category), domain.Name)
	if err != nil {
		return nil, wrapError(err)
	}

	a := newActivation(dto)
	c.logger.Info("mailbox purchased",
		zap.Int64("id", a.ID),
		zap.String("email", a.Email),
		zap.String("site", site),
	)
	return a, nil
}

// ListActivations returns one page of past activations in the order the
// service lists them.
func (c *Client) ListActivations(ctx context.Context, opts ...HistoryOption) ([]*Activation, error) {
	cfg := &historyConfig{
		page:    defaultPage,
		perPage: defaultPerPage,
		sort:    SortDesc,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	resp, err := c.apiClient.GetMailHistory(ctx, api.HistoryParams{
		Page:    cfg.page,
		PerPage: cfg.perPage,
		Search:  cfg.search,
		Sort:    cfg.sort,
	})
	if err != nil {
		return nil, wrapError(err)
	}

	activations := make([]*Activation, 0, len(resp.List))
	for _, entry := range resp.List {
		activations = append(activations, newActivationFromHistory(entry))
	}
	return activations, nil
}

// FetchMessage polls until a message arrives for a, stores it in
// a.FullMessage and returns it.
//
// It checks at most attempts times and sleeps period between checks. When no
// message arrived after the last check it returns a *TimeoutError. Any
// service or network error stops polling and is returned as is.
func (c *Client) FetchMessage(ctx context.Context, a *Activation, opts ...FetchOption) (msg string, err error) {
	if a == nil {
		return "", ErrNilActivation
	}

	cfg := &fetchConfig{
		period:   defaultPollPeriod,
		attempts: defaultPollAttempt,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.attempts < 1 {
		return "", fmt.Errorf("attempts must be at least 1, got %d", cfg.attempts)
	}
	if cfg.period < 0 {
		return "", fmt.Errorf("poll period must not be negative, got %v", cfg.period)
	}

	ctx, end := c.apiClient.StartSpan(ctx, "mailactivate.FetchMessage")
	defer func() { end(err) }()

	for attempt := 1; attempt <= cfg.attempts; attempt++ {
		result, err := c.apiClient.CheckMailActivation(ctx, a.ID)
		if err != nil {
			return "", wrapError(err)
		}
		if result.Received {
			a.FullMessage = result.FullMessage
			c.logger.Info("message received",
				zap.Int64("id", a.ID),
				zap.Int("attempt", attempt),
			)
			return a.FullMessage, nil
		}

		if attempt == cfg.attempts {
			break
		}
		c.logger.Debug("message not received yet",
			zap.Int64("id", a.ID),
			zap.Int("attempt", attempt),
			zap.Duration("period", cfg.period),
		)
		if err := sleep(ctx, cfg.period); err != nil {
			return "", err
		}
	}

	return "", &TimeoutError{
		Operation: "fetch message",
		Attempts:  cfg.attempts,
		Period:    cfg.period,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reactivate reorders the mailbox of a. On success a keeps its identity but
// takes the new ID and Email; Details and FullMessage are cleared.
func (c *Client) Reactivate(ctx context.Context, a *Activation) (bool, error) {
	if a == nil {
		return false, ErrNilActivation
	}

	dto, err := c.apiClient.ReorderMailActivation(ctx, a.ID)
	if err != nil {
		return false, wrapError(err)
	}

	c.logger.Info("mailbox reactivated",
		zap.Int64("old_id", a.ID),
		zap.Int64("id", int64(dto.ID)),
		zap.String("email", dto.Email),
	)
	a.reset(int64(dto.ID), dto.Email)
	return true, nil
}

// Cancel cancels the mailbox of a and reports whether the service confirmed
// it. The confirmation is the truthiness of the response value: false, null,
// zero, "" and empty arrays or objects count as not confirmed, any other
// string does. a is not modified.
func (c *Client) Cancel(ctx context.Context, a *Activation) (bool, error) {
	if a == nil {
		return false, ErrNilActivation
	}

	payload, err := c.apiClient.CancelMailActivation(ctx, a.ID)
	if err != nil {
		return false, wrapError(err)
	}

	ok := api.Truthy(payload)
	c.logger.Info("mailbox cancelled",
		zap.Int64("id", a.ID),
		zap.Bool("confirmed", ok),
	)
	return ok, nil
}
