package webapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/platform/audit"
	"smileid/pkg/platform/metrics"
	"smileid/pkg/signature"
	"smileid/pkg/validation"
)

const (
	// DefaultMaxAttempts bounds job status polling.
	DefaultMaxAttempts = 20
	// DefaultPollDelay is the wait between job status polls.
	DefaultPollDelay = 2 * time.Second

	userAgent       = "smileid-go/2.0.0"
	tracerName      = "smileid/pkg/webapi"
	maxResponseSize = 10 << 20
)

// SchemaCache stores live validation schemas between calls.
// Get returns sentinel.ErrNotFound or sentinel.ErrExpired on a miss.
type SchemaCache interface {
	Get(ctx context.Context, key string) (validation.Schema, error)
	Set(ctx context.Context, key string, schema validation.Schema) error
}

// Sleeper blocks between job status polls.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client talks to the verification service on behalf of one partner.
// It keeps no per-job state and is safe for concurrent use.
type Client struct {
	signer      *signature.Signer
	serverURL   string
	endpoints   Endpoints
	callbackURL string

	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
	publisher   audit.Publisher
	schemaCache SchemaCache
	sleeper     Sleeper
	tracer      trace.Tracer

	maxAttempts int
	pollDelay   time.Duration
	signerOpts  []signature.Option

	schemaGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithPublisher emits job lifecycle events to p.
func WithPublisher(p audit.Publisher) Option {
	return func(c *Client) {
		c.publisher = p
	}
}

// WithSchemaCache caches live validation schemas. Without it every live
// validation fetches the schema.
func WithSchemaCache(cache SchemaCache) Option {
	return func(c *Client) {
		c.schemaCache = cache
	}
}

// WithSleeper replaces the sleep used between polls.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleeper = s
	}
}

// WithAPIVersion selects the endpoint layout of an API version.
func WithAPIVersion(v domain.APIVersion) Option {
	return func(c *Client) {
		c.endpoints = EndpointsFor(v)
	}
}

// WithEndpoints sets custom endpoint templates.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}

// WithCallbackURL sets the default callback URL for submitted jobs.
func WithCallbackURL(url string) Option {
	return func(c *Client) {
		c.callbackURL = url
	}
}

// WithPollPolicy sets the job status polling budget. Non-positive values keep the defaults.
func WithPollPolicy(maxAttempts int, delay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay > 0 {
			c.pollDelay = delay
		}
	}
}

// WithSignerOptions passes options through to the Signer.
func WithSignerOptions(opts ...signature.Option) Option {
	return func(c *Client) {
		c.signerOpts = append(c.signerOpts, opts...)
	}
}

// New creates a client. partnerID, apiKey and server are required; server is
// "test", "live" (or "0", "1") or a base URL.
func New(partnerID, apiKey, server string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(partnerID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner_id cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "api_key cannot be empty")
	}
	serverURL, err := domain.ResolveServerURL(server)
	if err != nil {
		return nil, err
	}

	c := &Client{
		serverURL:   serverURL,
		endpoints:   EndpointsFor(domain.APIVersionUnversioned),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.Default(),
		sleeper:     timerSleeper{},
		tracer:      otel.Tracer(tracerName),
		maxAttempts: DefaultMaxAttempts,
		pollDelay:   DefaultPollDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	signer, err := signature.NewSigner(partnerID, apiKey, c.signerOpts...)
	if err != nil {
		return nil, err
	}
	c.signer = signer
	return c, nil
}

// ServerURL returns the resolved base URL.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Signer returns the signer used for outbound tokens.
func (c *Client) Signer() *signature.Signer {
	return c.signer
}

func (c *Client) url(template string) string {
	return c.endpoints.Resolve(template, c.serverURL)
}

// emit publishes a job event. Publishing is best effort: failures are logged.
func (c *Client) emit(ctx context.Context, event audit.Event) {
	if c.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.PartnerID = c.signer.PartnerID().String()
	if err := c.publisher.Emit(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "failed to publish job event",
			"action", event.Action,
			"job_id", event.JobID,
			"error", err,
		)
	}
}
