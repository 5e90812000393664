// Package gatewayclient talks to a Schema Provider Gateway over HTTP/JSON.
package gatewayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/infra/tracer"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32 = 5
	defaultCBTimeout            = 30 * time.Second
	defaultCBInterval           = 60 * time.Second
)

// otherCategory collects providers that declare no category.
const otherCategory = "Other"

// Client implements domain.SchemaGateway. Every call is throttled by a
// token bucket and guarded by a circuit breaker that only trips on
// transport failures and 5xx answers.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the gateway at cfg.URL.
func New(cfg config.GatewayConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: gateway url %q", domain.ErrInvalidInput, cfg.URL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		token:     cfg.Token,
		userAgent: "vectorportal",
		http: &http.Client{
			Transport: NewPooledTransport(0, cfg.Timeout),
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	c.breaker = newBreaker("gateway:"+u.Host, cfg.Breaker, logger)

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func newBreaker(name string, cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return !tripsBreaker(err)
		},
	})
}

// BreakerState returns the circuit breaker state for diagnostics.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// BaseURL returns the gateway root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) execute(ctx context.Context, method, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimit, err)
		}
	}
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)
	}
	return data, err
}

type enveloped interface {
	Outcome() gatewayapi.Envelope
}

// call performs one traced request and decodes the response into T.
func call[T enveloped](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	var out T
	ctx, span := tracer.StartSpan(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(tracer.StringAttr("http.method", method), tracer.StringAttr("http.path", path))

	data, err := c.execute(ctx, method, path, body)
	if err == nil {
		if jerr := json.Unmarshal(data, &out); jerr != nil {
			err = fmt.Errorf("%w: decode %s response: %v", domain.ErrProviderError, op, jerr)
		}
	}
	tracer.End(span, err)
	if err != nil {
		c.logger.Debug("gateway call failed", "op", op, "path", path, "error", err, "code", domain.ErrorCodeOf(err))
		return out, domain.WrapOp("gateway."+op, err)
	}
	return out, nil
}

// load runs a read call and requires success:true. Failures wrap
// domain.ErrLoadFailed.
func load[T enveloped](ctx context.Context, c *Client, op, path string) (T, error) {
	out, err := call[T](ctx, c, op, http.MethodGet, path, nil)
	if err == nil {
		err = checkEnvelope(op, out.Outcome())
	}
	if err != nil {
		return out, fmt.Errorf("%w: %w", domain.ErrLoadFailed, err)
	}
	return out, nil
}

func checkEnvelope(op string, env gatewayapi.Envelope) error {
	if env.Success {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = "response not marked successful"
	}
	return domain.WrapOp("gateway."+op, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, msg))
}

// CredentialProviders lists credential providers grouped by category in
// first-seen order.
func (c *Client) CredentialProviders(ctx context.Context) ([]domain.ProviderCategory, error) {
	out, err := load[gatewayapi.ProvidersResponse](ctx, c, "CredentialProviders", gatewayapi.CredentialProvidersPath())
	if err != nil {
		return nil, err
	}
	return groupByCategory(out.Providers), nil
}

// AuthTypes lists the auth types of a credential provider.
func (c *Client) AuthTypes(ctx context.Context, providerType string) ([]domain.AuthType, error) {
	out, err := load[gatewayapi.AuthTypesResponse](ctx, c, "AuthTypes", gatewayapi.AuthTypesPath(providerType))
	if err != nil {
		return nil, err
	}
	return out.AuthTypes, nil
}

// CredentialSchema fetches the field schema of a provider/auth-type pair.
func (c *Client) CredentialSchema(ctx context.Context, providerType, authType string) (domain.Schema, error) {
	return c.schema(ctx, "CredentialSchema", gatewayapi.CredentialSchemaPath(providerType, authType))
}

// VectorStoreSchema fetches the field schema of a vector-store provider.
func (c *Client) VectorStoreSchema(ctx context.Context, providerType string) (domain.Schema, error) {
	return c.schema(ctx, "VectorStoreSchema", gatewayapi.VectorStoreSchemaPath(providerType))
}

func (c *Client) schema(ctx context.Context, op, path string) (domain.Schema, error) {
	out, err := call[gatewayapi.SchemaResponse](ctx, c, op, http.MethodGet, path, nil)
	if err != nil {
		return domain.Schema{}, fmt.Errorf("%w: %w", domain.ErrLoadFailed, err)
	}
	if out.ComingSoon {
		return domain.Schema{ComingSoon: true, Message: out.Message}, nil
	}
	if err := checkEnvelope(op, out.Envelope); err != nil {
		return domain.Schema{}, fmt.Errorf("%w: %w", domain.ErrLoadFailed, err)
	}
	fields, err := domain.ParseFields(out.Schema.Fields)
	if err == nil {
		err = domain.CheckSchema(fields)
	}
	if err != nil {
		return domain.Schema{}, fmt.Errorf("%w: %w", domain.ErrLoadFailed, domain.WrapOp("gateway."+op, err))
	}
	return domain.Schema{Fields: fields, Message: out.Message}, nil
}

// ListCredentials lists stored credentials, optionally filtered by
// credential provider type.
func (c *Client) ListCredentials(ctx context.Context, providerType string) ([]domain.CredentialSummary, error) {
	out, err := load[gatewayapi.CredentialsResponse](ctx, c, "ListCredentials", gatewayapi.ListCredentialsPath(providerType))
	if err != nil {
		return nil, err
	}
	return nonNil(out.Credentials), nil
}

// CredentialsFor lists credentials usable by a vector-store provider.
func (c *Client) CredentialsFor(ctx context.Context, vectorStoreType string) ([]domain.CredentialSummary, error) {
	out, err := load[gatewayapi.CredentialsResponse](ctx, c, "CredentialsFor", gatewayapi.CredentialsForPath(vectorStoreType))
	if err != nil {
		return nil, err
	}
	return nonNil(out.Credentials), nil
}

// VectorStoreCategories lists vector-store providers by category.
func (c *Client) VectorStoreCategories(ctx context.Context) ([]domain.ProviderCategory, error) {
	out, err := load[gatewayapi.CategoriesResponse](ctx, c, "VectorStoreCategories", gatewayapi.CategoriesPath())
	if err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// TestCredential probes a credential config. A business rejection is a
// failed result, not an error.
func (c *Client) TestCredential(ctx context.Context, providerType, authType string, cfg domain.Values) (domain.TestResult, error) {
	return c.test(ctx, "TestCredential", gatewayapi.TestCredentialPath(), gatewayapi.TestCredentialRequest{
		ProviderType: providerType,
		AuthType:     authType,
		Config:       cfg,
	})
}

// TestConnection probes a vector-store config.
func (c *Client) TestConnection(ctx context.Context, providerType string, cfg domain.Values) (domain.TestResult, error) {
	return c.test(ctx, "TestConnection", gatewayapi.TestConnectionPath(), gatewayapi.TestConnectionRequest{
		ProviderType: providerType,
		Config:       cfg,
	})
}

func (c *Client) test(ctx context.Context, op, path string, body any) (domain.TestResult, error) {
	out, err := call[gatewayapi.Envelope](ctx, c, op, http.MethodPost, path, body)
	if env, ok := rejection(err); ok {
		return domain.TestResult{Success: false, Message: env.Message}, nil
	}
	if err != nil {
		return domain.TestResult{}, err
	}
	return domain.TestResult{Success: out.Success, Message: out.Message}, nil
}

// CreateCredential posts a credential.
func (c *Client) CreateCredential(ctx context.Context, p domain.CredentialPayload) (domain.CreateResult, error) {
	return c.create(ctx, "CreateCredential", gatewayapi.CreateCredentialPath(), p)
}

// CreateVectorStore posts a vector store.
func (c *Client) CreateVectorStore(ctx context.Context, p domain.VectorStorePayload) (domain.CreateResult, error) {
	return c.create(ctx, "CreateVectorStore", gatewayapi.CreateVectorStorePath(), p)
}

func (c *Client) create(ctx context.Context, op, path string, body any) (domain.CreateResult, error) {
	out, err := call[gatewayapi.CreateResponse](ctx, c, op, http.MethodPost, path, body)
	if env, ok := rejection(err); ok {
		return domain.CreateResult{Success: false, Message: env.Message}, nil
	}
	if err != nil {
		return domain.CreateResult{}, err
	}
	res := domain.CreateResult{Success: out.Success, Message: out.Message, ID: out.VectorStoreID}
	if out.CredentialID != 0 {
		res.ID = strconv.FormatInt(out.CredentialID, 10)
	}
	return res, nil
}

// Credential fetches one stored credential. Secret values come back masked.
func (c *Client) Credential(ctx context.Context, id int64) (gatewayapi.CredentialDetail, error) {
	out, err := call[gatewayapi.CredentialResponse](ctx, c, "Credential", http.MethodGet, gatewayapi.CredentialPath(id), nil)
	if err == nil {
		err = checkEnvelope("Credential", out.Envelope)
	}
	return out.Credential, err
}

// VectorStores lists stored vector stores.
func (c *Client) VectorStores(ctx context.Context) ([]gatewayapi.VectorStoreDetail, error) {
	out, err := call[gatewayapi.VectorStoresResponse](ctx, c, "VectorStores", http.MethodGet, gatewayapi.CreateVectorStorePath(), nil)
	if err == nil {
		err = checkEnvelope("VectorStores", out.Envelope)
	}
	return out.VectorStores, err
}

// Status returns the gateway inventory summary.
func (c *Client) Status(ctx context.Context) (gatewayapi.StatusResponse, error) {
	out, err := call[gatewayapi.StatusResponse](ctx, c, "Status", http.MethodGet, gatewayapi.StatusPath, nil)
	if err == nil {
		err = checkEnvelope("Status", out.Envelope)
	}
	return out, err
}

// Health checks the gateway and returns its version.
func (c *Client) Health(ctx context.Context) (string, error) {
	out, err := call[gatewayapi.HealthResponse](ctx, c, "Health", http.MethodGet, gatewayapi.HealthPath, nil)
	if err != nil {
		return "", err
	}
	if err := checkEnvelope("Health", out.Envelope); err != nil {
		return "", err
	}
	return out.Version, nil
}

func groupByCategory(providers []domain.ProviderDescriptor) []domain.ProviderCategory {
	index := make(map[string]int)
	var cats []domain.ProviderCategory
	for _, p := range providers {
		name := p.Category
		if name == "" {
			name = otherCategory
		}
		i, ok := index[name]
		if !ok {
			i = len(cats)
			index[name] = i
			cats = append(cats, domain.ProviderCategory{Name: name})
		}
		cats[i].Providers = append(cats[i].Providers, p)
	}
	return cats
}

func nonNil(c []domain.CredentialSummary) []domain.CredentialSummary {
	if c == nil {
		return []domain.CredentialSummary{}
	}
	return c
}

var _ domain.SchemaGateway = (*Client)(nil)
