// Package probe runs the advisory connection tests of the reference
// gateway. Every outbound connection goes through a security.TargetGuard.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"vectorportal/internal/adapter/catalog"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/tracer"
	"vectorportal/internal/security"
)

// NoLiveCheck is the result message for providers without a probe.
const NoLiveCheck = "Configuration is valid. This provider has no live connection check."

const defaultTimeout = 10 * time.Second

// Prober runs connection probes described by the catalog.
type Prober struct {
	guard     security.TargetGuard
	http      *http.Client
	aws       AWSVerifier
	lookupSRV func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithAWSVerifier replaces the STS-backed AWS check.
func WithAWSVerifier(v AWSVerifier) Option {
	return func(p *Prober) { p.aws = v }
}

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a Prober that dials through guard.
func New(guard security.TargetGuard, logger *slog.Logger, opts ...Option) *Prober {
	p := &Prober{
		guard:     guard,
		timeout:   defaultTimeout,
		logger:    logger,
		lookupSRV: net.DefaultResolver.LookupSRV,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.http = &http.Client{
		Transport: guard.Transport(),
		Timeout:   p.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	if p.aws == nil {
		p.aws = STSVerifier{HTTPClient: p.http}
	}
	return p
}

// Run probes a provider with the given config. Failures are reported in
// the result, never as an error.
func (p *Prober) Run(ctx context.Context, spec catalog.Probe, authType string, cfg domain.Values) domain.TestResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ctx, span := tracer.StartSpan(ctx, "probe.run",
		trace.WithAttributes(
			tracer.StringAttr("probe.kind", spec.Kind),
			tracer.StringAttr("probe.auth_type", authType),
		),
	)

	var msg string
	var err error
	switch spec.Kind {
	case catalog.ProbeNone:
		msg = NoLiveCheck
	case catalog.ProbeTCP:
		msg, err = p.tcp(ctx, spec, cfg)
	case catalog.ProbeURI:
		msg, err = p.uri(ctx, spec, cfg)
	case catalog.ProbeHTTP:
		msg, err = p.httpGet(ctx, spec, cfg)
	case catalog.ProbeRedis:
		msg, err = p.redis(ctx, spec, cfg)
	case catalog.ProbeAWS:
		msg, err = p.awsIdentity(ctx, authType, cfg)
	default:
		err = fmt.Errorf("%w: unknown probe kind %q", domain.ErrInvalidInput, spec.Kind)
	}
	tracer.End(span, err)

	if err != nil {
		p.logger.Info("connection probe failed", "kind", spec.Kind, "error", err, "code", domain.ErrorCodeOf(err))
		return domain.TestResult{Success: false, Message: failureMessage(err)}
	}
	p.logger.Info("connection probe succeeded", "kind", spec.Kind)
	return domain.TestResult{Success: true, Message: msg}
}

// failureMessage turns a probe error into the text shown to the user.
func failureMessage(err error) string {
	var de *domain.DomainError
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Connection timed out"
	case errors.As(err, &de) && de.Detail != "":
		return de.Detail
	default:
		return err.Error()
	}
}

// probeError wraps a probe failure with a user-facing detail.
func probeError(op string, err error, detail string) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.NewSubSystemError("probe", op, domain.ErrTimeout, detail+": timed out")
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.NewSubSystemError("probe", op, domain.ErrProviderError, fmt.Sprintf("%s: %v", detail, err))
}

func str(cfg domain.Values, name string) string {
	if name == "" {
		return ""
	}
	s, _ := cfg[name].(string)
	return strings.TrimSpace(s)
}

func port(cfg domain.Values, name string, fallback int) int {
	switch v := cfg[name].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func flag(cfg domain.Values, name string) bool {
	b, _ := cfg[name].(bool)
	return b
}

// expand replaces {field} references with config values.
func expand(tmpl string, cfg domain.Values) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(tmpl, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(tmpl[start:], '}')
		if end < 0 {
			break
		}
		b.WriteString(tmpl[:start])
		b.WriteString(str(cfg, tmpl[start+1:start+end]))
		tmpl = tmpl[start+end+1:]
	}
	b.WriteString(tmpl)
	return b.String()
}
