package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vectorportal/internal/domain"
)

const defaultEffectTimeout = 30 * time.Second

// Runner executes effects against the Schema Provider Gateway. Every
// failure is converted into a result event; Run never returns an error.
type Runner struct {
	gateway domain.SchemaGateway
	logger  *slog.Logger
	timeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithEffectTimeout bounds each gateway call.
func WithEffectTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner creates a Runner for gw.
func NewRunner(gw domain.SchemaGateway, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{gateway: gw, logger: logger, timeout: defaultEffectTimeout}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunAll executes the effects of one transition in slice order, each one
// finishing before the next is issued. Entering the configure step emits the
// schema load ahead of the credential load, so the schema request always
// goes out first.
func (r *Runner) RunAll(ctx context.Context, effects []Effect) []Event {
	events := make([]Event, len(effects))
	for i, eff := range effects {
		events[i] = r.Run(ctx, eff)
	}
	return events
}

// Run executes a single effect and returns its result event.
func (r *Runner) Run(ctx context.Context, eff Effect) Event {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	switch e := eff.(type) {
	case LoadProvidersEffect:
		var cats []domain.ProviderCategory
		var err error
		if e.Flow == FlowVectorStore {
			cats, err = r.gateway.VectorStoreCategories(ctx)
		} else {
			cats, err = r.gateway.CredentialProviders(ctx)
		}
		r.logLoad("providers", e.Flow.String(), err)
		return ProvidersLoaded{Categories: cats, Err: err}

	case LoadAuthTypesEffect:
		types, err := r.gateway.AuthTypes(ctx, e.ProviderType)
		r.logLoad("auth types", e.ProviderType, err)
		return AuthTypesLoaded{Generation: e.Generation, ProviderType: e.ProviderType, AuthTypes: types, Err: err}

	case LoadSchemaEffect:
		var schema domain.Schema
		var err error
		if e.Flow == FlowVectorStore {
			schema, err = r.gateway.VectorStoreSchema(ctx, e.ProviderType)
		} else {
			schema, err = r.gateway.CredentialSchema(ctx, e.ProviderType, e.AuthType)
		}
		r.logLoad("schema", e.ProviderType, err)
		return SchemaLoaded{Generation: e.Generation, ProviderType: e.ProviderType, AuthType: e.AuthType, Schema: schema, Err: err}

	case LoadCredentialsEffect:
		creds, err := r.gateway.CredentialsFor(ctx, e.ProviderType)
		r.logLoad("credentials", e.ProviderType, err)
		return CredentialsLoaded{Generation: e.Generation, ProviderType: e.ProviderType, Credentials: creds, Err: err}

	case TestConnectionEffect:
		return TestCompleted{Token: e.Token, Result: r.test(ctx, e)}

	case SubmitEffect:
		return SubmitCompleted{Result: r.submit(ctx, e)}

	default:
		r.logger.Error("unknown wizard effect", "type", fmt.Sprintf("%T", eff))
		return nil
	}
}

func (r *Runner) test(ctx context.Context, e TestConnectionEffect) domain.TestResult {
	var res domain.TestResult
	var err error
	if e.Flow == FlowVectorStore {
		res, err = r.gateway.TestConnection(ctx, e.ProviderType, e.Config)
	} else {
		res, err = r.gateway.TestCredential(ctx, e.ProviderType, e.AuthType, e.Config)
	}
	if err != nil {
		r.logger.Warn("connection test failed", "provider", e.ProviderType, "error", err)
		msg := err.Error()
		if msg == "" {
			msg = FallbackTestFailure
		}
		return domain.TestResult{Success: false, Message: msg}
	}
	if !res.Success && res.Message == "" {
		res.Message = FallbackTestFailure
	}
	r.logger.Info("connection test finished", "provider", e.ProviderType, "success", res.Success)
	return res
}

func (r *Runner) submit(ctx context.Context, e SubmitEffect) domain.CreateResult {
	var res domain.CreateResult
	var err error
	switch {
	case e.VectorStore != nil:
		res, err = r.gateway.CreateVectorStore(ctx, *e.VectorStore)
	case e.Credential != nil:
		res, err = r.gateway.CreateCredential(ctx, *e.Credential)
	default:
		err = fmt.Errorf("%w: submit without payload", domain.ErrInvalidInput)
	}
	if err != nil {
		r.logger.Error("create failed", "flow", e.Flow.String(), "error", err, "code", domain.ErrorCodeOf(err))
		return domain.CreateResult{Success: false, Message: FallbackFailure(e.Flow)}
	}
	if !res.Success && res.Message == "" {
		res.Message = FallbackFailure(e.Flow)
	}
	r.logger.Info("create finished", "flow", e.Flow.String(), "success", res.Success, "id", res.ID)
	return res
}

func (r *Runner) logLoad(what, key string, err error) {
	if err != nil {
		r.logger.Warn("wizard load failed", "what", what, "key", key, "error", err, "code", domain.ErrorCodeOf(err))
		return
	}
	r.logger.Debug("wizard load finished", "what", what, "key", key)
}
