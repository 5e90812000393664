package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"vectorportal/internal/adapter/catalog"
	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/adapter/store"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/middleware"
	"vectorportal/internal/usecase/wizard"
)

// Repository persists credentials and vector stores.
type Repository interface {
	CreateCredential(ctx context.Context, p domain.CredentialPayload, secrets []string) (store.Credential, error)
	ListCredentials(ctx context.Context, providerTypes ...string) ([]domain.CredentialSummary, error)
	GetCredential(ctx context.Context, id int64) (store.Credential, error)
	CreateVectorStore(ctx context.Context, p domain.VectorStorePayload, secrets []string) (store.VectorStore, error)
	ListVectorStores(ctx context.Context) ([]store.VectorStore, error)
	Encrypted() bool
	Ping(ctx context.Context) error
}

// Prober runs a connection test and reports the outcome.
type Prober interface {
	Run(ctx context.Context, spec catalog.Probe, authType string, cfg domain.Values) domain.TestResult
}

// Result messages returned to wizard clients.
const (
	MsgCredentialCreated   = "Credential created successfully"
	MsgVectorStoreCreated  = "Vector store created successfully"
	MsgDuplicateCredential = "A credential with this name already exists"
	MsgDuplicateStore      = "A vector store with this name already exists"
)

// ServiceDeps holds the collaborators of a Service.
type ServiceDeps struct {
	Catalog *catalog.Catalog
	Store   Repository
	Prober  Prober
	Bus     domain.EventBus // can be nil
	Logger  *slog.Logger
}

// Service implements the gateway operations independently of HTTP.
type Service struct {
	deps ServiceDeps
}

// NewService creates a Service.
func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// CredentialProviders lists credential providers with their auth types.
func (s *Service) CredentialProviders() []domain.ProviderDescriptor {
	return s.deps.Catalog.CredentialProviders()
}

// AuthTypes lists the auth types of a credential provider.
func (s *Service) AuthTypes(providerType string) ([]domain.AuthType, error) {
	return s.deps.Catalog.AuthTypes(providerType)
}

// CredentialSchema returns the field schema of a provider/auth-type pair.
func (s *Service) CredentialSchema(providerType, authType string) (domain.Schema, error) {
	return s.deps.Catalog.CredentialSchema(providerType, authType)
}

// VectorStoreCategories lists vector-store providers by category.
func (s *Service) VectorStoreCategories() []domain.ProviderCategory {
	return s.deps.Catalog.VectorStoreCategories()
}

// VectorStoreSchema returns the field schema of a vector-store provider.
func (s *Service) VectorStoreSchema(providerType string) (domain.Schema, error) {
	return s.deps.Catalog.VectorStoreSchema(providerType)
}

// ListCredentials lists stored credentials, optionally by provider type.
func (s *Service) ListCredentials(ctx context.Context, providerType string) ([]domain.CredentialSummary, error) {
	if providerType == "" {
		return s.deps.Store.ListCredentials(ctx)
	}
	return s.deps.Store.ListCredentials(ctx, providerType)
}

// CredentialsFor lists the credentials a vector-store provider can use.
func (s *Service) CredentialsFor(ctx context.Context, vectorStoreType string) ([]domain.CredentialSummary, error) {
	if _, ok := s.deps.Catalog.VectorStore(vectorStoreType); !ok {
		return nil, fmt.Errorf("%w: vector store %q", domain.ErrNotFound, vectorStoreType)
	}
	return s.deps.Store.ListCredentials(ctx, s.deps.Catalog.CompatibleCredentialTypes(vectorStoreType)...)
}

// Credential returns one stored credential with secrets masked.
func (s *Service) Credential(ctx context.Context, id int64) (store.Credential, error) {
	return s.deps.Store.GetCredential(ctx, id)
}

// VectorStores lists stored vector stores with secrets masked.
func (s *Service) VectorStores(ctx context.Context) ([]store.VectorStore, error) {
	return s.deps.Store.ListVectorStores(ctx)
}

// TestCredential validates a credential config and probes it. Validation
// failures are returned as errors; probe failures are a failed result.
func (s *Service) TestCredential(ctx context.Context, req gatewayapi.TestCredentialRequest) (domain.TestResult, error) {
	cfg, err := s.deps.Catalog.ValidateCredential(req.ProviderType, req.AuthType, req.Config)
	if err != nil {
		return domain.TestResult{}, err
	}
	spec, err := s.deps.Catalog.CredentialProbe(req.ProviderType, req.AuthType)
	if err != nil {
		return domain.TestResult{}, err
	}
	res := s.deps.Prober.Run(ctx, spec, req.AuthType, cfg)
	s.publish(ctx, domain.EventConnectionTested, testedEvent{
		Target:       "credential",
		ProviderType: req.ProviderType,
		AuthType:     req.AuthType,
		Success:      res.Success,
		Message:      res.Message,
	})
	return res, nil
}

// TestConnection validates a vector-store config and probes it.
func (s *Service) TestConnection(ctx context.Context, req gatewayapi.TestConnectionRequest) (domain.TestResult, error) {
	cfg, err := s.deps.Catalog.ValidateVectorStore(req.ProviderType, req.Config)
	if err != nil {
		return domain.TestResult{}, err
	}
	spec, err := s.deps.Catalog.VectorStoreProbe(req.ProviderType)
	if err != nil {
		return domain.TestResult{}, err
	}
	res := s.deps.Prober.Run(ctx, spec, "", cfg)
	s.publish(ctx, domain.EventConnectionTested, testedEvent{
		Target:       "vector_store",
		ProviderType: req.ProviderType,
		Success:      res.Success,
		Message:      res.Message,
	})
	return res, nil
}

// CreateCredential validates and stores a credential. Password-kind values
// are handed to the store as secrets.
func (s *Service) CreateCredential(ctx context.Context, p domain.CredentialPayload) (store.Credential, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" {
		return store.Credential{}, rejectf("gateway.CreateCredential", "Credential name is required")
	}
	cfg, err := s.deps.Catalog.ValidateCredential(p.ProviderType, p.AuthType, p.Config)
	if err != nil {
		return store.Credential{}, err
	}
	schema, err := s.deps.Catalog.CredentialSchema(p.ProviderType, p.AuthType)
	if err != nil {
		return store.Credential{}, err
	}
	p.Config = cfg

	c, err := s.deps.Store.CreateCredential(ctx, p, secretNames(schema.Fields))
	if errors.Is(err, domain.ErrDuplicate) {
		return store.Credential{}, domain.NewSubSystemError("gateway", "gateway.CreateCredential", err, MsgDuplicateCredential)
	}
	if err != nil {
		return store.Credential{}, err
	}

	s.deps.Logger.Info("credential created",
		"credential_id", c.ID,
		"provider", c.ProviderType,
		"auth_type", c.AuthType,
		"config", wizard.MaskConfig(schema.Fields, cfg),
	)
	s.publish(ctx, domain.EventCredentialCreated, c.Summary())
	return c, nil
}

// CreateVectorStore validates and stores a vector store. The credential
// must exist and be of a type the provider accepts.
func (s *Service) CreateVectorStore(ctx context.Context, p domain.VectorStorePayload) (store.VectorStore, error) {
	const op = "gateway.CreateVectorStore"
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Description = strings.TrimSpace(p.Description)
	if p.DisplayName == "" {
		return store.VectorStore{}, rejectf(op, "Display name is required")
	}
	if p.CredentialID <= 0 {
		return store.VectorStore{}, rejectf(op, "A credential is required")
	}
	cfg, err := s.deps.Catalog.ValidateVectorStore(p.ProviderType, p.Config)
	if err != nil {
		return store.VectorStore{}, err
	}

	cred, err := s.deps.Store.GetCredential(ctx, p.CredentialID)
	if errors.Is(err, domain.ErrNotFound) {
		return store.VectorStore{}, rejectf(op, "Credential %d does not exist", p.CredentialID)
	}
	if err != nil {
		return store.VectorStore{}, err
	}
	compatible := s.deps.Catalog.CompatibleCredentialTypes(p.ProviderType)
	if !slices.Contains(compatible, cred.ProviderType) {
		return store.VectorStore{}, rejectf(op, "Credential %q (%s) cannot be used with this vector store", cred.Name, cred.ProviderType)
	}

	schema, err := s.deps.Catalog.VectorStoreSchema(p.ProviderType)
	if err != nil {
		return store.VectorStore{}, err
	}
	p.Config = cfg

	v, err := s.deps.Store.CreateVectorStore(ctx, p, secretNames(schema.Fields))
	if errors.Is(err, domain.ErrDuplicate) {
		return store.VectorStore{}, domain.NewSubSystemError("gateway", op, err, MsgDuplicateStore)
	}
	if err != nil {
		return store.VectorStore{}, err
	}

	s.deps.Logger.Info("vector store created",
		"vector_store_id", v.ID,
		"provider", v.ProviderType,
		"credential_id", v.CredentialID,
		"config", wizard.MaskConfig(schema.Fields, cfg),
	)
	s.publish(ctx, domain.EventVectorStoreCreated, createdStoreEvent{
		ID:           v.ID,
		DisplayName:  v.Name,
		ProviderType: v.ProviderType,
		CredentialID: v.CredentialID,
	})
	return v, nil
}

type testedEvent struct {
	Target       string `json:"target"`
	ProviderType string `json:"provider_type"`
	AuthType     string `json:"auth_type,omitempty"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
}

type createdStoreEvent struct {
	ID           string `json:"vector_store_id"`
	DisplayName  string `json:"display_name"`
	ProviderType string `json:"provider_type"`
	CredentialID int64  `json:"credential_id"`
}

func (s *Service) publish(ctx context.Context, t domain.EventType, payload any) {
	if s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(ctx, domain.NewEvent(t, middleware.RequestID(ctx), payload))
}

func rejectf(op, format string, args ...any) error {
	return domain.NewSubSystemError("gateway", op, domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func secretNames(fields []domain.FieldSpec) []string {
	var out []string
	for _, f := range fields {
		if f.IsSecret() {
			out = append(out, f.Name)
		}
	}
	return out
}
