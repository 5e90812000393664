package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"vectorportal/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fptr(f float64) *float64 { return &f }

var (
	awsAuthTypes = []domain.AuthType{
		{Value: "access_key", Label: "Access Key"},
		{Value: "iam_role", Label: "IAM Role"},
	}

	credentialCatalog = []domain.ProviderCategory{
		{Name: "AI Providers", Providers: []domain.ProviderDescriptor{
			{ProviderType: "openai", DisplayName: "OpenAI", Availability: domain.AvailabilityAvailable,
				AuthTypes: []domain.AuthType{{Value: "api_key", Label: "API Key"}}},
		}},
		{Name: "Cloud Providers", Providers: []domain.ProviderDescriptor{
			{ProviderType: "aws", DisplayName: "Amazon Web Services", Availability: domain.AvailabilityAvailable, AuthTypes: awsAuthTypes},
			{ProviderType: "gcp", DisplayName: "Google Cloud", Availability: domain.AvailabilityComingSoon},
		}},
	}

	vectorCatalog = []domain.ProviderCategory{
		{Name: "Managed", Providers: []domain.ProviderDescriptor{
			{ProviderType: "pinecone", DisplayName: "Pinecone", Availability: domain.AvailabilityAvailable},
			{ProviderType: "qdrant", DisplayName: "Qdrant", Availability: domain.AvailabilityBeta},
		}},
		{Name: "Self-hosted", Providers: []domain.ProviderDescriptor{
			{ProviderType: "milvus", DisplayName: "Milvus", Availability: domain.AvailabilityComingSoon},
		}},
	}

	openAIFields = []domain.FieldSpec{
		{Name: "api_key", Label: "API Key", Kind: domain.PasswordKind{}, Required: true},
		{Name: "organization", Label: "Organization", Kind: domain.TextKind{}},
	}

	awsAccessKeyFields = []domain.FieldSpec{
		{Name: "access_key_id", Label: "Access Key ID", Kind: domain.TextKind{}, Required: true},
		{Name: "secret_access_key", Label: "Secret Access Key", Kind: domain.PasswordKind{}, Required: true},
		{Name: "region", Label: "Region", Kind: domain.SelectKind{Options: []domain.SelectOption{
			{Value: "us-east-1", Label: "US East (N. Virginia)"},
			{Value: "eu-west-1", Label: "EU (Ireland)"},
		}}, Default: "us-east-1"},
		{Name: "use_session", Label: "Use Session Token", Kind: domain.CheckboxKind{}, Default: false},
		{Name: "session_token", Label: "Session Token", Kind: domain.PasswordKind{}, Required: true,
			VisibleWhen: map[string]any{"use_session": true}},
	}

	awsRoleFields = []domain.FieldSpec{
		{Name: "role_arn", Label: "Role ARN", Kind: domain.TextKind{}, Required: true},
	}

	pineconeFields = []domain.FieldSpec{
		{Name: "index_name", Label: "Index Name", Kind: domain.TextKind{}, Required: true},
		{Name: "dimension", Label: "Dimension", Kind: domain.NumberKind{Min: fptr(1), Max: fptr(4096)}, Default: float64(1536)},
		{Name: "metric", Label: "Metric", Kind: domain.SelectKind{Options: []domain.SelectOption{
			{Value: "cosine", Label: "Cosine"},
			{Value: "dotproduct", Label: "Dot Product"},
		}}, Default: "cosine"},
		{Name: "namespace", Label: "Namespace", Kind: domain.TextKind{}},
	}

	pineconeCredentials = []domain.CredentialSummary{
		{ID: 7, Name: "prod-pinecone", ProviderType: "pinecone", AuthType: "api_key"},
		{ID: 9, Name: "staging-pinecone", ProviderType: "pinecone", AuthType: "api_key"},
	}
)

// fakeGateway serves the fixtures above and records create and test calls.
type fakeGateway struct {
	mu sync.Mutex

	providersErr error
	schemaErr    error
	testErr      error
	createErr    error
	createResult *domain.CreateResult
	testResult   *domain.TestResult

	schemaCalls      int
	credentialCalls  int
	calls            []string
	testedConfigs    []domain.Values
	credentialCreate []domain.CredentialPayload
	vectorCreate     []domain.VectorStorePayload
}

var _ domain.SchemaGateway = (*fakeGateway)(nil)

func (g *fakeGateway) CredentialProviders(context.Context) ([]domain.ProviderCategory, error) {
	if g.providersErr != nil {
		return nil, g.providersErr
	}
	return credentialCatalog, nil
}

func (g *fakeGateway) AuthTypes(_ context.Context, providerType string) ([]domain.AuthType, error) {
	p, ok := domain.FindProvider(credentialCatalog, providerType)
	if !ok {
		return nil, domain.NewSubSystemError("provider", "AuthTypes", domain.ErrNotFound, providerType)
	}
	return p.AuthTypes, nil
}

func (g *fakeGateway) CredentialSchema(_ context.Context, providerType, authType string) (domain.Schema, error) {
	g.mu.Lock()
	g.schemaCalls++
	g.calls = append(g.calls, "schema")
	g.mu.Unlock()
	if g.schemaErr != nil {
		return domain.Schema{}, g.schemaErr
	}
	switch providerType + "/" + authType {
	case "openai/api_key":
		return domain.Schema{Fields: openAIFields}, nil
	case "aws/access_key":
		return domain.Schema{Fields: awsAccessKeyFields}, nil
	case "aws/iam_role":
		return domain.Schema{Fields: awsRoleFields}, nil
	}
	return domain.Schema{}, domain.NewSubSystemError("schema", "CredentialSchema", domain.ErrNotFound, providerType)
}

func (g *fakeGateway) TestCredential(_ context.Context, _, _ string, config domain.Values) (domain.TestResult, error) {
	return g.recordTest(config)
}

func (g *fakeGateway) TestConnection(_ context.Context, _ string, config domain.Values) (domain.TestResult, error) {
	return g.recordTest(config)
}

func (g *fakeGateway) recordTest(config domain.Values) (domain.TestResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.testedConfigs = append(g.testedConfigs, config)
	if g.testErr != nil {
		return domain.TestResult{}, g.testErr
	}
	if g.testResult != nil {
		return *g.testResult, nil
	}
	return domain.TestResult{Success: true, Message: "Connection successful"}, nil
}

func (g *fakeGateway) CreateCredential(_ context.Context, p domain.CredentialPayload) (domain.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.credentialCreate = append(g.credentialCreate, p)
	return g.created("42")
}

func (g *fakeGateway) VectorStoreCategories(context.Context) ([]domain.ProviderCategory, error) {
	if g.providersErr != nil {
		return nil, g.providersErr
	}
	return vectorCatalog, nil
}

func (g *fakeGateway) VectorStoreSchema(_ context.Context, providerType string) (domain.Schema, error) {
	g.mu.Lock()
	g.schemaCalls++
	g.calls = append(g.calls, "schema")
	g.mu.Unlock()
	if g.schemaErr != nil {
		return domain.Schema{}, g.schemaErr
	}
	switch providerType {
	case "pinecone":
		return domain.Schema{Fields: pineconeFields}, nil
	case "qdrant":
		return domain.Schema{ComingSoon: true, Message: "Qdrant support is coming soon"}, nil
	}
	return domain.Schema{}, domain.NewSubSystemError("schema", "VectorStoreSchema", domain.ErrNotFound, providerType)
}

func (g *fakeGateway) CredentialsFor(_ context.Context, vectorStoreType string) ([]domain.CredentialSummary, error) {
	g.mu.Lock()
	g.credentialCalls++
	g.calls = append(g.calls, "credentials")
	g.mu.Unlock()
	if vectorStoreType == "pinecone" {
		return pineconeCredentials, nil
	}
	return nil, nil
}

func (g *fakeGateway) CreateVectorStore(_ context.Context, p domain.VectorStorePayload) (domain.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vectorCreate = append(g.vectorCreate, p)
	return g.created("01JB0000000000000000000000")
}

func (g *fakeGateway) created(id string) (domain.CreateResult, error) {
	if g.createErr != nil {
		return domain.CreateResult{}, g.createErr
	}
	if g.createResult != nil {
		return *g.createResult, nil
	}
	return domain.CreateResult{Success: true, Message: "Created", ID: id}, nil
}

var errBoom = errors.New("boom")

// step applies ev and drops the effects.
func step(s Session, ev Event) Session {
	next, _ := Transition(s, ev)
	return next
}

// awsAtConfigure walks a credential session to the configure step of
// aws/access_key with the schema loaded, without running any effects.
func awsAtConfigure() Session {
	s := NewSession(FlowCredential)
	s = step(s, Opened{})
	s = step(s, ProvidersLoaded{Categories: credentialCatalog})
	s = step(s, ProviderSelected{ProviderType: "aws"})
	s = step(s, AuthTypesLoaded{Generation: s.AuthTypesGeneration, ProviderType: "aws", AuthTypes: awsAuthTypes})
	s = step(s, Advance{Target: 2})
	s = step(s, AuthTypeSelected{Value: "access_key"})
	s = step(s, Advance{Target: 3})
	s = step(s, SchemaLoaded{Generation: s.Generation, ProviderType: "aws", AuthType: "access_key",
		Schema: domain.Schema{Fields: awsAccessKeyFields}})
	return s
}

// pineconeAtConfigure walks a vector-store session to step 2 with the
// schema and credentials loaded.
func pineconeAtConfigure() Session {
	s := NewSession(FlowVectorStore)
	s = step(s, Opened{})
	s = step(s, ProvidersLoaded{Categories: vectorCatalog})
	s = step(s, ProviderSelected{ProviderType: "pinecone"})
	s = step(s, Advance{Target: 2})
	s = step(s, SchemaLoaded{Generation: s.Generation, ProviderType: "pinecone", Schema: domain.Schema{Fields: pineconeFields}})
	s = step(s, CredentialsLoaded{Generation: s.Generation, ProviderType: "pinecone", Credentials: pineconeCredentials})
	return s
}
