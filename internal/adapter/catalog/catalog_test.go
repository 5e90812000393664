package catalog

import (
	"errors"
	"testing"

	"github.com/kaptinlin/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorportal/internal/domain"
)

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestLoadEmbedded(t *testing.T) {
	c := mustLoad(t)

	providers := c.CredentialProviders()
	require.NotEmpty(t, providers)
	assert.Equal(t, "aws", providers[0].ProviderType)
	assert.Equal(t, "Cloud Providers", providers[0].Category)

	last := providers[len(providers)-1]
	assert.Equal(t, "custom", last.ProviderType)
	assert.Equal(t, domain.AvailabilityComingSoon, last.Availability)
	assert.Empty(t, last.AuthTypes)
}

func TestAuthTypes(t *testing.T) {
	c := mustLoad(t)

	types, err := c.AuthTypes("aws")
	require.NoError(t, err)
	values := make([]string, 0, len(types))
	for _, a := range types {
		values = append(values, a.Value)
	}
	assert.Equal(t, []string{"basic", "iam_role", "profile", "env_var"}, values)

	_, err = c.AuthTypes("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthTypesAreCopies(t *testing.T) {
	c := mustLoad(t)
	types, err := c.AuthTypes("aws")
	require.NoError(t, err)
	types[0].Value = "mutated"

	again, err := c.AuthTypes("aws")
	require.NoError(t, err)
	assert.Equal(t, "basic", again[0].Value)
}

func TestCredentialSchema(t *testing.T) {
	c := mustLoad(t)

	s, err := c.CredentialSchema("aws", "basic")
	require.NoError(t, err)
	assert.False(t, s.ComingSoon)
	require.Len(t, s.Fields, 5)
	assert.Equal(t, "access_key_id", s.Fields[0].Name)
	assert.True(t, s.Fields[1].IsSecret())
	region, ok := s.Fields[2].Kind.(domain.SelectKind)
	require.True(t, ok)
	assert.Len(t, region.Options, 11)
	assert.Equal(t, "us-east-1", s.Fields[2].Default)

	s, err = c.CredentialSchema("azure", "managed_identity")
	require.NoError(t, err)
	assert.Empty(t, s.Fields)

	s, err = c.CredentialSchema("custom", "anything")
	require.NoError(t, err)
	assert.True(t, s.ComingSoon)
	assert.Equal(t, ComingSoonMessage("Custom"), s.Message)

	_, err = c.CredentialSchema("aws", "kerberos")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnvVarAuthMergesDescription(t *testing.T) {
	c := mustLoad(t)
	types, err := c.AuthTypes("openai")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "env_var", types[1].Value)
	assert.Equal(t, "Environment Variables", types[1].Label)
	assert.Equal(t, "Use OPENAI_API_KEY", types[1].Description)
}

func TestVectorStoreCategories(t *testing.T) {
	c := mustLoad(t)
	cats := c.VectorStoreCategories()

	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		names = append(names, cat.Name)
		assert.NotEmpty(t, cat.Providers, cat.Name)
	}
	assert.Equal(t, []string{
		"AWS Native", "Managed Cloud", "Graph Database", "Open Source",
		"Database Extension", "In-Memory", "Search Engine", "Azure", "Google Cloud",
	}, names)

	p, ok := domain.FindProvider(cats, "neo4j")
	require.True(t, ok)
	assert.Equal(t, domain.AvailabilityAvailable, p.Availability)

	p, ok = domain.FindProvider(cats, "qdrant")
	require.True(t, ok)
	assert.False(t, p.Availability.Usable())
}

func TestVectorStoreSchema(t *testing.T) {
	c := mustLoad(t)

	s, err := c.VectorStoreSchema("aws_opensearch")
	require.NoError(t, err)
	username, ok := domain.FieldByName(s.Fields, "username")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"auth_type": "basic"}, username.VisibleWhen)

	s, err = c.VectorStoreSchema("neo4j")
	require.NoError(t, err)
	rel, ok := domain.FieldByName(s.Fields, "relationship_types")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"enable_graph_rag": true}, rel.VisibleWhen)

	s, err = c.VectorStoreSchema("weaviate")
	require.NoError(t, err)
	assert.True(t, s.ComingSoon)
	assert.Equal(t, ComingSoonMessage("Weaviate"), s.Message)

	_, err = c.VectorStoreSchema("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompatibleCredentialTypes(t *testing.T) {
	c := mustLoad(t)
	assert.Equal(t, []string{"aws"}, c.CompatibleCredentialTypes("aws_opensearch"))
	assert.Equal(t, []string{"aws", "pgvector"}, c.CompatibleCredentialTypes("aws_aurora_pgvector"))
	assert.Equal(t, []string{"mongodb"}, c.CompatibleCredentialTypes("mongodb_atlas"))
	assert.Equal(t, []string{"weird"}, c.CompatibleCredentialTypes("weird"))
}

func TestProbes(t *testing.T) {
	c := mustLoad(t)

	p, err := c.CredentialProbe("pgvector", "basic")
	require.NoError(t, err)
	assert.Equal(t, ProbeTCP, p.Kind)
	assert.Equal(t, 5432, p.DefaultPort)

	p, err = c.CredentialProbe("redis", "acl")
	require.NoError(t, err)
	assert.Equal(t, ProbeRedis, p.Kind)

	p, err = c.CredentialProbe("azure", "managed_identity")
	require.NoError(t, err)
	assert.Equal(t, ProbeNone, p.Kind)

	p, err = c.VectorStoreProbe("aws_opensearch")
	require.NoError(t, err)
	assert.Equal(t, ProbeHTTP, p.Kind)
	assert.Equal(t, "endpoint", p.URLField)
	assert.Equal(t, "username", p.UserField)
}

func TestValidateVectorStore(t *testing.T) {
	c := mustLoad(t)

	base := func() domain.Values {
		return domain.Values{
			"endpoint":   "https://search.example.com",
			"index_name": "docs",
			"region":     "us-east-1",
			"auth_type":  "iam",
			"dimension":  1536,
		}
	}

	t.Run("valid drops hidden values", func(t *testing.T) {
		cfg := base()
		cfg["username"] = "stale"
		out, err := c.ValidateVectorStore("aws_opensearch", cfg)
		require.NoError(t, err)
		assert.NotContains(t, out, "username")
		assert.Equal(t, float64(1536), out["dimension"])
	})

	tests := []struct {
		name    string
		mutate  func(domain.Values)
		message string
	}{
		{"missing required", func(v domain.Values) { delete(v, "index_name") }, "Index Name is required"},
		{"empty counts as missing", func(v domain.Values) { v["index_name"] = "" }, "Index Name is required"},
		{"conditional required", func(v domain.Values) { v["auth_type"] = "basic" }, "Master Username is required"},
		{"out of range", func(v domain.Values) { v["dimension"] = 20000.0 }, "Vector Dimension must be between 1 and 10000"},
		{"not a number", func(v domain.Values) { v["dimension"] = "big" }, "Vector Dimension must be a number"},
		{"bad option", func(v domain.Values) { v["similarity_metric"] = "hamming" }, "Similarity Metric must be one of cosine, l2, dot_product"},
		{"unknown field", func(v domain.Values) { v["shard_count"] = 3 }, `unknown field "shard_count"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			_, err := c.ValidateVectorStore("aws_opensearch", cfg)
			require.ErrorIs(t, err, domain.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	_, err := c.ValidateVectorStore("milvus", domain.Values{})
	assert.ErrorIs(t, err, domain.ErrComingSoon)
}

func TestValidateCredential(t *testing.T) {
	c := mustLoad(t)

	out, err := c.ValidateCredential("aws", "basic", domain.Values{
		"access_key_id":     "AKIA",
		"secret_access_key": "secret",
		"region":            "eu-west-1",
		"use_session_token": false,
	})
	require.NoError(t, err)
	assert.Len(t, out, 4)

	_, err = c.ValidateCredential("aws", "basic", domain.Values{
		"access_key_id":     "AKIA",
		"secret_access_key": "secret",
		"region":            "eu-west-1",
		"use_session_token": true,
	})
	require.ErrorIs(t, err, domain.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "Session Token is required")

	out, err = c.ValidateCredential("gcp", "application_default", nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = c.ValidateCredential("custom", "any", domain.Values{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJSONSchemaConditionalRequired(t *testing.T) {
	c := mustLoad(t)
	s, err := c.VectorStoreSchema("aws_opensearch")
	require.NoError(t, err)

	raw, err := JSONSchema(s.Fields)
	require.NoError(t, err)
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	require.NoError(t, err)

	iam := map[string]any{"endpoint": "e", "index_name": "i", "region": "us-east-1", "auth_type": "iam"}
	assert.True(t, compiled.Validate(iam).IsValid())

	basic := map[string]any{"endpoint": "e", "index_name": "i", "region": "us-east-1", "auth_type": "basic"}
	assert.False(t, compiled.Validate(basic).IsValid())

	basic["username"] = "admin"
	basic["password"] = "pw"
	assert.True(t, compiled.Validate(basic).IsValid())

	basic["extra"] = "x"
	assert.False(t, compiled.Validate(basic).IsValid())
}

func TestParseRejectsBrokenCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "not yaml",
			doc:  "credential_providers: [",
			want: domain.ErrSchemaInvalid,
		},
		{
			name: "duplicate provider",
			doc: `
credential_providers:
  - {provider_type: aws, name: AWS}
  - {provider_type: aws, name: AWS again}
`,
			want: domain.ErrSchemaInvalid,
		},
		{
			name: "unknown category",
			doc: `
vector_store_categories: [Cloud]
vector_stores:
  - {provider_type: x, name: X, category: Space}
`,
			want: domain.ErrSchemaInvalid,
		},
		{
			name: "unknown field kind",
			doc: `
credential_providers:
  - provider_type: aws
    name: AWS
    auth_types:
      - value: basic
        label: Basic
        fields:
          - {name: key, label: Key, type: slider}
`,
			want: domain.ErrUnknownFieldKind,
		},
		{
			name: "dangling visibility rule",
			doc: `
vector_store_categories: [Cloud]
vector_stores:
  - provider_type: x
    name: X
    category: Cloud
    fields:
      - {name: user, label: User, type: text, showIf: {mode: basic}}
`,
			want: domain.ErrSchemaInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseDefaultsStatus(t *testing.T) {
	c, err := Parse([]byte(`
credential_providers:
  - provider_type: acme
    name: Acme
    auth_types:
      - value: token
        label: Token
        fields:
          - {name: token, label: Token, type: password, required: true}
`))
	require.NoError(t, err)
	p, ok := c.CredentialProvider("acme")
	require.True(t, ok)
	assert.Equal(t, domain.AvailabilityAvailable, p.Availability)
	assert.Equal(t, []domain.AuthType{{Value: "token", Label: "Token"}}, p.AuthTypes)
}
