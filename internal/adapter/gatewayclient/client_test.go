package gatewayclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/config"
)

func newTestClient(t *testing.T, h http.Handler, mutate ...func(*config.GatewayConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.GatewayConfig{
		URL:     srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
		Breaker: config.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://gw", "/relative", "http://"} {
		_, err := New(config.GatewayConfig{URL: u}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, u)
	}
}

func TestCredentialProvidersGroupsByCategory(t *testing.T) {
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/credentials/providers", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"providers":[
			{"provider_type":"aws","name":"AWS","category":"Cloud","status":"available","auth_types":[{"value":"basic","label":"Access Key"}]},
			{"provider_type":"openai","name":"OpenAI","category":"AI","status":"available"},
			{"provider_type":"azure","name":"Azure","category":"Cloud","status":"beta"},
			{"provider_type":"custom","name":"Custom","status":"coming_soon"}
		]}`)
	}))

	cats, err := c.CredentialProviders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", auth)

	require.Len(t, cats, 3)
	assert.Equal(t, "Cloud", cats[0].Name)
	assert.Equal(t, "AI", cats[1].Name)
	assert.Equal(t, otherCategory, cats[2].Name)
	require.Len(t, cats[0].Providers, 2)
	assert.Equal(t, "azure", cats[0].Providers[1].ProviderType)
	assert.Equal(t, domain.AvailabilityComingSoon, cats[2].Providers[0].Availability)
	assert.Equal(t, "basic", cats[0].Providers[0].AuthTypes[0].Value)
}

func TestEnvelopeFailureOn200(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"explicit false", `{"success":false,"message":"catalog offline","categories":[]}`, "catalog offline"},
		{"missing flag", `{"categories":[]}`, "not marked successful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.VectorStoreCategories(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrLoadFailed)
			assert.ErrorIs(t, err, domain.ErrGatewayRejected)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, domain.CodeLoadFailed, domain.ErrorCodeOf(err))
		})
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrGatewayAuthFailed},
		{http.StatusForbidden, domain.ErrGatewayAuthFailed},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrDuplicate},
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusBadGateway, domain.ErrProviderError},
		{http.StatusTeapot, domain.ErrGatewayRejected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, gatewayapi.Envelope{Message: "nope"})
			}))
			_, err := c.AuthTypes(context.Background(), "aws")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrLoadFailed)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestSchemaPreservesOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/credentials/providers/aws/schema/basic", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"schema":{"fields":[
			{"name":"region","label":"Region","type":"select","default":"us-east-1","options":[{"value":"us-east-1","label":"US East"}]},
			{"name":"access_key_id","label":"Access Key ID","type":"text","required":true},
			{"name":"use_session","label":"Session","type":"checkbox"},
			{"name":"session_token","label":"Session Token","type":"password","showIf":{"use_session":true}}
		]}}`)
	}))

	schema, err := c.CredentialSchema(context.Background(), "aws", "basic")
	require.NoError(t, err)
	require.Len(t, schema.Fields, 4)
	names := []string{schema.Fields[0].Name, schema.Fields[1].Name, schema.Fields[2].Name, schema.Fields[3].Name}
	assert.Equal(t, []string{"region", "access_key_id", "use_session", "session_token"}, names)
	assert.IsType(t, domain.SelectKind{}, schema.Fields[0].Kind)
	assert.True(t, schema.Fields[3].IsSecret())
	assert.Equal(t, map[string]any{"use_session": true}, schema.Fields[3].VisibleWhen)
}

func TestSchemaComingSoon(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vector-stores/providers/pinecone/schema", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"coming_soon":true,"message":"Pinecone support is coming soon","schema":{"fields":[]}}`)
	}))

	schema, err := c.VectorStoreSchema(context.Background(), "pinecone")
	require.NoError(t, err)
	assert.True(t, schema.ComingSoon)
	assert.Equal(t, "Pinecone support is coming soon", schema.Message)
}

func TestSchemaRejectsUnknownKind(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"schema":{"fields":[{"name":"x","label":"X","type":"slider"}]}}`)
	}))

	_, err := c.VectorStoreSchema(context.Background(), "neo4j")
	assert.ErrorIs(t, err, domain.ErrLoadFailed)
	assert.ErrorIs(t, err, domain.ErrUnknownFieldKind)
}

func TestSchemaRejectsDanglingVisibility(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"schema":{"fields":[{"name":"x","label":"X","type":"text","showIf":{"ghost":"y"}}]}}`)
	}))

	_, err := c.VectorStoreSchema(context.Background(), "neo4j")
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestCredentialsEndpoints(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		_, _ = io.WriteString(w, `{"success":true,"credentials":null}`)
	}))

	creds, err := c.CredentialsFor(context.Background(), "aws_opensearch")
	require.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Empty(t, creds)

	_, err = c.ListCredentials(context.Background(), "aws")
	require.NoError(t, err)
	_, err = c.ListCredentials(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/credentials/for-provider/aws_opensearch",
		"/api/credentials/?provider_type=aws",
		"/api/credentials/",
	}, paths)
}

func TestTestConnectionResults(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    domain.TestResult
		wantErr error
	}{
		{"success", 200, `{"success":true,"message":"Connected to cluster"}`, domain.TestResult{Success: true, Message: "Connected to cluster"}, nil},
		{"failure on 200", 200, `{"success":false,"message":"connection refused"}`, domain.TestResult{Message: "connection refused"}, nil},
		{"validation 422", 422, `{"success":false,"message":"Endpoint is required"}`, domain.TestResult{Message: "Endpoint is required"}, nil},
		{"server error", 500, `boom`, domain.TestResult{}, domain.ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got gatewayapi.TestConnectionRequest
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			res, err := c.TestConnection(context.Background(), "neo4j", domain.Values{"uri": "bolt://db:7687"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
			assert.Equal(t, "neo4j", got.ProviderType)
			assert.Equal(t, "bolt://db:7687", got.Config["uri"])
		})
	}
}

func TestTestCredentialSendsAuthType(t *testing.T) {
	var got gatewayapi.TestCredentialRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/credentials/test", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, 200, gatewayapi.Envelope{Success: true, Message: "ok"})
	}))

	res, err := c.TestCredential(context.Background(), "aws", "basic", domain.Values{"region": "eu-west-1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, gatewayapi.TestCredentialRequest{ProviderType: "aws", AuthType: "basic", Config: domain.Values{"region": "eu-west-1"}}, got)
}

func TestCreateCredential(t *testing.T) {
	var got domain.CredentialPayload
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/credentials/", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, gatewayapi.CreateResponse{Envelope: gatewayapi.Envelope{Success: true}, CredentialID: 42})
	}))

	res, err := c.CreateCredential(context.Background(), domain.CredentialPayload{
		Name: "prod", ProviderType: "openai", AuthType: "api_key", Config: domain.Values{"api_key": "sk"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CreateResult{Success: true, ID: "42"}, res)
	assert.Equal(t, "prod", got.Name)
}

func TestCreateVectorStoreDuplicate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, gatewayapi.Envelope{Message: "Vector store 'docs' already exists"})
	}))

	res, err := c.CreateVectorStore(context.Background(), domain.VectorStorePayload{DisplayName: "docs"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Vector store 'docs' already exists", res.Message)
}

func TestCreateVectorStoreID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, gatewayapi.CreateResponse{Envelope: gatewayapi.Envelope{Success: true}, VectorStoreID: "01J0000000000000000000000A"})
	}))

	res, err := c.CreateVectorStore(context.Background(), domain.VectorStorePayload{DisplayName: "docs"})
	require.NoError(t, err)
	assert.Equal(t, "01J0000000000000000000000A", res.ID)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 3; i++ {
		_, err := c.VectorStoreCategories(context.Background())
		assert.ErrorIs(t, err, domain.ErrProviderError)
	}
	_, err := c.VectorStoreCategories(context.Background())
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.True(t, domain.IsRetryableError(err))
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusNotFound, gatewayapi.Envelope{Message: "unknown provider"})
	}))

	for i := 0; i < 6; i++ {
		_, err := c.VectorStoreSchema(context.Background(), "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, int32(6), hits.Load())
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}

func TestContextDeadlineIsTimeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.VectorStoreCategories(ctx)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, gatewayapi.HealthResponse{Envelope: gatewayapi.Envelope{Success: true}, Version: "1.2.3"})
	}), func(cfg *config.GatewayConfig) {
		cfg.RateLimit = 0.01
		cfg.Burst = 1
	})

	v, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Health(ctx)
	assert.ErrorIs(t, err, domain.ErrRateLimit)
}

func TestMapHTTPErrorMessage(t *testing.T) {
	he := mapHTTPError(500, []byte(`{"success":false,"message":"db down"}`))
	assert.Equal(t, "db down", he.Message)

	he = mapHTTPError(502, []byte(strings.Repeat("x", 500)))
	assert.Len(t, he.Message, 203)
	assert.Equal(t, "Bad Gateway", mapHTTPError(502, nil).Message)
}
