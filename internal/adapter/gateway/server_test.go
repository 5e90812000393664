package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/adapter/gatewayclient"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/infra/middleware"
	"vectorportal/internal/usecase/wizard"
)

const testToken = "test-token"

func startTestServer(t *testing.T, opts ...Option) (*fixture, *Server, *httptest.Server) {
	t.Helper()
	f := newFixture(t)
	opts = append([]Option{
		WithAuth(NewStaticTokenAuth([]TokenEntry{{Token: testToken, Name: "tester"}})),
		WithVersion("1.2.3"),
	}, opts...)
	srv := NewServer(f.svc, f.bus, "127.0.0.1:0", slog.New(slog.DiscardHandler), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(srv.Handler(ctx))
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return f, srv, ts
}

func newClient(t *testing.T, url string) *gatewayclient.Client {
	t.Helper()
	c, err := gatewayclient.New(config.GatewayConfig{
		URL:     url,
		Token:   testToken,
		Timeout: 5 * time.Second,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return c
}

func do(t *testing.T, method, url, token, body string) (*http.Response, gatewayapi.Envelope) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env gatewayapi.Envelope
	_ = json.Unmarshal(data, &env)
	return resp, env
}

func TestHealthNeedsNoToken(t *testing.T) {
	_, _, ts := startTestServer(t)

	resp, env := do(t, http.MethodGet, ts.URL+gatewayapi.HealthPath, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", env.Message)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	version, err := newClient(t, ts.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", version)
}

func TestAPIRequiresToken(t *testing.T) {
	_, _, ts := startTestServer(t)

	resp, env := do(t, http.MethodGet, ts.URL+gatewayapi.CredentialProvidersPath(), "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = do(t, http.MethodGet, ts.URL+gatewayapi.CredentialProvidersPath(), "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = do(t, http.MethodGet, ts.URL+gatewayapi.CredentialProvidersPath()+"?token="+testToken, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestOpenServerWithoutAuth(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(f.svc, f.bus, "127.0.0.1:0", slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(srv.Handler(context.Background()))
	defer ts.Close()

	resp, env := do(t, http.MethodGet, ts.URL+gatewayapi.CategoriesPath(), "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestClientCatalogCalls(t *testing.T) {
	_, _, ts := startTestServer(t)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	cats, err := c.CredentialProviders(ctx)
	require.NoError(t, err)
	aws, ok := domain.FindProvider(cats, "aws")
	require.True(t, ok)
	assert.Len(t, aws.AuthTypes, 4)

	types, err := c.AuthTypes(ctx, "aws")
	require.NoError(t, err)
	assert.Equal(t, "basic", types[0].Value)

	_, err = c.AuthTypes(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrLoadFailed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	schema, err := c.CredentialSchema(ctx, "aws", "basic")
	require.NoError(t, err)
	token, ok := domain.FieldByName(schema.Fields, "session_token")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"use_session_token": true}, token.VisibleWhen)

	vcats, err := c.VectorStoreCategories(ctx)
	require.NoError(t, err)
	opensearch, ok := domain.FindProvider(vcats, "aws_opensearch")
	require.True(t, ok)
	assert.Equal(t, "AWS Native", opensearch.Category)

	soon, err := c.VectorStoreSchema(ctx, "pinecone")
	require.NoError(t, err)
	assert.True(t, soon.ComingSoon)
	assert.Contains(t, soon.Message, "coming soon")
}

func TestClientCreateFlow(t *testing.T) {
	_, _, ts := startTestServer(t)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	res, err := c.CreateCredential(ctx, awsCredential("prod"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, MsgCredentialCreated, res.Message)
	assert.Equal(t, "1", res.ID)

	dup, err := c.CreateCredential(ctx, awsCredential("prod"))
	require.NoError(t, err, "a duplicate is a business failure, not a transport error")
	assert.False(t, dup.Success)
	assert.Equal(t, MsgDuplicateCredential, dup.Message)

	invalid := awsCredential("bad")
	invalid.Config["region"] = "mars-1"
	bad, err := c.CreateCredential(ctx, invalid)
	require.NoError(t, err)
	assert.False(t, bad.Success)
	assert.Contains(t, bad.Message, "Default Region must be one of")

	creds, err := c.CredentialsFor(ctx, "aws_opensearch")
	require.NoError(t, err)
	require.Len(t, creds, 1)

	detail, err := c.Credential(ctx, creds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "********", detail.Config["secret_access_key"])

	vs, err := c.CreateVectorStore(ctx, openSearchStore("Search", creds[0].ID))
	require.NoError(t, err)
	assert.True(t, vs.Success)
	assert.Len(t, vs.ID, 26)

	stores, err := c.VectorStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, vs.ID, stores[0].ID)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Credentials)
	assert.Equal(t, 1, status.VectorStores)
	assert.True(t, status.SecretsEncrypted)
}

func TestClientTestCalls(t *testing.T) {
	f, _, ts := startTestServer(t)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	f.prober.result = domain.TestResult{Success: false, Message: "Connection timed out"}
	res, err := c.TestConnection(ctx, "aws_opensearch", openSearchStore("", 0).Config)
	require.NoError(t, err)
	assert.Equal(t, domain.TestResult{Success: false, Message: "Connection timed out"}, res)

	res, err = c.TestCredential(ctx, "aws", "basic", domain.Values{"access_key_id": "AKIA"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "AWS Secret Access Key is required")
}

func TestStatusCodes(t *testing.T) {
	_, _, ts := startTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown provider schema", http.MethodGet, gatewayapi.VectorStoreSchemaPath("nope"), "", http.StatusNotFound},
		{"bad credential id", http.MethodGet, gatewayapi.CredentialsBase + "/abc", "", http.StatusNotFound},
		{"missing credential", http.MethodGet, gatewayapi.CredentialPath(42), "", http.StatusNotFound},
		{"malformed body", http.MethodPost, gatewayapi.CreateCredentialPath(), "{", http.StatusBadRequest},
		{"validation", http.MethodPost, gatewayapi.CreateCredentialPath(), `{"credential_name":"x","provider_type":"aws","auth_type":"basic","config":{}}`, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, gatewayapi.TestConnectionPath(), `{"provider_type":"neo4j","config":{"ghost":1}}`, http.StatusUnprocessableEntity},
		{"no trailing slash", http.MethodGet, gatewayapi.CredentialsBase, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := do(t, tt.method, ts.URL+tt.path, testToken, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, tt.want == http.StatusOK, env.Success)
			if tt.want != http.StatusOK {
				assert.NotEmpty(t, env.Message)
			}
		})
	}
}

func TestRateLimitAnswersWithEnvelope(t *testing.T) {
	_, _, ts := startTestServer(t, WithRateLimit(middleware.RateLimitConfig{RequestsPerMin: 1, BurstSize: 1}))

	resp, _ := do(t, http.MethodGet, ts.URL+gatewayapi.HealthPath, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := do(t, http.MethodGet, ts.URL+gatewayapi.HealthPath, "", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Rate limit exceeded", env.Message)
}

func TestMetricsCountEvents(t *testing.T) {
	_, srv, ts := startTestServer(t)
	c := newClient(t, ts.URL)

	_, err := c.CreateCredential(context.Background(), awsCredential("prod"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Metrics().CredentialsCreated.Load() == 1 }, time.Second, 5*time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+gatewayapi.MetricsPath, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "vectorportal_credentials_created_total 1")
	assert.Contains(t, string(body), "# TYPE go_goroutines gauge")
}

func TestEventStream(t *testing.T) {
	_, srv, ts := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + gatewayapi.EventsPath + "?token=" + testToken
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return srv.Metrics().StreamClients.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err = newClient(t, ts.URL).CreateCredential(ctx, awsCredential("prod"))
	require.NoError(t, err)

	var frame gatewayapi.Frame
	require.NoError(t, wsjson.Read(ctx, ws, &frame))
	assert.Equal(t, gatewayapi.FrameTypeEvent, frame.Type)
	assert.Equal(t, domain.EventCredentialCreated, frame.Payload.Type)
	assert.NotEmpty(t, frame.Payload.RequestID)
	assert.NotContains(t, string(frame.Payload.Payload), "wJalrXUtnFEMI")
}

func TestEventStreamRejectsBadToken(t *testing.T) {
	_, _, ts := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + gatewayapi.EventsPath + "?token=wrong"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClientWatch(t *testing.T) {
	_, srv, ts := startTestServer(t)
	c := newClient(t, ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan domain.Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(e domain.Event) {
			select {
			case got <- e:
			default:
			}
		})
	}()
	require.Eventually(t, func() bool { return srv.Metrics().StreamClients.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := c.TestConnection(ctx, "neo4j", domain.Values{"index_name": "idx", "dimension": 1536})
	require.NoError(t, err)

	select {
	case e := <-got:
		assert.Equal(t, domain.EventConnectionTested, e.Type)
	case <-ctx.Done():
		t.Fatal("no event received")
	}
	cancel()
	assert.NoError(t, <-done)
}

// The wizard engine, driven headlessly against the real server, commits a
// credential end to end.
func TestWizardApplyAgainstServer(t *testing.T) {
	f, _, ts := startTestServer(t)
	c := newClient(t, ts.URL)

	logger := slog.New(slog.DiscardHandler)
	d := wizard.NewDriver(wizard.FlowCredential, wizard.NewRunner(c, logger), logger)
	s, err := wizard.Apply(context.Background(), d, wizard.Answers{
		Flow:     "credential",
		Provider: "aws",
		AuthType: "basic",
		Name:     "from-wizard",
		Values: map[string]any{
			"access_key_id":     "AKIAEXAMPLE",
			"secret_access_key": "secret",
		},
	}, nil)
	require.NoError(t, err)
	assert.True(t, s.Done)
	assert.Equal(t, "1", s.CreatedID)

	creds, err := f.store.ListCredentials(context.Background(), "aws")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "from-wizard", creds[0].Name)
}
