// Package gatewayapi holds the HTTP/JSON shapes of the Schema Provider
// Gateway, shared by the client and the reference server.
package gatewayapi

import (
	"net/url"
	"strconv"
	"time"

	"vectorportal/internal/domain"
)

// Route prefixes.
const (
	CredentialsBase  = "/api/credentials"
	VectorStoresBase = "/api/vector-stores"
	HealthPath       = "/healthz"
	StatusPath       = "/api/status"
	MetricsPath      = "/metrics"
	EventsPath       = "/ws"
)

// Envelope is embedded in every response. A missing or false Success is a
// failure regardless of the HTTP status.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ProvidersResponse answers GET /api/credentials/providers.
type ProvidersResponse struct {
	Envelope
	Providers []domain.ProviderDescriptor `json:"providers"`
}

// CategoriesResponse answers GET /api/vector-stores/providers/categories.
type CategoriesResponse struct {
	Envelope
	Categories []domain.ProviderCategory `json:"categories"`
}

// AuthTypesResponse answers GET /api/credentials/providers/{type}/auth-types.
type AuthTypesResponse struct {
	Envelope
	AuthTypes []domain.AuthType `json:"auth_types"`
}

// SchemaBody wraps the ordered field list.
type SchemaBody struct {
	Fields []domain.RawField `json:"fields"`
}

// SchemaResponse answers both schema endpoints.
type SchemaResponse struct {
	Envelope
	Schema     SchemaBody `json:"schema"`
	ComingSoon bool       `json:"coming_soon,omitempty"`
}

// CredentialsResponse answers the credential list endpoints.
type CredentialsResponse struct {
	Envelope
	Credentials []domain.CredentialSummary `json:"credentials"`
}

// CreateResponse answers both create endpoints. Exactly one id is set on
// success.
type CreateResponse struct {
	Envelope
	CredentialID  int64  `json:"credential_id,omitempty"`
	VectorStoreID string `json:"vector_store_id,omitempty"`
}

// CredentialDetail is a stored credential with secret values masked.
type CredentialDetail struct {
	domain.CredentialSummary
	Config    domain.Values `json:"config"`
	CreatedAt time.Time     `json:"created_at"`
}

// CredentialResponse answers GET /api/credentials/{id}.
type CredentialResponse struct {
	Envelope
	Credential CredentialDetail `json:"credential"`
}

// VectorStoreDetail is a stored vector store with secret values masked.
type VectorStoreDetail struct {
	ID           string        `json:"vector_store_id"`
	DisplayName  string        `json:"display_name"`
	ProviderType string        `json:"provider_type"`
	CredentialID int64         `json:"credential_id"`
	Description  string        `json:"description,omitempty"`
	Config       domain.Values `json:"config"`
	CreatedAt    time.Time     `json:"created_at"`
}

// VectorStoresResponse answers GET /api/vector-stores/.
type VectorStoresResponse struct {
	Envelope
	VectorStores []VectorStoreDetail `json:"vector_stores"`
}

// TestCredentialRequest is the body of POST /api/credentials/test.
type TestCredentialRequest struct {
	ProviderType string        `json:"provider_type"`
	AuthType     string        `json:"auth_type"`
	Config       domain.Values `json:"config"`
}

// TestConnectionRequest is the body of POST /api/vector-stores/providers/test-connection.
type TestConnectionRequest struct {
	ProviderType string        `json:"provider_type"`
	Config       domain.Values `json:"config"`
}

// HealthResponse answers GET /healthz.
type HealthResponse struct {
	Envelope
	Version string `json:"version"`
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	Envelope
	Version          string `json:"version"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	Credentials      int    `json:"credentials"`
	VectorStores     int    `json:"vector_stores"`
	SecretsEncrypted bool   `json:"secrets_encrypted"`
	StreamClients    int64  `json:"stream_clients"`
}

// Frame is one websocket message on /ws.
type Frame struct {
	Type    string       `json:"type"`
	Payload domain.Event `json:"payload"`
}

// FrameTypeEvent marks a frame carrying a domain event.
const FrameTypeEvent = "event"

// CredentialProvidersPath is GET /api/credentials/providers.
func CredentialProvidersPath() string { return CredentialsBase + "/providers" }

// AuthTypesPath is GET /api/credentials/providers/{type}/auth-types.
func AuthTypesPath(providerType string) string {
	return CredentialsBase + "/providers/" + url.PathEscape(providerType) + "/auth-types"
}

// CredentialSchemaPath is GET /api/credentials/providers/{type}/schema/{auth_type}.
func CredentialSchemaPath(providerType, authType string) string {
	return CredentialsBase + "/providers/" + url.PathEscape(providerType) + "/schema/" + url.PathEscape(authType)
}

// ListCredentialsPath is GET /api/credentials/?provider_type=X. An empty
// providerType lists every credential.
func ListCredentialsPath(providerType string) string {
	if providerType == "" {
		return CredentialsBase + "/"
	}
	return CredentialsBase + "/?" + url.Values{"provider_type": {providerType}}.Encode()
}

// CredentialsForPath is GET /api/credentials/for-provider/{vector_store_type}.
func CredentialsForPath(vectorStoreType string) string {
	return CredentialsBase + "/for-provider/" + url.PathEscape(vectorStoreType)
}

// CredentialPath is GET /api/credentials/{id}.
func CredentialPath(id int64) string {
	return CredentialsBase + "/" + strconv.FormatInt(id, 10)
}

// CreateCredentialPath is POST /api/credentials/.
func CreateCredentialPath() string { return CredentialsBase + "/" }

// TestCredentialPath is POST /api/credentials/test.
func TestCredentialPath() string { return CredentialsBase + "/test" }

// CategoriesPath is GET /api/vector-stores/providers/categories.
func CategoriesPath() string { return VectorStoresBase + "/providers/categories" }

// VectorStoreSchemaPath is GET /api/vector-stores/providers/{type}/schema.
func VectorStoreSchemaPath(providerType string) string {
	return VectorStoresBase + "/providers/" + url.PathEscape(providerType) + "/schema"
}

// TestConnectionPath is POST /api/vector-stores/providers/test-connection.
func TestConnectionPath() string { return VectorStoresBase + "/providers/test-connection" }

// CreateVectorStorePath is POST /api/vector-stores/; GET on the same path
// lists stored vector stores.
func CreateVectorStorePath() string { return VectorStoresBase + "/" }

// Outcome returns the envelope of any response that embeds it.
func (e Envelope) Outcome() Envelope { return e }
