package domain

import "context"

// Availability is the release status of a provider.
type Availability string

const (
	AvailabilityAvailable  Availability = "available"
	AvailabilityBeta       Availability = "beta"
	AvailabilityComingSoon Availability = "coming_soon"
)

// Usable reports whether a provider with this status can be configured.
func (a Availability) Usable() bool {
	return a == AvailabilityAvailable || a == AvailabilityBeta
}

// String returns the display form of the status.
func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "Available"
	case AvailabilityBeta:
		return "Beta"
	case AvailabilityComingSoon:
		return "Coming Soon"
	default:
		return string(a)
	}
}

// AuthType is one way of authenticating against a credential provider.
type AuthType struct {
	Value       string `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ProviderDescriptor identifies a configurable provider. Immutable once fetched.
type ProviderDescriptor struct {
	ProviderType string       `json:"provider_type" yaml:"provider_type"`
	DisplayName  string       `json:"name" yaml:"name"`
	Category     string       `json:"category,omitempty" yaml:"category,omitempty"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Icon         string       `json:"icon,omitempty" yaml:"icon,omitempty"`
	Availability Availability `json:"status" yaml:"status"`
	AuthTypes    []AuthType   `json:"auth_types,omitempty" yaml:"auth_types,omitempty"`
}

// ProviderCategory groups providers for display.
type ProviderCategory struct {
	Name      string               `json:"name"`
	Providers []ProviderDescriptor `json:"providers"`
}

// FindProvider looks a provider up across categories.
func FindProvider(categories []ProviderCategory, providerType string) (ProviderDescriptor, bool) {
	for _, c := range categories {
		for _, p := range c.Providers {
			if p.ProviderType == providerType {
				return p, true
			}
		}
	}
	return ProviderDescriptor{}, false
}

// CredentialSummary is an existing credential as listed by the gateway.
type CredentialSummary struct {
	ID           int64  `json:"credential_id"`
	Name         string `json:"credential_name"`
	ProviderType string `json:"provider_type,omitempty"`
	AuthType     string `json:"auth_type"`
	Description  string `json:"description,omitempty"`
}

// Schema is the field list for one provider (and auth type).
type Schema struct {
	Fields     []FieldSpec
	ComingSoon bool
	Message    string
}

// TestResult is the advisory outcome of a connection test.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateResult is the gateway's answer to a create request.
type CreateResult struct {
	Success bool
	Message string
	ID      string
}

// CredentialPayload is the body of a credential create request.
type CredentialPayload struct {
	Name         string `json:"credential_name"`
	ProviderType string `json:"provider_type"`
	AuthType     string `json:"auth_type"`
	Config       Values `json:"config"`
	Description  string `json:"description,omitempty"`
}

// VectorStorePayload is the body of a vector-store create request.
type VectorStorePayload struct {
	DisplayName  string `json:"display_name"`
	ProviderType string `json:"provider_type"`
	CredentialID int64  `json:"credential_id"`
	Config       Values `json:"config"`
	Description  string `json:"description,omitempty"`
}

// CredentialGateway is the credential half of the Schema Provider Gateway.
type CredentialGateway interface {
	CredentialProviders(ctx context.Context) ([]ProviderCategory, error)
	AuthTypes(ctx context.Context, providerType string) ([]AuthType, error)
	CredentialSchema(ctx context.Context, providerType, authType string) (Schema, error)
	TestCredential(ctx context.Context, providerType, authType string, config Values) (TestResult, error)
	CreateCredential(ctx context.Context, p CredentialPayload) (CreateResult, error)
}

// VectorStoreGateway is the vector-store half of the Schema Provider Gateway.
type VectorStoreGateway interface {
	VectorStoreCategories(ctx context.Context) ([]ProviderCategory, error)
	VectorStoreSchema(ctx context.Context, providerType string) (Schema, error)
	CredentialsFor(ctx context.Context, vectorStoreType string) ([]CredentialSummary, error)
	TestConnection(ctx context.Context, providerType string, config Values) (TestResult, error)
	CreateVectorStore(ctx context.Context, p VectorStorePayload) (CreateResult, error)
}

// SchemaGateway is the full gateway surface consumed by the wizard.
type SchemaGateway interface {
	CredentialGateway
	VectorStoreGateway
}
