package wizard

import "vectorportal/internal/domain"

// Effect is an asynchronous request emitted by Transition. A Runner
// executes it and feeds the resulting Event back into Transition.
type Effect interface{ isEffect() }

// LoadProvidersEffect fetches the provider catalog of the flow.
type LoadProvidersEffect struct{ Flow Flow }

// LoadAuthTypesEffect fetches the auth types of a credential provider.
type LoadAuthTypesEffect struct {
	Generation   uint64
	ProviderType string
}

// LoadSchemaEffect fetches the field schema of the current selection.
type LoadSchemaEffect struct {
	Flow         Flow
	Generation   uint64
	ProviderType string
	AuthType     string
}

// LoadCredentialsEffect fetches credentials usable by a vector-store provider.
type LoadCredentialsEffect struct {
	Generation   uint64
	ProviderType string
}

// TestConnectionEffect probes the configuration without persisting it.
type TestConnectionEffect struct {
	Flow         Flow
	Token        uint64
	ProviderType string
	AuthType     string
	Config       domain.Values
}

// SubmitEffect creates the entity. Exactly one payload is set.
type SubmitEffect struct {
	Flow        Flow
	Credential  *domain.CredentialPayload
	VectorStore *domain.VectorStorePayload
}

func (LoadProvidersEffect) isEffect()   {}
func (LoadAuthTypesEffect) isEffect()   {}
func (LoadSchemaEffect) isEffect()      {}
func (LoadCredentialsEffect) isEffect() {}
func (TestConnectionEffect) isEffect()  {}
func (SubmitEffect) isEffect()          {}
