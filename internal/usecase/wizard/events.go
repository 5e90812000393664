package wizard

import "vectorportal/internal/domain"

// Event is an input to Transition: a user action or the result of an Effect.
type Event interface{ isEvent() }

// Opened starts the wizard and requests the provider catalog.
type Opened struct{}

// ProvidersLoaded carries the provider catalog.
type ProvidersLoaded struct {
	Categories []domain.ProviderCategory
	Err        error
}

// ProviderSelected picks a provider on step 1.
type ProviderSelected struct{ ProviderType string }

// AuthTypesLoaded carries the auth types of a credential provider.
type AuthTypesLoaded struct {
	Generation   uint64
	ProviderType string
	AuthTypes    []domain.AuthType
	Err          error
}

// AuthTypeSelected picks an auth type on the credential flow's step 2.
type AuthTypeSelected struct{ Value string }

// Advance requests navigation to Target (1-based).
type Advance struct{ Target int }

// SchemaLoaded carries the field schema for the selection it was fetched for.
type SchemaLoaded struct {
	Generation   uint64
	ProviderType string
	AuthType     string
	Schema       domain.Schema
	Err          error
}

// CredentialsLoaded carries credentials compatible with a vector-store provider.
type CredentialsLoaded struct {
	Generation   uint64
	ProviderType string
	Credentials  []domain.CredentialSummary
	Err          error
}

// RetryLoad re-issues the loads of the current step after a failure.
type RetryLoad struct{}

// NameChanged sets the display or credential name.
type NameChanged struct{ Value string }

// DescriptionChanged sets the optional description.
type DescriptionChanged struct{ Value string }

// CredentialSelected picks the credential a vector store will use.
type CredentialSelected struct{ ID int64 }

// ValueChanged sets a schema field. Value is coerced to the field's kind;
// nil removes the value.
type ValueChanged struct {
	Name  string
	Value any
}

// TestRequested starts an advisory connection test.
type TestRequested struct{}

// TestCompleted carries the outcome of the test identified by Token.
type TestCompleted struct {
	Token  uint64
	Result domain.TestResult
}

// SubmitRequested commits the entity.
type SubmitRequested struct{}

// SubmitCompleted carries the outcome of the create call.
type SubmitCompleted struct {
	Result domain.CreateResult
}

// Cancelled abandons the session.
type Cancelled struct{}

func (Opened) isEvent()             {}
func (ProvidersLoaded) isEvent()    {}
func (ProviderSelected) isEvent()   {}
func (AuthTypesLoaded) isEvent()    {}
func (AuthTypeSelected) isEvent()   {}
func (Advance) isEvent()            {}
func (SchemaLoaded) isEvent()       {}
func (CredentialsLoaded) isEvent()  {}
func (RetryLoad) isEvent()          {}
func (NameChanged) isEvent()        {}
func (DescriptionChanged) isEvent() {}
func (CredentialSelected) isEvent() {}
func (ValueChanged) isEvent()       {}
func (TestRequested) isEvent()      {}
func (TestCompleted) isEvent()      {}
func (SubmitRequested) isEvent()    {}
func (SubmitCompleted) isEvent()    {}
func (Cancelled) isEvent()          {}
