package wizard

import (
	"time"

	"vectorportal/internal/domain"
)

// SchemaStatus is the load lifecycle of the field schema.
type SchemaStatus int

const (
	SchemaIdle SchemaStatus = iota
	SchemaLoading
	SchemaReady
	SchemaLoadFailed
	SchemaComingSoon
)

func (s SchemaStatus) String() string {
	switch s {
	case SchemaIdle:
		return "idle"
	case SchemaLoading:
		return "loading"
	case SchemaReady:
		return "loaded"
	case SchemaLoadFailed:
		return "load_failed"
	case SchemaComingSoon:
		return "coming_soon"
	default:
		return "unknown"
	}
}

// SchemaState holds the schema and how it got there. Fields are only
// meaningful when Status is SchemaReady (or SchemaLoading on a re-fetch).
type SchemaState struct {
	Status  SchemaStatus
	Fields  []domain.FieldSpec
	Message string
}

// Ready reports whether the fields can be filled in.
func (s SchemaState) Ready() bool { return s.Status == SchemaReady }

// Session is the full state of one in-progress creation. It is a value:
// Transition returns a new Session and never mutates its input, so maps
// and slices are replaced rather than edited in place.
type Session struct {
	ID         string
	Flow       Flow
	Step       int
	Generation uint64

	Categories       []domain.ProviderCategory
	ProvidersLoading bool
	SelectedProvider *domain.ProviderDescriptor

	AuthTypes        []domain.AuthType
	AuthTypesLoading bool
	SelectedAuthType *domain.AuthType
	// AuthTypesGeneration is the Generation the outstanding auth-type fetch
	// was issued under.
	AuthTypesGeneration uint64

	Credentials          []domain.CredentialSummary
	CredentialsLoading   bool
	CredentialsError     string
	SelectedCredentialID *int64

	Schema      SchemaState
	Values      domain.Values
	DisplayName string
	Description string

	TestResult *domain.TestResult
	Testing    bool
	TestToken  uint64

	Submitting  bool
	SubmitError string
	CreatedID   string
	Done        bool
	Cancelled   bool

	// Notice is the latest out-of-band message for the user (load failures,
	// rejected transitions). Cleared by the next accepted user event.
	Notice string
}

// NewSession returns a fresh session on step 1 with nothing selected.
func NewSession(flow Flow) Session {
	return Session{
		ID:     domain.NewID(time.Now()),
		Flow:   flow,
		Step:   1,
		Values: domain.Values{},
	}
}

// StepKind returns the kind of the current step.
func (s Session) StepKind() StepKind { return s.Flow.StepKind(s.Step) }

// ProviderType returns the selected provider type or "".
func (s Session) ProviderType() string {
	if s.SelectedProvider == nil {
		return ""
	}
	return s.SelectedProvider.ProviderType
}

// AuthTypeValue returns the selected auth type value or "".
func (s Session) AuthTypeValue() string {
	if s.SelectedAuthType == nil {
		return ""
	}
	return s.SelectedAuthType.Value
}

// SelectedCredential returns the selected credential summary, if listed.
func (s Session) SelectedCredential() (domain.CredentialSummary, bool) {
	if s.SelectedCredentialID == nil {
		return domain.CredentialSummary{}, false
	}
	for _, c := range s.Credentials {
		if c.ID == *s.SelectedCredentialID {
			return c, true
		}
	}
	return domain.CredentialSummary{}, false
}

// Loading reports whether any request the current step depends on is in flight.
func (s Session) Loading() bool {
	return s.ProvidersLoading || s.AuthTypesLoading || s.CredentialsLoading || s.Schema.Status == SchemaLoading
}
