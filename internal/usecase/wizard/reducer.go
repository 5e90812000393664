package wizard

import (
	"errors"
	"fmt"

	"vectorportal/internal/domain"
)

// Transition applies ev to s and returns the next session together with
// the effects to execute. It is pure: s is never modified.
func Transition(s Session, ev Event) (Session, []Effect) {
	if s.Done {
		return s, nil
	}
	switch e := ev.(type) {
	case Opened:
		s.Notice = ""
		s.ProvidersLoading = true
		return s, []Effect{LoadProvidersEffect{Flow: s.Flow}}
	case ProvidersLoaded:
		return onProvidersLoaded(s, e), nil
	case ProviderSelected:
		return onProviderSelected(s, e)
	case AuthTypesLoaded:
		return onAuthTypesLoaded(s, e), nil
	case AuthTypeSelected:
		return onAuthTypeSelected(s, e), nil
	case Advance:
		return onAdvance(s, e)
	case SchemaLoaded:
		return onSchemaLoaded(s, e), nil
	case CredentialsLoaded:
		return onCredentialsLoaded(s, e), nil
	case RetryLoad:
		return onRetry(s)
	case NameChanged:
		s.DisplayName = e.Value
		s.Notice = ""
		return s, nil
	case DescriptionChanged:
		s.Description = e.Value
		return s, nil
	case CredentialSelected:
		return onCredentialSelected(s, e), nil
	case ValueChanged:
		return onValueChanged(s, e), nil
	case TestRequested:
		return onTestRequested(s)
	case TestCompleted:
		if e.Token != s.TestToken || !s.Testing {
			return s, nil
		}
		result := e.Result
		s.Testing = false
		s.TestResult = &result
		return s, nil
	case SubmitRequested:
		return onSubmitRequested(s)
	case SubmitCompleted:
		return onSubmitCompleted(s, e), nil
	case Cancelled:
		s.Cancelled = true
		s.Done = true
		return s, nil
	default:
		return s, nil
	}
}

func onProvidersLoaded(s Session, e ProvidersLoaded) Session {
	s.ProvidersLoading = false
	if e.Err != nil {
		s.Notice = loadFailure("providers", e.Err)
		return s
	}
	s.Categories = e.Categories
	return s
}

func onProviderSelected(s Session, e ProviderSelected) (Session, []Effect) {
	if s.Step != 1 {
		s.Notice = "Go back to the first step to change the provider"
		return s, nil
	}
	if s.ProviderType() == e.ProviderType {
		return s, nil
	}
	p, ok := domain.FindProvider(s.Categories, e.ProviderType)
	if !ok {
		s.Notice = fmt.Sprintf("Unknown provider %q", e.ProviderType)
		return s, nil
	}

	s = resetDownstream(s)
	s.SelectedProvider = &p
	s.Notice = ""
	if !p.Availability.Usable() {
		s.Notice = fmt.Sprintf("%s is coming soon", p.DisplayName)
		return s, nil
	}
	if s.Flow != FlowCredential {
		return s, nil
	}
	s.AuthTypes = p.AuthTypes
	return loadAuthTypes(s)
}

func loadAuthTypes(s Session) (Session, []Effect) {
	s.AuthTypesLoading = true
	s.AuthTypesGeneration = s.Generation
	return s, []Effect{LoadAuthTypesEffect{Generation: s.Generation, ProviderType: s.ProviderType()}}
}

// resetDownstream clears everything that depends on the provider choice
// and starts a new generation so in-flight results are discarded.
func resetDownstream(s Session) Session {
	s.Generation++
	s.AuthTypes = nil
	s.AuthTypesLoading = false
	s.SelectedAuthType = nil
	s.Credentials = nil
	s.CredentialsLoading = false
	s.CredentialsError = ""
	s.SelectedCredentialID = nil
	s.Schema = SchemaState{}
	s.Values = domain.Values{}
	s.TestResult = nil
	s.Testing = false
	s.TestToken++
	s.SubmitError = ""
	return s
}

// onAuthTypesLoaded accepts the list while the fetch it answers is still
// outstanding. Picking an auth type from the seeded list in the meantime
// does not invalidate it; once the session has moved past the auth step the
// list is dropped so the chosen auth type stays put.
func onAuthTypesLoaded(s Session, e AuthTypesLoaded) Session {
	if !s.AuthTypesLoading || e.Generation != s.AuthTypesGeneration || e.ProviderType != s.ProviderType() {
		return s
	}
	s.AuthTypesLoading = false
	if s.Step >= s.Flow.SchemaStep() {
		return s
	}
	if e.Err != nil {
		s.Notice = loadFailure("authentication types", e.Err)
		return s
	}
	s.AuthTypes = e.AuthTypes
	if s.SelectedAuthType != nil && !hasAuthType(e.AuthTypes, s.SelectedAuthType.Value) {
		s.SelectedAuthType = nil
	}
	return s
}

func hasAuthType(list []domain.AuthType, value string) bool {
	for _, a := range list {
		if a.Value == value {
			return true
		}
	}
	return false
}

func onAuthTypeSelected(s Session, e AuthTypeSelected) Session {
	if s.Flow != FlowCredential || s.StepKind() != StepSelectAuthType {
		s.Notice = "Authentication type can only be chosen on the authentication step"
		return s
	}
	if s.AuthTypeValue() == e.Value {
		return s
	}
	var picked *domain.AuthType
	for _, a := range s.AuthTypes {
		if a.Value == e.Value {
			picked = &a
			break
		}
	}
	if picked == nil {
		s.Notice = fmt.Sprintf("Unknown authentication type %q", e.Value)
		return s
	}
	s.Generation++
	s.SelectedAuthType = picked
	s.Schema = SchemaState{}
	s.Values = domain.Values{}
	s.TestResult = nil
	s.Testing = false
	s.TestToken++
	s.Notice = ""
	return s
}

func onAdvance(s Session, e Advance) (Session, []Effect) {
	switch {
	case e.Target == s.Step:
		return s, nil
	case e.Target >= 1 && e.Target < s.Step:
		s.Step = e.Target
		s.TestResult = nil
		s.Testing = false
		s.TestToken++
		s.Notice = ""
		return s, nil
	case e.Target == s.Step+1 && e.Target <= StepCount:
		if !StepValid(s, s.Step) {
			s.Notice = firstProblem(s, s.Step)
			return s, nil
		}
		s.Step = e.Target
		s.TestResult = nil
		s.Testing = false
		s.TestToken++
		s.Notice = ""
		if s.Step == s.Flow.SchemaStep() && !stepLoaded(s) {
			return startStepLoads(s)
		}
		return s, nil
	default:
		s.Notice = fmt.Sprintf("Cannot move from step %d to step %d", s.Step, e.Target)
		return s, nil
	}
}

func firstProblem(s Session, step int) string {
	if p := Problems(s, step); len(p) > 0 {
		return p[0]
	}
	return "This step is incomplete"
}

// stepLoaded reports whether the schema step's data is already current.
// Any change upstream resets the schema to idle, so a loaded schema always
// belongs to the current selection.
func stepLoaded(s Session) bool {
	if !s.Schema.Ready() {
		return false
	}
	return s.Flow != FlowVectorStore || (s.Credentials != nil && s.CredentialsError == "")
}

// startStepLoads marks the schema step as loading and returns its loaders:
// the schema request first, then the credential list for vector stores.
func startStepLoads(s Session) (Session, []Effect) {
	s.Schema = SchemaState{Status: SchemaLoading, Fields: s.Schema.Fields}
	effects := []Effect{LoadSchemaEffect{
		Flow:         s.Flow,
		Generation:   s.Generation,
		ProviderType: s.ProviderType(),
		AuthType:     s.AuthTypeValue(),
	}}
	if s.Flow == FlowVectorStore {
		s.CredentialsLoading = true
		s.CredentialsError = ""
		effects = append(effects, LoadCredentialsEffect{Generation: s.Generation, ProviderType: s.ProviderType()})
	}
	return s, effects
}

func onSchemaLoaded(s Session, e SchemaLoaded) Session {
	if e.Generation != s.Generation || e.ProviderType != s.ProviderType() || e.AuthType != s.AuthTypeValue() {
		return s
	}
	if s.Schema.Status != SchemaLoading {
		return s
	}
	switch {
	case e.Err != nil:
		msg := loadFailure("configuration schema", e.Err)
		s.Schema = SchemaState{Status: SchemaLoadFailed, Message: msg}
		s.Notice = msg
	case e.Schema.ComingSoon:
		msg := e.Schema.Message
		if msg == "" {
			msg = fmt.Sprintf("%s is coming soon", s.SelectedProvider.DisplayName)
		}
		s.Schema = SchemaState{Status: SchemaComingSoon, Message: msg}
		s.Notice = msg
	default:
		s.Schema = SchemaState{Status: SchemaReady, Fields: e.Schema.Fields}
		s.Values = SeedDefaults(e.Schema.Fields, pruneValues(e.Schema.Fields, s.Values))
	}
	return s
}

// pruneValues drops keys that the schema does not declare.
func pruneValues(fields []domain.FieldSpec, values domain.Values) domain.Values {
	out := domain.Values{}
	for _, f := range fields {
		if v, ok := values[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

func onCredentialsLoaded(s Session, e CredentialsLoaded) Session {
	if e.Generation != s.Generation || e.ProviderType != s.ProviderType() {
		return s
	}
	s.CredentialsLoading = false
	if e.Err != nil {
		msg := loadFailure("credentials", e.Err)
		s.CredentialsError = msg
		s.Notice = msg
		return s
	}
	s.CredentialsError = ""
	s.Credentials = e.Credentials
	if s.Credentials == nil {
		s.Credentials = []domain.CredentialSummary{}
	}
	if _, ok := s.SelectedCredential(); !ok {
		s.SelectedCredentialID = nil
	}
	return s
}

func onRetry(s Session) (Session, []Effect) {
	s.Notice = ""
	switch {
	case s.Step == 1 && len(s.Categories) == 0 && !s.ProvidersLoading:
		s.ProvidersLoading = true
		return s, []Effect{LoadProvidersEffect{Flow: s.Flow}}
	case s.StepKind() == StepSelectAuthType && !s.AuthTypesLoading && s.SelectedProvider != nil:
		return loadAuthTypes(s)
	case s.Step == s.Flow.SchemaStep() && (s.Schema.Status == SchemaLoadFailed || s.CredentialsError != ""):
		return startStepLoads(s)
	}
	return s, nil
}

func onCredentialSelected(s Session, e CredentialSelected) Session {
	if s.Flow != FlowVectorStore {
		return s
	}
	for _, c := range s.Credentials {
		if c.ID == e.ID {
			id := e.ID
			s.SelectedCredentialID = &id
			s.Notice = ""
			return s
		}
	}
	s.Notice = fmt.Sprintf("Credential %d is not available for this provider", e.ID)
	return s
}

func onValueChanged(s Session, e ValueChanged) Session {
	if !s.Schema.Ready() {
		s.Notice = "Configuration schema is not loaded"
		return s
	}
	field, ok := domain.FieldByName(s.Schema.Fields, e.Name)
	if !ok {
		s.Notice = fmt.Sprintf("Unknown field %q", e.Name)
		return s
	}
	values := s.Values.Clone()
	if e.Value == nil {
		delete(values, e.Name)
		s.Values = values
		return s
	}
	v, err := CoerceValue(field, e.Value)
	if err != nil {
		s.Notice = err.Error()
		return s
	}
	values[e.Name] = v
	s.Values = values
	s.Notice = ""
	return s
}

func onTestRequested(s Session) (Session, []Effect) {
	if s.SelectedProvider == nil || !s.Schema.Ready() {
		s.Notice = "Load the configuration before testing the connection"
		return s, nil
	}
	s.TestToken++
	s.Testing = true
	s.TestResult = nil
	s.Notice = ""
	return s, []Effect{TestConnectionEffect{
		Flow:         s.Flow,
		Token:        s.TestToken,
		ProviderType: s.ProviderType(),
		AuthType:     s.AuthTypeValue(),
		Config:       SubmitConfig(s.Schema.Fields, s.Values),
	}}
}

func onSubmitRequested(s Session) (Session, []Effect) {
	if s.Submitting {
		return s, nil
	}
	if s.Step != StepCount || !StepValid(s, s.Step) {
		s.Notice = firstProblem(s, s.Step)
		return s, nil
	}
	s.Submitting = true
	s.SubmitError = ""
	s.Notice = ""
	eff := SubmitEffect{Flow: s.Flow}
	if s.Flow == FlowVectorStore {
		p := BuildVectorStorePayload(s)
		eff.VectorStore = &p
	} else {
		p := BuildCredentialPayload(s)
		eff.Credential = &p
	}
	return s, []Effect{eff}
}

func onSubmitCompleted(s Session, e SubmitCompleted) Session {
	if !s.Submitting {
		return s
	}
	s.Submitting = false
	if e.Result.Success {
		s.Done = true
		s.CreatedID = e.Result.ID
		s.Notice = e.Result.Message
		return s
	}
	msg := e.Result.Message
	if msg == "" {
		msg = FallbackFailure(s.Flow)
	}
	s.SubmitError = msg
	s.Notice = msg
	return s
}

func loadFailure(what string, err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Detail != "" {
		return fmt.Sprintf("Failed to load %s: %s", what, de.Detail)
	}
	return fmt.Sprintf("Failed to load %s: %v", what, err)
}
