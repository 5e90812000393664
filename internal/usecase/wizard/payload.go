package wizard

import (
	"strings"

	"vectorportal/internal/domain"
)

// Fallback messages used when a create call fails without a server message.
const (
	FallbackCredentialFailure  = "Failed to create credential"
	FallbackVectorStoreFailure = "Failed to create vector store"
	FallbackTestFailure        = "Connection test failed"
)

// SubmitConfig returns the values sent to the gateway: visible fields with
// a non-empty value, in no particular order.
func SubmitConfig(fields []domain.FieldSpec, values domain.Values) domain.Values {
	out := domain.Values{}
	for _, f := range fields {
		if IsVisible(f, values) && values.Has(f.Name) {
			out[f.Name] = values[f.Name]
		}
	}
	return out
}

// BuildCredentialPayload assembles the credential create request.
func BuildCredentialPayload(s Session) domain.CredentialPayload {
	return domain.CredentialPayload{
		Name:         strings.TrimSpace(s.DisplayName),
		ProviderType: s.ProviderType(),
		AuthType:     s.AuthTypeValue(),
		Config:       SubmitConfig(s.Schema.Fields, s.Values),
		Description:  strings.TrimSpace(s.Description),
	}
}

// BuildVectorStorePayload assembles the vector-store create request.
func BuildVectorStorePayload(s Session) domain.VectorStorePayload {
	var credID int64
	if s.SelectedCredentialID != nil {
		credID = *s.SelectedCredentialID
	}
	return domain.VectorStorePayload{
		DisplayName:  strings.TrimSpace(s.DisplayName),
		ProviderType: s.ProviderType(),
		CredentialID: credID,
		Config:       SubmitConfig(s.Schema.Fields, s.Values),
		Description:  strings.TrimSpace(s.Description),
	}
}

// FallbackFailure returns the generic failure message of the flow.
func FallbackFailure(flow Flow) string {
	if flow == FlowVectorStore {
		return FallbackVectorStoreFailure
	}
	return FallbackCredentialFailure
}
