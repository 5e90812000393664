package wizard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vectorportal/internal/domain"
)

// Answers pre-fills a wizard run without a terminal. Values are keyed by
// field name and coerced to each field's kind.
type Answers struct {
	Flow        string         `yaml:"flow"`
	Provider    string         `yaml:"provider"`
	AuthType    string         `yaml:"auth_type,omitempty"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Credential  string         `yaml:"credential,omitempty"`
	Values      map[string]any `yaml:"values,omitempty"`
	Test        bool           `yaml:"test,omitempty"`
}

// Apply walks the driver's session through every step using a. confirm,
// when non-nil, sees the session on the final step and may decline the
// submission, which cancels the session. The returned session is the last
// state reached; the error explains where the run stopped.
func Apply(ctx context.Context, d *Driver, a Answers, confirm func(Session) bool) (Session, error) {
	s := d.Dispatch(ctx, Opened{})
	if len(s.Categories) == 0 {
		return s, stopped(s, "load providers", domain.ErrLoadFailed)
	}

	s = d.Dispatch(ctx, ProviderSelected{ProviderType: a.Provider})
	if s.ProviderType() != a.Provider {
		return s, stopped(s, "select provider", domain.ErrInvalidInput)
	}
	if s = d.Dispatch(ctx, Advance{Target: 2}); s.Step != 2 {
		return s, stopped(s, "leave provider step", domain.ErrInvalidInput)
	}

	if s.Flow == FlowCredential {
		s = d.Dispatch(ctx, AuthTypeSelected{Value: a.AuthType})
		if s = d.Dispatch(ctx, Advance{Target: 3}); s.Step != 3 {
			return s, stopped(s, "select auth type", domain.ErrInvalidInput)
		}
	}
	if !s.Schema.Ready() {
		return s, stopped(s, "load schema", domain.ErrLoadFailed)
	}

	d.Dispatch(ctx, NameChanged{Value: a.Name})
	if a.Description != "" {
		d.Dispatch(ctx, DescriptionChanged{Value: a.Description})
	}
	names := make([]string, 0, len(a.Values))
	for k := range a.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		s = d.Dispatch(ctx, ValueChanged{Name: name, Value: a.Values[name]})
		if s.Notice != "" {
			return s, stopped(s, "set "+name, domain.ErrInvalidInput)
		}
	}

	if s.Flow == FlowVectorStore {
		id, ok := resolveCredential(s.Credentials, a.Credential)
		if !ok {
			return s, fmt.Errorf("%w: credential %q is not available for %s", domain.ErrInvalidInput, a.Credential, a.Provider)
		}
		s = d.Dispatch(ctx, CredentialSelected{ID: id})
	}

	if a.Test {
		s = d.Dispatch(ctx, TestRequested{})
	}

	if s.Flow == FlowVectorStore {
		if s = d.Dispatch(ctx, Advance{Target: 3}); s.Step != 3 {
			return s, stopped(s, "configure", domain.ErrInvalidInput)
		}
	}

	if confirm != nil && !confirm(s) {
		return d.Dispatch(ctx, Cancelled{}), nil
	}

	s = d.Dispatch(ctx, SubmitRequested{})
	if !s.Done {
		if s.SubmitError != "" {
			return s, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, s.SubmitError)
		}
		return s, stopped(s, "submit", domain.ErrInvalidInput)
	}
	return s, nil
}

func resolveCredential(creds []domain.CredentialSummary, ref string) (int64, bool) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, c := range creds {
			if c.ID == id {
				return id, true
			}
		}
	}
	for _, c := range creds {
		if c.Name == ref {
			return c.ID, true
		}
	}
	if ref == "" && len(creds) == 1 {
		return creds[0].ID, true
	}
	return 0, false
}

func stopped(s Session, stage string, sentinel error) error {
	detail := s.Notice
	if detail == "" {
		detail = strings.Join(Problems(s, s.Step), "; ")
	}
	if detail == "" {
		return fmt.Errorf("%s: %w", stage, sentinel)
	}
	return fmt.Errorf("%s: %w: %s", stage, sentinel, detail)
}
