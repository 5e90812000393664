package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"vectorportal/internal/domain"
)

// IsVisible reports whether field is shown given the current values. A field
// without a visibility rule is always visible; otherwise every dependency
// must strictly equal its required value.
func IsVisible(field domain.FieldSpec, values domain.Values) bool {
	for dep, want := range field.VisibleWhen {
		if !domain.StrictEqual(values[dep], want) {
			return false
		}
	}
	return true
}

// VisibleFields returns the visible fields in schema order.
func VisibleFields(fields []domain.FieldSpec, values domain.Values) []domain.FieldSpec {
	out := make([]domain.FieldSpec, 0, len(fields))
	for _, f := range fields {
		if IsVisible(f, values) {
			out = append(out, f)
		}
	}
	return out
}

// SeedDefaults returns values with each field's default filled in where no
// entry exists yet. Existing entries are never replaced, so seeding twice is
// the same as seeding once.
func SeedDefaults(fields []domain.FieldSpec, values domain.Values) domain.Values {
	out := values.Clone()
	for _, f := range fields {
		if f.Default == nil {
			continue
		}
		if _, ok := out[f.Name]; ok {
			continue
		}
		out[f.Name] = f.Default
	}
	return out
}

// StepValid reports whether the given step's data is complete.
func StepValid(s Session, step int) bool {
	switch s.Flow.StepKind(step) {
	case StepSelectProvider:
		return s.SelectedProvider != nil && s.SelectedProvider.Availability.Usable()
	case StepSelectAuthType:
		return s.SelectedAuthType != nil
	case StepConfigure, StepReview:
		return configureValid(s)
	default:
		return false
	}
}

func configureValid(s Session) bool {
	if strings.TrimSpace(s.DisplayName) == "" {
		return false
	}
	if s.Flow == FlowVectorStore && s.SelectedCredentialID == nil {
		return false
	}
	if !s.Schema.Ready() {
		return false
	}
	for _, f := range s.Schema.Fields {
		if f.Required && IsVisible(f, s.Values) && !s.Values.Has(f.Name) {
			return false
		}
	}
	return true
}

// Problems explains why a step does not validate, plus advisory range
// warnings for number fields that do not block the step.
func Problems(s Session, step int) []string {
	var out []string
	switch s.Flow.StepKind(step) {
	case StepSelectProvider:
		switch {
		case s.SelectedProvider == nil:
			out = append(out, "Select a provider")
		case !s.SelectedProvider.Availability.Usable():
			out = append(out, fmt.Sprintf("%s is coming soon", s.SelectedProvider.DisplayName))
		}
	case StepSelectAuthType:
		if s.SelectedAuthType == nil {
			out = append(out, "Select an authentication type")
		}
	case StepConfigure, StepReview:
		if strings.TrimSpace(s.DisplayName) == "" {
			out = append(out, fmt.Sprintf("Enter a %s name", s.Flow.Subject()))
		}
		if s.Flow == FlowVectorStore && s.SelectedCredentialID == nil {
			out = append(out, "Select a credential")
		}
		switch s.Schema.Status {
		case SchemaLoading:
			out = append(out, "Configuration schema is still loading")
		case SchemaLoadFailed:
			out = append(out, "Configuration schema failed to load: "+s.Schema.Message)
		case SchemaComingSoon:
			out = append(out, s.Schema.Message)
		case SchemaIdle:
			out = append(out, "Configuration schema not loaded")
		}
		for _, f := range s.Schema.Fields {
			if !IsVisible(f, s.Values) {
				continue
			}
			if f.Required && !s.Values.Has(f.Name) {
				out = append(out, fmt.Sprintf("%s is required", fieldLabel(f)))
				continue
			}
			if k, ok := f.Kind.(domain.NumberKind); ok {
				if n, isNum := s.Values[f.Name].(float64); isNum && !k.InRange(n) {
					out = append(out, fmt.Sprintf("%s must be between %s and %s", fieldLabel(f), bound(k.Min), bound(k.Max)))
				}
			}
		}
	}
	return out
}

func fieldLabel(f domain.FieldSpec) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func bound(b *float64) string {
	if b == nil {
		return "any"
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}

// CoerceValue converts raw user input into the scalar type of the field's kind.
// Empty input is returned as "" so the field counts as missing.
func CoerceValue(field domain.FieldSpec, raw any) (any, error) {
	raw = domain.NormalizeValue(raw)
	switch k := field.Kind.(type) {
	case domain.TextKind, domain.PasswordKind, domain.TextareaKind:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
	case domain.NumberKind:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return "", nil
			}
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, fieldLabel(field))
			}
			return n, nil
		}
	case domain.CheckboxKind:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "y", "on", "1":
				return true, nil
			case "false", "no", "n", "off", "0", "":
				return false, nil
			}
			return nil, fmt.Errorf("%w: %s must be yes or no", domain.ErrInvalidInput, fieldLabel(field))
		}
	case domain.SelectKind:
		var v string
		switch r := raw.(type) {
		case string:
			v = r
		case float64:
			v = strconv.FormatFloat(r, 'f', -1, 64)
		case bool:
			v = strconv.FormatBool(r)
		default:
			return nil, fmt.Errorf("%w: unsupported value for %s", domain.ErrInvalidInput, fieldLabel(field))
		}
		if v == "" || k.HasValue(v) {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %q is not an option of %s", domain.ErrInvalidInput, v, fieldLabel(field))
	default:
		return nil, fmt.Errorf("%w: %T on field %q", domain.ErrUnknownFieldKind, field.Kind, field.Name)
	}
	return nil, fmt.Errorf("%w: unsupported value for %s", domain.ErrInvalidInput, fieldLabel(field))
}
