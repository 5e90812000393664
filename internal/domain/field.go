package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FieldKind is the closed set of input kinds a FieldSpec can declare.
// The unexported marker keeps the set sealed to this package; consumers
// switch over the six variants exhaustively.
type FieldKind interface {
	// Type returns the wire name of the kind ("text", "password", ...).
	Type() string
	isFieldKind()
}

// TextKind is a single-line text input.
type TextKind struct{}

// PasswordKind is a secret single-line input. Its values are masked on review.
type PasswordKind struct{}

// NumberKind is a numeric input with optional inclusive bounds.
type NumberKind struct {
	Min *float64
	Max *float64
}

// SelectKind is a choice among ordered options.
type SelectKind struct {
	Options []SelectOption
}

// CheckboxKind is a boolean toggle.
type CheckboxKind struct{}

// TextareaKind is a multi-line text input.
type TextareaKind struct{}

func (TextKind) Type() string     { return "text" }
func (PasswordKind) Type() string { return "password" }
func (NumberKind) Type() string   { return "number" }
func (SelectKind) Type() string   { return "select" }
func (CheckboxKind) Type() string { return "checkbox" }
func (TextareaKind) Type() string { return "textarea" }

func (TextKind) isFieldKind()     {}
func (PasswordKind) isFieldKind() {}
func (NumberKind) isFieldKind()   {}
func (SelectKind) isFieldKind()   {}
func (CheckboxKind) isFieldKind() {}
func (TextareaKind) isFieldKind() {}

// InRange reports whether v satisfies the kind's bounds.
func (k NumberKind) InRange(v float64) bool {
	if k.Min != nil && v < *k.Min {
		return false
	}
	if k.Max != nil && v > *k.Max {
		return false
	}
	return true
}

// SelectOption is one choice of a select field.
type SelectOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Label returns the label of the option whose value is v, or v itself.
func (k SelectKind) Label(v string) string {
	for _, o := range k.Options {
		if o.Value == v {
			return o.Label
		}
	}
	return v
}

// HasValue reports whether v is one of the declared option values.
func (k SelectKind) HasValue(v string) bool {
	for _, o := range k.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// FieldSpec describes one configurable input declared by the gateway.
type FieldSpec struct {
	Name        string
	Label       string
	Kind        FieldKind
	Required    bool
	Placeholder string
	Description string
	Default     any
	VisibleWhen map[string]any
}

// IsSecret reports whether the field holds a secret value.
func (f FieldSpec) IsSecret() bool {
	_, ok := f.Kind.(PasswordKind)
	return ok
}

// RawField is the wire shape of a FieldSpec, shared by the gateway JSON
// and the embedded YAML catalog.
type RawField struct {
	Name        string         `json:"name" yaml:"name"`
	Label       string         `json:"label" yaml:"label"`
	Type        string         `json:"type" yaml:"type"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any            `json:"default,omitempty" yaml:"default,omitempty"`
	Min         *float64       `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64       `json:"max,omitempty" yaml:"max,omitempty"`
	Options     []SelectOption `json:"options,omitempty" yaml:"options,omitempty"`
	ShowIf      map[string]any `json:"showIf,omitempty" yaml:"showIf,omitempty"`
}

// Spec converts the wire shape into a FieldSpec.
func (r RawField) Spec() (FieldSpec, error) {
	if r.Name == "" {
		return FieldSpec{}, fmt.Errorf("%w: field without name", ErrSchemaInvalid)
	}
	var kind FieldKind
	switch r.Type {
	case "text", "":
		kind = TextKind{}
	case "password":
		kind = PasswordKind{}
	case "number":
		kind = NumberKind{Min: r.Min, Max: r.Max}
	case "select":
		kind = SelectKind{Options: r.Options}
	case "checkbox":
		kind = CheckboxKind{}
	case "textarea":
		kind = TextareaKind{}
	default:
		return FieldSpec{}, fmt.Errorf("%w: %q on field %q", ErrUnknownFieldKind, r.Type, r.Name)
	}
	return FieldSpec{
		Name:        r.Name,
		Label:       r.Label,
		Kind:        kind,
		Required:    r.Required,
		Placeholder: r.Placeholder,
		Description: r.Description,
		Default:     NormalizeValue(r.Default),
		VisibleWhen: normalizeMap(r.ShowIf),
	}, nil
}

// Raw converts a FieldSpec back into its wire shape.
func (f FieldSpec) Raw() RawField {
	r := RawField{
		Name:        f.Name,
		Label:       f.Label,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		Description: f.Description,
		Default:     f.Default,
		ShowIf:      f.VisibleWhen,
	}
	switch k := f.Kind.(type) {
	case TextKind, PasswordKind, CheckboxKind, TextareaKind:
		r.Type = k.Type()
	case NumberKind:
		r.Type = k.Type()
		r.Min, r.Max = k.Min, k.Max
	case SelectKind:
		r.Type = k.Type()
		r.Options = k.Options
	default:
		r.Type = "text"
	}
	return r
}

// MarshalJSON encodes the field in its wire shape.
func (f FieldSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Raw())
}

// UnmarshalJSON decodes the wire shape and validates the kind.
func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	var r RawField
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	spec, err := r.Spec()
	if err != nil {
		return err
	}
	*f = spec
	return nil
}

// ParseFields converts an ordered list of wire fields, preserving order.
func ParseFields(raw []RawField) ([]FieldSpec, error) {
	fields := make([]FieldSpec, 0, len(raw))
	for _, r := range raw {
		f, err := r.Spec()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// CheckSchema reports structural problems: duplicate names and visibility
// rules that reference fields outside the schema.
func CheckSchema(fields []FieldSpec) error {
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		if names[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrSchemaInvalid, f.Name)
		}
		names[f.Name] = true
	}
	for _, f := range fields {
		deps := make([]string, 0, len(f.VisibleWhen))
		for dep := range f.VisibleWhen {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if !names[dep] {
				return fmt.Errorf("%w: field %q is visible when unknown field %q", ErrSchemaInvalid, f.Name, dep)
			}
		}
	}
	return nil
}

// FieldByName returns the field with the given name.
func FieldByName(fields []FieldSpec, name string) (FieldSpec, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
