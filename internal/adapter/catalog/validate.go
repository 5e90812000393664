package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"vectorportal/internal/domain"
	"vectorportal/internal/usecase/wizard"
)

const jsonSchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// ValidateCredential checks a credential config against its auth type's
// schema and returns the config as it should be stored: visible, non-empty
// values only.
func (c *Catalog) ValidateCredential(providerType, authType string, config domain.Values) (domain.Values, error) {
	p, m, err := c.authMethod(providerType, authType)
	if err != nil {
		return nil, err
	}
	if !p.desc.Availability.Usable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrComingSoon, p.desc.DisplayName)
	}
	return c.validate("credential/"+providerType+"/"+authType, m.fields, config)
}

// ValidateVectorStore checks a vector-store config against its schema.
func (c *Catalog) ValidateVectorStore(providerType string, config domain.Values) (domain.Values, error) {
	s, ok := c.store(providerType)
	if !ok {
		return nil, fmt.Errorf("%w: vector store %q", domain.ErrNotFound, providerType)
	}
	if !s.desc.Availability.Usable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrComingSoon, s.desc.DisplayName)
	}
	return c.validate("vector-store/"+providerType, s.fields, config)
}

func (c *Catalog) validate(key string, fields []domain.FieldSpec, config domain.Values) (domain.Values, error) {
	values := make(domain.Values, len(config))
	for name, v := range config {
		if _, ok := domain.FieldByName(fields, name); !ok {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrConfigInvalid, name)
		}
		values[name] = domain.NormalizeValue(v)
	}
	clean := wizard.SubmitConfig(fields, values)

	if problems := fieldProblems(fields, clean); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigInvalid, strings.Join(problems, "; "))
	}

	schema, err := c.validator(key, fields)
	if err != nil {
		return nil, err
	}
	result := schema.Validate(map[string]any(clean))
	if !result.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigInvalid, result.Error())
	}
	return clean, nil
}

// fieldProblems reports violations in the wording the wizard uses, so a
// server-side rejection reads like a local one.
func fieldProblems(fields []domain.FieldSpec, values domain.Values) []string {
	var out []string
	for _, f := range wizard.VisibleFields(fields, values) {
		v, ok := values[f.Name]
		if !ok {
			if f.Required {
				out = append(out, label(f)+" is required")
			}
			continue
		}
		switch k := f.Kind.(type) {
		case domain.NumberKind:
			n, isNum := v.(float64)
			switch {
			case !isNum:
				out = append(out, label(f)+" must be a number")
			case !k.InRange(n):
				out = append(out, fmt.Sprintf("%s must be between %s and %s", label(f), bound(k.Min), bound(k.Max)))
			}
		case domain.SelectKind:
			s, isStr := v.(string)
			if len(k.Options) > 0 && (!isStr || !k.HasValue(s)) {
				out = append(out, fmt.Sprintf("%s must be one of %s", label(f), strings.Join(optionValues(k), ", ")))
			}
		case domain.CheckboxKind:
			if _, isBool := v.(bool); !isBool {
				out = append(out, label(f)+" must be true or false")
			}
		case domain.TextKind, domain.PasswordKind, domain.TextareaKind:
			if _, isStr := v.(string); !isStr {
				out = append(out, label(f)+" must be text")
			}
		}
	}
	return out
}

func label(f domain.FieldSpec) string {
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

func optionValues(k domain.SelectKind) []string {
	out := make([]string, 0, len(k.Options))
	for _, o := range k.Options {
		out = append(out, o.Value)
	}
	return out
}

func (c *Catalog) validator(key string, fields []domain.FieldSpec) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.validators[key]; ok {
		return s, nil
	}
	raw, err := JSONSchema(fields)
	if err != nil {
		return nil, err
	}
	s, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %v", domain.ErrSchemaInvalid, key, err)
	}
	c.validators[key] = s
	return s, nil
}

// JSONSchema renders a field list as a JSON Schema document. Fields with a
// visibility rule are only required when the rule holds.
func JSONSchema(fields []domain.FieldSpec) ([]byte, error) {
	props := make(map[string]any, len(fields))
	var required []string
	var conditional []any

	for _, f := range fields {
		prop := map[string]any{}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		switch k := f.Kind.(type) {
		case domain.NumberKind:
			prop["type"] = "number"
			if k.Min != nil {
				prop["minimum"] = *k.Min
			}
			if k.Max != nil {
				prop["maximum"] = *k.Max
			}
		case domain.SelectKind:
			prop["type"] = "string"
			if len(k.Options) > 0 {
				prop["enum"] = optionValues(k)
			}
		case domain.CheckboxKind:
			prop["type"] = "boolean"
		default:
			prop["type"] = "string"
		}
		props[f.Name] = prop

		if !f.Required {
			continue
		}
		if len(f.VisibleWhen) == 0 {
			required = append(required, f.Name)
			continue
		}
		deps := make([]string, 0, len(f.VisibleWhen))
		when := make(map[string]any, len(f.VisibleWhen))
		for dep, want := range f.VisibleWhen {
			deps = append(deps, dep)
			when[dep] = map[string]any{"const": want}
		}
		sort.Strings(deps)
		conditional = append(conditional, map[string]any{
			"if":   map[string]any{"properties": when, "required": deps},
			"then": map[string]any{"required": []string{f.Name}},
		})
	}

	doc := map[string]any{
		"$schema":              jsonSchemaDraft,
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	if len(conditional) > 0 {
		doc["allOf"] = conditional
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: render json schema: %v", domain.ErrSchemaInvalid, err)
	}
	return data, nil
}
