// Package catalog serves the provider catalog of the reference gateway:
// which credential providers and vector stores exist, their auth types,
// their field schemas, and how each one is probed.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"vectorportal/internal/domain"
)

//go:embed catalog.yaml
var embedded []byte

// Probe kinds.
const (
	ProbeNone  = ""
	ProbeTCP   = "tcp"
	ProbeHTTP  = "http"
	ProbeURI   = "uri"
	ProbeAWS   = "aws"
	ProbeRedis = "redis"
)

// Probe describes how a connection test reaches a provider. Field names
// refer to config keys; URL and Header may reference config values as
// {field}.
type Probe struct {
	Kind        string `yaml:"kind"`
	URL         string `yaml:"url"`
	URLField    string `yaml:"url_field"`
	HostField   string `yaml:"host_field"`
	PortField   string `yaml:"port_field"`
	URIField    string `yaml:"uri_field"`
	DefaultPort int    `yaml:"default_port"`
	Header      string `yaml:"header"`

	// Basic auth is sent when both fields hold a value.
	UserField     string `yaml:"user_field"`
	PasswordField string `yaml:"password_field"`
}

type authEntry struct {
	domain.AuthType `yaml:",inline"`
	Fields          []domain.RawField `yaml:"fields"`
	Probe           Probe             `yaml:"probe"`
}

type providerEntry struct {
	ProviderType string              `yaml:"provider_type"`
	Name         string              `yaml:"name"`
	Category     string              `yaml:"category"`
	Icon         string              `yaml:"icon"`
	Status       domain.Availability `yaml:"status"`
	Description  string              `yaml:"description"`
	AuthTypes    []authEntry         `yaml:"auth_types"`
	Credentials  []string            `yaml:"credentials"`
	Fields       []domain.RawField   `yaml:"fields"`
	Probe        Probe               `yaml:"probe"`
}

type document struct {
	CredentialProviders   []providerEntry `yaml:"credential_providers"`
	VectorStoreCategories []string        `yaml:"vector_store_categories"`
	VectorStores          []providerEntry `yaml:"vector_stores"`
}

type authMethod struct {
	info   domain.AuthType
	fields []domain.FieldSpec
	probe  Probe
}

type credentialProvider struct {
	desc  domain.ProviderDescriptor
	auths []authMethod
}

type vectorStore struct {
	desc        domain.ProviderDescriptor
	credentials []string
	fields      []domain.FieldSpec
	probe       Probe
}

// Catalog is an immutable, parsed provider catalog. Compiled validation
// schemas are cached lazily.
type Catalog struct {
	credentials []credentialProvider
	stores      []vectorStore
	categories  []string

	mu         sync.Mutex
	validators map[string]*jsonschema.Schema
}

// Load parses the catalog embedded in the binary.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse decodes a catalog document and checks every schema in it.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrSchemaInvalid, err)
	}

	c := &Catalog{
		categories: doc.VectorStoreCategories,
		validators: make(map[string]*jsonschema.Schema),
	}

	seen := make(map[string]bool)
	for _, e := range doc.CredentialProviders {
		if e.ProviderType == "" || seen[e.ProviderType] {
			return nil, fmt.Errorf("%w: duplicate or empty credential provider %q", domain.ErrSchemaInvalid, e.ProviderType)
		}
		seen[e.ProviderType] = true

		p := credentialProvider{desc: descriptor(e)}
		for _, a := range e.AuthTypes {
			fields, err := parseFields(a.Fields)
			if err != nil {
				return nil, fmt.Errorf("credential %s/%s: %w", e.ProviderType, a.Value, err)
			}
			p.auths = append(p.auths, authMethod{info: a.AuthType, fields: fields, probe: a.Probe})
			p.desc.AuthTypes = append(p.desc.AuthTypes, a.AuthType)
		}
		c.credentials = append(c.credentials, p)
	}

	clear(seen)
	for _, e := range doc.VectorStores {
		if e.ProviderType == "" || seen[e.ProviderType] {
			return nil, fmt.Errorf("%w: duplicate or empty vector store %q", domain.ErrSchemaInvalid, e.ProviderType)
		}
		seen[e.ProviderType] = true
		if !slices.Contains(c.categories, e.Category) {
			return nil, fmt.Errorf("%w: vector store %q has unknown category %q", domain.ErrSchemaInvalid, e.ProviderType, e.Category)
		}
		fields, err := parseFields(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("vector store %s: %w", e.ProviderType, err)
		}
		c.stores = append(c.stores, vectorStore{
			desc:        descriptor(e),
			credentials: e.Credentials,
			fields:      fields,
			probe:       e.Probe,
		})
	}
	return c, nil
}

func descriptor(e providerEntry) domain.ProviderDescriptor {
	status := e.Status
	if status == "" {
		status = domain.AvailabilityAvailable
	}
	return domain.ProviderDescriptor{
		ProviderType: e.ProviderType,
		DisplayName:  e.Name,
		Category:     e.Category,
		Description:  e.Description,
		Icon:         e.Icon,
		Availability: status,
	}
}

func parseFields(raw []domain.RawField) ([]domain.FieldSpec, error) {
	fields, err := domain.ParseFields(raw)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckSchema(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ComingSoonMessage is the schema message of a provider that cannot be
// configured yet.
func ComingSoonMessage(displayName string) string {
	return displayName + " integration is coming soon! We're working hard to bring you this feature."
}

// CredentialProviders returns every credential provider in catalog order,
// with its auth types.
func (c *Catalog) CredentialProviders() []domain.ProviderDescriptor {
	out := make([]domain.ProviderDescriptor, 0, len(c.credentials))
	for _, p := range c.credentials {
		d := p.desc
		d.AuthTypes = slices.Clone(p.desc.AuthTypes)
		out = append(out, d)
	}
	return out
}

// CredentialProvider returns the descriptor of one credential provider.
func (c *Catalog) CredentialProvider(providerType string) (domain.ProviderDescriptor, bool) {
	p, ok := c.credential(providerType)
	if !ok {
		return domain.ProviderDescriptor{}, false
	}
	return p.desc, true
}

func (c *Catalog) credential(providerType string) (*credentialProvider, bool) {
	for i := range c.credentials {
		if c.credentials[i].desc.ProviderType == providerType {
			return &c.credentials[i], true
		}
	}
	return nil, false
}

func (c *Catalog) authMethod(providerType, authType string) (*credentialProvider, *authMethod, error) {
	p, ok := c.credential(providerType)
	if !ok {
		return nil, nil, fmt.Errorf("%w: credential provider %q", domain.ErrNotFound, providerType)
	}
	for i := range p.auths {
		if p.auths[i].info.Value == authType {
			return p, &p.auths[i], nil
		}
	}
	return p, nil, fmt.Errorf("%w: auth type %q for %s", domain.ErrNotFound, authType, providerType)
}

// AuthTypes returns the auth types of a credential provider in catalog order.
func (c *Catalog) AuthTypes(providerType string) ([]domain.AuthType, error) {
	p, ok := c.credential(providerType)
	if !ok {
		return nil, fmt.Errorf("%w: credential provider %q", domain.ErrNotFound, providerType)
	}
	return slices.Clone(p.desc.AuthTypes), nil
}

// CredentialSchema returns the field schema of one auth type. A provider
// that is not usable yet answers with a coming-soon schema.
func (c *Catalog) CredentialSchema(providerType, authType string) (domain.Schema, error) {
	p, ok := c.credential(providerType)
	if !ok {
		return domain.Schema{}, fmt.Errorf("%w: credential provider %q", domain.ErrNotFound, providerType)
	}
	if !p.desc.Availability.Usable() {
		return domain.Schema{ComingSoon: true, Message: ComingSoonMessage(p.desc.DisplayName)}, nil
	}
	_, m, err := c.authMethod(providerType, authType)
	if err != nil {
		return domain.Schema{}, err
	}
	return domain.Schema{Fields: slices.Clone(m.fields)}, nil
}

// CredentialProbe returns how a credential of the given kind is tested.
func (c *Catalog) CredentialProbe(providerType, authType string) (Probe, error) {
	_, m, err := c.authMethod(providerType, authType)
	if err != nil {
		return Probe{}, err
	}
	return m.probe, nil
}

func (c *Catalog) store(providerType string) (*vectorStore, bool) {
	for i := range c.stores {
		if c.stores[i].desc.ProviderType == providerType {
			return &c.stores[i], true
		}
	}
	return nil, false
}

// VectorStore returns the descriptor of one vector-store provider.
func (c *Catalog) VectorStore(providerType string) (domain.ProviderDescriptor, bool) {
	s, ok := c.store(providerType)
	if !ok {
		return domain.ProviderDescriptor{}, false
	}
	return s.desc, true
}

// VectorStoreCategories groups vector-store providers by category in the
// catalog's category order. Empty categories are omitted.
func (c *Catalog) VectorStoreCategories() []domain.ProviderCategory {
	var out []domain.ProviderCategory
	for _, name := range c.categories {
		cat := domain.ProviderCategory{Name: name}
		for _, s := range c.stores {
			if s.desc.Category == name {
				cat.Providers = append(cat.Providers, s.desc)
			}
		}
		if len(cat.Providers) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// VectorStoreSchema returns the field schema of a vector-store provider.
func (c *Catalog) VectorStoreSchema(providerType string) (domain.Schema, error) {
	s, ok := c.store(providerType)
	if !ok {
		return domain.Schema{}, fmt.Errorf("%w: vector store %q", domain.ErrNotFound, providerType)
	}
	if !s.desc.Availability.Usable() {
		return domain.Schema{ComingSoon: true, Message: ComingSoonMessage(s.desc.DisplayName)}, nil
	}
	return domain.Schema{Fields: slices.Clone(s.fields)}, nil
}

// VectorStoreProbe returns how a vector-store connection is tested.
func (c *Catalog) VectorStoreProbe(providerType string) (Probe, error) {
	s, ok := c.store(providerType)
	if !ok {
		return Probe{}, fmt.Errorf("%w: vector store %q", domain.ErrNotFound, providerType)
	}
	return s.probe, nil
}

// CompatibleCredentialTypes lists the credential provider types a vector
// store can authenticate with. Unknown stores map to their own type.
func (c *Catalog) CompatibleCredentialTypes(vectorStoreType string) []string {
	if s, ok := c.store(vectorStoreType); ok && len(s.credentials) > 0 {
		return slices.Clone(s.credentials)
	}
	return []string{vectorStoreType}
}
