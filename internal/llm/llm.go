// Package llm exposes the configured AI providers behind a uniform
// text/object generation capability. Providers are declared in an
// embedded catalog; only those with credentials become usable.
package llm

import (
	"context"
	_ "embed"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Provider is one catalog entry.
type Provider struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	DefaultModel string `yaml:"default_model" json:"default_model"`
	Enabled      bool   `yaml:"enabled" json:"enabled"`
}

type catalog struct {
	Providers []Provider `yaml:"providers"`
}

// Credentials carries provider API keys and optional model overrides.
// The registry never reads the environment; callers decide where these
// values come from.
type Credentials struct {
	OpenAIKey   string
	OpenAIModel string

	AnthropicKey   string
	AnthropicModel string

	PerplexityKey     string
	PerplexityBaseURL string
	PerplexityModel   string
}

// Backend generates text or schema-constrained objects for one provider.
type Backend interface {
	GenerateText(ctx context.Context, model, system, prompt string) (string, error)
	GenerateObject(ctx context.Context, model, prompt string, schema *jsonschema.Schema, out any) error
}

// Registry resolves provider/model pairs to usable backends.
type Registry struct {
	providers []Provider
	backends  map[string]Backend
	limiter   *rate.Limiter
}

// Option configures the registry.
type Option func(*Registry)

// WithBackend overrides or injects the backend for a provider id.
func WithBackend(providerID string, b Backend) Option {
	return func(r *Registry) {
		r.backends[providerID] = b
	}
}

// WithRateLimit caps outbound provider calls per second across backends.
func WithRateLimit(perSecond int) Option {
	return func(r *Registry) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// NewRegistry parses the embedded catalog and constructs backends for
// every enabled provider whose credentials are present.
func NewRegistry(creds Credentials, opts ...Option) (*Registry, error) {
	var cat catalog
	if err := yaml.Unmarshal(catalogYAML, &cat); err != nil {
		return nil, eris.Wrap(err, "llm: parse provider catalog")
	}

	r := &Registry{
		providers: cat.Providers,
		backends:  map[string]Backend{},
		limiter:   rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i, p := range r.providers {
		if creds.modelOverride(p.ID) != "" {
			r.providers[i].DefaultModel = creds.modelOverride(p.ID)
		}
		if _, injected := r.backends[p.ID]; injected || !p.Enabled {
			continue
		}
		switch p.ID {
		case "openai":
			if creds.OpenAIKey != "" {
				r.backends[p.ID] = newOpenAIBackend(creds.OpenAIKey, r.limiter)
			}
		case "anthropic":
			if creds.AnthropicKey != "" {
				r.backends[p.ID] = newAnthropicBackend(creds.AnthropicKey, r.limiter)
			}
		case "perplexity":
			if creds.PerplexityKey != "" {
				r.backends[p.ID] = newPerplexityBackend(creds.PerplexityKey, creds.PerplexityBaseURL, r.limiter)
			}
		}
	}

	return r, nil
}

func (c Credentials) modelOverride(providerID string) string {
	switch providerID {
	case "openai":
		return c.OpenAIModel
	case "anthropic":
		return c.AnthropicModel
	case "perplexity":
		return c.PerplexityModel
	}
	return ""
}

// Enabled returns all enabled catalog providers, configured or not.
func (r *Registry) Enabled() []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Configured returns catalog providers that are enabled and have a backend.
func (r *Registry) Configured() []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Enabled && r.backends[p.ID] != nil {
			out = append(out, p)
		}
	}
	return out
}

// IsConfigured reports whether the provider is enabled and has a backend.
func (r *Registry) IsConfigured(providerID string) bool {
	p := r.provider(providerID)
	return p != nil && p.Enabled && r.backends[providerID] != nil
}

// DisplayName returns the catalog display name, or the id when unknown.
func (r *Registry) DisplayName(providerID string) string {
	if p := r.provider(providerID); p != nil {
		return p.Name
	}
	return providerID
}

func (r *Registry) provider(providerID string) *Provider {
	for i := range r.providers {
		if r.providers[i].ID == providerID {
			return &r.providers[i]
		}
	}
	return nil
}

// Model is a resolved provider/model pair ready to generate.
type Model struct {
	ProviderID   string
	ProviderName string
	Name         string
	backend      Backend
}

// Model resolves a provider/model pair. The model name defaults to the
// catalog default when empty. Returns nil, without error, when the
// provider is unknown, disabled, or unconfigured.
func (r *Registry) Model(providerID, modelName string) *Model {
	p := r.provider(providerID)
	if p == nil || !p.Enabled {
		return nil
	}
	backend := r.backends[providerID]
	if backend == nil {
		return nil
	}
	if modelName == "" {
		modelName = p.DefaultModel
	}
	return &Model{
		ProviderID:   p.ID,
		ProviderName: p.Name,
		Name:         modelName,
		backend:      backend,
	}
}

// GenerateText runs a plain completion.
func (m *Model) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return m.backend.GenerateText(ctx, m.Name, system, prompt)
}

// GenerateObject runs a schema-constrained completion and decodes the
// result into out.
func (m *Model) GenerateObject(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error {
	return m.backend.GenerateObject(ctx, m.Name, prompt, schema, out)
}
