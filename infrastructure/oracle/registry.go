package oracle

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tribunal-ai/tribunal/internal/ports"
)

// Registry implements ports.OracleRegistry over the provider factories.
// Model identifiers use the "provider/model" form; the part after the first
// slash is passed through verbatim, so OpenRouter's nested names like
// "openrouter/openai/gpt-4o" resolve correctly. Clients are constructed
// lazily on first use and cached for the life of the registry.
type Registry struct {
	providers         map[string]ProviderConfig
	defaultTimeout    time.Duration
	defaultMiddleware []Middleware

	mu      sync.RWMutex
	clients map[string]ports.OracleClient
}

// ProviderConfig configures one provider type within the registry.
type ProviderConfig struct {
	// Type names the registered provider factory (openai, openrouter,
	// anthropic, google). Defaults to the map key.
	Type string
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when a model id names only the provider.
	DefaultModel string
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// Middleware replaces the registry's default middleware for this
	// provider when non-nil.
	Middleware []Middleware
}

// RegistryConfig holds registry-wide defaults and the provider table.
type RegistryConfig struct {
	// Providers maps provider names to their configuration.
	// Nil falls back to DefaultProviders.
	Providers map[string]ProviderConfig
	// DefaultTimeout bounds individual provider requests.
	DefaultTimeout time.Duration
	// DefaultMiddleware is applied to every client unless the provider
	// overrides it.
	DefaultMiddleware []Middleware
}

// DefaultProviders covers the standard judging backends keyed by the
// conventional environment variables.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
	},
	"openrouter": {
		Type:         "openrouter",
		EnvVar:       "OPENROUTER_API_KEY",
		DefaultModel: "openai/gpt-4o-mini",
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GEMINI_API_KEY",
		DefaultModel: GoogleDefaultModel,
	},
}

// NewRegistry builds a Registry from the given configuration.
func NewRegistry(config RegistryConfig) *Registry {
	providers := config.Providers
	if providers == nil {
		providers = DefaultProviders
	}
	return &Registry{
		providers:         providers,
		defaultTimeout:    config.DefaultTimeout,
		defaultMiddleware: config.DefaultMiddleware,
		clients:           make(map[string]ports.OracleClient),
	}
}

// Client resolves a "provider/model" identifier to an oracle client,
// constructing and caching it on first use.
func (r *Registry) Client(modelID string) (ports.OracleClient, error) {
	r.mu.RLock()
	client, ok := r.clients[modelID]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[modelID]; ok {
		return client, nil
	}

	providerName, model := splitModelID(modelID)
	spec, ok := r.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownModel, modelID)
	}
	if model == "" {
		model = spec.DefaultModel
	}

	providerType := spec.Type
	if providerType == "" {
		providerType = providerName
	}

	apiKey := os.Getenv(spec.EnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for %s: set %s", providerName, spec.EnvVar)
	}

	middleware := spec.Middleware
	if middleware == nil {
		middleware = r.defaultMiddleware
	}

	client, err := NewClient(providerType, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    spec.BaseURL,
		Timeout:    r.defaultTimeout,
		Middleware: middleware,
	})
	if err != nil {
		return nil, err
	}

	r.clients[modelID] = client
	return client, nil
}

// Register installs a pre-built client under a model id, replacing any
// cached one. Useful for custom providers and tests.
func (r *Registry) Register(modelID string, client ports.OracleClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[modelID] = client
}

// Models lists the ids of every instantiated client, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// splitModelID separates the provider prefix from the model name.
// "anthropic/claude-3-5-haiku" yields ("anthropic", "claude-3-5-haiku");
// a bare provider name yields an empty model so the default applies.
func splitModelID(modelID string) (provider, model string) {
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
