// Package oracle provides concrete judge-oracle clients behind the
// ports.OracleClient interface, with built-in support for rate limiting,
// metrics, and tracing.
//
// The package abstracts multiple oracle providers (OpenAI/OpenRouter,
// Anthropic, Google) behind a common interface while adding operational
// cross-cutting concerns through a middleware pattern. The judging engine
// never sees a provider SDK; it sees serialized payloads in and raw verdict
// text out.
//
// Basic usage:
//
//	client, err := oracle.NewClient("openai", oracle.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o",
//	})
//	text, err := client.Complete(ctx, payload, nil)
//
// With middleware:
//
//	client, err := oracle.NewClient("anthropic", oracle.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-sonnet-4-20250514",
//	    Middleware: []oracle.Middleware{
//	        oracle.RateLimitMiddleware(10, 20),
//	        oracle.MetricsMiddleware("anthropic", collector),
//	    },
//	})
package oracle

import (
	"context"
	"fmt"
	"time"
)

// CoreOracle defines the minimal surface an oracle provider must implement.
// The opts parameter carries request knobs such as temperature, max_tokens,
// and response_format. Token counts come back alongside the text so the
// metrics middleware can account for usage without re-estimating.
type CoreOracle interface {
	Generate(
		ctx context.Context,
		payload string,
		opts map[string]any,
	) (
		text string,
		tokensIn, tokensOut int,
		err error,
	)

	// Model returns the configured model name.
	Model() string
}

// Middleware wraps a CoreOracle to add cross-cutting behavior such as rate
// limiting, metrics collection, or tracing without touching provider logic.
type Middleware func(CoreOracle) CoreOracle

// ClientConfig holds everything needed to construct an oracle client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model names the model to request. Each provider has its own default.
	Model string

	// BaseURL overrides the provider's default endpoint. This is how the
	// OpenAI provider is pointed at OpenRouter.
	BaseURL string

	// Timeout bounds individual requests at the transport level.
	// Zero means no transport timeout; the engine's invoker still applies
	// its own per-call deadline.
	Timeout time.Duration

	// Middleware is applied in the order given, first entry outermost.
	Middleware []Middleware
}

// Client adapts a middleware-wrapped CoreOracle to the ports.OracleClient
// interface the engine consumes.
type Client struct {
	core CoreOracle
}

// NewClient builds an oracle client for the named provider, assembling the
// middleware chain and validating configuration before returning.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first entry is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete sends the serialized payload to the oracle and returns the raw
// response text. Token usage is observable through the metrics middleware.
func (c *Client) Complete(ctx context.Context, payload string, options map[string]any) (string, error) {
	text, _, _, err := c.core.Generate(ctx, payload, options)
	return text, err
}

// Model returns the model name of the underlying provider.
func (c *Client) Model() string { return c.core.Model() }

// ProviderFactory constructs a CoreOracle from configuration. The factory
// registry lets the registry package create providers without importing
// their SDKs directly.
type ProviderFactory func(ClientConfig) (CoreOracle, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider factory under a type name.
// Built-in providers register themselves in init; custom providers can be
// added the same way.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
