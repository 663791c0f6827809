package oracle

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// AnthropicDefaultModel is used when no model is configured.
	AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

	// anthropicFallbackMaxTokens satisfies the API's required max_tokens
	// field when the caller did not set one.
	anthropicFallbackMaxTokens = 2048
)

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreOracle against Anthropic's Messages API.
type anthropicProvider struct {
	client          anthropic.Client
	model           string
	errorClassifier *ErrorClassifier
}

func newAnthropicProvider(config ClientConfig) (CoreOracle, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &anthropicProvider{
		client:          anthropic.NewClient(opts...),
		model:           model,
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// Generate sends the payload to the Messages API and concatenates the text
// blocks of the response. Anthropic has no JSON response mode, so JSONMode
// is expressed as an instruction in the system prompt instead.
func (p *anthropicProvider) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	options := parseRequestOptions(opts, p.model)

	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicFallbackMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(payload)),
		},
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(clampFloat64(*options.Temperature, 0.0, 1.0))
	}

	system := options.System
	if options.JSONMode {
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with a single valid JSON object and nothing else."
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", 0, 0, ErrEmptyResponse
	}

	return text.String(), int(message.Usage.InputTokens), int(message.Usage.OutputTokens), nil
}

func (p *anthropicProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, apiErr.Error(), err)
	}

	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}

// Model returns the configured model name.
func (p *anthropicProvider) Model() string { return p.model }
