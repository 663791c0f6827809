package oracle

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAIDefaultModel is used when no model is configured.
	OpenAIDefaultModel = "gpt-4o-mini"

	// OpenRouterBaseURL is the OpenAI-compatible endpoint for OpenRouter.
	// Pass it as ClientConfig.BaseURL to route requests through OpenRouter
	// with its "vendor/model" model identifiers.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
	// OpenRouter speaks the OpenAI wire protocol; only the endpoint differs.
	RegisterProviderFactory("openrouter", func(config ClientConfig) (CoreOracle, error) {
		if config.BaseURL == "" {
			config.BaseURL = OpenRouterBaseURL
		}
		return newOpenAIProvider(config)
	})
}

// openAIProvider implements CoreOracle against the OpenAI chat completions
// API, which also covers OpenRouter and other compatible gateways.
type openAIProvider struct {
	client          *openai.Client
	model           string
	errorClassifier *ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreOracle, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		client:          openai.NewClientWithConfig(clientConfig),
		model:           model,
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// Generate sends the payload as a single user message and returns the
// completion text with token usage.
func (p *openAIProvider) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	options := parseRequestOptions(opts, p.model)

	req := openai.ChatCompletionRequest{
		Model:    options.Model,
		Messages: buildOpenAIMessages(payload, options),
	}
	if options.Temperature != nil {
		req.Temperature = float32(clampFloat64(*options.Temperature, 0.0, 2.0))
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	if options.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	return content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

func buildOpenAIMessages(payload string, options requestOptions) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: payload,
	})
}

func (p *openAIProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}

// Model returns the configured model name.
func (p *openAIProvider) Model() string { return p.model }
