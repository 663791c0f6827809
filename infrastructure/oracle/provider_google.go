package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreOracle against the Gemini API.
type googleProvider struct {
	client          *genai.Client
	model           string
	errorClassifier *ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreOracle, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		client:          client,
		model:           model,
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// Generate sends the payload to the Gemini API. Gemini has no separate
// system role, so a system prompt is prepended to the user payload.
func (p *googleProvider) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	options := parseRequestOptions(opts, p.model)

	finalPayload := payload
	if options.System != "" {
		finalPayload = fmt.Sprintf("System: %s\n\nUser: %s", options.System, payload)
	}
	contents := []*genai.Content{
		genai.NewContentFromText(finalPayload, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if options.Temperature != nil {
		temp := clampFloat64(*options.Temperature, 0.0, 2.0)
		config.Temperature = genai.Ptr(float32(temp))
	}
	if options.MaxTokens > 0 {
		if options.MaxTokens > math.MaxInt32 {
			config.MaxOutputTokens = math.MaxInt32
		} else {
			config.MaxOutputTokens = int32(options.MaxTokens)
		}
	}
	if options.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.Model, contents, config)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn, tokensOut := 0, 0
	if usage := resp.UsageMetadata; usage != nil {
		tokensIn = int(usage.PromptTokenCount)
		tokensOut = int(usage.CandidatesTokenCount)
	}

	return content, tokensIn, tokensOut, nil
}

func (p *googleProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		if isContentPolicyError(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

// isContentPolicyError reports whether a Google API error stems from a
// safety filter rather than a transport or request problem.
func isContentPolicyError(apiErr *googleapi.Error) bool {
	if apiErr.Message != "" {
		lower := strings.ToLower(apiErr.Message)
		if strings.Contains(lower, "safety") ||
			strings.Contains(lower, "policy") ||
			strings.Contains(lower, "blocked") {
			return true
		}
	}
	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}
	return false
}

// Model returns the configured model name.
func (p *googleProvider) Model() string { return p.model }
