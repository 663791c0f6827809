package oracle

// requestOptions is the provider-neutral view of the per-request knobs the
// engine passes through the options map.
type requestOptions struct {
	// Model overrides the client's configured model for this request.
	Model string
	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int
	// Temperature controls sampling randomness; nil uses the provider default.
	Temperature *float64
	// System carries an optional system prompt.
	System string
	// JSONMode requests a strictly-JSON response where the provider supports
	// it ({"response_format": {"type": "json_object"}}).
	JSONMode bool
}

// parseRequestOptions extracts the standard knobs from an options map,
// tolerating missing keys and loose numeric types.
func parseRequestOptions(opts map[string]any, defaultModel string) requestOptions {
	options := requestOptions{Model: defaultModel}
	if opts == nil {
		return options
	}

	if m, ok := opts["model"].(string); ok && m != "" {
		options.Model = m
	}
	if s, ok := opts["system"].(string); ok {
		options.System = s
	}
	if n, ok := asInt(opts["max_tokens"]); ok && n > 0 {
		options.MaxTokens = n
	}
	if t, ok := asFloat64(opts["temperature"]); ok && t >= 0 {
		options.Temperature = &t
	}
	options.JSONMode = wantsJSON(opts["response_format"])

	return options
}

// wantsJSON reports whether the response_format option requests JSON mode.
// Both map[string]string and map[string]any encodings are accepted.
func wantsJSON(v any) bool {
	switch rf := v.(type) {
	case map[string]string:
		return rf["type"] == "json_object"
	case map[string]any:
		t, _ := rf["type"].(string)
		return t == "json_object"
	case string:
		return rf == "json_object"
	default:
		return false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// clampFloat64 restricts val to the [min, max] range.
func clampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
