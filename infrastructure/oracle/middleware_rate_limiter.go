package oracle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedOracle paces requests with a token bucket so a busy committee
// run cannot blow through a provider's rate limits.
type rateLimitedOracle struct {
	next    CoreOracle
	limiter *rate.Limiter
}

// RateLimitMiddleware enforces a sustained requests-per-second limit with
// burst capacity for short spikes. Callers block until a token is available
// or their context ends.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreOracle) CoreOracle {
		return &rateLimitedOracle{next: next, limiter: limiter}
	}
}

// Generate waits for rate limit permission before forwarding the request.
func (r *rateLimitedOracle) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, payload, opts)
}

// Model returns the model name from the wrapped implementation.
func (r *rateLimitedOracle) Model() string { return r.next.Model() }
