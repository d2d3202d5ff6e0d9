package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider waits on a token bucket before each request.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so that outbound calls stay under
// cfg.RequestsPerMinute. A non-positive rate returns p unchanged.
func WithRateLimit(p Provider, cfg RateLimitConfig) Provider {
	if cfg.RequestsPerMinute <= 0 {
		return p
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(cfg.RequestsPerMinute / 60)
	return &RateLimitedProvider{inner: p, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimitedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		// Wait fails fast when the deadline cannot be met; report it as
		// the caller's timeout.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, context.DeadlineExceeded
	}
	return r.inner.Generate(ctx, req)
}

func (r *RateLimitedProvider) ModelID() string { return r.inner.ModelID() }

func (r *RateLimitedProvider) Name() string { return r.inner.Name() }
