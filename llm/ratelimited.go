package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited serializes calls through a shared token bucket. It does not retry.
type RateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

func NewRateLimited(next Completer, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (r *RateLimited) Enabled() bool { return r.next.Enabled() }

func (r *RateLimited) Complete(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, req)
}
