// Package ratelimit paces outbound catalog requests. Each catalog gets one
// Pacer shared by every caller so concurrent jobs cannot exceed the
// catalog's published limits.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer throttles requests to an external catalog.
type Pacer struct {
	limiter *rate.Limiter
}

// NewInterval creates a pacer that enforces a minimum gap between requests,
// with no bursting. MusicBrainz-style pacing.
func NewInterval(gap time.Duration) *Pacer {
	return &Pacer{limiter: rate.NewLimiter(rate.Every(gap), 1)}
}

// NewBurst creates a pacer that allows up to burst requests per window and
// refills continuously. TMDB-style pacing.
func NewBurst(burst int, window time.Duration) *Pacer {
	if burst < 1 {
		burst = 1
	}
	per := window / time.Duration(burst)
	return &Pacer{limiter: rate.NewLimiter(rate.Every(per), burst)}
}

// Wait blocks until a request may be sent or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent right now without waiting.
func (p *Pacer) Allow() bool {
	return p.limiter.Allow()
}
