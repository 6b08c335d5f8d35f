package relay

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out outbound notifications. The first Wait returns at once,
// each following one blocks until delay has passed since the previous.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing one notification per delay.
// A non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next notification may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
