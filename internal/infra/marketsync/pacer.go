package marketsync

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer pauses between registry pages.
type Pacer interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// JitterPacer sleeps for a duration drawn uniformly from [Min, Max].
type JitterPacer struct {
	Min time.Duration
	Max time.Duration
}

func NewJitterPacer(min, max time.Duration) JitterPacer {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return JitterPacer{Min: min, Max: max}
}

// Next draws the next delay without sleeping.
func (p JitterPacer) Next() time.Duration {
	span := p.Max - p.Min
	if span <= 0 {
		return p.Min
	}
	return p.Min + rand.N(span+1)
}

// Wait blocks for Next() or until ctx is done.
func (p JitterPacer) Wait(ctx context.Context) (time.Duration, error) {
	delay := p.Next()
	if delay <= 0 {
		return 0, ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
		return delay, nil
	}
}
