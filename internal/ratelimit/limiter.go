// Package ratelimit provides the token-bucket gate for outbound HTTP calls
// and the shared semaphore that caps concurrent K-line acquisitions.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate to match the acquire()-blocks
// contract: tokens regenerate at maxRate per second up to burst capacity,
// and Acquire blocks cooperatively until a token is available.
type Limiter struct {
	bucket *rate.Limiter
}

// New constructs a Limiter with the given refill rate (tokens/sec) and
// burst capacity.
func New(maxRate float64, burst int) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(maxRate), burst)}
}

// Acquire blocks until a single token is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Semaphore bounds concurrent acquisitions to a fixed capacity, independent
// of the token-bucket refill rate. Used to cap simultaneous K-line backfill
// workers at 3 regardless of how fast the bucket refills.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore constructs a Semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (s *Semaphore) Release() {
	<-s.slots
}
