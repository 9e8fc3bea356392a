package driver

import (
	"time"

	"golang.org/x/time/rate"
)

// Paced throttles another driver through a rate limiter. Sharing one limiter
// between all workers caps the combined mutation rate of a handle.
type Paced struct {
	inner   Driver
	limiter *rate.Limiter
}

// NewPaced wraps inner so its turns never outpace limiter.
func NewPaced(inner Driver, limiter *rate.Limiter) *Paced {
	return &Paced{inner: inner, limiter: limiter}
}

// PacedFactory wraps every driver built by inner with the shared limiter.
func PacedFactory(inner Factory, limiter *rate.Limiter) Factory {
	return func(workerID int) Driver {
		return NewPaced(inner(workerID), limiter)
	}
}

// NextDelay returns the longer of the inner delay and the time until the
// limiter grants the next token. A reservation the limiter can never
// satisfy falls back to the inner delay.
func (p *Paced) NextDelay() time.Duration {
	d := p.inner.NextDelay()
	r := p.limiter.Reserve()
	if !r.OK() {
		return d
	}
	return max(d, r.Delay())
}

// NextMutationKind implements Driver.
func (p *Paced) NextMutationKind() MutationKind {
	return p.inner.NextMutationKind()
}

// PickIndex implements Driver.
func (p *Paced) PickIndex(length int) int {
	return p.inner.PickIndex(length)
}
