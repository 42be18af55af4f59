package handler

import (
	"context"
	"errors"
)

// ErrBusy is returned when no decode slot frees up before the caller gives up.
var ErrBusy = errors.New("too many concurrent decodes")

// Limiter bounds the number of decodes running at once.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter returns a Limiter with n slots. n < 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// InUse reports the number of occupied slots.
func (l *Limiter) InUse() int {
	return len(l.slots)
}
