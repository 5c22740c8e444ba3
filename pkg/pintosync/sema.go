// Package pintosync provides the counting semaphore pintosim's launcher and
// wait-status bookkeeping use to sequence the parent/child handshakes
// described in process.c's sema_init/sema_up/sema_down. Go's standard
// library has no semaphore type; golang.org/x/sync/semaphore.Weighted is
// the idiomatic stand-in, wrapped here so call sites keep the Up/Down names
// the original C uses instead of Acquire/Release.
package pintosync

import (
	"context"
	"math"

	"golang.org/x/sync/semaphore"
)

// capacity bounds the number of outstanding Ups a Sema can ever hold. It is
// set far above anything this design needs (at most a handful of handshake
// signals per process).
const capacity = math.MaxInt32

// Sema is a counting semaphore initialized to a fixed count, matching
// sema_init(s, n) at every call site in process.c.
type Sema struct {
	w *semaphore.Weighted
}

// NewSema returns a semaphore with the given initial count.
func NewSema(initial int) *Sema {
	s := &Sema{w: semaphore.NewWeighted(capacity)}
	// Weighted starts with all of its capacity available (cur == 0, so
	// size-cur == capacity). Reserve everything except the requested
	// initial count so that Down blocks exactly when the count is zero.
	// This Acquire is non-blocking: no other goroutine can have touched s
	// yet.
	if err := s.w.Acquire(context.Background(), capacity-int64(initial)); err != nil {
		panic("pintosync: NewSema: unreachable: " + err.Error())
	}
	return s
}

// Up increments the semaphore's count, waking one blocked Down if any.
// Mirrors sema_up.
func (s *Sema) Up() {
	s.w.Release(1)
}

// Down blocks until the count is positive, then atomically decrements it.
// Mirrors sema_down.
func (s *Sema) Down() {
	// Acquire only returns an error when ctx is canceled; Background never
	// is.
	_ = s.w.Acquire(context.Background(), 1)
}
