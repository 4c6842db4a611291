package ratelimit

import (
	"context"
	"sync/atomic"
	"time"
)

// Signal is a run-wide "rate limit observed" flag.
//
// It is a flag, not a counter: any number of Set calls between two Clear
// calls collapse into one pause. Workers that check the flag before the
// first pauser clears it will pause too; that overlap is accepted.
// The zero value is ready to use and starts cleared.
type Signal struct {
	active atomic.Bool
}

// NewSignal returns a cleared Signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Set raises the flag.
func (s *Signal) Set() {
	s.active.Store(true)
}

// IsSet reports whether the flag is raised.
func (s *Signal) IsSet() bool {
	return s.active.Load()
}

// Clear lowers the flag.
func (s *Signal) Clear() {
	s.active.Store(false)
}

// Wait pauses for d when the flag is raised and then clears it.
// It returns paused=false immediately when the flag is not raised.
//
// The pause yields the goroutine and ends early with ctx.Err() when ctx is
// cancelled; in that case the flag is left raised.
func (s *Signal) Wait(ctx context.Context, d time.Duration) (bool, error) {
	if !s.IsSet() {
		return false, nil
	}

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-timer.C:
		}
	}

	s.Clear()
	return true, nil
}
