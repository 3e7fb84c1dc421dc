package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts lines per connection and resets the count every window.
// A nil Limiter or one with a non-positive limit allows everything.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	counter int
	reset   *time.Ticker
}

// New returns a limiter allowing limit lines per minute.
func New(limit int) *Limiter {
	return NewWindow(limit, time.Minute)
}

// NewWindow returns a limiter allowing limit lines per window.
func NewWindow(limit int, window time.Duration) *Limiter {
	if limit <= 0 || window <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limit:  limit,
		window: window,
		reset:  time.NewTicker(window),
	}
}

// Allow records one line and reports whether it is within the limit.
func (l *Limiter) Allow() bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counter++
	return l.counter <= l.limit
}

// Start resets the counter every window until stop is closed.
func (l *Limiter) Start(stop <-chan struct{}) {
	if l == nil || l.reset == nil {
		return
	}
	go func() {
		defer l.reset.Stop()
		for {
			select {
			case <-l.reset.C:
				l.mu.Lock()
				l.counter = 0
				l.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}
