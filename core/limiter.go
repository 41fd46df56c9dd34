package core

import (
	"fmt"
	"sync"
)

// ContinuationLimiter bounds the number of model continuation passes in one
// turn.
type ContinuationLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewContinuationLimiter creates a limiter. If max == 0, unlimited
// continuations are allowed.
func NewContinuationLimiter(max int) *ContinuationLimiter {
	return &ContinuationLimiter{max: max}
}

// Increment records one continuation and returns an error if the limit is exceeded.
func (l *ContinuationLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max continuation depth: %d", l.max)
	}

	return nil
}

// Count returns the number of continuations recorded.
func (l *ContinuationLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many continuations are left before hitting the limit.
func (l *ContinuationLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
