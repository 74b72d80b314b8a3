package tokenmanager

import (
	"sync"
	"time"
)

// Window tracks the time left until access token expires
type Window struct {
	mu        sync.Mutex
	expiresAt time.Time
	now       func() time.Time
}

// NewWindow creates window expiring after d. Negative d gives already expired window.
func NewWindow(d time.Duration) *Window {
	return newWindow(d, time.Now)
}

func newWindow(d time.Duration, now func() time.Time) *Window {
	w := &Window{now: now}
	w.Reset(d)
	return w
}

// Reset window to expire after d from now
func (w *Window) Reset(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expiresAt = w.now().Add(d)
}

// Remaining time until expiration, negative when already expired
func (w *Window) Remaining() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.expiresAt.Sub(w.now())
}

func (w *Window) IsExpired() bool {
	return w.Remaining() <= 0
}

func (w *Window) ExpiresAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.expiresAt
}
