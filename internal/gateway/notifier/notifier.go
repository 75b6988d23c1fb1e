// Package notifier delivers fire-and-forget event notifications. Failures
// are logged by callers, never propagated into the cycle.
package notifier

import (
	"sync"
	"time"

	"empire/internal/logger"
)

// Notifier is intentionally small so components can depend on it without
// importing a concrete transport.
type Notifier interface {
	Notify(kind, text string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Notify(string, string) {}

// AntiSpam wraps a notifier and suppresses repeats of the same kind inside
// a fixed window. Digest and trade events pass kind labels like "digest",
// "trade", "guard".
type AntiSpam struct {
	next   Notifier
	window time.Duration
	nowFn  func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewAntiSpam(next Notifier, window time.Duration) *AntiSpam {
	return &AntiSpam{
		next:   next,
		window: window,
		nowFn:  time.Now,
		last:   make(map[string]time.Time),
	}
}

func (a *AntiSpam) Notify(kind, text string) {
	now := a.nowFn()
	a.mu.Lock()
	if prev, ok := a.last[kind]; ok && now.Sub(prev) < a.window {
		a.mu.Unlock()
		logger.Debugf("notifier: suppressed %s (anti-spam window)", kind)
		return
	}
	a.last[kind] = now
	a.mu.Unlock()
	a.next.Notify(kind, text)
}
