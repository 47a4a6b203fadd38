package search

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// WarningThrottle rate-limits repeated warnings per key so a misconfigured
// source category does not spam the log on every search cycle.
type WarningThrottle struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	cooldown time.Duration
	lastWarn map[string]time.Time
}

func NewWarningThrottle(cooldown time.Duration) *WarningThrottle {
	return newWarningThrottle(cooldown, clockwork.NewRealClock())
}

func newWarningThrottle(cooldown time.Duration, clock clockwork.Clock) *WarningThrottle {
	return &WarningThrottle{
		clock:    clock,
		cooldown: cooldown,
		lastWarn: make(map[string]time.Time),
	}
}

// Allow reports whether a warning for key may be emitted now, and if so
// starts the key's cooldown window.
func (t *WarningThrottle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if last, ok := t.lastWarn[key]; ok && now.Sub(last) < t.cooldown {
		return false
	}
	t.lastWarn[key] = now
	return true
}
