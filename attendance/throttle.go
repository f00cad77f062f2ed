package attendance

import (
	"sync"
	"time"
)

// DefaultThrottleInterval is the minimum spacing between accepted scans.
const DefaultThrottleInterval = 2 * time.Second

// Throttle remembers when the last scan was accepted and refuses new ones
// until more than Interval has passed. It takes timestamps from the caller,
// so it is testable without a clock.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Ready reports whether a scan observed at now may be processed.
func (t *Throttle) Ready(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last.IsZero() || now.Sub(t.last) > t.interval
}

// Accept arms the throttle. Call it only for scans that parsed.
func (t *Throttle) Accept(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = now
}

// TryAccept checks and arms the throttle in one step. Concurrent callers
// observing the same window get true at most once.
func (t *Throttle) TryAccept(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.last.IsZero() && now.Sub(t.last) <= t.interval {
		return false
	}
	t.last = now
	return true
}

// Reset forgets the last accepted scan.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Time{}
}

// Interval returns the configured spacing.
func (t *Throttle) Interval() time.Duration { return t.interval }
