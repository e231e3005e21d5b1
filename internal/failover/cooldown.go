package failover

import (
	"sync"
	"time"
)

// DefaultCooldownWindow is how long a failed provider is skipped.
const DefaultCooldownWindow = 5 * time.Minute

// Cooldown tracks per-provider failure recency. A provider that failed less
// than window ago is ineligible; a success clears the entry.
type Cooldown struct {
	mu          sync.RWMutex
	window      time.Duration
	failedAt    map[string]time.Time
	lastSuccess map[string]time.Time
	now         func() time.Time
}

func NewCooldown(window time.Duration, now func() time.Time) *Cooldown {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Cooldown{
		window:      window,
		failedAt:    make(map[string]time.Time),
		lastSuccess: make(map[string]time.Time),
		now:         now,
	}
}

func (c *Cooldown) Window() time.Duration {
	return c.window
}

func (c *Cooldown) RecordFailure(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedAt[name] = c.now()
}

func (c *Cooldown) RecordSuccess(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failedAt, name)
	c.lastSuccess[name] = c.now()
}

// IsEligible has no side effects; the time comparison alone decides.
func (c *Cooldown) IsEligible(name string, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	failedAt, ok := c.failedAt[name]
	if !ok {
		return true
	}
	return now.Sub(failedAt) >= c.window
}

// Eligible is IsEligible at the registry's current time.
func (c *Cooldown) Eligible(name string) bool {
	return c.IsEligible(name, c.now())
}

// Entry describes one provider's cooldown bookkeeping.
type Entry struct {
	Eligible      bool
	FailedAt      time.Time
	CooldownUntil time.Time
	LastSuccess   time.Time
}

func (c *Cooldown) Entry(name string) Entry {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e := Entry{Eligible: true, LastSuccess: c.lastSuccess[name]}
	if failedAt, ok := c.failedAt[name]; ok {
		e.FailedAt = failedAt
		e.CooldownUntil = failedAt.Add(c.window)
		e.Eligible = now.Sub(failedAt) >= c.window
	}
	return e
}

// Reset clears every failure entry. Success history is kept.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedAt = make(map[string]time.Time)
}

// Prune drops entries whose window has elapsed and returns how many were removed.
func (c *Cooldown) Prune() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for name, failedAt := range c.failedAt {
		if now.Sub(failedAt) >= c.window {
			delete(c.failedAt, name)
			removed++
		}
	}
	return removed
}
