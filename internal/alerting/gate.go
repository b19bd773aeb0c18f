// Package alerting holds the cooldown gate and the top-detection selector.
package alerting

import (
	"sync"
	"time"
)

// Gate serializes alert firing decisions so that at most one alert fires
// per cooldown window regardless of how many requests observe danger
// concurrently. It is the only shared mutable state in the pipeline.
type Gate struct {
	mu        sync.Mutex
	window    time.Duration
	lastFired time.Time
}

// NewGate creates a gate with the given cooldown window. The gate starts
// open: the first TryFire always succeeds.
func NewGate(window time.Duration) *Gate {
	return &Gate{window: window}
}

// TryFire returns true and records now as the last firing time iff the
// cooldown window has elapsed since the previous firing. The check and the
// update are one critical section; a bare read-then-write would let two
// concurrent requests both observe an expired cooldown and both fire.
// The caller supplies now so the gate stays deterministic under test.
func (g *Gate) TryFire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastFired.IsZero() && now.Sub(g.lastFired) < g.window {
		return false
	}
	g.lastFired = now
	return true
}

// LastFired returns the timestamp of the most recent accepted firing, or
// the zero time if no alert has fired yet.
func (g *Gate) LastFired() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFired
}
