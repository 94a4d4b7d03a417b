// Package liveness tracks last-activity timestamps per transport session and
// evicts sessions that go silent past a timeout.
package liveness

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EvictFunc is invoked for every session that times out or disconnects. It
// is responsible for unbinding the session and updating the directory's
// online projection in one operation.
type EvictFunc func(sessionID string)

// Tracker keeps a sessionID -> lastActivity map in lockstep with the session
// registry: entries are created on accept, refreshed on every inbound
// message and removed on eviction.
type Tracker struct {
	mu           sync.RWMutex
	lastActivity map[string]time.Time

	timeout time.Duration
	onEvict EvictFunc
	logger  *zap.Logger
}

// NewTracker creates a Tracker. Sessions idle longer than timeout are
// evicted by the next sweep.
func NewTracker(timeout time.Duration, onEvict EvictFunc, logger *zap.Logger) *Tracker {
	return &Tracker{
		lastActivity: make(map[string]time.Time),
		timeout:      timeout,
		onEvict:      onEvict,
		logger:       logger,
	}
}

// Track starts tracking a freshly accepted session.
func (t *Tracker) Track(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity[sessionID] = time.Now()
}

// Touch refreshes the activity timestamp for a session. Best effort:
// untracked sessions are ignored.
func (t *Tracker) Touch(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.lastActivity[sessionID]; ok {
		t.lastActivity[sessionID] = time.Now()
	}
}

// Tracked returns the number of tracked sessions.
func (t *Tracker) Tracked() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lastActivity)
}

// Evict removes the session's entry and, if it was present, runs the
// eviction callback. Safe to call twice for the same session; the second
// call is a no-op. Used both by the disconnect path and the sweep.
func (t *Tracker) Evict(sessionID string) {
	t.mu.Lock()
	_, present := t.lastActivity[sessionID]
	delete(t.lastActivity, sessionID)
	t.mu.Unlock()

	if present && t.onEvict != nil {
		t.onEvict(sessionID)
	}
}

// SweepOnce visits the full tracked set and evicts every session whose idle
// time exceeds the timeout. Returns the number of evicted sessions.
func (t *Tracker) SweepOnce(now time.Time) int {
	t.mu.RLock()
	var stale []string
	for sessionID, last := range t.lastActivity {
		if now.Sub(last) > t.timeout {
			stale = append(stale, sessionID)
		}
	}
	t.mu.RUnlock()

	for _, sessionID := range stale {
		t.logger.Warn("Session timed out, evicting", zap.String("sessionID", sessionID))
		t.Evict(sessionID)
	}
	return len(stale)
}

// Run executes the periodic sweep until the context is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.SweepOnce(time.Now()); n > 0 {
				t.logger.Info("Liveness sweep evicted stale sessions", zap.Int("count", n))
			}
		}
	}
}
