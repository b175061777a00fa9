// Package activity tracks last-seen timestamps per session id.
//
// The cache is best-effort bookkeeping for session listings and is never
// consulted for authorization. Each entry remembers the refresh deadline of
// its session so Sweep can drop entries whose session can no longer be used.
package activity

import (
	"sync"
	"time"
)

type entry struct {
	lastSeen  time.Time
	expiresAt time.Time
}

// Cache is a map guarded by a single RWMutex. Readers never block each other.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Touch records activity for sessionID. A zero expiresAt keeps the deadline
// already stored for the entry, if any.
func (c *Cache) Touch(sessionID string, at, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiresAt.IsZero() {
		expiresAt = c.entries[sessionID].expiresAt
	}
	c.entries[sessionID] = entry{lastSeen: at, expiresAt: expiresAt}
}

// TouchIfPresent updates last-seen for an entry that already exists and
// keeps its deadline. It reports whether the entry was found. Callers that
// cannot prove the session still exists use it so that revoked sessions
// are not brought back.
func (c *Cache) TouchIfPresent(sessionID string, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionID]
	if !ok {
		return false
	}
	e.lastSeen = at
	c.entries[sessionID] = e
	return true
}

// Remove drops sessionID. Missing entries are ignored.
func (c *Cache) Remove(sessionIDs ...string) {
	if len(sessionIDs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range sessionIDs {
		delete(c.entries, id)
	}
}

// Get returns the last-seen time for sessionID.
func (c *Cache) Get(sessionID string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[sessionID]
	return e.lastSeen, ok
}

// Len reports the number of tracked sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes entries whose deadline is at or before now and returns how
// many were dropped. Entries without a deadline are kept.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}
