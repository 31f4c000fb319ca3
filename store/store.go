// Package store holds the per-user transient conversation state: at most one
// pending text per user, awaiting a mode choice. Entries live in memory only;
// nothing survives a restart.
package store

import (
	"context"
	"sync"
	"time"

	"slangbridge/metrics"
)

type pending struct {
	text     string
	storedAt time.Time
}

// PendingStore maps user IDs to their pending text. All operations are safe
// under concurrent access from independent users; ordering of operations for
// a single user is the caller's responsibility.
type PendingStore struct {
	mu      sync.Mutex
	entries map[int64]pending
	ttl     time.Duration
	metrics *metrics.Metrics
}

// New creates an empty store. ttl bounds how long an unconsumed entry may
// linger before the sweeper drops it; zero disables expiry, and an abandoned
// text then stays for the process lifetime.
func New(ttl time.Duration, m *metrics.Metrics) *PendingStore {
	return &PendingStore{
		entries: make(map[int64]pending),
		ttl:     ttl,
		metrics: m,
	}
}

// Put stores text as the user's pending entry, overwriting any existing one.
// Last write wins; there is never more than one entry per user.
func (s *PendingStore) Put(userID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = pending{text: text, storedAt: time.Now()}
	s.updateGauge()
}

// Take atomically reads and removes the user's pending entry. The second
// return value is false if no entry exists; that is a normal condition, not
// an error.
func (s *PendingStore) Take(userID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[userID]
	if !ok {
		return "", false
	}
	delete(s.entries, userID)
	s.updateGauge()
	return p.text, true
}

// Clear removes the user's pending entry, if any. Used on session reset.
func (s *PendingStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	s.updateGauge()
}

// Len returns the number of pending entries across all users.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper periodically drops entries older than the configured TTL until
// ctx is done. It returns immediately when expiry is disabled.
func (s *PendingStore) StartSweeper(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *PendingStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, p := range s.entries {
		if now.Sub(p.storedAt) > s.ttl {
			delete(s.entries, userID)
		}
	}
	s.updateGauge()
}

// updateGauge is called with the mutex held.
func (s *PendingStore) updateGauge() {
	if s.metrics != nil {
		s.metrics.PendingEntries.Set(float64(len(s.entries)))
	}
}
