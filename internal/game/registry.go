// internal/game/registry.go
//
// Process-wide table of live game sessions keyed by game ID.
//
// The registry is the only component that creates and retires sessions.
// Lookups share a read lock; registration and eviction take the write lock.
// References handed out by Lookup stay valid for the caller's own use even
// if the session is evicted concurrently — eviction only drops the table
// entry.

package game

import (
	"sync"
	"time"

	"github.com/wordplay-labs/connections-server/internal/puzzle"
)

// Registry maps game IDs to live sessions and owns their lifecycle.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[int]*Session
	retention time.Duration // how long an expired session stays queryable
	sink      TerminalSink
}

// NewRegistry creates an empty registry. Expired sessions remain visible
// for retention before eviction, so late stat queries still resolve.
func NewRegistry(retention time.Duration, sink TerminalSink) *Registry {
	return &Registry{
		sessions:  make(map[int]*Session),
		retention: retention,
		sink:      sink,
	}
}

// Register creates and publishes a session for p starting at now.
func (r *Registry) Register(p *puzzle.Puzzle, duration time.Duration, now time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[p.ID]; ok {
		return nil, ErrDuplicateSession
	}
	s := NewSession(p, now, duration, r.sink)
	r.sessions[p.ID] = s
	return s, nil
}

// Lookup resolves a game ID to its session. Sessions past their retention
// window answer ErrSessionNotFound even before eviction runs.
func (r *Registry) Lookup(gameID int, now time.Time) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[gameID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if now.After(s.Deadline().Add(r.retention)) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Tick drives the expiry check of every live session.
func (r *Registry) Tick(now time.Time) {
	for _, s := range r.snapshot() {
		s.Tick(now)
	}
}

// EvictExpired removes sessions whose expiry-plus-retention window has
// elapsed. In-flight references already held by callers remain usable.
func (r *Registry) EvictExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if now.After(s.Deadline().Add(r.retention)) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshot copies the session list so Tick never holds the table lock
// while taking per-session locks.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
