// Package session keeps one listing controller per visitor.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/webtools-portal/internal/listing"
)

// CookieName is the cookie carrying the visitor's session ID.
const CookieName = "webtools_session"

// Factory builds the controller for a new session.
type Factory func() *listing.Controller

// Gauge is told the number of live sessions after every change.
type Gauge interface {
	SetActiveSessions(count int)
}

// Session is one visitor's listing state.
type Session struct {
	ID         string
	Controller *listing.Controller
	CreatedAt  time.Time
	lastSeen   time.Time
}

// Registry holds sessions keyed by ID and expires them after an idle TTL.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	factory  Factory
	gauge    Gauge
	now      func() time.Time
}

// NewRegistry creates a registry. gauge may be nil.
func NewRegistry(ttl time.Duration, factory Factory, gauge Gauge) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		gauge:    gauge,
		now:      time.Now,
	}
}

// Get returns the session for id, creating a fresh one when id is unknown or
// expired. created reports whether a new session was made; its ID differs
// from id in that case.
func (r *Registry) Get(id string) (sess *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok {
		if now.Sub(s.lastSeen) <= r.ttl {
			s.lastSeen = now
			return s, false
		}
		r.removeLocked(id)
	}

	s := &Session{
		ID:         uuid.New().String(),
		Controller: r.factory(),
		CreatedAt:  now,
		lastSeen:   now,
	}
	r.sessions[s.ID] = s
	r.reportLocked()
	return s, true
}

// Lookup returns the session for id without creating or touching it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || r.now().Sub(s.lastSeen) > r.ttl {
		return nil, false
	}
	return s, true
}

// Delete ends a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

// Len returns the number of held sessions, expired ones included until Cleanup.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.ttl {
			r.removeLocked(id)
			removed++
		}
	}
	return removed
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.sessions {
		r.removeLocked(id)
	}
}

func (r *Registry) removeLocked(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	s.Controller.Close()
	r.reportLocked()
}

func (r *Registry) reportLocked() {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(len(r.sessions))
	}
}
