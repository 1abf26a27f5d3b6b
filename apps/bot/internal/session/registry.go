package session

import (
	"sort"
	"strings"
	"sync"
)

// DirectScope is the scope of commands sent outside any guild.
const DirectScope = "direct"

// Registry keeps one Session per scope (a guild id).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for scope, creating it on first use.
func (r *Registry) Get(scope string) *Session {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = DirectScope
	}

	r.mu.RLock()
	s := r.sessions[scope]
	r.mu.RUnlock()
	if s != nil && !s.IsClosed() {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.sessions[scope]; s != nil && !s.IsClosed() {
		return s
	}
	s = New(scope)
	r.sessions[scope] = s
	return s
}

// Scopes lists the scopes with a live session.
func (r *Registry) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scopes := make([]string, 0, len(r.sessions))
	for scope, s := range r.sessions {
		if !s.IsClosed() {
			scopes = append(scopes, scope)
		}
	}
	sort.Strings(scopes)
	return scopes
}

// Close stops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for scope, s := range r.sessions {
		s.Close()
		delete(r.sessions, scope)
	}
}
