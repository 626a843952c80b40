package view

import (
	"sync"
	"time"
)

type entry struct {
	controller *Controller
	expiresAt  time.Time
}

// Registry maps session ids to their controllers. It is the only structure shared between
// sessions.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	factory func() *Controller
	now     func() time.Time
}

// NewRegistry returns an empty registry that builds controllers with factory.
func NewRegistry(factory func() *Controller) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		factory: factory,
		now:     time.Now,
	}
}

// New builds a controller that is not yet registered.
func (r *Registry) New() *Controller {
	return r.factory()
}

// Put registers c for sessionID until expiresAt.
func (r *Registry) Put(sessionID string, c *Controller, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.entries[sessionID] = entry{controller: c, expiresAt: expiresAt}
}

// Get returns the live controller for sessionID.
func (r *Registry) Get(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok || !e.expiresAt.After(r.now()) {
		return nil, false
	}
	return e.controller, true
}

// GetOrCreate returns the controller for sessionID, creating one when needed. A session that
// outlives a server restart gets a fresh controller here.
func (r *Registry) GetOrCreate(sessionID string, expiresAt time.Time) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sessionID]; ok && e.expiresAt.After(r.now()) {
		return e.controller
	}
	r.sweepLocked()
	c := r.factory()
	r.entries[sessionID] = entry{controller: c, expiresAt: expiresAt}
	return c
}

// Remove drops sessionID and returns its controller, if any.
func (r *Registry) Remove(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	return e.controller, ok
}

// Len counts registered sessions, expired ones included until the next sweep.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) sweepLocked() {
	now := r.now()
	for id, e := range r.entries {
		if !e.expiresAt.After(now) {
			delete(r.entries, id)
		}
	}
}
