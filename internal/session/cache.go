// Package session implements the Session State Machine (§4.5): the three
// session states, the derived aiPaused flag, and a read-through/write-through
// assignment cache. Grounded on the teacher's database.columnCache idiom
// (internal/database/database.go) — a mutex-guarded map sitting in front of
// the authoritative Postgres row — generalized here from per-column bools to
// a per-session assignment snapshot.
package session

import (
	"sync"

	"support-chat-broker/internal/models"
)

// Assignment is the cached projection of a session's dispatch-relevant
// state: just enough for the dispatcher's assignment check (§4.6 step 7)
// without a repository round trip on every message.
type Assignment struct {
	Status        models.SessionStatus
	AssignedAgent *string
}

// AIPaused reports the derived flag (§4.5): aiPaused iff status is
// agent_assigned or an agent is assigned.
func (a Assignment) AIPaused() bool {
	return a.Status == models.SessionAgentAssigned || a.AssignedAgent != nil
}

// Cache is the Session Assignment Cache: read-through, write-through,
// serialized per session id (§5 "Shared-resource policy").
type Cache struct {
	mu   sync.RWMutex
	byID map[string]Assignment
}

// NewCache builds an empty assignment cache.
func NewCache() *Cache {
	return &Cache{byID: make(map[string]Assignment)}
}

// Get returns the cached assignment for id, if warm.
func (c *Cache) Get(id string) (Assignment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byID[id]
	return a, ok
}

// Put writes (or overwrites) the cached assignment for id.
func (c *Cache) Put(id string, a Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[id] = a
}

// Invalidate drops any cached assignment for id; the next Get will miss and
// the caller must warm it from the repository.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// FromSession derives an Assignment from a repository-loaded Session.
func FromSession(s *models.Session) Assignment {
	return Assignment{Status: s.Status, AssignedAgent: s.AssignedAgent}
}
