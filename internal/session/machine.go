package session

import (
	"context"
	"errors"
	"fmt"

	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
)

// ErrSessionNotFound is returned when a transition targets a session the
// repository does not know about.
var ErrSessionNotFound = repository.ErrNotFound

// Machine drives the session state machine's transitions (§4.5), keeping
// the Cache consistent with every persisted change it makes.
type Machine struct {
	repo  repository.Repository
	cache *Cache
}

// NewMachine builds a Machine over the given repository and cache.
func NewMachine(repo repository.Repository, cache *Cache) *Machine {
	return &Machine{repo: repo, cache: cache}
}

// Session returns the full, authoritative session record, bypassing the
// assignment cache. The dispatcher uses this for fields the cache does not
// carry (userMeta.conversationConcluded).
func (m *Machine) Session(ctx context.Context, id string) (*models.Session, error) {
	return m.repo.GetSession(ctx, id)
}

// Load returns the dispatch-relevant assignment for id, consulting the
// cache first and warming it from the repository on a miss (§4.5).
func (m *Machine) Load(ctx context.Context, id string) (Assignment, error) {
	if a, ok := m.cache.Get(id); ok {
		return a, nil
	}
	s, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	a := FromSession(s)
	m.cache.Put(id, a)
	return a, nil
}

// AssignAgent implements active|new → agent_assigned (§4.5): agent takeover
// or admin-initiated chat creation.
func (m *Machine) AssignAgent(ctx context.Context, id, agentID string) error {
	status := models.SessionAgentAssigned
	agent := &agentID
	err := m.repo.UpdateSession(ctx, id, repository.SessionPatch{
		Status:        &status,
		AssignedAgent: &agent,
	})
	if err != nil {
		return fmt.Errorf("session: assign agent: %w", err)
	}
	m.cache.Put(id, Assignment{Status: status, AssignedAgent: agent})
	return nil
}

// Close implements active|agent_assigned → closed (§4.5): the conclusion
// path or an admin-initiated close.
func (m *Machine) Close(ctx context.Context, id string) error {
	status := models.SessionClosed
	concluded := true
	bumpSeen := true
	err := m.repo.UpdateSession(ctx, id, repository.SessionPatch{
		Status:                &status,
		ConversationConcluded: &concluded,
		LastSeen:              &bumpSeen,
	})
	if err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	m.cache.Invalidate(id)
	return nil
}

// Reopen implements closed → active (§4.5): a new user message arrives on
// a concluded session. Any prior assignedAgent is cleared; the caller
// proceeds to normal dispatch afterward, without replaying prior state.
func (m *Machine) Reopen(ctx context.Context, id string) error {
	status := models.SessionActive
	concluded := false
	var clearedAgent *string
	clearedAgentPtr := &clearedAgent
	err := m.repo.UpdateSession(ctx, id, repository.SessionPatch{
		Status:                &status,
		ConversationConcluded: &concluded,
		AssignedAgent:         clearedAgentPtr,
	})
	if err != nil {
		return fmt.Errorf("session: reopen: %w", err)
	}
	m.cache.Put(id, Assignment{Status: status, AssignedAgent: nil})
	return nil
}

// EnsureExists implements the start_session idempotent-create path: get or
// create, grounded on the teacher's GetOrCreateSession idiom
// (internal/database/db_sessions.go).
func (m *Machine) EnsureExists(ctx context.Context, id string, meta models.UserMeta) (*models.Session, error) {
	s, err := m.repo.GetSession(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	s, err = m.repo.CreateSession(ctx, id, meta)
	if err != nil {
		return nil, fmt.Errorf("session: ensure exists: %w", err)
	}
	m.cache.Put(id, FromSession(s))
	return s, nil
}
