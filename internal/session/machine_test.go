package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
)

type fakeRepo struct {
	repository.Repository
	sessions map[string]*models.Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*models.Session)}
}

func (f *fakeRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) CreateSession(ctx context.Context, id string, meta models.UserMeta) (*models.Session, error) {
	s := &models.Session{ID: id, Status: models.SessionActive, UserMeta: meta}
	f.sessions[id] = s
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) UpdateSession(ctx context.Context, id string, patch repository.SessionPatch) error {
	s, ok := f.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.AssignedAgent != nil {
		s.AssignedAgent = *patch.AssignedAgent
	}
	if patch.ConversationConcluded != nil {
		s.UserMeta.ConversationConcluded = *patch.ConversationConcluded
	}
	return nil
}

func TestAssignAgentTransitionsAndWarmsCache(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	cache := NewCache()
	m := NewMachine(repo, cache)

	require.NoError(t, m.AssignAgent(context.Background(), "s1", "agent-1"))

	a, ok := cache.Get("s1")
	require.True(t, ok)
	require.Equal(t, models.SessionAgentAssigned, a.Status)
	require.True(t, a.AIPaused())
}

func TestCloseInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	cache := NewCache()
	cache.Put("s1", Assignment{Status: models.SessionActive})
	m := NewMachine(repo, cache)

	require.NoError(t, m.Close(context.Background(), "s1"))

	_, ok := cache.Get("s1")
	require.False(t, ok)
	require.True(t, repo.sessions["s1"].UserMeta.ConversationConcluded)
}

func TestReopenClearsAssignedAgentAndAIPausedFalse(t *testing.T) {
	repo := newFakeRepo()
	agent := "agent-1"
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionClosed, AssignedAgent: &agent}
	cache := NewCache()
	m := NewMachine(repo, cache)

	require.NoError(t, m.Reopen(context.Background(), "s1"))

	a, ok := cache.Get("s1")
	require.True(t, ok)
	require.False(t, a.AIPaused())
	require.Nil(t, repo.sessions["s1"].AssignedAgent)
}

func TestLoadWarmsCacheOnMiss(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	cache := NewCache()
	m := NewMachine(repo, cache)

	a, err := m.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.False(t, a.AIPaused())

	_, ok := cache.Get("s1")
	require.True(t, ok)
}

func TestEnsureExistsIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	cache := NewCache()
	m := NewMachine(repo, cache)

	s1, err := m.EnsureExists(context.Background(), "new-session", models.UserMeta{})
	require.NoError(t, err)
	require.Equal(t, "new-session", s1.ID)

	s2, err := m.EnsureExists(context.Background(), "new-session", models.UserMeta{})
	require.NoError(t, err)
	require.Equal(t, s1.ID, s2.ID)
}
