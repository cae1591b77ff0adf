package proactive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
	"support-chat-broker/internal/session"
)

type fakeRepo struct {
	repository.Repository
	sessions map[string]*models.Session
	messages []models.Message
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*models.Session)}
}

func (f *fakeRepo) CreateSession(ctx context.Context, id string, meta models.UserMeta) (*models.Session, error) {
	s := &models.Session{ID: id, Status: models.SessionActive, UserMeta: meta}
	f.sessions[id] = s
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
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
	return nil
}

func (f *fakeRepo) AppendMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	f.messages = append(f.messages, msg)
	return &msg, nil
}

type fakeVisitors struct {
	visitors map[string]models.Visitor
}

func (f *fakeVisitors) VisitorByConnection(connID string) (models.Visitor, bool) {
	v, ok := f.visitors[connID]
	return v, ok
}

func (f *fakeVisitors) UpdateVisitor(connID string, mutate func(v *models.Visitor)) (models.Visitor, bool) {
	v, ok := f.visitors[connID]
	if !ok {
		return models.Visitor{}, false
	}
	mutate(&v)
	f.visitors[connID] = v
	return v, true
}

func (f *fakeVisitors) SnapshotVisitors() []models.Visitor {
	out := make([]models.Visitor, 0, len(f.visitors))
	for _, v := range f.visitors {
		out = append(out, v)
	}
	return out
}

type fakeBroadcaster struct {
	connEvents []string
	roomEvents []string
}

func (b *fakeBroadcaster) EmitToConnection(connID, eventType string, payload any) {
	b.connEvents = append(b.connEvents, connID+":"+eventType)
}

func (b *fakeBroadcaster) EmitToRoom(room, eventType string, payload any) {
	b.roomEvents = append(b.roomEvents, room+":"+eventType)
}

func TestInitiateChatHappyPath(t *testing.T) {
	repo := newFakeRepo()
	visitors := &fakeVisitors{visitors: map[string]models.Visitor{
		"conn-1": {ConnectionID: "conn-1", Status: models.VisitorBrowsing},
	}}
	bc := &fakeBroadcaster{}
	orch := New(repo, session.NewMachine(repo, session.NewCache()), visitors, bc)

	result, err := orch.InitiateChat(context.Background(), models.RoleAgent, "conn-1", "hi there", "agent-1")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.SessionID)

	require.Contains(t, bc.connEvents, "conn-1:agent_initiated_chat")
	require.Contains(t, bc.roomEvents, "admin_feed:live_visitors_update")
	require.Equal(t, models.VisitorChatting, visitors.visitors["conn-1"].Status)
	require.Equal(t, result.SessionID, visitors.visitors["conn-1"].SessionID)
	require.Len(t, repo.messages, 1)
}

func TestInitiateChatRejectsNonAgent(t *testing.T) {
	repo := newFakeRepo()
	visitors := &fakeVisitors{visitors: map[string]models.Visitor{"conn-1": {}}}
	orch := New(repo, session.NewMachine(repo, session.NewCache()), visitors, &fakeBroadcaster{})

	_, err := orch.InitiateChat(context.Background(), models.RoleViewer, "conn-1", "hi", "agent-1")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestInitiateChatRejectsUnknownVisitor(t *testing.T) {
	repo := newFakeRepo()
	visitors := &fakeVisitors{visitors: map[string]models.Visitor{}}
	orch := New(repo, session.NewMachine(repo, session.NewCache()), visitors, &fakeBroadcaster{})

	_, err := orch.InitiateChat(context.Background(), models.RoleAgent, "unknown-conn", "hi", "agent-1")
	require.ErrorIs(t, err, ErrVisitorNotFound)
}
