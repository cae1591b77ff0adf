package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"support-chat-broker/internal/ai"
	"support-chat-broker/internal/matcher"
	"support-chat-broker/internal/models"
	"support-chat-broker/internal/repository"
	"support-chat-broker/internal/session"
)

type fakeRepo struct {
	repository.Repository
	sessions map[string]*models.Session
	messages []models.Message
	accuracy []models.AccuracyRecord
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

func (f *fakeRepo) AppendMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, sessionID string, limit int, order repository.MessageOrder) ([]models.Message, error) {
	return f.messages, nil
}

func (f *fakeRepo) CreateAccuracyRecord(ctx context.Context, r models.AccuracyRecord) (*models.AccuracyRecord, error) {
	f.accuracy = append(f.accuracy, r)
	return &r, nil
}

type fakeBroadcaster struct {
	roomEvents []string
	connEvents []string
	payloads   []any
}

func (b *fakeBroadcaster) EmitToRoom(room, eventType string, payload any) {
	b.roomEvents = append(b.roomEvents, room+":"+eventType)
	b.payloads = append(b.payloads, payload)
}

func (b *fakeBroadcaster) EmitToConnection(connID, eventType string, payload any) {
	b.connEvents = append(b.connEvents, connID+":"+eventType)
	b.payloads = append(b.payloads, payload)
}

type fakePresence struct {
	online map[string]string
}

func (p *fakePresence) ConnectionForAgent(agentID string) (string, bool) {
	c, ok := p.online[agentID]
	return c, ok
}

type fakeSettings struct {
	s models.AppSettings
}

func (f fakeSettings) GetSettings(ctx context.Context) (models.AppSettings, error) {
	return f.s, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return []byte("bytes"), "image/png", nil
}

type fakeAIClient struct {
	reply string
}

func (f *fakeAIClient) GenerateContent(ctx context.Context, model, prompt, sysInstruction string) (string, int, error) {
	return f.reply, 5, nil
}

func (f *fakeAIClient) GenerateContentStream(ctx context.Context, model, prompt, sysInstruction string, onPartial func(string)) (string, int, error) {
	onPartial(f.reply)
	return f.reply, 5, nil
}

func (f *fakeAIClient) GenerateWithImage(ctx context.Context, model, prompt string, imageBytes []byte, mime string) (string, error) {
	return "a photo of " + f.reply, nil
}

func newTestDispatcher(repo *fakeRepo, presence PresenceLookup, settings SettingsSource, reply string, redactPII bool) *Dispatcher {
	cache := session.NewCache()
	machine := session.NewMachine(repo, cache)
	generator := ai.NewGenerator(&fakeAIClient{reply: reply}, "gemini-model", nil)
	async := repository.NewAsyncQueue(16)
	return New(repo, machine, matcher.DefaultConfig(), generator, presence, fakeFetcher{}, settings, async, redactPII)
}

func TestDispatchRejectsEmptyText(t *testing.T) {
	repo := newFakeRepo()
	bc := &fakeBroadcaster{}
	d := newTestDispatcher(repo, &fakePresence{}, fakeSettings{}, "hi", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "   "}, "conn1", bc)

	require.Contains(t, bc.connEvents, "conn1:session_error")
}

func TestDispatchConclusionThanksClosesSession(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	bc := &fakeBroadcaster{}
	d := newTestDispatcher(repo, &fakePresence{}, fakeSettings{}, "hi", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "thank you for helping"}, "conn1", bc)

	require.Equal(t, models.SessionClosed, repo.sessions["s1"].Status)
	require.Contains(t, bc.roomEvents, "s1:conversation_closed")
}

func TestDispatchHumanIntentHardGated(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	bc := &fakeBroadcaster{}
	d := newTestDispatcher(repo, &fakePresence{}, fakeSettings{}, "hi", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "I want to talk to an agent"}, "conn1", bc)

	require.Contains(t, bc.roomEvents, "s1:bot_message")
	// No AI/preloaded path should have fired alongside it, regardless of
	// whether the test happens to run in or out of business hours.
	require.NotContains(t, bc.roomEvents, "s1:bot_stream")
}

func TestDispatchAssignmentSuppressesAI(t *testing.T) {
	repo := newFakeRepo()
	agent := "agent-1"
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionAgentAssigned, AssignedAgent: &agent}
	bc := &fakeBroadcaster{}
	presence := &fakePresence{online: map[string]string{"agent-1": "agent-conn"}}
	d := newTestDispatcher(repo, presence, fakeSettings{}, "hi", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "hello there"}, "conn1", bc)

	require.Contains(t, bc.connEvents, "agent-conn:user_message_for_agent")
	for _, e := range bc.roomEvents {
		require.NotContains(t, e, "bot_message")
	}
}

func TestDispatchPreloadedReply(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	bc := &fakeBroadcaster{}
	d := newTestDispatcher(repo, &fakePresence{}, fakeSettings{}, "hi", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "hello"}, "conn1", bc)

	require.Contains(t, bc.roomEvents, "s1:bot_message")
}

func TestDispatchContentFilterRejects(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	bc := &fakeBroadcaster{}
	d := newTestDispatcher(repo, &fakePresence{}, fakeSettings{}, "hi", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "show me porn please"}, "conn1", bc)

	require.Contains(t, bc.roomEvents, "s1:bot_message")
	last, ok := bc.payloads[len(bc.payloads)-1].(map[string]any)
	require.True(t, ok)
	require.Equal(t, contentFilterRejectMsg, last["text"])
}

func TestDispatchAIPathStreamsAndPersists(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["s1"] = &models.Session{ID: "s1", Status: models.SessionActive}
	bc := &fakeBroadcaster{}
	settings := fakeSettings{s: models.AppSettings{ContextLimit: 10, SystemPrompt: "be helpful"}}
	d := newTestDispatcher(repo, &fakePresence{}, settings, "a generated reply", false)

	d.Dispatch(context.Background(), InboundMessage{SessionID: "s1", Text: "tell me about pricing plans today"}, "conn1", bc)

	require.Contains(t, bc.roomEvents, "s1:bot_stream")
	require.Contains(t, bc.roomEvents, "s1:bot_message")

	var botTexts []string
	for _, m := range repo.messages {
		if m.Sender == models.SenderBot {
			botTexts = append(botTexts, m.Text)
		}
	}
	require.Contains(t, botTexts, "a generated reply")
}
