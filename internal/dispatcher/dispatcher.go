// Package dispatcher implements the Message Dispatcher (§4.6), the core's
// largest component: a thirteen-step ordered decision tree run for every
// inbound user message, plus the handful of closely related session-events
// (start_session, request_agent, agent_takeover, ...) that share its
// collaborators. Grounded on the teacher's internal/engine/engine.go
// Processor.ProcessRequest shape: one orchestrating entry point threading a
// context and an EventCallback through ordered, individually-recoverable
// steps, generalized from a single LLM-proxy call into the full classifier
// → assignment → AI decision tree.
package dispatcher

import (
	"context"
	"log"
	"strings"
	"time"

	"support-chat-broker/internal/ai"
	"support-chat-broker/internal/blobfetch"
	"support-chat-broker/internal/matcher"
	"support-chat-broker/internal/models"
	"support-chat-broker/internal/redact"
	"support-chat-broker/internal/repository"
	"support-chat-broker/internal/session"
)

// DecisionRecorder is the narrow internal/obsv.Metrics slice the
// dispatcher records decision-tree outcomes against. Defined locally so
// dispatcher never imports obsv directly; a nil recorder (the zero value
// of Dispatcher.metrics) simply means metrics are not wired.
type DecisionRecorder interface {
	IncDispatchDecision(outcome string)
	IncCannedMatch(matched bool)
}

// Broadcaster is the narrow transport slice the dispatcher drives. Defined
// locally (not imported from internal/transport) to keep the dependency
// graph acyclic — the same pattern used by internal/presence.
type Broadcaster interface {
	EmitToRoom(room string, eventType string, payload any)
	EmitToConnection(connID string, eventType string, payload any)
}

// PresenceLookup is the slice of the Presence Registry the assignment
// check (step 7) and agent-room events need: whether an agent is currently
// online.
type PresenceLookup interface {
	ConnectionForAgent(agentID string) (string, bool)
}

// SettingsSource supplies the live application settings (system prompt,
// context limit, welcome message, image-analysis prompt).
type SettingsSource interface {
	GetSettings(ctx context.Context) (models.AppSettings, error)
}

// InboundMessage is the user_message event payload (§6).
type InboundMessage struct {
	SessionID     string
	Text          string
	Type          string
	AttachmentURL string
}

// Dispatcher is the Message Dispatcher.
type Dispatcher struct {
	repo       repository.Repository
	sessions   *session.Machine
	matcherCfg matcher.Config
	generator  *ai.Generator
	presence   PresenceLookup
	fetcher    blobfetch.Fetcher
	settings   SettingsSource
	async      *repository.AsyncQueue
	redactPII  bool
	metrics    DecisionRecorder
}

// WithMetrics attaches a decision-outcome recorder (internal/obsv.Metrics).
// Returns d for chaining at construction time.
func (d *Dispatcher) WithMetrics(metrics DecisionRecorder) *Dispatcher {
	d.metrics = metrics
	return d
}

func (d *Dispatcher) recordDecision(outcome string) {
	if d.metrics != nil {
		d.metrics.IncDispatchDecision(outcome)
	}
}

func (d *Dispatcher) recordCannedMatch(matched bool) {
	if d.metrics != nil {
		d.metrics.IncCannedMatch(matched)
	}
}

// New builds a Dispatcher over its collaborators.
func New(
	repo repository.Repository,
	sessions *session.Machine,
	matcherCfg matcher.Config,
	generator *ai.Generator,
	presence PresenceLookup,
	fetcher blobfetch.Fetcher,
	settings SettingsSource,
	async *repository.AsyncQueue,
	redactPII bool,
) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		sessions:   sessions,
		matcherCfg: matcherCfg,
		generator:  generator,
		presence:   presence,
		fetcher:    fetcher,
		settings:   settings,
		async:      async,
		redactPII:  redactPII,
	}
}

const (
	conclusionThanksPhrase  = "thank you for helping"
	conclusionAskMorePhrase = "want to ask more"

	finalConclusionBotLine   = "Thank you for chatting with us. This conversation is now closed."
	stillConcludedInstrMsg   = "This conversation is already closed. Send a new message to start a fresh conversation."
	agentInHoursPromptMsg    = "I'll connect you with a human agent now."
	agentOffHoursMsg         = "Our team is currently offline. We'll contact you during business hours."
	contentFilterRejectMsg   = "I can't help with that request."
	aiUnavailableFallbackMsg = "Our AI assistant is temporarily unavailable. A team member will follow up shortly."
	endingFollowUpQuestion   = "Is there anything else I can help you with?"

	maxAIWords = 30
)

func sessionRoom(sessionID string) string { return sessionID }

// agentSessionRoom is the agent-only counterpart of sessionRoom: visitors
// never join it (internal/transport/router.go only joins a connection to
// it once agentRoleOf confirms the connection authenticated as an agent),
// so events emitted here — internal_note — never reach the visitor's own
// connection, unlike the shared sessionRoom which both sides join.
func agentSessionRoom(sessionID string) string { return "agents:session:" + sessionID }

// Dispatch runs the thirteen-step decision tree for one inbound user
// message (§4.6). bc is the transport's per-call broadcaster; senderConnID
// is the originating connection, used only for the validation-failure
// error reply (step 1).
func (d *Dispatcher) Dispatch(ctx context.Context, msg InboundMessage, senderConnID string, bc Broadcaster) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: recovered from panic for session %s: %v", msg.SessionID, r)
			bc.EmitToRoom(sessionRoom(strings.TrimSpace(msg.SessionID)), "bot_message", map[string]any{"text": "Something went wrong. Please try again.", "confidence": 0})
		}
	}()

	// Step 1: validate.
	sessionID := strings.TrimSpace(msg.SessionID)
	text := strings.TrimSpace(msg.Text)
	if sessionID == "" || text == "" {
		d.recordDecision("validation_rejected")
		bc.EmitToConnection(senderConnID, "session_error", map[string]string{"message": "sessionId and text are required"})
		return
	}

	// Step 2: persist user message, always.
	userMsg := models.Message{
		SessionID:  sessionID,
		Sender:     models.SenderUser,
		Text:       text,
		Visibility: models.VisibilityPublic,
		Meta:       models.MessageMeta{Type: msg.Type},
	}
	if msg.AttachmentURL != "" {
		attachment := msg.AttachmentURL
		userMsg.AttachmentURL = &attachment
	}
	if _, err := d.repo.AppendMessage(ctx, userMsg); err != nil {
		log.Printf("dispatcher: persist user message for session %s: %v", sessionID, err)
	}

	// Step 3: broadcast-for-agents.
	bc.EmitToRoom("admin_feed", "user_message", map[string]any{"sessionId": sessionID, "text": text})

	sess, err := d.sessions.Session(ctx, sessionID)
	if err != nil {
		log.Printf("dispatcher: load session %s: %v", sessionID, err)
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": "Something went wrong. Please try again.", "confidence": 0})
		return
	}

	// Step 4: closed-session check (reopen without replay).
	if sess.UserMeta.ConversationConcluded {
		if err := d.sessions.Reopen(ctx, sessionID); err != nil {
			log.Printf("dispatcher: reopen session %s: %v", sessionID, err)
		}
		sess.UserMeta.ConversationConcluded = false
		sess.AssignedAgent = nil
		sess.Status = models.SessionActive
	}

	// Step 5: conclusion-option handling, priority over all other classifiers.
	normalized := matcher.Normalize(text)
	if normalized == matcher.Normalize(conclusionThanksPhrase) {
		d.recordDecision("conclusion_closed")
		d.concludeSession(ctx, sessionID, bc)
		return
	}
	if normalized == matcher.Normalize(conclusionAskMorePhrase) {
		if sess.UserMeta.ConversationConcluded {
			d.recordDecision("conclusion_still_closed")
			d.emitAndPersistBot(ctx, sessionID, stillConcludedInstrMsg, models.ResponseStub, bc, nil)
			return
		}
		// else: continue to the rest of the decision tree.
	}

	// Step 6: human-intent classifier — hard-gated, no further classification.
	if matcher.MatchHumanIntent(d.matcherCfg, text) {
		if InBusinessHours(time.Now()) {
			d.recordDecision("human_intent_in_hours")
			bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{
				"text": agentInHoursPromptMsg, "showAgentButton": true,
			})
		} else {
			d.recordDecision("human_intent_off_hours")
			bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": agentOffHoursMsg})
			bc.EmitToRoom(sessionRoom(sessionID), "offline_form", map[string]any{"sessionId": sessionID})
		}
		return
	}

	// Step 7: assignment check — AI suppressed when an agent owns the
	// session.
	assignment, err := d.sessions.Load(ctx, sessionID)
	if err != nil {
		assignment = session.FromSession(sess)
	}
	if assignment.AssignedAgent != nil || assignment.AIPaused() {
		d.recordDecision("ai_suppressed_assigned")
		bc.EmitToRoom(sessionRoom(sessionID), "user_message", map[string]any{"text": text, "sender": "user"})
		if assignment.AssignedAgent != nil {
			if connID, ok := d.presence.ConnectionForAgent(*assignment.AssignedAgent); ok {
				bc.EmitToConnection(connID, "user_message_for_agent", map[string]any{
					"sessionId": sessionID, "text": text, "ts": time.Now().UTC(),
				})
			}
		}
		return
	}

	// Step 8: attachment/vision branch.
	if msg.Type == "image" && msg.AttachmentURL != "" {
		d.recordDecision("vision")
		d.handleVision(ctx, sessionID, text, msg.AttachmentURL, bc)
		return
	}

	// Step 9: preloaded-reply.
	if reply, ok := matcher.MatchPreloaded(d.matcherCfg, text); ok {
		d.recordCannedMatch(true)
		d.recordDecision("preloaded_reply")
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": reply, "confidence": 1})
		d.async.Submit(func() {
			bgCtx := context.Background()
			d.persistBotMessage(bgCtx, sessionID, reply, models.MessageMeta{})
			d.persistAccuracy(bgCtx, sessionID, reply, 1, 0, 0, models.ResponsePreloaded)
		})
		return
	}
	d.recordCannedMatch(false)

	// Step 10: ending-phrase.
	if matcher.MatchEndingPhrase(d.matcherCfg, text) {
		d.recordDecision("ending_phrase")
		d.persistBotMessage(ctx, sessionID, endingFollowUpQuestion, models.MessageMeta{})
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{
			"text":    endingFollowUpQuestion,
			"options": []string{"Thank you for helping", "Want to ask more"},
		})
		return
	}

	// Step 11: content filter.
	if isFilteredContent(text) {
		d.recordDecision("content_filtered")
		d.async.Submit(func() {
			d.persistBotMessageFiltered(context.Background(), sessionID, contentFilterRejectMsg)
		})
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": contentFilterRejectMsg})
		return
	}

	// Step 12/13: AI path, with fixed fallback message on total failure.
	d.recordDecision("ai_path")
	d.runAIPath(ctx, sessionID, text, bc)
}

// concludeSession implements the "thank you for helping" branch of step 5.
func (d *Dispatcher) concludeSession(ctx context.Context, sessionID string, bc Broadcaster) {
	if err := d.sessions.Close(ctx, sessionID); err != nil {
		log.Printf("dispatcher: close session %s: %v", sessionID, err)
	}
	d.persistBotMessage(ctx, sessionID, finalConclusionBotLine, models.MessageMeta{Type: "conclusion_final"})
	bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": finalConclusionBotLine, "type": "conclusion_final"})
	bc.EmitToRoom(sessionRoom(sessionID), "conversation_closed", map[string]any{"sessionId": sessionID})
}

func (d *Dispatcher) emitAndPersistBot(ctx context.Context, sessionID, text string, responseType models.ResponseType, bc Broadcaster, extra map[string]any) {
	d.persistBotMessage(ctx, sessionID, text, models.MessageMeta{})
	payload := map[string]any{"text": text}
	for k, v := range extra {
		payload[k] = v
	}
	bc.EmitToRoom(sessionRoom(sessionID), "bot_message", payload)
}

func (d *Dispatcher) persistBotMessage(ctx context.Context, sessionID, text string, meta models.MessageMeta) {
	if _, err := d.repo.AppendMessage(ctx, models.Message{
		SessionID:  sessionID,
		Sender:     models.SenderBot,
		Text:       text,
		Visibility: models.VisibilityPublic,
		Meta:       meta,
	}); err != nil {
		log.Printf("dispatcher: persist bot message for session %s: %v", sessionID, err)
	}
}

func (d *Dispatcher) persistBotMessageFiltered(ctx context.Context, sessionID, text string) {
	d.persistBotMessage(ctx, sessionID, text, models.MessageMeta{Filtered: true})
}

func (d *Dispatcher) persistAccuracy(ctx context.Context, sessionID, redactedText string, confidence float64, latencyMs int64, tokens int, responseType models.ResponseType) {
	if d.redactPII {
		redactedText = redact.Text(redactedText)
	}
	if _, err := d.repo.CreateAccuracyRecord(ctx, models.AccuracyRecord{
		SessionID:    sessionID,
		RedactedText: models.TruncateMetadata(redactedText),
		Confidence:   confidence,
		LatencyMs:    latencyMs,
		Tokens:       tokens,
		ResponseType: responseType,
	}); err != nil {
		log.Printf("dispatcher: persist accuracy record for session %s: %v", sessionID, err)
	}
}
