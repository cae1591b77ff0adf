package dispatcher

import (
	"context"
	"log"
	"time"

	"support-chat-broker/internal/ai"
	"support-chat-broker/internal/models"
	"support-chat-broker/internal/redact"
	"support-chat-broker/internal/repository"
)

// runAIPath implements steps 12/13: build the prompt, call the generator,
// stream partials, and fall back to a fixed message on total failure.
func (d *Dispatcher) runAIPath(ctx context.Context, sessionID, userText string, bc Broadcaster) {
	settings, err := d.settings.GetSettings(ctx)
	if err != nil {
		log.Printf("dispatcher: load settings for session %s: %v", sessionID, err)
		settings = models.AppSettings{ContextLimit: models.MinContextLimit}
	}

	history, err := d.repo.ListMessages(ctx, sessionID, settings.ContextLimit, repository.OrderAscending)
	if err != nil {
		log.Printf("dispatcher: list messages for session %s: %v", sessionID, err)
	}

	prompt := buildPrompt(settings.SystemPrompt, history, settings.ContextLimit, userText)

	start := time.Now()
	result, err := d.generator.GenerateStream(ctx, prompt, ai.Options{}, func(p ai.Partial) {
		bc.EmitToRoom(sessionRoom(sessionID), "bot_stream", map[string]any{"text": p.Text})
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		d.async.Submit(func() {
			bgCtx := context.Background()
			d.persistBotMessage(bgCtx, sessionID, aiUnavailableFallbackMsg, models.MessageMeta{})
			d.persistAccuracy(bgCtx, sessionID, aiUnavailableFallbackMsg, 0, latency, 0, models.ResponseFallback)
		})
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": aiUnavailableFallbackMsg, "confidence": 0})
		return
	}

	final := ai.TruncateWords(result.Final, maxAIWords)
	d.persistBotMessage(ctx, sessionID, final, models.MessageMeta{})
	bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": final})
	d.async.Submit(func() {
		bgCtx := context.Background()
		meta := result.Model
		rec := models.AccuracyRecord{
			SessionID:    sessionID,
			Confidence:   1,
			LatencyMs:    latency,
			Tokens:       result.Tokens,
			ResponseType: models.ResponseAI,
			Metadata:     meta,
		}
		redactedText := final
		if d.redactPII {
			redactedText = redact.Text(redactedText)
		}
		rec.RedactedText = models.TruncateMetadata(redactedText)
		if _, err := d.repo.CreateAccuracyRecord(bgCtx, rec); err != nil {
			log.Printf("dispatcher: persist ai accuracy record for session %s: %v", sessionID, err)
		}
	})
}

// handleVision implements step 8: fetch the attachment bytes, run the
// vision call, persist and emit the result, and write an accuracy record.
func (d *Dispatcher) handleVision(ctx context.Context, sessionID, prompt, attachmentURL string, bc Broadcaster) {
	settings, err := d.settings.GetSettings(ctx)
	if err != nil {
		log.Printf("dispatcher: load settings for session %s: %v", sessionID, err)
	}
	visionPrompt := settings.ImageAnalysisPrompt
	if visionPrompt == "" {
		visionPrompt = prompt
	}

	start := time.Now()
	data, mime, err := d.fetcher.Fetch(ctx, attachmentURL)
	if err != nil {
		log.Printf("dispatcher: fetch attachment for session %s: %v", sessionID, err)
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": aiUnavailableFallbackMsg, "confidence": 0})
		return
	}

	result, err := d.generator.GenerateWithImage(ctx, visionPrompt, data, mime)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		d.persistBotMessage(ctx, sessionID, aiUnavailableFallbackMsg, models.MessageMeta{})
		bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": aiUnavailableFallbackMsg, "confidence": 0})
		return
	}

	final := ai.TruncateWords(result.Final, maxAIWords)
	d.persistBotMessage(ctx, sessionID, final, models.MessageMeta{})
	bc.EmitToRoom(sessionRoom(sessionID), "bot_message", map[string]any{"text": final})
	d.persistAccuracy(ctx, sessionID, final, 1, latency, 0, models.ResponseVision)
}
