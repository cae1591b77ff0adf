// Package telemetry mirrors Notification Fan-out system alerts to an
// operations Telegram chat. Adapted from the teacher's
// internal/telemetry/telegram.go (a hand-rolled net/http client against
// the Telegram Bot API's REST endpoints, plus a getUpdates polling loop
// for admin slash-commands) onto the go-telegram-bot-api/v5 SDK. The
// polling/command-handling half of the teacher's bot (/stats, /down,
// /up, /status) is EGO-specific admin tooling with no analogue here and
// is dropped; only the send-side "mirror an alert into ops chat" concern
// survives, generalized to severity-graded system alerts.
package telemetry

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"support-chat-broker/internal/models"
)

// OpsMirror sends a copy of every system alert into an operations
// Telegram chat. A disabled mirror (no token/chat id configured) is a
// safe no-op, matching the teacher's "admin bot is disabled" graceful
// skip in InitializeBot.
type OpsMirror struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewOpsMirror builds an OpsMirror. If token is empty or chatID is zero,
// it returns a disabled mirror rather than failing startup.
func NewOpsMirror(token string, chatID int64) *OpsMirror {
	if token == "" || chatID == 0 {
		log.Println("telemetry: ops Telegram mirror disabled (no token/chat id configured)")
		return &OpsMirror{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("telemetry: failed to initialize Telegram bot: %v", err)
		return &OpsMirror{}
	}
	log.Println("telemetry: ops Telegram mirror initialized")
	return &OpsMirror{bot: bot, chatID: chatID}
}

func (m *OpsMirror) enabled() bool {
	return m.bot != nil && m.chatID != 0
}

var severityEmoji = map[models.NotificationSeverity]string{
	models.SeverityInfo:     "ℹ️",
	models.SeverityWarning:  "🟡",
	models.SeverityCritical: "🔴",
}

// Send mirrors one system alert into the configured chat, run in its own
// goroutine the way the teacher's sendMessage does, so a slow or failing
// Telegram delivery never blocks the alert path it shadows. Errors are
// logged, never returned.
func (m *OpsMirror) Send(title, body string, severity models.NotificationSeverity) {
	if !m.enabled() {
		return
	}
	text := fmt.Sprintf("%s *%s*\n%s", severityEmoji[severity], title, body)
	msg := tgbotapi.NewMessage(m.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("telemetry: recovered from panic sending ops alert: %v", r)
			}
		}()
		if _, err := m.bot.Send(msg); err != nil {
			log.Printf("telemetry: failed to send ops alert to Telegram: %v", err)
		}
	}()
}
