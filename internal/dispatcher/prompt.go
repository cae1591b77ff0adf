package dispatcher

import (
	"strings"

	"support-chat-broker/internal/models"
)

// buildPrompt assembles the AI path's prompt (§4.6 step 12): system
// instructions, a snapshot of up to historyLimit persisted messages in
// ascending time order (labeled User:/You (Assistant):, internal-visibility
// messages excluded), and the current user turn.
func buildPrompt(systemPrompt string, history []models.Message, historyLimit int, currentTurn string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	visible := make([]models.Message, 0, len(history))
	for _, m := range history {
		if m.Visibility == models.VisibilityInternal {
			continue
		}
		visible = append(visible, m)
	}
	if len(visible) > historyLimit {
		visible = visible[len(visible)-historyLimit:]
	}

	for _, m := range visible {
		switch m.Sender {
		case models.SenderUser:
			b.WriteString("User: ")
		default:
			b.WriteString("You (Assistant): ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(currentTurn)
	return b.String()
}
