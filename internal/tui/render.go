package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/legal-assistant/backend/internal/model/chat"
)

const minBubbleWidth = 20

// renderMessages lays out the transcript for a terminal of the given width:
// user messages on the right, bot messages on the left.
func renderMessages(styles Styles, messages []chat.Message, width int) string {
	if len(messages) == 0 {
		return styles.Hint.Render("Ask your legal question below.")
	}
	if width <= 0 {
		width = 80
	}

	bubbleWidth := width * 4 / 5
	if bubbleWidth < minBubbleWidth {
		bubbleWidth = minBubbleWidth
	}

	rows := make([]string, 0, len(messages))
	for _, msg := range messages {
		rows = append(rows, renderMessage(styles, msg, width, bubbleWidth))
	}
	return strings.Join(rows, "\n\n")
}

func renderMessage(styles Styles, msg chat.Message, width, bubbleWidth int) string {
	inner := bubbleWidth - 4

	var parts []string
	if msg.Context != "" {
		parts = append(parts, styles.Context.Width(inner).Render("Context: "+msg.Context))
	}
	parts = append(parts, lipgloss.NewStyle().Width(inner).Render(msg.Content))
	if ref := msg.LegalReference; ref != nil {
		parts = append(parts,
			styles.Divider.Render(strings.Repeat("─", inner)),
			styles.Law.Width(inner).Render(ref.Law),
			styles.Reference.Width(inner).Render(ref.Reference),
		)
	}
	body := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if msg.Role == chat.RoleUser {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, styles.UserBubble.Render(body))
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, styles.BotBubble.Render(body))
}
