package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the shell.
type Styles struct {
	Header     lipgloss.Style
	UserBubble lipgloss.Style
	BotBubble  lipgloss.Style
	Context    lipgloss.Style
	Divider    lipgloss.Style
	Law        lipgloss.Style
	Reference  lipgloss.Style
	Label      lipgloss.Style
	Hint       lipgloss.Style
	Composer   lipgloss.Style
}

// DefaultStyles mirrors the indigo palette of the web page.
func DefaultStyles() Styles {
	indigo := lipgloss.Color("#4338CA")
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(indigo).
			Padding(0, 2),
		UserBubble: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F46E5")).
			Padding(0, 1),
		BotBubble: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#D1D5DB")).
			Padding(0, 1),
		Context: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3730A3")).
			Background(lipgloss.Color("#E0E7FF")),
		Divider:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB")),
		Law:       lipgloss.NewStyle().Bold(true).Foreground(indigo),
		Reference: lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563")),
		Label:     lipgloss.NewStyle().Bold(true),
		Hint:      lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Composer: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#D1D5DB")),
	}
}
