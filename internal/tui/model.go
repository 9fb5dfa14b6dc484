// Package tui is a terminal rendition of the chat shell built on bubbletea.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	chatsvc "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
)

type focus int

const (
	focusQuestion focus = iota
	focusContext
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	contextHeight = 3
)

// Model is the bubbletea model wrapping a single Shell.
type Model struct {
	shell *chatsvc.Shell

	question textinput.Model
	context  textarea.Model
	viewport viewport.Model
	styles   Styles
	focus    focus

	width  int
	height int

	logger *zap.Logger
}

// New builds a model around shell. A nil logger discards output.
func New(shell *chatsvc.Shell, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask your legal question..."
	ti.Prompt = "│ "
	ti.CharLimit = 0
	ti.Focus()

	ta := textarea.New()
	ta.Placeholder = "Paste your context here or upload a document..."
	ta.ShowLineNumbers = false
	ta.SetHeight(contextHeight)

	m := Model{
		shell:    shell,
		question: ti,
		context:  ta,
		viewport: viewport.New(defaultWidth, defaultHeight),
		styles:   styles,
		logger:   logger,
	}
	m = m.resize(defaultWidth, defaultHeight)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}
	return m.updateFocused(msg)
}

// handleKey processes the shell's own bindings. handled=false means the key
// should reach the focused input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true

	case "ctrl+t":
		visible := !m.shell.Composer().ContextVisible
		m.shell.ToggleContextEditor(visible)
		if visible {
			return m.focusOn(focusContext), textarea.Blink, true
		}
		return m.focusOn(focusQuestion), nil, true

	case "esc":
		if m.shell.Composer().ContextVisible {
			m.shell.ToggleContextEditor(false)
			return m.focusOn(focusQuestion), nil, true
		}
		return m, nil, true

	case "tab":
		if !m.shell.Composer().ContextVisible {
			return m, nil, true
		}
		if m.focus == focusQuestion {
			return m.focusOn(focusContext), nil, true
		}
		return m.focusOn(focusQuestion), nil, true

	case "ctrl+u":
		// Document upload is not wired to anything.
		m.logger.Debug("upload requested, ignoring")
		return m, nil, true

	case "enter":
		if m.focus != focusQuestion {
			return m, nil, false
		}
		return m.submit(), nil, true
	}
	return m, nil, false
}

func (m Model) submit() Model {
	m.shell.UpdateQuestion(m.question.Value())
	appended, ok := m.shell.Submit()
	if !ok {
		return m
	}

	m.logger.Debug("question submitted", zap.Int("appended", len(appended)), zap.Int("messages", m.shell.Len()))
	m.question.SetValue("")
	m.context.Reset()
	m = m.focusOn(focusQuestion)
	m.refreshMessages()
	m.viewport.GotoBottom()
	return m
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusContext:
		m.context, cmd = m.context.Update(msg)
		if err := m.shell.UpdateContext(m.context.Value()); err != nil {
			m.logger.Debug("context update dropped", zap.Error(err))
		}
	default:
		m.question, cmd = m.question.Update(msg)
		m.shell.UpdateQuestion(m.question.Value())
	}
	return m, cmd
}

func (m Model) focusOn(f focus) Model {
	m.focus = f
	if f == focusContext {
		m.question.Blur()
		m.context.Focus()
	} else {
		m.context.Blur()
		m.question.Focus()
	}
	return m
}

func (m Model) resize(width, height int) Model {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	m.width = width
	m.height = height

	m.question.Width = width - 4
	m.context.SetWidth(width - 2)

	// header + composer (input, hints, optional editor) + borders
	reserved := 6 + contextHeight + 2
	vpHeight := height - reserved
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.refreshMessages()
	return m
}

func (m *Model) refreshMessages() {
	m.viewport.SetContent(renderMessages(m.styles, m.shell.Messages(), m.width))
}

// View implements tea.Model.
func (m Model) View() string {
	header := m.styles.Header.Width(m.width).Render("⚖ Indian Legal Assistant")

	var composer strings.Builder
	if m.shell.Composer().ContextVisible {
		composer.WriteString(m.styles.Label.Render("Context"))
		composer.WriteString(m.styles.Hint.Render("  (esc to hide)"))
		composer.WriteString("\n")
		composer.WriteString(m.context.View())
		composer.WriteString("\n")
		composer.WriteString(m.styles.Hint.Render("ctrl+u Upload Document (PDF, DOC, or Image)"))
		composer.WriteString("\n")
	}
	composer.WriteString(m.question.View())
	composer.WriteString("\n")

	hints := "enter send • ctrl+t context • ctrl+c quit"
	if m.shell.Composer().ContextVisible {
		hints = "enter send • tab switch field • ctrl+t hide context • ctrl+c quit"
	}
	composer.WriteString(m.styles.Hint.Render(hints))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.styles.Composer.Width(m.width).Render(composer.String()),
	)
}
