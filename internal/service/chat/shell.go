package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/legal-assistant/backend/internal/model/chat"
)

// ErrContextEditorHidden is returned when the draft context is edited while
// the context editor is not shown.
var ErrContextEditorHidden = errors.New("context editor is hidden")

// Shell owns one conversation: an append-only message list and the composer
// that feeds it. A Shell is not safe for concurrent use; Service serializes
// access to the shells it manages.
type Shell struct {
	messages  []chat.Message
	composer  chat.Composer
	responder Responder
	now       func() time.Time
	newID     func() string
}

// NewShell returns an empty shell answering through responder. A nil
// responder falls back to StaticResponder.
func NewShell(responder Responder) *Shell {
	if responder == nil {
		responder = StaticResponder{}
	}
	return &Shell{
		messages:  make([]chat.Message, 0, 16),
		responder: responder,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// UpdateQuestion replaces the draft question.
func (s *Shell) UpdateQuestion(text string) {
	s.composer.Question = text
}

// UpdateContext replaces the draft context. It only applies while the
// context editor is visible.
func (s *Shell) UpdateContext(text string) error {
	if !s.composer.ContextVisible {
		return ErrContextEditorHidden
	}
	s.composer.Context = text
	return nil
}

// ToggleContextEditor shows or hides the context editor. The draft context
// survives hiding.
func (s *Shell) ToggleContextEditor(visible bool) {
	s.composer.ContextVisible = visible
}

// Submit turns the draft into a user message followed by the bot reply and
// resets the composer. A blank question is ignored and reports false.
func (s *Shell) Submit() ([]chat.Message, bool) {
	question := s.composer.Question
	if strings.TrimSpace(question) == "" {
		return nil, false
	}

	draftContext := s.composer.Context
	reply := s.responder.Respond(question, draftContext)
	createdAt := s.now()

	user := chat.Message{
		ID:        s.newID(),
		Role:      chat.RoleUser,
		Content:   question,
		Context:   draftContext,
		CreatedAt: createdAt,
	}
	bot := chat.Message{
		ID:             s.newID(),
		Role:           chat.RoleBot,
		Content:        reply.Content,
		LegalReference: reply.LegalReference,
		CreatedAt:      createdAt,
	}
	bot = bot.Clone()

	s.messages = append(s.messages, user, bot)
	s.composer = chat.Composer{}

	return []chat.Message{user.Clone(), bot.Clone()}, true
}

// Messages returns a copy of the transcript in submission order.
func (s *Shell) Messages() []chat.Message {
	return chat.CloneMessages(s.messages)
}

// Len reports how many messages the shell holds.
func (s *Shell) Len() int {
	return len(s.messages)
}

// Composer returns the current draft state.
func (s *Shell) Composer() chat.Composer {
	return s.composer
}

// Snapshot captures the full render input of the shell.
func (s *Shell) Snapshot(sessionID string) chat.Snapshot {
	return chat.Snapshot{
		SessionID: sessionID,
		Messages:  s.Messages(),
		Composer:  s.composer,
	}
}
