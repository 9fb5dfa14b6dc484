package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// LegalReference is a citation attached to a bot answer.
type LegalReference struct {
	Law       string `json:"law"`
	Reference string `json:"reference"`
}

// Message is one rendered chat entry. Messages are never modified after they
// are appended to a transcript.
type Message struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Context        string          `json:"context,omitempty"`
	LegalReference *LegalReference `json:"legalReference,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Clone returns a deep copy so callers cannot reach stored references.
func (m Message) Clone() Message {
	if m.LegalReference != nil {
		ref := *m.LegalReference
		m.LegalReference = &ref
	}
	return m
}

// CloneMessages deep-copies a transcript.
func CloneMessages(messages []Message) []Message {
	copied := make([]Message, len(messages))
	for i, msg := range messages {
		copied[i] = msg.Clone()
	}
	return copied
}
