package chat

import "github.com/zhouzirui/legal-assistant/backend/internal/model/chat"

const (
	staticAnswer    = "Based on the provided context, here's my legal analysis..."
	staticLaw       = "Indian Contract Act, 1872"
	staticReference = "Section 10 - All agreements are contracts if they are made by the free consent of parties competent to contract, for a lawful consideration and with a lawful object."
)

// Reply is the answer produced for one submitted question.
type Reply struct {
	Content        string
	LegalReference *chat.LegalReference
}

// Responder turns a question and its optional context into a bot reply.
type Responder interface {
	Respond(question, context string) Reply
}

// StaticResponder ignores its input and always returns the same placeholder
// analysis citing Section 10 of the Indian Contract Act.
type StaticResponder struct{}

// Respond implements Responder.
func (StaticResponder) Respond(_, _ string) Reply {
	return Reply{
		Content: staticAnswer,
		LegalReference: &chat.LegalReference{
			Law:       staticLaw,
			Reference: staticReference,
		},
	}
}
