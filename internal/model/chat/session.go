package chat

import "time"

// Session is the registry handle of one transient chat shell.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Composer holds the editable draft state prior to submission.
type Composer struct {
	Question       string `json:"question"`
	Context        string `json:"context"`
	ContextVisible bool   `json:"contextVisible"`
}

// Snapshot is everything needed to render a shell.
type Snapshot struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	Composer  Composer  `json:"composer"`
}
