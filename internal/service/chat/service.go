package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/legal-assistant/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrSessionInUse    = errors.New("session already has a connected client")
)

const (
	defaultIdleTTL     = 30 * time.Minute
	defaultPendingTTL  = time.Minute
	defaultMaxSessions = 1000
)

// SubmitResult reports the messages appended by a submit together with the
// resulting shell state. Appended is empty when the question was blank.
type SubmitResult struct {
	Appended []chat.Message `json:"appended"`
	Snapshot chat.Snapshot  `json:"snapshot"`
}

// entry is one registered shell. A pending entry was handed out with a page
// and waits for its websocket; a connected entry is owned by exactly one
// socket and is never swept.
type entry struct {
	session   chat.Session
	shell     *Shell
	lastSeen  time.Time
	pending   bool
	connected bool
}

// Service keeps one Shell per session in memory. Every shell operation runs
// under the service lock, so each shell only ever sees one caller at a time.
type Service struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	responder   Responder
	idleTTL     time.Duration
	pendingTTL  time.Duration
	maxSessions int
	now         func() time.Time
	logger      *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithResponder sets the collaborator that produces bot replies.
func WithResponder(r Responder) Option {
	return func(s *Service) {
		if r != nil {
			s.responder = r
		}
	}
}

// WithIdleTTL sets how long an untouched session survives a Sweep.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithPendingTTL sets how long a page session may wait for its websocket.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.pendingTTL = ttl
		}
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService bootstraps the in-memory shell registry.
func NewService(opts ...Option) *Service {
	s := &Service{
		sessions:    make(map[string]*entry),
		responder:   StaticResponder{},
		idleTTL:     defaultIdleTTL,
		pendingTTL:  defaultPendingTTL,
		maxSessions: defaultMaxSessions,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession provisions a fresh, empty shell for an API client. It lives
// until closed or idle for longer than the idle TTL.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	return s.create(false)
}

// CreatePageSession provisions a shell for a page load. It stays pending
// until Attach is called and is reclaimed after the pending TTL otherwise.
func (s *Service) CreatePageSession(_ context.Context) (chat.Session, error) {
	return s.create(true)
}

func (s *Service) create(pending bool) (chat.Session, error) {
	now := s.now()
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}

	shell := NewShell(s.responder)
	shell.now = s.now

	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		// Expired page sessions must not hold the cap until the next sweep.
		s.evictLocked(now)
	}
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return chat.Session{}, ErrTooManySessions
	}
	s.sessions[session.ID] = &entry{session: session, shell: shell, lastSeen: now, pending: pending}
	active := len(s.sessions)
	s.mu.Unlock()

	s.logger.Debug("session created",
		zap.String("session", session.ID),
		zap.Bool("pending", pending),
		zap.Int("active", active))
	return session, nil
}

// Attach claims a session for a single live client. A second client gets
// ErrSessionInUse until the owner closes the session.
func (s *Service) Attach(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if e.connected {
		return ErrSessionInUse
	}
	e.connected = true
	e.pending = false
	e.lastSeen = s.now()
	return nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return e.session, nil
}

// Snapshot returns the current render state of a session.
func (s *Service) Snapshot(_ context.Context, sessionID string) (chat.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Snapshot{}, ErrSessionNotFound
	}
	return e.shell.Snapshot(sessionID), nil
}

// LoadTranscript returns the messages of a session in submission order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.shell.Messages(), nil
}

// UpdateQuestion replaces the draft question of a session.
func (s *Service) UpdateQuestion(_ context.Context, sessionID, text string) (chat.Snapshot, error) {
	return s.mutate(sessionID, func(shell *Shell) error {
		shell.UpdateQuestion(text)
		return nil
	})
}

// UpdateContext replaces the draft context of a session. It fails with
// ErrContextEditorHidden when the editor is not shown.
func (s *Service) UpdateContext(_ context.Context, sessionID, text string) (chat.Snapshot, error) {
	return s.mutate(sessionID, func(shell *Shell) error {
		return shell.UpdateContext(text)
	})
}

// ToggleContextEditor shows or hides the context editor of a session.
func (s *Service) ToggleContextEditor(_ context.Context, sessionID string, visible bool) (chat.Snapshot, error) {
	return s.mutate(sessionID, func(shell *Shell) error {
		shell.ToggleContextEditor(visible)
		return nil
	})
}

// Submit converts the session draft into a question/answer pair.
func (s *Service) Submit(_ context.Context, sessionID string) (SubmitResult, error) {
	var appended []chat.Message
	snapshot, err := s.mutate(sessionID, func(shell *Shell) error {
		appended, _ = shell.Submit()
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if appended == nil {
		appended = []chat.Message{}
	} else {
		s.logger.Debug("question submitted",
			zap.String("session", sessionID),
			zap.Int("messages", len(snapshot.Messages)))
	}
	return SubmitResult{Appended: appended, Snapshot: snapshot}, nil
}

// CloseSession discards a session and its transcript.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.logger.Debug("session closed", zap.String("session", sessionID), zap.Int("active", len(s.sessions)))
	return nil
}

// Touch marks a session as in use so Sweep keeps it.
func (s *Service) Touch(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	e.lastSeen = s.now()
	return nil
}

// Count reports the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions that have not been touched for longer than their TTL
// and reports how many were removed. Pending page sessions use the pending
// TTL; sessions with a connected client are kept.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.evictLocked(now)
	if removed > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("removed", removed), zap.Int("active", len(s.sessions)))
	}
	return removed
}

func (s *Service) evictLocked(now time.Time) int {
	removed := 0
	for id, e := range s.sessions {
		if e.connected {
			continue
		}
		ttl := s.idleTTL
		if e.pending {
			ttl = s.pendingTTL
		}
		if now.Sub(e.lastSeen) > ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

func (s *Service) mutate(sessionID string, fn func(*Shell) error) (chat.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Snapshot{}, ErrSessionNotFound
	}
	e.lastSeen = s.now()

	if err := fn(e.shell); err != nil {
		return e.shell.Snapshot(sessionID), err
	}
	return e.shell.Snapshot(sessionID), nil
}
