package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithTTL evicts sessions idle for longer than ttl on Sweep. Zero disables eviction.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithEvictHook is called once per session removed by Sweep.
func WithEvictHook(fn func(id string)) Option {
	return func(s *MemoryStore) { s.onEvict = fn }
}

type entry struct {
	mu      sync.Mutex
	turn    chan struct{}
	session chat.Session
}

// MemoryStore keeps sessions in process memory. The map is guarded by mu and
// every session by its own lock, so slow work on one session never blocks
// the others.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(id string)
}

var _ chat.Store = (*MemoryStore)(nil)

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create provisions a session with a fresh id and empty history.
func (s *MemoryStore) Create(ctx chat.AnalysisContext) chat.Session {
	now := s.now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		Context:   ctx.Normalize().Clone(),
		Messages:  make([]chat.Message, 0, 16),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &entry{turn: make(chan struct{}, 1), session: session}
	s.mu.Unlock()

	return session.Clone()
}

// Get returns a snapshot of the session.
func (s *MemoryStore) Get(id string) (chat.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// AddMessage appends a single turn.
func (s *MemoryStore) AddMessage(id string, role chat.Role, content string) error {
	return s.AppendTurns(id, chat.Message{Role: role, Content: content})
}

// AppendTurns appends turns in order under one lock.
func (s *MemoryStore) AppendTurns(id string, turns ...chat.Message) error {
	e, ok := s.lookup(id)
	if !ok {
		return chat.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Messages = append(e.session.Messages, turns...)
	e.session.UpdatedAt = s.now().UTC()
	return nil
}

// ResetHistory clears the history and keeps the context.
func (s *MemoryStore) ResetHistory(id string) {
	e, ok := s.lookup(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.session.Messages)
	e.session.Messages = e.session.Messages[:0]
	e.session.UpdatedAt = s.now().UTC()
}

// Delete removes the session.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// PatchContext applies a parsed patch to the session context.
func (s *MemoryStore) PatchContext(id string, patch chat.ContextPatch) error {
	e, ok := s.lookup(id)
	if !ok {
		return chat.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Context = patch.Apply(e.session.Context)
	e.session.UpdatedAt = s.now().UTC()
	return nil
}

// Acquire blocks until the session's turn lock is free or ctx is done.
func (s *MemoryStore) Acquire(ctx context.Context, id string) (func(), error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, chat.ErrSessionNotFound
	}
	select {
	case e.turn <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-e.turn }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL. Sessions with a turn in
// flight are kept until a later sweep.
func (s *MemoryStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	var evicted []string
	s.mu.Lock()
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := now.Sub(e.session.UpdatedAt)
		e.mu.Unlock()
		if idle <= s.ttl {
			continue
		}
		select {
		case e.turn <- struct{}{}:
			delete(s.sessions, id)
			evicted = append(evicted, id)
			<-e.turn
		default:
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, id := range evicted {
			s.onEvict(id)
		}
	}
	return len(evicted)
}

func (s *MemoryStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}
