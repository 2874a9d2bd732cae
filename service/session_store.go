package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/editor"
)

// EditSession is a registered editing session. Session state is only touched
// through EditSessionStore.With, which serializes access per entry.
type EditSession struct {
	ID         string       `json:"id"`
	ContractID string       `json:"contract_id"`
	UserID     string       `json:"user_id"`
	Grant      access.Grant `json:"-"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	mu      sync.Mutex
	session *editor.Session
}

// EditSessionStore is an in-memory registry of editing sessions
type EditSessionStore struct {
	sessions    map[string]*EditSession
	mu          sync.RWMutex
	maxSessions int // Maximum sessions to keep, 0 = unlimited
	now         func() time.Time
}

func NewEditSessionStore(maxSessions int) *EditSessionStore {
	if maxSessions < 0 {
		maxSessions = 0
	}
	slog.Info("edit session store initialized", "max_sessions", maxSessions)
	return &EditSessionStore{
		sessions:    make(map[string]*EditSession),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Add registers a session and returns its entry.
func (s *EditSessionStore) Add(contractID, userID string, grant access.Grant, session *editor.Session) *EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := &EditSession{
		ID:         uuid.NewString(),
		ContractID: contractID,
		UserID:     userID,
		Grant:      grant,
		CreatedAt:  now,
		UpdatedAt:  now,
		session:    session,
	}
	s.sessions[entry.ID] = entry

	s.cleanupIfNeeded()
	return entry
}

func (s *EditSessionStore) Get(id string) (*EditSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// With runs fn with exclusive access to the session.
func (s *EditSessionStore) With(id string, fn func(e *EditSession, sess *editor.Session) error) error {
	e, ok := s.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e, e.session); err != nil {
		return err
	}
	e.UpdatedAt = s.now()
	return nil
}

func (s *EditSessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// DeleteByContract drops every session of a contract.
func (s *EditSessionStore) DeleteByContract(contractID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		if e.ContractID == contractID {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// cleanupIfNeeded removes the oldest sessions if the store exceeds maxSessions
// Must be called with lock held
func (s *EditSessionStore) cleanupIfNeeded() {
	if s.maxSessions <= 0 || len(s.sessions) <= s.maxSessions {
		return
	}

	entries := make([]*EditSession, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	removeCount := len(entries) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting old edit session",
			"session_id", entries[i].ID,
			"contract_id", entries[i].ContractID,
			"created_at", entries[i].CreatedAt,
		)
		delete(s.sessions, entries[i].ID)
	}
}

// Count returns the number of sessions in the store
func (s *EditSessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
