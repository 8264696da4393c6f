// Package session holds the ephemeral per-user collection state and the
// debounced activity notifier. Sessions live only in memory; a process
// restart discards them.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"sequence_bot/internal/model"
)

// Sentinel errors returned by Store operations.
var (
	ErrNoActiveSession = errors.New("no active session")
	ErrEmptySession    = errors.New("session has no items")
)

type state struct {
	id        uuid.UUID
	items     []model.Item
	createdAt time.Time
}

// Canceler cancels any pending notification for a user. The Store calls it
// whenever a session is replaced or torn down.
type Canceler interface {
	Cancel(userID int64)
}

type noopCanceler struct{}

func (noopCanceler) Cancel(int64) {}

// Store is a keyed session store. At most one session exists per user;
// Start replaces any prior session for that user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*state
	notifier Canceler
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*state),
		notifier: noopCanceler{},
	}
}

// SetNotifier wires the pending-notification canceler. Must be called
// before the store receives traffic.
func (s *Store) SetNotifier(n Canceler) {
	s.notifier = n
}

// Start creates a fresh empty session for the user, discarding any
// existing one along with its pending notification. It returns the new
// session's ID and never fails.
func (s *Store) Start(userID int64) uuid.UUID {
	s.notifier.Cancel(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := &state{id: uuid.New(), createdAt: time.Now()}
	s.sessions[userID] = st
	return st.id
}

// Append adds items to the user's open session and returns the new total.
// It fails with ErrNoActiveSession if no session is open.
func (s *Store) Append(userID int64, items ...model.Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		return 0, ErrNoActiveSession
	}
	st.items = append(st.items, items...)
	return len(st.items), nil
}

// Finish atomically removes the user's session and returns its items for
// dispatch. Any pending notification is cancelled. It fails with
// ErrNoActiveSession or ErrEmptySession when there is nothing to dispatch.
func (s *Store) Finish(userID int64) ([]model.Item, error) {
	s.notifier.Cancel(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if len(st.items) == 0 {
		return nil, ErrEmptySession
	}
	delete(s.sessions, userID)
	return st.items, nil
}

// Cancel removes the user's session if one exists and cancels any pending
// notification. It is idempotent and reports whether a session existed.
func (s *Store) Cancel(userID int64) bool {
	s.notifier.Cancel(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

// Active reports whether the user currently has an open session.
func (s *Store) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Count returns the number of items in the user's open session, or false
// when no session is open.
func (s *Store) Count(userID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		return 0, false
	}
	return len(st.items), true
}

// ID returns the open session's identifier for log correlation.
func (s *Store) ID(userID int64) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		return uuid.Nil, false
	}
	return st.id, true
}
