// Package session holds the process-wide source of truth for the current
// authenticated identity. The store is the single writer; everything else
// reads its state or subscribes to change notifications.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusLoading
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Session is the identity carried while authenticated. Either the whole
// value is present (StatusAuthenticated) or none of it is.
type Session struct {
	UserID string
	Email  string
}

type State struct {
	Status  Status
	Session Session
}

// Gateway is the auth backend the store bootstraps from. OnAuthChange
// registers a push callback that fires with the new session on sign-in,
// token refresh and other lifecycle events, and with ok=false on sign-out;
// it returns a cancel func that tears the subscription down.
type Gateway interface {
	GetSession(ctx context.Context) (Session, bool, error)
	OnAuthChange(fn func(s Session, ok bool)) (cancel func(), err error)
	SignOut(ctx context.Context) error
}

type Store struct {
	gateway Gateway
	logger  *zap.Logger

	mu          sync.Mutex
	state       State
	pushSeen    bool
	subscribers map[int]func(State)
	nextSubID   int
	cancelPush  func()
	closed      bool
}

func NewStore(gateway Gateway, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		gateway:     gateway,
		logger:      logger,
		state:       State{Status: StatusUnknown},
		subscribers: make(map[int]func(State)),
	}
}

// Start registers the push subscription, then performs the bootstrap fetch.
// Push notifications are authoritative: once one has been applied, the
// bootstrap result is discarded so a push arriving before the fetch
// completes is never overwritten.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session store is closed")
	}
	s.applyLocked(State{Status: StatusLoading}, false)
	s.mu.Unlock()

	cancel, err := s.gateway.OnAuthChange(func(sess Session, ok bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.applyLocked(stateFor(sess, ok), true)
	})
	if err != nil {
		return fmt.Errorf("subscribe to auth changes: %w", err)
	}

	s.mu.Lock()
	s.cancelPush = cancel
	s.mu.Unlock()

	sess, ok, err := s.gateway.GetSession(ctx)
	if err != nil {
		s.logger.Warn("session bootstrap fetch failed", zap.Error(err))
		sess, ok = Session{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pushSeen {
		return nil
	}
	s.applyLocked(stateFor(sess, ok), false)
	return nil
}

// State is a synchronous, non-blocking read of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUserID reports the acting user when authenticated.
func (s *Store) CurrentUserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusAuthenticated {
		return "", false
	}
	return s.state.Session.UserID, true
}

// Subscribe registers fn for state-change notifications, delivered in the
// order transitions are applied. fn runs with the store lock held and must
// not call back into the store. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SignOut asks the gateway to end the session and transitions to anonymous
// locally even when the gateway call fails.
func (s *Store) SignOut(ctx context.Context) {
	if err := s.gateway.SignOut(ctx); err != nil {
		s.logger.Warn("gateway sign-out failed", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.applyLocked(State{Status: StatusAnonymous}, false)
}

// Close tears down the gateway subscription. Safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancelPush
	s.cancelPush = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Store) applyLocked(next State, fromPush bool) {
	if fromPush {
		s.pushSeen = true
	}
	s.state = next
	for _, fn := range s.subscribers {
		fn(next)
	}
}

func stateFor(sess Session, ok bool) State {
	if !ok {
		return State{Status: StatusAnonymous}
	}
	return State{Status: StatusAuthenticated, Session: sess}
}
