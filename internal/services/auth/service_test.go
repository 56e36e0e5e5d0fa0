package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

type stubAccountStore struct {
	byEmail map[string]pgrepo.AccountRecord
	byID    map[string]pgrepo.AccountRecord

	createErr error
	created   []pgrepo.AccountRecord
}

func newStubAccountStore() *stubAccountStore {
	return &stubAccountStore{
		byEmail: make(map[string]pgrepo.AccountRecord),
		byID:    make(map[string]pgrepo.AccountRecord),
	}
}

func (s *stubAccountStore) Create(_ context.Context, rec pgrepo.AccountRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byEmail[rec.Email]; ok {
		return pgrepo.ErrEmailTaken
	}
	s.byEmail[rec.Email] = rec
	s.byID[rec.ID] = rec
	s.created = append(s.created, rec)
	return nil
}

func (s *stubAccountStore) GetByEmail(_ context.Context, email string) (pgrepo.AccountRecord, error) {
	rec, ok := s.byEmail[email]
	if !ok {
		return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
	}
	return rec, nil
}

func (s *stubAccountStore) GetByID(_ context.Context, id string) (pgrepo.AccountRecord, error) {
	rec, ok := s.byID[id]
	if !ok {
		return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
	}
	return rec, nil
}

type stubSessionStore struct {
	sessions  map[string]SessionRecord
	byRefresh map[string]string

	createErr error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{
		sessions:  make(map[string]SessionRecord),
		byRefresh: make(map[string]string),
	}
}

func (s *stubSessionStore) Create(_ context.Context, session SessionRecord, refreshToken string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.sessions[session.SID] = session
	s.byRefresh[refreshToken] = session.SID
	return nil
}

func (s *stubSessionStore) GetSession(_ context.Context, sid string) (SessionRecord, error) {
	session, ok := s.sessions[sid]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *stubSessionStore) GetByRefreshToken(_ context.Context, refreshToken string) (SessionRecord, error) {
	sid, ok := s.byRefresh[refreshToken]
	if !ok {
		return SessionRecord{}, ErrRefreshNotFound
	}
	return s.sessions[sid], nil
}

func (s *stubSessionStore) RotateRefresh(_ context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	got, ok := s.byRefresh[oldRefreshToken]
	if !ok || got != sid {
		return ErrRefreshNotFound
	}
	delete(s.byRefresh, oldRefreshToken)
	s.byRefresh[newRefreshToken] = sid

	session := s.sessions[sid]
	session.ExpiresAt = expiresAt
	s.sessions[sid] = session
	return nil
}

func (s *stubSessionStore) DeleteSession(_ context.Context, sid string) error {
	delete(s.sessions, sid)
	for token, got := range s.byRefresh {
		if got == sid {
			delete(s.byRefresh, token)
		}
	}
	return nil
}

func (s *stubSessionStore) DeleteAllForUser(_ context.Context, userID string) error {
	for sid, session := range s.sessions {
		if session.UserID == userID {
			_ = s.DeleteSession(context.Background(), sid)
		}
	}
	return nil
}

func newTestService(accounts *stubAccountStore, sessions *stubSessionStore) *Service {
	return NewService(NewJWTManager("test-secret", 15*time.Minute), sessions, accounts, MinRefreshTTL)
}

func TestRegisterCreatesAccountAndSession(t *testing.T) {
	accounts := newStubAccountStore()
	sessions := newStubSessionStore()
	svc := newTestService(accounts, sessions)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Alice@Example.com",
		Password: "password123",
		Username: "alice",
		FullName: "Alice Doe",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected tokens to be issued")
	}
	if result.Me.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", result.Me.Email)
	}
	if len(accounts.created) != 1 {
		t.Fatalf("created %d accounts, want 1", len(accounts.created))
	}
	rec := accounts.created[0]
	if rec.PasswordHash == "password123" {
		t.Fatal("password stored in plain text")
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("password123")) != nil {
		t.Fatal("stored hash does not match password")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("created %d sessions, want 1", len(sessions.sessions))
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := newTestService(newStubAccountStore(), newStubSessionStore())

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Password: "password123"}},
		{"short password", RegisterInput{Email: "a@b.cc", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(newStubAccountStore(), newStubSessionStore())

	input := RegisterInput{Email: "a@b.cc", Password: "password123", Username: "alice"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	accounts := newStubAccountStore()
	sessions := newStubSessionStore()
	svc := newTestService(accounts, sessions)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.cc",
		Password: "password123",
		Username: "alice",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := svc.Login(context.Background(), "A@B.CC", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Me.Username != "alice" {
		t.Errorf("username = %q, want alice", result.Me.Username)
	}

	if _, err := svc.Login(context.Background(), "a@b.cc", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@b.cc", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	accounts := newStubAccountStore()
	sessions := newStubSessionStore()
	svc := newTestService(accounts, sessions)

	first, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.cc",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("reused refresh token err = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Refresh(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestRefreshExpiredSession(t *testing.T) {
	accounts := newStubAccountStore()
	sessions := newStubSessionStore()
	svc := newTestService(accounts, sessions)

	result, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.cc", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(MaxRefreshTTL + time.Hour) }
	if _, err := svc.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestValidateAccessToken(t *testing.T) {
	accounts := newStubAccountStore()
	sessions := newStubSessionStore()
	svc := newTestService(accounts, sessions)

	result, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.cc", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := svc.ValidateAccessToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != result.Me.ID {
		t.Errorf("UserID = %q, want %q", claims.UserID, result.Me.ID)
	}

	if err := svc.Logout(context.Background(), claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ValidateAccessToken(context.Background(), result.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("after logout err = %v, want ErrUnauthorized", err)
	}
}

func TestLogoutAll(t *testing.T) {
	accounts := newStubAccountStore()
	sessions := newStubSessionStore()
	svc := newTestService(accounts, sessions)

	first, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.cc", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := svc.Login(context.Background(), "a@b.cc", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.LogoutAll(context.Background(), first.Me.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	for _, token := range []string{first.AccessToken, second.AccessToken} {
		if _, err := svc.ValidateAccessToken(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	}
}

func TestSubscribeChangesObservesTransitions(t *testing.T) {
	svc := newTestService(newStubAccountStore(), newStubSessionStore())

	var changes []Change
	cancel := svc.SubscribeChanges(func(change Change) {
		changes = append(changes, change)
	})

	result, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.cc", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes after register = %d, want 1", len(changes))
	}
	if !changes[0].SignedIn || changes[0].UserID != result.Me.ID || changes[0].SID == "" {
		t.Fatalf("sign-in change = %+v", changes[0])
	}

	claims, err := svc.ValidateAccessToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := svc.Logout(context.Background(), claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes after logout = %d, want 2", len(changes))
	}
	if changes[1].SignedIn || changes[1].SID != claims.SID {
		t.Fatalf("sign-out change = %+v", changes[1])
	}

	if err := svc.LogoutAll(context.Background(), result.Me.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("changes after logout all = %d, want 3", len(changes))
	}
	if changes[2].SID != "" || changes[2].UserID != result.Me.ID {
		t.Fatalf("logout-all change = %+v", changes[2])
	}

	cancel()
	if _, err := svc.Login(context.Background(), "a@b.cc", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("changes after cancel = %d, want 3", len(changes))
	}
}
