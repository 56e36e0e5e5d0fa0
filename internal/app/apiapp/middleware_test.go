package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
	redrepo "github.com/kikipou/Loopi-App/internal/repo/redis"
	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
)

type testAccountStore struct {
	accounts map[string]pgrepo.AccountRecord
}

func (s *testAccountStore) Create(_ context.Context, rec pgrepo.AccountRecord) error {
	s.accounts[rec.ID] = rec
	return nil
}

func (s *testAccountStore) GetByEmail(_ context.Context, email string) (pgrepo.AccountRecord, error) {
	for _, rec := range s.accounts {
		if rec.Email == email {
			return rec, nil
		}
	}
	return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
}

func (s *testAccountStore) GetByID(_ context.Context, id string) (pgrepo.AccountRecord, error) {
	rec, ok := s.accounts[id]
	if !ok {
		return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
	}
	return rec, nil
}

func newTestAuthService(t *testing.T) (*authsvc.Service, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	svc := authsvc.NewService(
		authsvc.NewJWTManager("mw-test-secret", 15*time.Minute),
		redrepo.NewSessionRepo(client),
		&testAccountStore{accounts: make(map[string]pgrepo.AccountRecord)},
		authsvc.MinRefreshTTL,
	)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestAuthMiddlewareRejectsMissingBearer(t *testing.T) {
	svc, cleanup := newTestAuthService(t)
	defer cleanup()

	mw := AuthMiddleware(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	svc, cleanup := newTestAuthService(t)
	defer cleanup()

	mw := AuthMiddleware(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be called with a garbage token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareSetsIdentityContext(t *testing.T) {
	svc, cleanup := newTestAuthService(t)
	defer cleanup()

	result, err := svc.Register(context.Background(), authsvc.RegisterInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	mw := AuthMiddleware(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("identity missing in context")
		}
		if identity.UserID != result.Me.ID {
			t.Fatalf("identity user = %q, want %q", identity.UserID, result.Me.ID)
		}
		if identity.Email != "alice@example.com" {
			t.Fatalf("identity email = %q", identity.Email)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := extractBearerToken(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Errorf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
