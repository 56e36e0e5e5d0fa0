package session

import (
	"context"
	"errors"
	"testing"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
)

type stubAuthBackend struct {
	claims      authsvc.AccessClaims
	validateErr error

	loggedOut []string
	logoutErr error

	changeFn  func(authsvc.Change)
	cancelled bool
}

func (b *stubAuthBackend) ValidateAccessToken(_ context.Context, _ string) (authsvc.AccessClaims, error) {
	if b.validateErr != nil {
		return authsvc.AccessClaims{}, b.validateErr
	}
	return b.claims, nil
}

func (b *stubAuthBackend) Logout(_ context.Context, sid string) error {
	if b.logoutErr != nil {
		return b.logoutErr
	}
	b.loggedOut = append(b.loggedOut, sid)
	return nil
}

func (b *stubAuthBackend) SubscribeChanges(fn func(authsvc.Change)) func() {
	b.changeFn = fn
	return func() { b.cancelled = true }
}

func (b *stubAuthBackend) push(change authsvc.Change) {
	if b.changeFn != nil {
		b.changeFn(change)
	}
}

func TestAuthGatewayGetSession(t *testing.T) {
	backend := &stubAuthBackend{
		claims: authsvc.AccessClaims{UserID: "u1", SID: "sid-1", Email: "ana@example.com"},
	}
	gw := NewAuthGateway(backend, "token-1")

	sess, ok, err := gw.GetSession(context.Background())
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !ok || sess.UserID != "u1" || sess.Email != "ana@example.com" {
		t.Fatalf("session = %+v ok = %v", sess, ok)
	}
}

func TestAuthGatewayRejectedTokenIsAnonymous(t *testing.T) {
	backend := &stubAuthBackend{validateErr: authsvc.ErrUnauthorized}
	gw := NewAuthGateway(backend, "stale-token")

	sess, ok, err := gw.GetSession(context.Background())
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if ok || sess != (Session{}) {
		t.Fatalf("session = %+v ok = %v, want anonymous", sess, ok)
	}
}

func TestAuthGatewayEmptyTokenIsAnonymous(t *testing.T) {
	gw := NewAuthGateway(&stubAuthBackend{}, "  ")

	_, ok, err := gw.GetSession(context.Background())
	if err != nil || ok {
		t.Fatalf("ok = %v err = %v, want anonymous without backend call", ok, err)
	}
}

func TestAuthGatewayForwardsSignIn(t *testing.T) {
	backend := &stubAuthBackend{}
	gw := NewAuthGateway(backend, "")

	var gotSession Session
	var gotOK bool
	calls := 0
	cancel, err := gw.OnAuthChange(func(s Session, ok bool) {
		gotSession, gotOK = s, ok
		calls++
	})
	if err != nil {
		t.Fatalf("on auth change: %v", err)
	}
	defer cancel()

	backend.push(authsvc.Change{SID: "sid-1", UserID: "u1", Email: "ana@example.com", SignedIn: true})
	if calls != 1 || !gotOK || gotSession.UserID != "u1" {
		t.Fatalf("calls = %d session = %+v ok = %v", calls, gotSession, gotOK)
	}

	// A later sign-in by someone else is not this gateway's session.
	backend.push(authsvc.Change{SID: "sid-2", UserID: "u2", SignedIn: true})
	if calls != 1 {
		t.Fatalf("calls = %d, want foreign sign-in ignored", calls)
	}
}

func TestAuthGatewayForwardsSignOut(t *testing.T) {
	backend := &stubAuthBackend{}
	gw := NewAuthGateway(backend, "")

	var gotOK bool
	calls := 0
	cancel, err := gw.OnAuthChange(func(_ Session, ok bool) {
		gotOK = ok
		calls++
	})
	if err != nil {
		t.Fatalf("on auth change: %v", err)
	}
	defer cancel()

	backend.push(authsvc.Change{SID: "sid-1", UserID: "u1", SignedIn: true})

	// A foreign session's logout does not touch this one.
	backend.push(authsvc.Change{SID: "sid-other", SignedIn: false})
	if calls != 1 {
		t.Fatalf("calls = %d, want foreign logout ignored", calls)
	}

	backend.push(authsvc.Change{SID: "sid-1", SignedIn: false})
	if calls != 2 || gotOK {
		t.Fatalf("calls = %d ok = %v, want sign-out", calls, gotOK)
	}
}

func TestAuthGatewayLogoutAllSignsOut(t *testing.T) {
	backend := &stubAuthBackend{}
	gw := NewAuthGateway(backend, "")

	calls := 0
	var gotOK bool
	cancel, err := gw.OnAuthChange(func(_ Session, ok bool) {
		gotOK = ok
		calls++
	})
	if err != nil {
		t.Fatalf("on auth change: %v", err)
	}
	defer cancel()

	backend.push(authsvc.Change{SID: "sid-1", UserID: "u1", SignedIn: true})
	backend.push(authsvc.Change{UserID: "u1", SignedIn: false})
	if calls != 2 || gotOK {
		t.Fatalf("calls = %d ok = %v, want logout-all sign-out", calls, gotOK)
	}
}

func TestAuthGatewaySignOutResolvesSID(t *testing.T) {
	backend := &stubAuthBackend{
		claims: authsvc.AccessClaims{UserID: "u1", SID: "sid-1"},
	}
	gw := NewAuthGateway(backend, "token-1")

	if err := gw.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(backend.loggedOut) != 1 || backend.loggedOut[0] != "sid-1" {
		t.Fatalf("logged out = %v", backend.loggedOut)
	}
}

func TestAuthGatewaySignOutWithoutSessionIsNoop(t *testing.T) {
	backend := &stubAuthBackend{validateErr: authsvc.ErrUnauthorized}

	if err := NewAuthGateway(backend, "").SignOut(context.Background()); err != nil {
		t.Fatalf("sign out without token: %v", err)
	}
	if err := NewAuthGateway(backend, "stale").SignOut(context.Background()); err != nil {
		t.Fatalf("sign out with rejected token: %v", err)
	}
	if len(backend.loggedOut) != 0 {
		t.Fatalf("logged out = %v, want none", backend.loggedOut)
	}
}

func TestAuthGatewaySignOutError(t *testing.T) {
	backend := &stubAuthBackend{
		claims:    authsvc.AccessClaims{UserID: "u1", SID: "sid-1"},
		logoutErr: errors.New("redis down"),
	}
	gw := NewAuthGateway(backend, "token-1")

	if err := gw.SignOut(context.Background()); err == nil {
		t.Fatal("expected sign-out error")
	}
}
