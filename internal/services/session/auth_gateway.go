package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
)

// AuthBackend is the slice of the auth service the gateway needs: token
// validation for the bootstrap fetch, logout for sign-out, and the
// change feed for push notifications.
type AuthBackend interface {
	ValidateAccessToken(ctx context.Context, accessToken string) (authsvc.AccessClaims, error)
	Logout(ctx context.Context, sid string) error
	SubscribeChanges(fn func(authsvc.Change)) (cancel func())
}

// AuthGateway adapts the auth service to the Gateway contract for one
// access token. A push from the auth service updates the tracked session
// so SignOut always targets the session the holder last saw.
type AuthGateway struct {
	backend AuthBackend

	mu          sync.Mutex
	accessToken string
	sid         string
	userID      string
}

func NewAuthGateway(backend AuthBackend, accessToken string) *AuthGateway {
	return &AuthGateway{
		backend:     backend,
		accessToken: strings.TrimSpace(accessToken),
	}
}

// GetSession resolves the held access token into a session. A rejected
// token is an anonymous result, not an error.
func (g *AuthGateway) GetSession(ctx context.Context) (Session, bool, error) {
	g.mu.Lock()
	token := g.accessToken
	g.mu.Unlock()

	if token == "" {
		return Session{}, false, nil
	}

	claims, err := g.backend.ValidateAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, authsvc.ErrUnauthorized) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("validate access token: %w", err)
	}

	g.mu.Lock()
	g.sid = claims.SID
	g.userID = claims.UserID
	g.mu.Unlock()

	return Session{UserID: claims.UserID, Email: claims.Email}, true, nil
}

// OnAuthChange forwards auth transitions that concern this gateway's
// user: a sign-in for the tracked user (or the first sign-in when none
// is tracked yet) arrives as an authenticated session, a logout of the
// tracked session or a logout-all of the tracked user as a sign-out.
func (g *AuthGateway) OnAuthChange(fn func(s Session, ok bool)) (cancel func(), err error) {
	if fn == nil {
		return nil, fmt.Errorf("auth change callback is nil")
	}

	cancel = g.backend.SubscribeChanges(func(change authsvc.Change) {
		g.mu.Lock()
		sid, userID := g.sid, g.userID
		if change.SignedIn && (userID == "" || userID == change.UserID) {
			g.sid = change.SID
			g.userID = change.UserID
			g.mu.Unlock()
			fn(Session{UserID: change.UserID, Email: change.Email}, true)
			return
		}
		if !change.SignedIn && signOutTargets(change, sid, userID) {
			g.sid = ""
			g.mu.Unlock()
			fn(Session{}, false)
			return
		}
		g.mu.Unlock()
	})
	return cancel, nil
}

// SignOut ends the tracked session, resolving it from the access token
// first when no push or fetch has named it yet.
func (g *AuthGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	sid := g.sid
	token := g.accessToken
	g.mu.Unlock()

	if sid == "" {
		if token == "" {
			return nil
		}
		claims, err := g.backend.ValidateAccessToken(ctx, token)
		if err != nil {
			if errors.Is(err, authsvc.ErrUnauthorized) {
				return nil
			}
			return fmt.Errorf("validate access token: %w", err)
		}
		sid = claims.SID
	}

	if err := g.backend.Logout(ctx, sid); err != nil {
		return fmt.Errorf("logout session: %w", err)
	}
	return nil
}

// signOutTargets reports whether a sign-out change targets the tracked
// session: by SID for a single logout, by user for a logout-all.
func signOutTargets(change authsvc.Change, sid, userID string) bool {
	if change.SID != "" {
		return change.SID == sid && sid != ""
	}
	return change.UserID == userID && userID != ""
}
