// Package clientcore composes the session store, the access gate and the
// swipe engine into one embeddable client runtime: the store tracks the
// signed-in identity, the gate routes on it, and the engine reads the
// acting user from it for like decisions.
package clientcore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kikipou/Loopi-App/internal/services/gate"
	"github.com/kikipou/Loopi-App/internal/services/session"
	"github.com/kikipou/Loopi-App/internal/services/swiper"
)

type Core struct {
	Sessions *session.Store
	Engine   *swiper.Engine
}

// New wires a session store over the given gateway and a swipe engine
// that resolves its acting user from that store.
func New(gateway session.Gateway, likes swiper.LikeStore, matches swiper.MatchFinder, logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}

	store := session.NewStore(gateway, logger.Named("session"))
	engine := swiper.NewEngine(store, likes, matches, logger.Named("swiper"))

	return &Core{
		Sessions: store,
		Engine:   engine,
	}
}

// Start boots the session store: push subscription first, then the
// bootstrap fetch.
func (c *Core) Start(ctx context.Context) error {
	if err := c.Sessions.Start(ctx); err != nil {
		return fmt.Errorf("start session store: %w", err)
	}
	return nil
}

// Route evaluates the gate against the current session state.
func (c *Core) Route() gate.Decision {
	return gate.EvaluateState(c.Sessions.State())
}

// SignOut ends the session and drops the swipe queue so the next user
// never sees the previous user's cards.
func (c *Core) SignOut(ctx context.Context) {
	c.Sessions.SignOut(ctx)
	c.Engine.Reset(nil)
}

func (c *Core) Close() {
	c.Sessions.Close()
}
