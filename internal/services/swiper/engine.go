// Package swiper drives the swipe-decision loop: a finite queue of project
// cards consumed front to back, one decision in flight at a time, with like
// persistence and reciprocal-match detection on the like path.
package swiper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

var (
	ErrBusy             = errors.New("swiper: decision already in flight")
	ErrExhausted        = errors.New("swiper: queue exhausted")
	ErrNotAuthenticated = errors.New("swiper: not authenticated")
	ErrSelfMatch        = errors.New("swiper: cannot like own project")
)

type Direction int

const (
	Skip Direction = iota
	Like
)

// Card is one swipeable candidate. Immutable once queued.
type Card struct {
	ID          int64
	Name        string
	Description string
	Professions string
	Skills      string
	ImageURL    string
	OwnerID     string
}

// Match is a mutual-interest pairing discovered after a like.
type Match struct {
	ID         int64
	ProjectID  int64
	WithUserID string
}

// Outcome reports what a decision did. Match is set only when a reciprocal
// pairing was found for a like.
type Outcome struct {
	LikeSaved bool
	Match     *Match
	Exhausted bool
}

// SessionReader resolves the acting user for like decisions.
type SessionReader interface {
	CurrentUserID() (string, bool)
}

type LikeStore interface {
	RecordLike(ctx context.Context, userID string, projectID int64, ownerID string) error
}

type MatchFinder interface {
	FindByPair(ctx context.Context, userA, userB string, projectID int64) (pgrepo.MatchRecord, bool, error)
}

// Engine processes decisions over one queue. Decisions are strictly
// sequential: a second Decide while one is in flight returns ErrBusy.
type Engine struct {
	sessions SessionReader
	likes    LikeStore
	matches  MatchFinder
	logger   *zap.Logger

	onMatch     func(Match)
	onExhausted func()

	mu         sync.Mutex
	queue      []Card
	cursor     int
	busy       bool
	generation int
	notified   bool
}

func NewEngine(sessions SessionReader, likes LikeStore, matches MatchFinder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		sessions: sessions,
		likes:    likes,
		matches:  matches,
		logger:   logger,
	}
}

// OnMatch registers a callback fired whenever a like resolves into a match.
func (e *Engine) OnMatch(fn func(Match)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMatch = fn
}

// OnExhausted registers a callback fired once per queue when the last card
// has been decided.
func (e *Engine) OnExhausted(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onExhausted = fn
}

// Reset replaces the queue and rewinds the cursor. Any in-flight decision
// belongs to the previous queue: its result is stale and it no longer moves
// the cursor.
func (e *Engine) Reset(queue []Card) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = queue
	e.cursor = 0
	e.busy = false
	e.generation++
	e.notified = false
}

// Current returns the card under the cursor. ok is false once the queue is
// exhausted; on the first exhausted read of a non-empty queue the
// exhaustion callback fires.
func (e *Engine) Current() (Card, bool) {
	e.mu.Lock()
	if e.cursor < len(e.queue) {
		card := e.queue[e.cursor]
		e.mu.Unlock()
		return card, true
	}

	var fire func()
	if len(e.queue) > 0 && !e.notified {
		e.notified = true
		fire = e.onExhausted
	}
	e.mu.Unlock()

	if fire != nil {
		fire()
	}
	return Card{}, false
}

// Decide applies one decision to the current card.
//
// Skip advances the cursor and nothing else. Like resolves the acting user,
// rejects self-likes without advancing, records the like (a duplicate counts
// as saved; any other persistence error is logged and the cursor still
// advances), then checks for a reciprocal match. ErrNotAuthenticated and
// ErrSelfMatch leave the cursor where it is.
func (e *Engine) Decide(ctx context.Context, direction Direction) (Outcome, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if e.cursor >= len(e.queue) {
		e.mu.Unlock()
		return Outcome{}, ErrExhausted
	}
	card := e.queue[e.cursor]
	gen := e.generation
	e.busy = true
	e.mu.Unlock()

	if direction == Skip {
		return e.finish(gen, Outcome{}, true), nil
	}

	userID, ok := e.sessions.CurrentUserID()
	if !ok {
		// Should be unreachable behind the access gate.
		e.logger.Warn("like decision without a session", zap.Int64("project_id", card.ID))
		e.release(gen)
		return Outcome{}, ErrNotAuthenticated
	}
	if userID == card.OwnerID {
		e.release(gen)
		return Outcome{}, ErrSelfMatch
	}

	outcome := Outcome{}
	if err := e.likes.RecordLike(ctx, userID, card.ID, card.OwnerID); err != nil {
		if errors.Is(err, pgrepo.ErrDuplicateLike) {
			outcome.LikeSaved = true
		} else {
			e.logger.Error("record like failed",
				zap.String("user_id", userID),
				zap.Int64("project_id", card.ID),
				zap.Error(err))
		}
	} else {
		outcome.LikeSaved = true
	}

	if outcome.LikeSaved {
		if match, found, err := e.lookupMatch(ctx, userID, card); err != nil {
			e.logger.Error("match lookup failed",
				zap.String("user_id", userID),
				zap.Int64("project_id", card.ID),
				zap.Error(err))
		} else if found {
			outcome.Match = &match
		}
	}

	return e.finish(gen, outcome, true), nil
}

func (e *Engine) lookupMatch(ctx context.Context, userID string, card Card) (Match, bool, error) {
	rec, found, err := e.matches.FindByPair(ctx, userID, card.OwnerID, card.ID)
	if err != nil {
		return Match{}, false, fmt.Errorf("find by pair: %w", err)
	}
	if !found {
		return Match{}, false, nil
	}
	return Match{
		ID:         rec.ID,
		ProjectID:  rec.ProjectID,
		WithUserID: card.OwnerID,
	}, true, nil
}

// finish advances the cursor and clears busy, unless the queue was replaced
// mid-flight, in which case the outcome is reported but the new queue is
// left untouched.
func (e *Engine) finish(gen int, outcome Outcome, advance bool) Outcome {
	e.mu.Lock()

	var fireMatch func(Match)
	if outcome.Match != nil && e.onMatch != nil {
		fireMatch = e.onMatch
	}

	if e.generation == gen {
		e.busy = false
		if advance && e.cursor < len(e.queue) {
			e.cursor++
		}
		outcome.Exhausted = e.cursor >= len(e.queue)
	}
	e.mu.Unlock()

	if fireMatch != nil {
		fireMatch(*outcome.Match)
	}
	return outcome
}

func (e *Engine) release(gen int) {
	e.mu.Lock()
	if e.generation == gen {
		e.busy = false
	}
	e.mu.Unlock()
}
