// Package matches serves a user's mutual-interest pairings and handles
// unmatching.
package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

var (
	ErrNotFound  = errors.New("matches: match not found")
	ErrForbidden = errors.New("matches: not a member of this match")
)

const defaultListLimit = 100

type MatchStore interface {
	GetByID(ctx context.Context, id int64) (pgrepo.MatchRecord, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]pgrepo.MatchListRecord, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
}

type TaskPurger interface {
	DeleteByMatch(ctx context.Context, tx pgx.Tx, matchID int64) error
}

type DeadlinePurger interface {
	DeleteByMatch(ctx context.Context, tx pgx.Tx, matchID int64) error
}

// TxRunner runs fn inside one transaction.
type TxRunner func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error

// Match is one entry in a user's match list, seen from their side of the
// pair.
type Match struct {
	ID           int64
	ProjectID    int64
	ProjectName  string
	WithUserID   string
	WithUsername string
	CreatedAt    time.Time
}

type Service struct {
	store     MatchStore
	tasks     TaskPurger
	deadlines DeadlinePurger
	runTx     TxRunner
	logger    *zap.Logger
}

func NewService(store MatchStore, tasks TaskPurger, deadlines DeadlinePurger, runTx TxRunner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		tasks:     tasks,
		deadlines: deadlines,
		runTx:     runTx,
		logger:    logger,
	}
}

func (s *Service) List(ctx context.Context, userID string) ([]Match, error) {
	records, err := s.store.ListForUser(ctx, userID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	out := make([]Match, 0, len(records))
	for _, rec := range records {
		out = append(out, Match{
			ID:           rec.ID,
			ProjectID:    rec.ProjectID,
			ProjectName:  rec.ProjectName,
			WithUserID:   rec.CounterpartID,
			WithUsername: rec.CounterpartName,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return out, nil
}

// Membership reports whether userID is one of the match's two members.
func (s *Service) Membership(ctx context.Context, matchID int64, userID string) (pgrepo.MatchRecord, error) {
	rec, err := s.store.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return pgrepo.MatchRecord{}, ErrNotFound
		}
		return pgrepo.MatchRecord{}, fmt.Errorf("get match: %w", err)
	}
	if rec.UserAID != userID && rec.UserBID != userID {
		return pgrepo.MatchRecord{}, ErrForbidden
	}
	return rec, nil
}

// Unmatch removes the match and everything hanging off it (tasks,
// deadlines) in one transaction. Only a member may unmatch.
func (s *Service) Unmatch(ctx context.Context, matchID int64, actorID string) error {
	if _, err := s.Membership(ctx, matchID, actorID); err != nil {
		return err
	}

	err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.tasks.DeleteByMatch(ctx, tx, matchID); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := s.deadlines.DeleteByMatch(ctx, tx, matchID); err != nil {
			return fmt.Errorf("delete deadlines: %w", err)
		}
		deleted, err := s.store.Delete(ctx, tx, matchID)
		if err != nil {
			return fmt.Errorf("delete match: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("unmatched",
		zap.Int64("match_id", matchID),
		zap.String("actor_id", actorID))
	return nil
}
