package swiper

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

type CandidateSource interface {
	ListCandidates(ctx context.Context, viewerID string, limit int) ([]pgrepo.PostRecord, error)
}

// URLSigner resolves a stored image key into a fetchable URL.
type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// Service keeps one Engine per authenticated user and feeds it candidate
// queues from the posts table.
type Service struct {
	candidates CandidateSource
	likes      LikeStore
	matches    MatchFinder
	signer     URLSigner
	logger     *zap.Logger
	queueLimit int

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewService(candidates CandidateSource, likes LikeStore, matches MatchFinder, signer URLSigner, queueLimit int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueLimit <= 0 {
		queueLimit = 50
	}
	return &Service{
		candidates: candidates,
		likes:      likes,
		matches:    matches,
		signer:     signer,
		logger:     logger,
		queueLimit: queueLimit,
		engines:    make(map[string]*Engine),
	}
}

// staticIdentity pins an engine to the user it was created for; the HTTP
// layer has already authenticated them.
type staticIdentity struct{ userID string }

func (s staticIdentity) CurrentUserID() (string, bool) { return s.userID, s.userID != "" }

func (s *Service) engineFor(userID string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	engine, ok := s.engines[userID]
	if !ok {
		engine = NewEngine(staticIdentity{userID: userID}, s.likes, s.matches, s.logger)
		s.engines[userID] = engine
	}
	return engine
}

// Refresh fetches a new candidate queue for the user and resets their
// engine to it. Returns the queue length.
func (s *Service) Refresh(ctx context.Context, userID string) (int, error) {
	records, err := s.candidates.ListCandidates(ctx, userID, s.queueLimit)
	if err != nil {
		return 0, fmt.Errorf("list candidates: %w", err)
	}

	cards := make([]Card, 0, len(records))
	for _, rec := range records {
		cards = append(cards, s.cardFrom(ctx, rec))
	}

	s.engineFor(userID).Reset(cards)
	return len(cards), nil
}

// Current returns the user's pending card. ok is false when their queue is
// exhausted or was never loaded.
func (s *Service) Current(ctx context.Context, userID string) (Card, bool) {
	return s.engineFor(userID).Current()
}

func (s *Service) Decide(ctx context.Context, userID string, direction Direction) (Outcome, error) {
	return s.engineFor(userID).Decide(ctx, direction)
}

func (s *Service) cardFrom(ctx context.Context, rec pgrepo.PostRecord) Card {
	card := Card{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Professions: rec.Professions,
		Skills:      rec.Skills,
		OwnerID:     rec.OwnerID,
	}
	if rec.ImageKey != "" && s.signer != nil {
		url, err := s.signer.SignedURL(ctx, rec.ImageKey)
		if err != nil {
			s.logger.Warn("sign candidate image url failed",
				zap.Int64("post_id", rec.ID), zap.Error(err))
		} else {
			card.ImageURL = url
		}
	}
	return card
}
