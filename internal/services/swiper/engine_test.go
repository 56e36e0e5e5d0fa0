package swiper

import (
	"context"
	"errors"
	"sync"
	"testing"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

type stubSessions struct {
	userID string
}

func (s stubSessions) CurrentUserID() (string, bool) { return s.userID, s.userID != "" }

type likeCall struct {
	userID    string
	projectID int64
	ownerID   string
}

type stubLikes struct {
	mu      sync.Mutex
	calls   []likeCall
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubLikes) RecordLike(_ context.Context, userID string, projectID int64, ownerID string) error {
	s.mu.Lock()
	s.calls = append(s.calls, likeCall{userID: userID, projectID: projectID, ownerID: ownerID})
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return s.err
}

func (s *stubLikes) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubMatches struct {
	rec   pgrepo.MatchRecord
	found bool
	err   error
	calls int
}

func (s *stubMatches) FindByPair(_ context.Context, userA, userB string, projectID int64) (pgrepo.MatchRecord, bool, error) {
	s.calls++
	return s.rec, s.found, s.err
}

func newTestEngine(userID string, likes *stubLikes, matches *stubMatches) *Engine {
	return NewEngine(stubSessions{userID: userID}, likes, matches, nil)
}

func cardQueue(n int, owner string) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = Card{ID: int64(i + 1), Name: "project", OwnerID: owner}
	}
	return cards
}

func TestSkipAdvancesWithoutSideEffects(t *testing.T) {
	likes := &stubLikes{}
	matches := &stubMatches{}
	engine := newTestEngine("u1", likes, matches)
	engine.Reset(cardQueue(2, "u2"))

	outcome, err := engine.Decide(context.Background(), Skip)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.LikeSaved || outcome.Match != nil || outcome.Exhausted {
		t.Fatalf("outcome = %+v, want empty", outcome)
	}
	if likes.callCount() != 0 || matches.calls != 0 {
		t.Fatal("skip touched the gateway")
	}

	card, ok := engine.Current()
	if !ok || card.ID != 2 {
		t.Fatalf("current = %+v, %v; want card 2", card, ok)
	}
}

func TestLikeRecordsAndAdvances(t *testing.T) {
	likes := &stubLikes{}
	engine := newTestEngine("u1", likes, &stubMatches{})
	engine.Reset([]Card{{ID: 7, OwnerID: "u2"}})

	outcome, err := engine.Decide(context.Background(), Like)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !outcome.LikeSaved {
		t.Fatal("LikeSaved = false, want true")
	}
	if outcome.Match != nil {
		t.Fatal("unexpected match")
	}
	if !outcome.Exhausted {
		t.Fatal("Exhausted = false, want true")
	}

	want := likeCall{userID: "u1", projectID: 7, ownerID: "u2"}
	if len(likes.calls) != 1 || likes.calls[0] != want {
		t.Fatalf("calls = %+v, want [%+v]", likes.calls, want)
	}
}

func TestSelfLikeRejectedWithoutAdvance(t *testing.T) {
	likes := &stubLikes{}
	engine := newTestEngine("u1", likes, &stubMatches{})
	engine.Reset([]Card{{ID: 1, OwnerID: "u2"}, {ID: 2, OwnerID: "u1"}})

	if _, err := engine.Decide(context.Background(), Like); err != nil {
		t.Fatalf("first decide: %v", err)
	}

	if _, err := engine.Decide(context.Background(), Like); !errors.Is(err, ErrSelfMatch) {
		t.Fatalf("err = %v, want ErrSelfMatch", err)
	}
	if likes.callCount() != 1 {
		t.Fatalf("like calls = %d, want 1", likes.callCount())
	}
	card, ok := engine.Current()
	if !ok || card.ID != 2 {
		t.Fatalf("current = %+v, %v; cursor must not advance on self-like", card, ok)
	}

	// The card can still be skipped.
	if _, err := engine.Decide(context.Background(), Skip); err != nil {
		t.Fatalf("skip after self-like: %v", err)
	}
}

func TestLikeWithoutSession(t *testing.T) {
	likes := &stubLikes{}
	engine := newTestEngine("", likes, &stubMatches{})
	engine.Reset(cardQueue(1, "u2"))

	if _, err := engine.Decide(context.Background(), Like); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if likes.callCount() != 0 {
		t.Fatal("like recorded without a session")
	}
	if _, ok := engine.Current(); !ok {
		t.Fatal("cursor advanced on auth failure")
	}
}

func TestDuplicateLikeIsSuccess(t *testing.T) {
	likes := &stubLikes{err: pgrepo.ErrDuplicateLike}
	matches := &stubMatches{}
	engine := newTestEngine("u1", likes, matches)
	engine.Reset(cardQueue(1, "u2"))

	outcome, err := engine.Decide(context.Background(), Like)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !outcome.LikeSaved {
		t.Fatal("duplicate like must count as saved")
	}
	if matches.calls != 1 {
		t.Fatalf("match lookups = %d, want 1", matches.calls)
	}
	if !outcome.Exhausted {
		t.Fatal("cursor must advance on duplicate like")
	}
}

func TestLikePersistenceFailureStillAdvances(t *testing.T) {
	likes := &stubLikes{err: errors.New("gateway down")}
	matches := &stubMatches{}
	engine := newTestEngine("u1", likes, matches)
	engine.Reset(cardQueue(2, "u2"))

	outcome, err := engine.Decide(context.Background(), Like)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.LikeSaved {
		t.Fatal("LikeSaved = true for failed persistence")
	}
	if matches.calls != 0 {
		t.Fatal("match lookup attempted after failed like")
	}
	card, ok := engine.Current()
	if !ok || card.ID != 2 {
		t.Fatalf("current = %+v, %v; want card 2", card, ok)
	}
}

func TestReciprocalLikeEmitsMatch(t *testing.T) {
	likes := &stubLikes{}
	matches := &stubMatches{
		rec:   pgrepo.MatchRecord{ID: 42, UserAID: "u1", UserBID: "u2", ProjectID: 7},
		found: true,
	}
	engine := newTestEngine("u1", likes, matches)
	engine.Reset([]Card{{ID: 7, OwnerID: "u2"}})

	var notified []Match
	engine.OnMatch(func(m Match) { notified = append(notified, m) })

	outcome, err := engine.Decide(context.Background(), Like)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if outcome.Match == nil {
		t.Fatal("Match = nil, want match")
	}
	if outcome.Match.ID != 42 || outcome.Match.ProjectID != 7 || outcome.Match.WithUserID != "u2" {
		t.Fatalf("match = %+v", *outcome.Match)
	}
	if len(notified) != 1 || notified[0].ID != 42 {
		t.Fatalf("notified = %+v, want exactly one match", notified)
	}
}

func TestMatchLookupFailureIsSwallowed(t *testing.T) {
	likes := &stubLikes{}
	matches := &stubMatches{err: errors.New("gateway down")}
	engine := newTestEngine("u1", likes, matches)
	engine.Reset(cardQueue(1, "u2"))

	outcome, err := engine.Decide(context.Background(), Like)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !outcome.LikeSaved {
		t.Fatal("like must still count as saved")
	}
	if outcome.Match != nil {
		t.Fatal("unexpected match")
	}
	if !outcome.Exhausted {
		t.Fatal("cursor must advance despite lookup failure")
	}
}

func TestExhaustionCallbackFiresOncePerQueue(t *testing.T) {
	engine := newTestEngine("u1", &stubLikes{}, &stubMatches{})
	engine.Reset(cardQueue(2, "u2"))

	fired := 0
	engine.OnExhausted(func() { fired++ })

	for i := 0; i < 2; i++ {
		if _, err := engine.Decide(context.Background(), Skip); err != nil {
			t.Fatalf("decide %d: %v", i, err)
		}
	}
	if _, ok := engine.Current(); ok {
		t.Fatal("expected exhausted queue")
	}
	engine.Current()
	engine.Current()
	if fired != 1 {
		t.Fatalf("exhaustion callback fired %d times, want 1", fired)
	}

	if _, err := engine.Decide(context.Background(), Skip); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}

	// A new queue arms the callback again.
	engine.Reset(cardQueue(1, "u2"))
	if _, err := engine.Decide(context.Background(), Skip); err != nil {
		t.Fatalf("decide on new queue: %v", err)
	}
	engine.Current()
	if fired != 2 {
		t.Fatalf("exhaustion callback fired %d times, want 2", fired)
	}
}

func TestEmptyQueueNeverFiresExhaustion(t *testing.T) {
	engine := newTestEngine("u1", &stubLikes{}, &stubMatches{})
	engine.Reset(nil)

	fired := 0
	engine.OnExhausted(func() { fired++ })

	if _, ok := engine.Current(); ok {
		t.Fatal("expected no current card")
	}
	if fired != 0 {
		t.Fatalf("exhaustion callback fired %d times for empty queue", fired)
	}
	if _, err := engine.Decide(context.Background(), Skip); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestConcurrentDecideIsRejected(t *testing.T) {
	likes := &stubLikes{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine := newTestEngine("u1", likes, &stubMatches{})
	engine.Reset(cardQueue(2, "u2"))

	done := make(chan Outcome, 1)
	go func() {
		outcome, err := engine.Decide(context.Background(), Like)
		if err != nil {
			t.Errorf("first decide: %v", err)
		}
		done <- outcome
	}()

	<-likes.started
	if _, err := engine.Decide(context.Background(), Like); !errors.Is(err, ErrBusy) {
		t.Fatalf("overlapping decide err = %v, want ErrBusy", err)
	}

	close(likes.release)
	<-done

	if likes.callCount() != 1 {
		t.Fatalf("like calls = %d, want exactly 1", likes.callCount())
	}
	card, ok := engine.Current()
	if !ok || card.ID != 2 {
		t.Fatalf("current = %+v, %v; want exactly one advance", card, ok)
	}
}

func TestResetInvalidatesInFlightDecision(t *testing.T) {
	likes := &stubLikes{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine := newTestEngine("u1", likes, &stubMatches{})
	engine.Reset(cardQueue(3, "u2"))

	done := make(chan struct{})
	go func() {
		_, _ = engine.Decide(context.Background(), Like)
		close(done)
	}()

	<-likes.started
	engine.Reset(cardQueue(2, "u3"))
	close(likes.release)
	<-done

	// The stale decision must not consume a card from the new queue.
	card, ok := engine.Current()
	if !ok || card.ID != 1 || card.OwnerID != "u3" {
		t.Fatalf("current = %+v, %v; want first card of new queue", card, ok)
	}
	if _, err := engine.Decide(context.Background(), Skip); err != nil {
		t.Fatalf("decide on new queue: %v", err)
	}
}

func TestQueueWalkThrough(t *testing.T) {
	likes := &stubLikes{}
	engine := newTestEngine("u1", likes, &stubMatches{})
	engine.Reset([]Card{
		{ID: 10, OwnerID: "u2"},
		{ID: 11, OwnerID: "u1"},
	})

	outcome, err := engine.Decide(context.Background(), Like)
	if err != nil {
		t.Fatalf("like cardA: %v", err)
	}
	if !outcome.LikeSaved || outcome.Exhausted {
		t.Fatalf("outcome = %+v", outcome)
	}
	if want := (likeCall{userID: "u1", projectID: 10, ownerID: "u2"}); likes.calls[0] != want {
		t.Fatalf("call = %+v, want %+v", likes.calls[0], want)
	}

	if _, err := engine.Decide(context.Background(), Like); !errors.Is(err, ErrSelfMatch) {
		t.Fatalf("like own card err = %v, want ErrSelfMatch", err)
	}
	card, ok := engine.Current()
	if !ok || card.ID != 11 {
		t.Fatalf("current = %+v, %v; want card 11 still pending", card, ok)
	}
}
