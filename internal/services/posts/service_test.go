package posts

import (
	"context"
	"errors"
	"strings"
	"testing"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

type stubPostStore struct {
	posts  map[int64]pgrepo.PostRecord
	nextID int64

	searchQuery string
	listLimit   int
}

func newStubPostStore() *stubPostStore {
	return &stubPostStore{posts: make(map[int64]pgrepo.PostRecord), nextID: 1}
}

func (s *stubPostStore) Create(_ context.Context, rec pgrepo.PostRecord) (pgrepo.PostRecord, error) {
	rec.ID = s.nextID
	s.nextID++
	s.posts[rec.ID] = rec
	return rec, nil
}

func (s *stubPostStore) GetByID(_ context.Context, id int64) (pgrepo.PostRecord, error) {
	rec, ok := s.posts[id]
	if !ok {
		return pgrepo.PostRecord{}, pgrepo.ErrPostNotFound
	}
	return rec, nil
}

func (s *stubPostStore) ListRecent(_ context.Context, limit, offset int) ([]pgrepo.PostRecord, error) {
	s.listLimit = limit
	out := make([]pgrepo.PostRecord, 0, len(s.posts))
	for _, rec := range s.posts {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubPostStore) Search(_ context.Context, query string, limit int) ([]pgrepo.PostRecord, error) {
	s.searchQuery = query
	var out []pgrepo.PostRecord
	for _, rec := range s.posts {
		if strings.Contains(rec.Name, query) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubPostStore) Update(_ context.Context, id int64, ownerID string, patch pgrepo.PostPatch) (pgrepo.PostRecord, error) {
	rec, ok := s.posts[id]
	if !ok || rec.OwnerID != ownerID {
		return pgrepo.PostRecord{}, pgrepo.ErrPostNotFound
	}
	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
	}
	s.posts[id] = rec
	return rec, nil
}

func (s *stubPostStore) Delete(_ context.Context, id int64, ownerID string) (bool, error) {
	rec, ok := s.posts[id]
	if !ok || rec.OwnerID != ownerID {
		return false, nil
	}
	delete(s.posts, id)
	return true, nil
}

func newTestService(store *stubPostStore) *Service {
	return NewService(store, stubSigner{}, 100, nil)
}

type stubSigner struct{ err error }

func (s stubSigner) SignedURL(_ context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.test/" + key, nil
}

func TestCreateAndGet(t *testing.T) {
	store := newStubPostStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), "u1", CreateInput{
		Name:        "  Loopi  ",
		Description: "matching app",
		Skills:      "go, sql",
		ImageKey:    "img-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Loopi" {
		t.Errorf("name = %q, want trimmed", created.Name)
	}
	if created.ImageURL != "https://cdn.test/img-1" {
		t.Errorf("ImageURL = %q", created.ImageURL)
	}

	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerID != "u1" || got.Skills != "go, sql" {
		t.Fatalf("got = %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newStubPostStore())

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"empty name", CreateInput{Name: "   "}},
		{"name too long", CreateInput{Name: strings.Repeat("x", 121)}},
		{"description too long", CreateInput{Name: "ok", Description: strings.Repeat("x", 4001)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), "u1", tc.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(newStubPostStore())
	if _, err := svc.Get(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchBlankFallsBackToRecent(t *testing.T) {
	store := newStubPostStore()
	svc := newTestService(store)

	if _, err := svc.Search(context.Background(), "   "); err != nil {
		t.Fatalf("search: %v", err)
	}
	if store.searchQuery != "" {
		t.Fatal("blank query must not hit search")
	}
	if store.listLimit != 100 {
		t.Fatalf("list limit = %d, want 100", store.listLimit)
	}
}

func TestUpdateOwnership(t *testing.T) {
	store := newStubPostStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), "u1", CreateInput{Name: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "renamed"
	updated, err := svc.Update(context.Background(), created.ID, "u1", UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" {
		t.Fatalf("name = %q", updated.Name)
	}

	if _, err := svc.Update(context.Background(), created.ID, "u2", UpdateInput{Name: &name}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other user err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Update(context.Background(), 99, "u1", UpdateInput{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing post err = %v, want ErrNotFound", err)
	}

	blank := "  "
	if _, err := svc.Update(context.Background(), created.ID, "u1", UpdateInput{Name: &blank}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name err = %v, want ErrValidation", err)
	}
}

func TestDeleteOwnership(t *testing.T) {
	store := newStubPostStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), "u1", CreateInput{Name: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID, "u2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other user err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), created.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSignerFailureDegradesToNoURL(t *testing.T) {
	store := newStubPostStore()
	svc := NewService(store, stubSigner{err: errors.New("minio down")}, 100, nil)

	created, err := svc.Create(context.Background(), "u1", CreateInput{Name: "ok", ImageKey: "img-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ImageURL != "" {
		t.Fatalf("ImageURL = %q, want empty", created.ImageURL)
	}
}

type stubImageCleaner struct {
	deleted []string
	err     error
}

func (c *stubImageCleaner) DeleteImage(_ context.Context, key string) error {
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, key)
	return nil
}

func TestDeleteRemovesStoredImage(t *testing.T) {
	store := newStubPostStore()
	svc := newTestService(store)
	cleaner := &stubImageCleaner{}
	svc.AttachImageCleanup(cleaner)

	created, err := svc.Create(context.Background(), "u1", CreateInput{Name: "mine", ImageKey: "posts/u1/img.jpg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A forbidden delete must not touch storage.
	if err := svc.Delete(context.Background(), created.ID, "u2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other user err = %v, want ErrForbidden", err)
	}
	if len(cleaner.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", cleaner.deleted)
	}

	if err := svc.Delete(context.Background(), created.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(cleaner.deleted) != 1 || cleaner.deleted[0] != "posts/u1/img.jpg" {
		t.Fatalf("deleted = %v", cleaner.deleted)
	}
}

func TestDeleteSurvivesImageCleanupFailure(t *testing.T) {
	store := newStubPostStore()
	svc := newTestService(store)
	svc.AttachImageCleanup(&stubImageCleaner{err: errors.New("minio down")})

	created, err := svc.Create(context.Background(), "u1", CreateInput{Name: "mine", ImageKey: "posts/u1/img.jpg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}
