// Package posts publishes and serves project posts, the content users
// browse, search and swipe on.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("posts: invalid input")
	ErrNotFound   = errors.New("posts: post not found")
	ErrForbidden  = errors.New("posts: not the post owner")
)

const (
	maxNameLen        = 120
	maxDescriptionLen = 4000
	maxFieldLen       = 500
)

type PostStore interface {
	Create(ctx context.Context, rec pgrepo.PostRecord) (pgrepo.PostRecord, error)
	GetByID(ctx context.Context, id int64) (pgrepo.PostRecord, error)
	ListRecent(ctx context.Context, limit, offset int) ([]pgrepo.PostRecord, error)
	Search(ctx context.Context, query string, limit int) ([]pgrepo.PostRecord, error)
	Update(ctx context.Context, id int64, ownerID string, patch pgrepo.PostPatch) (pgrepo.PostRecord, error)
	Delete(ctx context.Context, id int64, ownerID string) (bool, error)
}

type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// ImageCleaner removes stored image objects that no post references
// anymore.
type ImageCleaner interface {
	DeleteImage(ctx context.Context, key string) error
}

// Post is the read model handed to transport, with the stored image key
// already resolved to a fetchable URL.
type Post struct {
	ID            int64
	OwnerID       string
	OwnerUsername string
	Name          string
	Description   string
	Professions   string
	Skills        string
	Categories    string
	ImageURL      string
	CreatedAt     time.Time
}

type CreateInput struct {
	Name        string
	Description string
	Professions string
	Skills      string
	Categories  string
	ImageKey    string
}

type UpdateInput struct {
	Name        *string
	Description *string
	Professions *string
	Skills      *string
	Categories  *string
	ImageKey    *string
}

type Service struct {
	store       PostStore
	signer      URLSigner
	images      ImageCleaner
	logger      *zap.Logger
	searchLimit int
}

func NewService(store PostStore, signer URLSigner, searchLimit int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if searchLimit <= 0 {
		searchLimit = 100
	}
	return &Service{
		store:       store,
		signer:      signer,
		logger:      logger,
		searchLimit: searchLimit,
	}
}

// AttachImageCleanup enables best-effort deletion of a post's stored
// image when the post itself is deleted.
func (s *Service) AttachImageCleanup(images ImageCleaner) {
	s.images = images
}

func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (Post, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateFields(input.Name, input.Description, input.Professions, input.Skills, input.Categories); err != nil {
		return Post{}, err
	}

	rec, err := s.store.Create(ctx, pgrepo.PostRecord{
		OwnerID:     ownerID,
		Name:        input.Name,
		Description: input.Description,
		Professions: input.Professions,
		Skills:      input.Skills,
		Categories:  input.Categories,
		ImageKey:    input.ImageKey,
	})
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return s.toPost(ctx, rec), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPostNotFound) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("get post: %w", err)
	}
	return s.toPost(ctx, rec), nil
}

func (s *Service) ListRecent(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit <= 0 || limit > s.searchLimit {
		limit = s.searchLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.store.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.toPosts(ctx, records), nil
}

func (s *Service) Search(ctx context.Context, query string) ([]Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListRecent(ctx, s.searchLimit, 0)
	}

	records, err := s.store.Search(ctx, query, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return s.toPosts(ctx, records), nil
}

func (s *Service) Update(ctx context.Context, id int64, actorID string, input UpdateInput) (Post, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" || len(trimmed) > maxNameLen {
			return Post{}, ErrValidation
		}
		input.Name = &trimmed
	}
	if tooLong(input.Description, maxDescriptionLen) ||
		tooLong(input.Professions, maxFieldLen) ||
		tooLong(input.Skills, maxFieldLen) ||
		tooLong(input.Categories, maxFieldLen) {
		return Post{}, ErrValidation
	}

	rec, err := s.store.Update(ctx, id, actorID, pgrepo.PostPatch{
		Name:        input.Name,
		Description: input.Description,
		Professions: input.Professions,
		Skills:      input.Skills,
		Categories:  input.Categories,
		ImageKey:    input.ImageKey,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrPostNotFound) {
			return Post{}, s.classifyMissing(ctx, id)
		}
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return s.toPost(ctx, rec), nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID string) error {
	var imageKey string
	if s.images != nil {
		if rec, err := s.store.GetByID(ctx, id); err == nil {
			imageKey = rec.ImageKey
		}
	}

	deleted, err := s.store.Delete(ctx, id, actorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !deleted {
		return s.classifyMissing(ctx, id)
	}

	if imageKey != "" {
		if err := s.images.DeleteImage(ctx, imageKey); err != nil {
			s.logger.Warn("delete post image failed",
				zap.Int64("post_id", id), zap.String("image_key", imageKey), zap.Error(err))
		}
	}
	return nil
}

// classifyMissing tells a missing post apart from one owned by someone
// else, so the handler can answer 404 vs 403.
func (s *Service) classifyMissing(ctx context.Context, id int64) error {
	if _, err := s.store.GetByID(ctx, id); err == nil {
		return ErrForbidden
	}
	return ErrNotFound
}

func (s *Service) toPosts(ctx context.Context, records []pgrepo.PostRecord) []Post {
	out := make([]Post, 0, len(records))
	for _, rec := range records {
		out = append(out, s.toPost(ctx, rec))
	}
	return out
}

func (s *Service) toPost(ctx context.Context, rec pgrepo.PostRecord) Post {
	post := Post{
		ID:            rec.ID,
		OwnerID:       rec.OwnerID,
		OwnerUsername: rec.Username,
		Name:          rec.Name,
		Description:   rec.Description,
		Professions:   rec.Professions,
		Skills:        rec.Skills,
		Categories:    rec.Categories,
		CreatedAt:     rec.CreatedAt,
	}
	if rec.ImageKey != "" && s.signer != nil {
		url, err := s.signer.SignedURL(ctx, rec.ImageKey)
		if err != nil {
			s.logger.Warn("sign post image url failed",
				zap.Int64("post_id", rec.ID), zap.Error(err))
		} else {
			post.ImageURL = url
		}
	}
	return post
}

func validateFields(name, description, professions, skills, categories string) error {
	if name == "" || len(name) > maxNameLen {
		return ErrValidation
	}
	if len(description) > maxDescriptionLen ||
		len(professions) > maxFieldLen ||
		len(skills) > maxFieldLen ||
		len(categories) > maxFieldLen {
		return ErrValidation
	}
	return nil
}

func tooLong(s *string, max int) bool {
	return s != nil && len(*s) > max
}
