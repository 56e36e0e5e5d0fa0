// Package media stores post images in object storage and resolves stored
// keys into signed URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrValidation      = errors.New("media: invalid upload")
	ErrUnsupportedType = errors.New("media: unsupported content type")
	ErrImageTooLarge   = errors.New("media: image too large")
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Upload struct {
	Key string
	URL string
}

type Service struct {
	storage      ObjectStorage
	signedURLTTL time.Duration
	maxSizeBytes int64
}

func NewService(storage ObjectStorage, signedURLTTL time.Duration, maxSizeBytes int64) *Service {
	if signedURLTTL <= 0 {
		signedURLTTL = time.Hour
	}
	if maxSizeBytes <= 0 {
		maxSizeBytes = 10 << 20
	}
	return &Service{
		storage:      storage,
		signedURLTTL: signedURLTTL,
		maxSizeBytes: maxSizeBytes,
	}
}

// UploadImage stores one post image under a fresh object key and returns
// the key plus a signed URL for immediate display.
func (s *Service) UploadImage(ctx context.Context, ownerID, fileName, contentType string, body io.Reader, size int64) (Upload, error) {
	if ownerID == "" || body == nil || size <= 0 {
		return Upload{}, ErrValidation
	}
	if size > s.maxSizeBytes {
		return Upload{}, ErrImageTooLarge
	}
	if s.storage == nil {
		return Upload{}, fmt.Errorf("object storage is not configured")
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return Upload{}, ErrUnsupportedType
	}
	if fromName := strings.ToLower(path.Ext(strings.TrimSpace(fileName))); fromName != "" {
		ext = fromName
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Upload{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key := fmt.Sprintf("posts/%s/%s%s", ownerID, uuid.NewString(), ext)
	if err := s.storage.Put(ctx, key, body, size, contentType); err != nil {
		return Upload{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, key, s.signedURLTTL)
	if err != nil {
		return Upload{}, fmt.Errorf("presign image url: %w", err)
	}

	return Upload{Key: key, URL: url}, nil
}

// SignedURL resolves a stored image key into a fetchable URL.
func (s *Service) SignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	return s.storage.PresignGet(ctx, key, s.signedURLTTL)
}

func (s *Service) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if s.storage == nil {
		return fmt.Errorf("object storage is not configured")
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
