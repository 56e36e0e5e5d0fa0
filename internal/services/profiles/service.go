// Package profiles serves and edits account profiles: the signed-in
// user's own view and the public view other users see.
package profiles

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
	ErrValidation    = errors.New("profiles: invalid input")
	ErrNotFound      = errors.New("profiles: account not found")
	ErrUsernameTaken = errors.New("profiles: username already taken")
)

const (
	maxUsernameLen = 60
	maxFullNameLen = 200
)

type AccountStore interface {
	GetByID(ctx context.Context, id string) (pgrepo.AccountRecord, error)
	UpdateProfile(ctx context.Context, id string, patch pgrepo.ProfilePatch) (pgrepo.AccountRecord, error)
}

type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// Profile is the owner's view of their own account.
type Profile struct {
	ID        string
	Email     string
	Username  string
	FullName  string
	AvatarURL string
	CreatedAt time.Time
}

// PublicProfile is what other users see; no email.
type PublicProfile struct {
	ID        string
	Username  string
	FullName  string
	AvatarURL string
}

type UpdateInput struct {
	Username  *string
	FullName  *string
	AvatarKey *string
}

type Service struct {
	accounts AccountStore
	signer   URLSigner
	logger   *zap.Logger
}

func NewService(accounts AccountStore, signer URLSigner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		accounts: accounts,
		signer:   signer,
		logger:   logger,
	}
}

func (s *Service) Me(ctx context.Context, userID string) (Profile, error) {
	rec, err := s.getAccount(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return s.toProfile(ctx, rec), nil
}

// Update applies a partial edit to the caller's own profile and
// returns the resulting profile.
func (s *Service) Update(ctx context.Context, userID string, input UpdateInput) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, ErrValidation
	}

	patch := pgrepo.ProfilePatch{AvatarKey: input.AvatarKey}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" || len(username) > maxUsernameLen {
			return Profile{}, ErrValidation
		}
		patch.Username = &username
	}
	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if len(fullName) > maxFullNameLen {
			return Profile{}, ErrValidation
		}
		patch.FullName = &fullName
	}

	rec, err := s.accounts.UpdateProfile(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrAccountNotFound):
			return Profile{}, ErrNotFound
		case errors.Is(err, pgrepo.ErrUsernameTaken):
			return Profile{}, ErrUsernameTaken
		}
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return s.toProfile(ctx, rec), nil
}

// Public resolves another user's profile without the private fields.
func (s *Service) Public(ctx context.Context, userID string) (PublicProfile, error) {
	rec, err := s.getAccount(ctx, userID)
	if err != nil {
		return PublicProfile{}, err
	}
	return PublicProfile{
		ID:        rec.ID,
		Username:  rec.Username,
		FullName:  rec.FullName,
		AvatarURL: s.avatarURL(ctx, rec),
	}, nil
}

func (s *Service) getAccount(ctx context.Context, userID string) (pgrepo.AccountRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return pgrepo.AccountRecord{}, ErrValidation
	}
	rec, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return pgrepo.AccountRecord{}, ErrNotFound
		}
		return pgrepo.AccountRecord{}, fmt.Errorf("get account: %w", err)
	}
	return rec, nil
}

func (s *Service) toProfile(ctx context.Context, rec pgrepo.AccountRecord) Profile {
	return Profile{
		ID:        rec.ID,
		Email:     rec.Email,
		Username:  rec.Username,
		FullName:  rec.FullName,
		AvatarURL: s.avatarURL(ctx, rec),
		CreatedAt: rec.CreatedAt,
	}
}

// avatarURL degrades to an empty URL when signing fails so a storage
// hiccup never hides the rest of the profile.
func (s *Service) avatarURL(ctx context.Context, rec pgrepo.AccountRecord) string {
	if rec.AvatarKey == "" || s.signer == nil {
		return ""
	}
	url, err := s.signer.SignedURL(ctx, rec.AvatarKey)
	if err != nil {
		s.logger.Warn("sign avatar url failed",
			zap.String("user_id", rec.ID), zap.Error(err))
		return ""
	}
	return url
}
