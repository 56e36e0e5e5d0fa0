package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

type AccountRecord struct {
	ID           string
	Email        string
	Username     string
	FullName     string
	AvatarKey    string
	PasswordHash string
	CreatedAt    time.Time
}

type ProfilePatch struct {
	Username  *string
	FullName  *string
	AvatarKey *string
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, rec AccountRecord) error {
	if rec.ID == "" || rec.Email == "" || rec.PasswordHash == "" {
		return fmt.Errorf("invalid account payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO accounts (
	id,
	email,
	username,
	full_name,
	password_hash,
	created_at
) VALUES ($1, $2, $3, $4, $5, NOW())
`, rec.ID, strings.ToLower(rec.Email), rec.Username, rec.FullName, rec.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "username") {
				return ErrUsernameTaken
			}
			return ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (AccountRecord, error) {
	if strings.TrimSpace(email) == "" {
		return AccountRecord{}, fmt.Errorf("email is required")
	}
	if r.pool == nil {
		return AccountRecord{}, ErrAccountNotFound
	}

	var rec AccountRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, COALESCE(username, ''), COALESCE(full_name, ''), COALESCE(avatar_key, ''), password_hash, created_at
FROM accounts
WHERE email = $1
LIMIT 1
`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Username,
		&rec.FullName,
		&rec.AvatarKey,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, fmt.Errorf("get account by email: %w", err)
	}

	return rec, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (AccountRecord, error) {
	if strings.TrimSpace(id) == "" {
		return AccountRecord{}, fmt.Errorf("account id is required")
	}
	if r.pool == nil {
		return AccountRecord{}, ErrAccountNotFound
	}

	var rec AccountRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, COALESCE(username, ''), COALESCE(full_name, ''), COALESCE(avatar_key, ''), password_hash, created_at
FROM accounts
WHERE id = $1
LIMIT 1
`, id).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Username,
		&rec.FullName,
		&rec.AvatarKey,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, fmt.Errorf("get account by id: %w", err)
	}

	return rec, nil
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (AccountRecord, error) {
	if strings.TrimSpace(id) == "" {
		return AccountRecord{}, fmt.Errorf("account id is required")
	}
	if r.pool == nil {
		return AccountRecord{}, ErrAccountNotFound
	}

	setClauses := make([]string, 0, 3)
	args := []any{id}
	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("username", patch.Username)
	appendSet("full_name", patch.FullName)
	appendSet("avatar_key", patch.AvatarKey)

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	var rec AccountRecord
	err := r.pool.QueryRow(ctx, `
UPDATE accounts
SET `+strings.Join(setClauses, ", ")+`
WHERE id = $1
RETURNING id, email, COALESCE(username, ''), COALESCE(full_name, ''), COALESCE(avatar_key, ''), password_hash, created_at`,
		args...).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Username,
		&rec.FullName,
		&rec.AvatarKey,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		if isUniqueViolation(err) {
			return AccountRecord{}, ErrUsernameTaken
		}
		return AccountRecord{}, fmt.Errorf("update account profile: %w", err)
	}

	return rec, nil
}
