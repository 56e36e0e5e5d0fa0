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

// ErrDuplicateLike reports that the (user, project) like already exists.
// Callers are expected to treat it as success.
var ErrDuplicateLike = errors.New("like already recorded")

type LikeRepo struct {
	pool *pgxpool.Pool
}

type LikeRecord struct {
	ID             int64
	UserID         string
	ProjectID      int64
	ProjectOwnerID string
	CreatedAt      time.Time
}

func NewLikeRepo(pool *pgxpool.Pool) *LikeRepo {
	return &LikeRepo{pool: pool}
}

// RecordLike inserts the like and, when the project owner has already liked
// one of the acting user's projects, creates the match row in the same
// transaction. A duplicate like returns ErrDuplicateLike without touching
// the match table; the match for it was settled when the like first landed.
func (r *LikeRepo) RecordLike(ctx context.Context, userID string, projectID int64, ownerID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(ownerID) == "" || projectID <= 0 {
		return fmt.Errorf("invalid like payload")
	}
	if userID == ownerID {
		return fmt.Errorf("self-like is not allowed")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
INSERT INTO project_likes (
	user_id,
	project_id,
	project_owner_id,
	created_at
) VALUES ($1, $2, $3, NOW())
`, userID, projectID, ownerID); err != nil {
			return fmt.Errorf("insert like: %w", err)
		}

		reciprocal, err := r.reciprocalExists(txCtx, tx, userID, ownerID)
		if err != nil {
			return err
		}
		if !reciprocal {
			return nil
		}

		userA, userB := NormalizePair(userID, ownerID)
		if _, err := tx.Exec(txCtx, `
INSERT INTO project_matches (
	user_a_id,
	user_b_id,
	project_id,
	created_at
) VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_a_id, user_b_id, project_id) DO NOTHING
`, userA, userB, projectID); err != nil {
			return fmt.Errorf("create match: %w", err)
		}

		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLike
		}
		return err
	}

	return nil
}

func (r *LikeRepo) Exists(ctx context.Context, userID string, projectID int64) (bool, error) {
	if strings.TrimSpace(userID) == "" || projectID <= 0 {
		return false, fmt.Errorf("invalid like lookup payload")
	}
	if r.pool == nil {
		return false, nil
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM project_likes
WHERE user_id = $1 AND project_id = $2
LIMIT 1
`, userID, projectID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup like: %w", err)
	}

	return true, nil
}

func (r *LikeRepo) reciprocalExists(ctx context.Context, tx pgx.Tx, userID, ownerID string) (bool, error) {
	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM project_likes
WHERE user_id = $1 AND project_owner_id = $2
LIMIT 1
`, ownerID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	return true, nil
}
