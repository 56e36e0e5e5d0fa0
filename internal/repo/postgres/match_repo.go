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

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

type MatchRecord struct {
	ID        int64
	UserAID   string
	UserBID   string
	ProjectID int64
	CreatedAt time.Time
}

type MatchListRecord struct {
	ID              int64
	ProjectID       int64
	ProjectName     string
	CounterpartID   string
	CounterpartName string
	CreatedAt       time.Time
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// NormalizePair orders two user ids lexicographically so the unordered
// pair always keys match rows as (user_a < user_b).
func NormalizePair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *MatchRepo) FindByPair(ctx context.Context, userA, userB string, projectID int64) (MatchRecord, bool, error) {
	if strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" || projectID <= 0 {
		return MatchRecord{}, false, fmt.Errorf("invalid match lookup payload")
	}
	if r.pool == nil {
		return MatchRecord{}, false, nil
	}

	a, b := NormalizePair(userA, userB)

	var rec MatchRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, project_id, created_at
FROM project_matches
WHERE user_a_id = $1 AND user_b_id = $2 AND project_id = $3
LIMIT 1
`, a, b, projectID).Scan(
		&rec.ID,
		&rec.UserAID,
		&rec.UserBID,
		&rec.ProjectID,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, false, nil
		}
		return MatchRecord{}, false, fmt.Errorf("lookup match by pair: %w", err)
	}

	return rec, true, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, id int64) (MatchRecord, error) {
	if id <= 0 {
		return MatchRecord{}, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return MatchRecord{}, ErrMatchNotFound
	}

	var rec MatchRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, project_id, created_at
FROM project_matches
WHERE id = $1
LIMIT 1
`, id).Scan(
		&rec.ID,
		&rec.UserAID,
		&rec.UserBID,
		&rec.ProjectID,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("get match: %w", err)
	}

	return rec, nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID string, limit int) ([]MatchListRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchListRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	m.project_id,
	COALESCE(p.name, ''),
	CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END AS counterpart_id,
	COALESCE(a.username, ''),
	m.created_at
FROM project_matches m
LEFT JOIN posts p ON p.id = m.project_id
LEFT JOIN accounts a ON a.id = CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END
WHERE m.user_a_id = $1 OR m.user_b_id = $1
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchListRecord, 0, limit)
	for rows.Next() {
		var item MatchListRecord
		if err := rows.Scan(
			&item.ID,
			&item.ProjectID,
			&item.ProjectName,
			&item.CounterpartID,
			&item.CounterpartName,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}

	return items, nil
}

func (r *MatchRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
DELETE FROM project_matches
WHERE id = $1
`, id)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
