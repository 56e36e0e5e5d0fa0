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

var ErrDeadlineNotFound = errors.New("deadline not found")

type DeadlineRepo struct {
	pool *pgxpool.Pool
}

type DeadlineRecord struct {
	ID        int64
	MatchID   int64
	Title     string
	Notes     string
	DueDate   time.Time
	DueTime   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewDeadlineRepo(pool *pgxpool.Pool) *DeadlineRepo {
	return &DeadlineRepo{pool: pool}
}

func (r *DeadlineRepo) Create(ctx context.Context, rec DeadlineRecord) (DeadlineRecord, error) {
	if rec.MatchID <= 0 || strings.TrimSpace(rec.Title) == "" || rec.CreatedBy == "" || rec.DueDate.IsZero() {
		return DeadlineRecord{}, fmt.Errorf("invalid deadline payload")
	}
	if r.pool == nil {
		return DeadlineRecord{}, fmt.Errorf("postgres pool is nil")
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO project_deadlines (
	match_id,
	title,
	notes,
	due_date,
	due_time,
	created_by,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, NULLIF($5, '')::time, $6, NOW(), NOW())
RETURNING id, created_at, updated_at
`, rec.MatchID, rec.Title, rec.Notes, rec.DueDate, rec.DueTime, rec.CreatedBy).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return DeadlineRecord{}, fmt.Errorf("insert deadline: %w", err)
	}

	return rec, nil
}

func (r *DeadlineRepo) GetByID(ctx context.Context, id int64) (DeadlineRecord, error) {
	if id <= 0 {
		return DeadlineRecord{}, fmt.Errorf("invalid deadline id")
	}
	if r.pool == nil {
		return DeadlineRecord{}, ErrDeadlineNotFound
	}

	var rec DeadlineRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	id,
	match_id,
	COALESCE(title, ''),
	COALESCE(notes, ''),
	due_date,
	COALESCE(due_time::text, ''),
	created_by,
	created_at,
	updated_at
FROM project_deadlines
WHERE id = $1
LIMIT 1
`, id).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.Title,
		&rec.Notes,
		&rec.DueDate,
		&rec.DueTime,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeadlineRecord{}, ErrDeadlineNotFound
		}
		return DeadlineRecord{}, fmt.Errorf("get deadline: %w", err)
	}

	return rec, nil
}

func (r *DeadlineRepo) ListByMatch(ctx context.Context, matchID int64) ([]DeadlineRecord, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return []DeadlineRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	match_id,
	COALESCE(title, ''),
	COALESCE(notes, ''),
	due_date,
	COALESCE(due_time::text, ''),
	created_by,
	created_at,
	updated_at
FROM project_deadlines
WHERE match_id = $1
ORDER BY due_date ASC, due_time ASC NULLS FIRST, id ASC
`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	defer rows.Close()

	items := make([]DeadlineRecord, 0, 16)
	for rows.Next() {
		var rec DeadlineRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.MatchID,
			&rec.Title,
			&rec.Notes,
			&rec.DueDate,
			&rec.DueTime,
			&rec.CreatedBy,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan deadline: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate deadlines: %w", rows.Err())
	}

	return items, nil
}

func (r *DeadlineRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("invalid deadline id")
	}
	if r.pool == nil {
		return false, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM project_deadlines
WHERE id = $1
`, id)
	if err != nil {
		return false, fmt.Errorf("delete deadline: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *DeadlineRepo) DeleteByMatch(ctx context.Context, tx pgx.Tx, matchID int64) error {
	if matchID <= 0 {
		return fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM project_deadlines
WHERE match_id = $1
`, matchID); err != nil {
		return fmt.Errorf("delete deadlines for match: %w", err)
	}

	return nil
}
