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

var ErrTaskNotFound = errors.New("task not found")

type TaskRepo struct {
	pool *pgxpool.Pool
}

type TaskRecord struct {
	ID         int64
	MatchID    int64
	Title      string
	Details    string
	Status     string
	DueDate    *time.Time
	AssignedTo string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TaskPatch struct {
	Title      *string
	Details    *string
	Status     *string
	DueDate    *time.Time
	ClearDue   bool
	AssignedTo *string
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `
	id,
	match_id,
	COALESCE(title, ''),
	COALESCE(details, ''),
	COALESCE(status, 'todo'),
	due_date,
	COALESCE(assigned_to, ''),
	created_by,
	created_at,
	updated_at`

func (r *TaskRepo) Create(ctx context.Context, rec TaskRecord) (TaskRecord, error) {
	if rec.MatchID <= 0 || strings.TrimSpace(rec.Title) == "" || rec.CreatedBy == "" {
		return TaskRecord{}, fmt.Errorf("invalid task payload")
	}
	if r.pool == nil {
		return TaskRecord{}, fmt.Errorf("postgres pool is nil")
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO project_tasks (
	match_id,
	title,
	details,
	status,
	due_date,
	assigned_to,
	created_by,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NOW(), NOW())
RETURNING id, created_at, updated_at
`, rec.MatchID, rec.Title, rec.Details, rec.Status, rec.DueDate, rec.AssignedTo, rec.CreatedBy).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return TaskRecord{}, fmt.Errorf("insert task: %w", err)
	}

	return rec, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (TaskRecord, error) {
	if id <= 0 {
		return TaskRecord{}, fmt.Errorf("invalid task id")
	}
	if r.pool == nil {
		return TaskRecord{}, ErrTaskNotFound
	}

	var rec TaskRecord
	err := r.pool.QueryRow(ctx, `
SELECT`+taskColumns+`
FROM project_tasks
WHERE id = $1
LIMIT 1
`, id).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.Title,
		&rec.Details,
		&rec.Status,
		&rec.DueDate,
		&rec.AssignedTo,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaskRecord{}, ErrTaskNotFound
		}
		return TaskRecord{}, fmt.Errorf("get task: %w", err)
	}

	return rec, nil
}

// ListByMatch orders open work first (todo, doing, done), then by due date
// with undated tasks last, then by creation order.
func (r *TaskRepo) ListByMatch(ctx context.Context, matchID int64) ([]TaskRecord, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return []TaskRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+taskColumns+`
FROM project_tasks
WHERE match_id = $1
ORDER BY
	CASE COALESCE(status, 'todo')
		WHEN 'todo' THEN 0
		WHEN 'doing' THEN 1
		ELSE 2
	END ASC,
	due_date ASC NULLS LAST,
	created_at ASC,
	id ASC
`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]TaskRecord, 0, 16)
	for rows.Next() {
		var rec TaskRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.MatchID,
			&rec.Title,
			&rec.Details,
			&rec.Status,
			&rec.DueDate,
			&rec.AssignedTo,
			&rec.CreatedBy,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tasks: %w", rows.Err())
	}

	return items, nil
}

func (r *TaskRepo) Update(ctx context.Context, id int64, patch TaskPatch) (TaskRecord, error) {
	if id <= 0 {
		return TaskRecord{}, fmt.Errorf("invalid task id")
	}
	if r.pool == nil {
		return TaskRecord{}, ErrTaskNotFound
	}

	setClauses := []string{"updated_at = NOW()"}
	args := []any{id}
	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		appendSet("title", *patch.Title)
	}
	if patch.Details != nil {
		appendSet("details", *patch.Details)
	}
	if patch.Status != nil {
		appendSet("status", *patch.Status)
	}
	if patch.ClearDue {
		setClauses = append(setClauses, "due_date = NULL")
	} else if patch.DueDate != nil {
		appendSet("due_date", *patch.DueDate)
	}
	if patch.AssignedTo != nil {
		args = append(args, *patch.AssignedTo)
		setClauses = append(setClauses, fmt.Sprintf("assigned_to = NULLIF($%d, '')", len(args)))
	}

	var rec TaskRecord
	err := r.pool.QueryRow(ctx, `
UPDATE project_tasks
SET `+strings.Join(setClauses, ", ")+`
WHERE id = $1
RETURNING`+taskColumns,
		args...).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.Title,
		&rec.Details,
		&rec.Status,
		&rec.DueDate,
		&rec.AssignedTo,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaskRecord{}, ErrTaskNotFound
		}
		return TaskRecord{}, fmt.Errorf("update task: %w", err)
	}

	return rec, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("invalid task id")
	}
	if r.pool == nil {
		return false, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM project_tasks
WHERE id = $1
`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *TaskRepo) DeleteByMatch(ctx context.Context, tx pgx.Tx, matchID int64) error {
	if matchID <= 0 {
		return fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM project_tasks
WHERE match_id = $1
`, matchID); err != nil {
		return fmt.Errorf("delete tasks for match: %w", err)
	}

	return nil
}
