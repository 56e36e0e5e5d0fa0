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

var ErrPostNotFound = errors.New("post not found")

type PostRepo struct {
	pool *pgxpool.Pool
}

type PostRecord struct {
	ID          int64
	OwnerID     string
	Username    string
	Name        string
	Description string
	Professions string
	Skills      string
	Categories  string
	ImageKey    string
	CreatedAt   time.Time
}

type PostPatch struct {
	Name        *string
	Description *string
	Professions *string
	Skills      *string
	Categories  *string
	ImageKey    *string
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `
	id,
	owner_id,
	COALESCE(username, ''),
	COALESCE(name, ''),
	COALESCE(description, ''),
	COALESCE(professions, ''),
	COALESCE(skills, ''),
	COALESCE(categories, ''),
	COALESCE(image_key, ''),
	created_at`

func (r *PostRepo) Create(ctx context.Context, rec PostRecord) (PostRecord, error) {
	if rec.OwnerID == "" || strings.TrimSpace(rec.Name) == "" {
		return PostRecord{}, fmt.Errorf("invalid post payload")
	}
	if r.pool == nil {
		return PostRecord{}, fmt.Errorf("postgres pool is nil")
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO posts (
	owner_id,
	username,
	name,
	description,
	professions,
	skills,
	categories,
	image_key,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id, created_at
`, rec.OwnerID, rec.Username, rec.Name, rec.Description, rec.Professions,
		rec.Skills, rec.Categories, rec.ImageKey).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return PostRecord{}, fmt.Errorf("insert post: %w", err)
	}

	return rec, nil
}

func (r *PostRepo) GetByID(ctx context.Context, id int64) (PostRecord, error) {
	if id <= 0 {
		return PostRecord{}, fmt.Errorf("invalid post id")
	}
	if r.pool == nil {
		return PostRecord{}, ErrPostNotFound
	}

	var rec PostRecord
	err := r.pool.QueryRow(ctx, `
SELECT`+postColumns+`
FROM posts
WHERE id = $1
LIMIT 1
`, id).Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Username,
		&rec.Name,
		&rec.Description,
		&rec.Professions,
		&rec.Skills,
		&rec.Categories,
		&rec.ImageKey,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostRecord{}, ErrPostNotFound
		}
		return PostRecord{}, fmt.Errorf("get post: %w", err)
	}

	return rec, nil
}

func (r *PostRepo) ListRecent(ctx context.Context, limit, offset int) ([]PostRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return []PostRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+postColumns+`
FROM posts
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

func (r *PostRepo) Search(ctx context.Context, query string, limit int) ([]PostRecord, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return r.ListRecent(ctx, limit, 0)
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []PostRecord{}, nil
	}

	pattern := "%" + term + "%"
	rows, err := r.pool.Query(ctx, `
SELECT`+postColumns+`
FROM posts
WHERE
	name ILIKE $1
	OR description ILIKE $1
	OR professions ILIKE $1
	OR skills ILIKE $1
	OR categories ILIKE $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

// ListCandidates returns swipeable posts for a viewer: other users' posts
// the viewer has not liked yet, newest first.
func (r *PostRepo) ListCandidates(ctx context.Context, viewerID string, limit int) ([]PostRecord, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, fmt.Errorf("viewer id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []PostRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+postColumns+`
FROM posts p
WHERE
	p.owner_id <> $1
	AND NOT EXISTS (
		SELECT 1
		FROM project_likes l
		WHERE l.user_id = $1 AND l.project_id = p.id
	)
ORDER BY p.created_at DESC, p.id DESC
LIMIT $2
`, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list swipe candidates: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

func (r *PostRepo) Update(ctx context.Context, id int64, ownerID string, patch PostPatch) (PostRecord, error) {
	if id <= 0 || strings.TrimSpace(ownerID) == "" {
		return PostRecord{}, fmt.Errorf("invalid post update payload")
	}
	if r.pool == nil {
		return PostRecord{}, ErrPostNotFound
	}

	setClauses := make([]string, 0, 6)
	args := []any{id, ownerID}
	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("name", patch.Name)
	appendSet("description", patch.Description)
	appendSet("professions", patch.Professions)
	appendSet("skills", patch.Skills)
	appendSet("categories", patch.Categories)
	appendSet("image_key", patch.ImageKey)

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	var rec PostRecord
	err := r.pool.QueryRow(ctx, `
UPDATE posts
SET `+strings.Join(setClauses, ", ")+`
WHERE id = $1 AND owner_id = $2
RETURNING`+postColumns,
		args...).Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Username,
		&rec.Name,
		&rec.Description,
		&rec.Professions,
		&rec.Skills,
		&rec.Categories,
		&rec.ImageKey,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostRecord{}, ErrPostNotFound
		}
		return PostRecord{}, fmt.Errorf("update post: %w", err)
	}

	return rec, nil
}

func (r *PostRepo) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	if id <= 0 || strings.TrimSpace(ownerID) == "" {
		return false, fmt.Errorf("invalid post delete payload")
	}
	if r.pool == nil {
		return false, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM posts
WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func scanPosts(rows pgx.Rows, capacityHint int) ([]PostRecord, error) {
	items := make([]PostRecord, 0, capacityHint)
	for rows.Next() {
		var rec PostRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OwnerID,
			&rec.Username,
			&rec.Name,
			&rec.Description,
			&rec.Professions,
			&rec.Skills,
			&rec.Categories,
			&rec.ImageKey,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate posts: %w", rows.Err())
	}

	return items, nil
}
