package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Shahil0511/OakMirror/internal/domain"
	"github.com/Shahil0511/OakMirror/pkg/database"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/pagination"
)

const postColumns = `id, title, content, post_type, company, industry, job_title, location, tags,
	publisher_id, created_by, updated_by, created_at, updated_at`

// PostRepository implements repository.PostRepository using PostgreSQL.
type PostRepository struct {
	db database.DBTX
}

// NewPostRepository creates a new PostgreSQL-backed post repository.
func NewPostRepository(db database.DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post.
func (r *PostRepository) Create(ctx context.Context, p *domain.Post) (err error) {
	query := `
		INSERT INTO posts (id, title, content, post_type, company, industry, job_title, location, tags,
			publisher_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	ctx, end := database.TraceQuery(ctx, "posts.Create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Content,
		string(p.PostType),
		p.Company,
		p.Industry,
		p.JobTitle,
		p.Location,
		p.Tags,
		p.Publisher,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetByID returns a live post or a NotFound error.
func (r *PostRepository) GetByID(ctx context.Context, id string) (_ *domain.Post, err error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND deleted_at IS NULL`

	ctx, end := database.TraceQuery(ctx, "posts.GetByID", query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var p domain.Post
	if err = scanPostRow(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post", id)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}

// List returns one page of live posts matching filter, newest first.
func (r *PostRepository) List(ctx context.Context, filter domain.PostFilter, params pagination.Params) (posts []domain.Post, total int, err error) {
	where, args := buildPostFilter(filter)

	countQuery := `SELECT COUNT(*) FROM posts WHERE ` + where
	listQuery := fmt.Sprintf(`SELECT %s FROM posts WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		postColumns, where, len(args)+1, len(args)+2)

	ctx, end := database.TraceQuery(ctx, "posts.List", listQuery)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := r.db.Query(ctx, listQuery, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts = []domain.Post{}
	for rows.Next() {
		var p domain.Post
		if err = scanPostRow(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate post rows: %w", err)
	}
	return posts, total, nil
}

// Update writes the editable fields of a live post.
func (r *PostRepository) Update(ctx context.Context, p *domain.Post) (err error) {
	query := `
		UPDATE posts
		SET title = $1, content = $2, post_type = $3, company = $4, industry = $5,
		    job_title = $6, location = $7, tags = $8, updated_by = $9, updated_at = $10
		WHERE id = $11 AND deleted_at IS NULL`

	ctx, end := database.TraceQuery(ctx, "posts.Update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.Title,
		p.Content,
		string(p.PostType),
		p.Company,
		p.Industry,
		p.JobTitle,
		p.Location,
		p.Tags,
		p.UpdatedBy,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("post", p.ID)
	}
	return nil
}

// SoftDelete marks a live post deleted.
func (r *PostRepository) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) (err error) {
	query := `
		UPDATE posts
		SET deleted_by = $1, deleted_at = $2, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL`

	ctx, end := database.TraceQuery(ctx, "posts.SoftDelete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, deletedBy, at, id)
	if err != nil {
		return fmt.Errorf("soft delete post: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("post", id)
	}
	return nil
}

// buildPostFilter returns a WHERE clause and its positional arguments.
func buildPostFilter(f domain.PostFilter) (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	var args []any

	add := func(format string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if f.Company != "" {
		add(`company ILIKE $%d ESCAPE '\'`, containsPattern(f.Company))
	}
	if f.JobTitle != "" {
		add(`job_title ILIKE $%d ESCAPE '\'`, containsPattern(f.JobTitle))
	}
	if f.PostType != "" {
		add("post_type = $%d", string(f.PostType))
	}
	if len(f.Tags) > 0 {
		add("tags && $%d", f.Tags)
	}

	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in the column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanPostRow(row pgx.Row, p *domain.Post) error {
	var postType string
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&postType,
		&p.Company,
		&p.Industry,
		&p.JobTitle,
		&p.Location,
		&p.Tags,
		&p.Publisher,
		&p.CreatedBy,
		&p.UpdatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.PostType = domain.PostType(postType)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}
