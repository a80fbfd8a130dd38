// AngelaMos | 2026
// repository.go

package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/notbyai-space/curation-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id string) (*Post, error)
	// Review moves a pending post to decision. Exactly one concurrent
	// caller succeeds; the rest get ErrAlreadyReviewed.
	Review(
		ctx context.Context,
		id string,
		decision Status,
		reviewerID string,
		at time.Time,
	) (*Post, error)
	React(ctx context.Context, postID, userID string, kind ReactionKind) (*Counts, error)
	ListPending(ctx context.Context, limit, offset int) ([]Post, error)
	ListApproved(ctx context.Context, q ApprovedQuery) ([]Post, error)
	ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]Post, error)
	ListReviewed(ctx context.Context, status Status, limit, offset int) ([]Post, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const postColumns = `id, author_id, content, tag, status, resonate_count,
	cherish_count, created_at, reviewed_at, reviewer_id`

func (r *repository) Create(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (id, author_id, content, tag, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.AuthorID,
		p.Content,
		p.Tag,
		p.Status,
		p.CreatedAt,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create post: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create post: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	var p Post
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	return &p, nil
}

func (r *repository) Review(
	ctx context.Context,
	id string,
	decision Status,
	reviewerID string,
	at time.Time,
) (*Post, error) {
	query := `
		UPDATE posts
		SET status = $2, reviewed_at = $3, reviewer_id = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + postColumns

	var p Post
	err := r.db.GetContext(ctx, &p, query, id, decision, at, reviewerID)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review post: %w", err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, id,
	); err != nil {
		return nil, fmt.Errorf("review post: %w", err)
	}

	if !exists {
		return nil, fmt.Errorf("review post: %w", core.ErrNotFound)
	}
	return nil, fmt.Errorf("review post: %w", ErrAlreadyReviewed)
}

// counterColumn maps a reaction kind to its fixed column name.
var counterColumn = map[ReactionKind]string{
	ReactionResonate: "resonate_count",
	ReactionCherish:  "cherish_count",
}

func (r *repository) React(
	ctx context.Context,
	postID, userID string,
	kind ReactionKind,
) (*Counts, error) {
	column, ok := counterColumn[kind]
	if !ok {
		return nil, fmt.Errorf("react: kind %q: %w", kind, core.ErrInvalidInput)
	}

	// No row lock on the status read: approved is terminal, and a shared
	// lock followed by the counter UPDATE deadlocks concurrent reactors.
	var counts Counts
	err := core.InTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var status Status
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM posts WHERE id = $1`, postID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("react: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("react: %w", err)
		}
		if status != StatusApproved {
			return fmt.Errorf("react: %w", ErrNotVisible)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO post_reactions (post_id, user_id, kind)
			VALUES ($1, $2, $3)
			ON CONFLICT (post_id, user_id, kind) DO NOTHING`,
			postID, userID, kind,
		)
		if err != nil {
			return fmt.Errorf("react: %w", err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("react: %w", err)
		}

		if inserted == 0 {
			err = tx.GetContext(ctx, &counts, `
				SELECT resonate_count, cherish_count FROM posts WHERE id = $1`,
				postID,
			)
		} else {
			counts.Applied = true
			err = tx.GetContext(ctx, &counts, `
				UPDATE posts SET `+column+` = `+column+` + 1
				WHERE id = $1 AND status = 'approved'
				RETURNING resonate_count, cherish_count`,
				postID,
			)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("react: %w", ErrNotVisible)
		}
		if err != nil {
			return fmt.Errorf("react: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &counts, nil
}

func (r *repository) ListPending(
	ctx context.Context,
	limit, offset int,
) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	posts := []Post{}
	if err := r.db.SelectContext(ctx, &posts, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}

	return posts, nil
}

func (r *repository) ListApproved(
	ctx context.Context,
	q ApprovedQuery,
) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'approved'
		  AND reviewed_at <= $1
		  AND author_id <> $2
		ORDER BY reviewed_at DESC, id ASC
		LIMIT $3 OFFSET $4`

	posts := []Post{}
	err := r.db.SelectContext(ctx, &posts, query,
		q.Cutoff,
		q.ExcludeAuthor,
		q.Limit,
		q.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved posts: %w", err)
	}

	return posts, nil
}

func (r *repository) ListByAuthor(
	ctx context.Context,
	authorID string,
	limit, offset int,
) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE author_id = $1 AND status <> 'rejected'
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	posts := []Post{}
	if err := r.db.SelectContext(ctx, &posts, query, authorID, limit, offset); err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}

	return posts, nil
}

func (r *repository) ListReviewed(
	ctx context.Context,
	status Status,
	limit, offset int,
) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1
		ORDER BY reviewed_at DESC, id ASC
		LIMIT $2 OFFSET $3`

	posts := []Post{}
	if err := r.db.SelectContext(ctx, &posts, query, status, limit, offset); err != nil {
		return nil, fmt.Errorf("list reviewed posts: %w", err)
	}

	return posts, nil
}

func (r *repository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')  AS pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
		FROM posts`

	var counts StatusCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return StatusCounts{}, fmt.Errorf("count posts: %w", err)
	}

	return counts, nil
}
