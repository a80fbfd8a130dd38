// AngelaMos | 2026
// service.go

package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/user"
)

type PostReader interface {
	ListPending(ctx context.Context, limit, offset int) ([]post.Post, error)
	ListReviewed(ctx context.Context, status post.Status, limit, offset int) ([]post.Post, error)
	CountByStatus(ctx context.Context) (post.StatusCounts, error)
}

type Reviewer interface {
	Review(
		ctx context.Context,
		reviewer user.Actor,
		postID string,
		decision post.Status,
	) (*post.Post, error)
}

type UserDirectory interface {
	CountUsers(ctx context.Context) (int, error)
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
}

// PendingPost is a queued post with the author's email, which only
// reviewers get to see.
type PendingPost struct {
	post.Post
	AuthorEmail string
}

// Service is a read view over pending posts plus the review entry point.
// It keeps no state; the queue is whatever is pending right now.
type Service struct {
	posts    PostReader
	reviewer Reviewer
	users    UserDirectory
	calendar *core.Calendar
}

func NewService(
	posts PostReader,
	reviewer Reviewer,
	users UserDirectory,
	calendar *core.Calendar,
) *Service {
	return &Service{
		posts:    posts,
		reviewer: reviewer,
		users:    users,
		calendar: calendar,
	}
}

func (s *Service) ListPending(
	ctx context.Context,
	reviewer user.Actor,
	limit, offset int,
) ([]PendingPost, error) {
	if !reviewer.CanReview() {
		return nil, fmt.Errorf("list pending: %w", core.ErrForbidden)
	}

	posts, err := s.posts.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].AuthorID)
	}

	emails, err := s.users.EmailsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	out := make([]PendingPost, 0, len(posts))
	for i := range posts {
		out = append(out, PendingPost{
			Post:        posts[i],
			AuthorEmail: emails[posts[i].AuthorID],
		})
	}
	return out, nil
}

func (s *Service) Review(
	ctx context.Context,
	reviewer user.Actor,
	postID string,
	decision post.Status,
) (*post.Post, error) {
	return s.reviewer.Review(ctx, reviewer, postID, decision)
}

// History lists decided posts, most recent decision first. It is the only
// read that exposes rejected posts.
func (s *Service) History(
	ctx context.Context,
	reviewer user.Actor,
	status post.Status,
	limit, offset int,
) ([]post.Post, error) {
	if !reviewer.CanReview() {
		return nil, fmt.Errorf("review history: %w", core.ErrForbidden)
	}

	if !status.IsDecision() {
		return nil, fmt.Errorf(
			"review history: status %q: %w",
			status,
			core.ErrInvalidInput,
		)
	}

	return s.posts.ListReviewed(ctx, status, limit, offset)
}

type Stats struct {
	Posts      post.StatusCounts
	TotalUsers int
	// OldestPendingAge is zero when the queue is empty.
	OldestPendingAge time.Duration
}

func (s *Service) Stats(ctx context.Context, reviewer user.Actor) (*Stats, error) {
	if !reviewer.CanReview() {
		return nil, fmt.Errorf("moderation stats: %w", core.ErrForbidden)
	}

	counts, err := s.posts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Posts: counts, TotalUsers: total}

	oldest, err := s.posts.ListPending(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(oldest) > 0 {
		stats.OldestPendingAge = s.calendar.NowUTC().Sub(oldest[0].CreatedAt)
	}

	return stats, nil
}
