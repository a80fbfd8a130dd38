// AngelaMos | 2026
// service.go

package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/metrics"
	"github.com/notbyai-space/curation-api/internal/quota"
	"github.com/notbyai-space/curation-api/internal/user"
)

type Service struct {
	repo      Repository
	quota     quota.Enforcer
	calendar  *core.Calendar
	maxLength int
	logger    *slog.Logger
}

type ServiceConfig struct {
	Repo      Repository
	Quota     quota.Enforcer
	Calendar  *core.Calendar
	MaxLength int
	Logger    *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      cfg.Repo,
		quota:     cfg.Quota,
		calendar:  cfg.Calendar,
		maxLength: cfg.MaxLength,
		logger:    logger,
	}
}

// Submit validates, takes a quota slot, then inserts the post as pending.
// A failed insert hands the slot back.
func (s *Service) Submit(
	ctx context.Context,
	author user.Actor,
	content string,
	tag Tag,
) (*Post, error) {
	ctx, span := core.StartSpan(ctx, "post.Submit",
		attribute.String("user.id", author.ID),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if err := s.validateContent(content, tag); err != nil {
		return nil, err
	}

	day := s.calendar.Today()

	used, err := s.quota.Reserve(ctx, author.ID, day)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			metrics.RecordQuotaRejection()
		}
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.release(ctx, author.ID, day)
		return nil, fmt.Errorf("submit post: %w", err)
	}

	p := &Post{
		ID:        id.String(),
		AuthorID:  author.ID,
		Content:   content,
		Tag:       tag,
		Status:    StatusPending,
		CreatedAt: s.calendar.NowUTC(),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.release(ctx, author.ID, day)
		core.SetSpanError(ctx, err)
		return nil, err
	}

	metrics.RecordSubmission(string(tag))
	core.AddSpanEvent(ctx, "post.submitted",
		attribute.String("post.id", p.ID),
		attribute.Int("quota.used", used),
	)
	s.logger.InfoContext(ctx, "post submitted",
		"post_id", p.ID,
		"author_id", author.ID,
		"tag", tag,
		"quota_used", used,
	)

	return p, nil
}

func (s *Service) validateContent(content string, tag Tag) error {
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return fmt.Errorf("content is empty: %w", ErrInvalidContent)
	}
	if n > s.maxLength {
		return fmt.Errorf(
			"content exceeds %d characters: %w",
			s.maxLength,
			ErrInvalidContent,
		)
	}
	if !tag.Valid() {
		return fmt.Errorf("unknown tag %q: %w", tag, ErrInvalidContent)
	}
	return nil
}

func (s *Service) release(ctx context.Context, userID string, day core.Day) {
	// The request may already be cancelled; the slot still has to go back.
	if err := s.quota.Release(context.WithoutCancel(ctx), userID, day); err != nil {
		s.logger.ErrorContext(ctx, "quota release failed",
			"user_id", userID,
			"day", day,
			"error", err,
		)
	}
}

func (s *Service) Review(
	ctx context.Context,
	reviewer user.Actor,
	postID string,
	decision Status,
) (*Post, error) {
	ctx, span := core.StartSpan(ctx, "post.Review",
		attribute.String("post.id", postID),
		attribute.String("review.decision", string(decision)),
	)
	defer span.End()

	if !reviewer.CanReview() {
		metrics.RecordReview(string(decision), "forbidden")
		return nil, fmt.Errorf("review post: %w", core.ErrForbidden)
	}

	if !decision.IsDecision() {
		return nil, fmt.Errorf(
			"review post: decision %q: %w",
			decision,
			core.ErrInvalidInput,
		)
	}

	p, err := s.repo.Review(ctx, postID, decision, reviewer.ID, s.calendar.NowUTC())
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyReviewed):
			metrics.RecordReview(string(decision), "already_reviewed")
		case errors.Is(err, core.ErrNotFound):
			metrics.RecordReview(string(decision), "not_found")
		default:
			core.SetSpanError(ctx, err)
		}
		return nil, err
	}

	metrics.RecordReview(string(decision), "applied")
	core.AddSpanEvent(ctx, "post.reviewed",
		attribute.String("reviewer.id", reviewer.ID),
	)
	s.logger.InfoContext(ctx, "post reviewed",
		"post_id", p.ID,
		"reviewer_id", reviewer.ID,
		"decision", decision,
	)

	return p, nil
}

func (s *Service) React(
	ctx context.Context,
	actor user.Actor,
	postID string,
	kind ReactionKind,
) (*Counts, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("react: kind %q: %w", kind, core.ErrInvalidInput)
	}

	counts, err := s.repo.React(ctx, postID, actor.ID, kind)
	if err != nil {
		return nil, err
	}

	metrics.RecordReaction(string(kind), counts.Applied)
	if counts.Applied {
		core.AddSpanEvent(ctx, "post.reacted",
			attribute.String("post.id", postID),
			attribute.String("reaction.kind", string(kind)),
		)
	}

	return counts, nil
}

// Get shows approved posts to everyone and pending posts to their author
// and reviewers. Rejected posts are only reachable through review history.
func (s *Service) Get(
	ctx context.Context,
	viewer user.Actor,
	postID string,
) (*Post, error) {
	p, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case StatusApproved:
	case StatusPending:
		if p.AuthorID != viewer.ID && !viewer.CanReview() {
			return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
		}
	default:
		return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
	}

	return p, nil
}

type MyPosts struct {
	Posts      []Post
	Day        core.Day
	DailyLimit int
	Remaining  int
}

func (s *Service) ListMine(
	ctx context.Context,
	author user.Actor,
	limit, offset int,
) (*MyPosts, error) {
	posts, err := s.repo.ListByAuthor(ctx, author.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	day := s.calendar.Today()
	remaining, err := quota.Remaining(ctx, s.quota, author.ID, day)
	if err != nil {
		return nil, err
	}

	return &MyPosts{
		Posts:      posts,
		Day:        day,
		DailyLimit: s.quota.Limit(),
		Remaining:  remaining,
	}, nil
}
