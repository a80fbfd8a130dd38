// AngelaMos | 2026
// service.go

package feed

import (
	"context"
	"time"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/user"
)

// Reader is the slice of the post repository the feed needs.
type Reader interface {
	ListApproved(ctx context.Context, q post.ApprovedQuery) ([]post.Post, error)
}

type Query struct {
	// Day defaults to today in the service time zone.
	Day core.Day
	// AsOf pins the snapshot. Clients send back the value from their first
	// page so approvals made mid-session do not reorder what they see.
	AsOf   *time.Time
	Limit  int
	Offset int
}

type Page struct {
	Day    core.Day
	AsOf   time.Time
	Posts  []post.Post
	Limit  int
	Offset int
}

type Service struct {
	posts    Reader
	calendar *core.Calendar
}

func NewService(posts Reader, calendar *core.Calendar) *Service {
	return &Service{posts: posts, calendar: calendar}
}

// GetFeed returns approved posts reviewed at or before the snapshot
// instant, newest review first, never including the viewer's own posts.
// The same (day, as_of) always yields the same sequence.
func (s *Service) GetFeed(
	ctx context.Context,
	viewer user.Actor,
	q Query,
) (*Page, error) {
	day := q.Day
	if day == "" {
		day = s.calendar.Today()
	}

	now := s.calendar.NowUTC()
	asOf := now
	if q.AsOf != nil && q.AsOf.Before(now) {
		asOf = q.AsOf.UTC()
	}

	cutoff := asOf
	if end := s.calendar.EndOf(day).UTC(); end.Before(cutoff) {
		cutoff = end
	}

	posts, err := s.posts.ListApproved(ctx, post.ApprovedQuery{
		Cutoff:        cutoff,
		ExcludeAuthor: viewer.ID,
		Limit:         q.Limit,
		Offset:        q.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &Page{
		Day:    day,
		AsOf:   cutoff,
		Posts:  posts,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}
