// AngelaMos | 2026
// memory.go

// Package posttest provides an in-memory post.Repository for tests in
// packages that sit on top of the post lifecycle.
package posttest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/post"
)

type reactionKey struct {
	postID string
	userID string
	kind   post.ReactionKind
}

type Memory struct {
	mu        sync.Mutex
	posts     map[string]*post.Post
	reactions map[reactionKey]struct{}

	// FailCreate, when set, is returned by the next Create call.
	FailCreate error
}

func NewMemory() *Memory {
	return &Memory{
		posts:     make(map[string]*post.Post),
		reactions: make(map[reactionKey]struct{}),
	}
}

// Put stores p as is, bypassing the lifecycle. Useful for seeding.
func (m *Memory) Put(p post.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = &p
}

func (m *Memory) Create(_ context.Context, p *post.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		err := m.FailCreate
		m.FailCreate = nil
		return err
	}

	if _, ok := m.posts[p.ID]; ok {
		return core.ErrDuplicateKey
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) Review(
	_ context.Context,
	id string,
	decision post.Status,
	reviewerID string,
	at time.Time,
) (*post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("review post: %w", core.ErrNotFound)
	}
	if p.Status != post.StatusPending {
		return nil, fmt.Errorf("review post: %w", post.ErrAlreadyReviewed)
	}

	reviewer := reviewerID
	p.Status = decision
	p.ReviewedAt = &at
	p.ReviewerID = &reviewer

	cp := *p
	return &cp, nil
}

func (m *Memory) React(
	_ context.Context,
	postID, userID string,
	kind post.ReactionKind,
) (*post.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[postID]
	if !ok {
		return nil, fmt.Errorf("react: %w", core.ErrNotFound)
	}
	if p.Status != post.StatusApproved {
		return nil, fmt.Errorf("react: %w", post.ErrNotVisible)
	}

	k := reactionKey{postID: postID, userID: userID, kind: kind}
	_, seen := m.reactions[k]
	if !seen {
		m.reactions[k] = struct{}{}
		switch kind {
		case post.ReactionResonate:
			p.ResonateCount++
		case post.ReactionCherish:
			p.CherishCount++
		}
	}

	return &post.Counts{
		Resonate: p.ResonateCount,
		Cherish:  p.CherishCount,
		Applied:  !seen,
	}, nil
}

func (m *Memory) ListPending(_ context.Context, limit, offset int) ([]post.Post, error) {
	out := m.filter(func(p *post.Post) bool { return p.Status == post.StatusPending })
	slices.SortFunc(out, func(a, b post.Post) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return page(out, limit, offset), nil
}

func (m *Memory) ListApproved(_ context.Context, q post.ApprovedQuery) ([]post.Post, error) {
	out := m.filter(func(p *post.Post) bool {
		return p.Status == post.StatusApproved &&
			p.AuthorID != q.ExcludeAuthor &&
			p.ReviewedAt != nil &&
			!p.ReviewedAt.After(q.Cutoff)
	})
	sortByReviewDesc(out)
	return page(out, q.Limit, q.Offset), nil
}

func (m *Memory) ListByAuthor(
	_ context.Context,
	authorID string,
	limit, offset int,
) ([]post.Post, error) {
	out := m.filter(func(p *post.Post) bool {
		return p.AuthorID == authorID && p.Status != post.StatusRejected
	})
	slices.SortFunc(out, func(a, b post.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return page(out, limit, offset), nil
}

func (m *Memory) ListReviewed(
	_ context.Context,
	status post.Status,
	limit, offset int,
) ([]post.Post, error) {
	out := m.filter(func(p *post.Post) bool { return p.Status == status })
	sortByReviewDesc(out)
	return page(out, limit, offset), nil
}

func (m *Memory) CountByStatus(_ context.Context) (post.StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var c post.StatusCounts
	for _, p := range m.posts {
		switch p.Status {
		case post.StatusPending:
			c.Pending++
		case post.StatusApproved:
			c.Approved++
		case post.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (m *Memory) filter(keep func(*post.Post) bool) []post.Post {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []post.Post{}
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

func sortByReviewDesc(posts []post.Post) {
	slices.SortFunc(posts, func(a, b post.Post) int {
		if c := b.ReviewedAt.Compare(*a.ReviewedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func page(posts []post.Post, limit, offset int) []post.Post {
	if offset >= len(posts) {
		return []post.Post{}
	}
	end := min(offset+limit, len(posts))
	return posts[offset:end]
}
