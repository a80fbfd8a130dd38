// AngelaMos | 2026
// service_test.go

package moderation_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/feed"
	"github.com/notbyai-space/curation-api/internal/moderation"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/post/posttest"
	"github.com/notbyai-space/curation-api/internal/quota"
	"github.com/notbyai-space/curation-api/internal/user"
)

type directory struct {
	count  int
	emails map[string]string
}

func (d *directory) CountUsers(context.Context) (int, error) { return d.count, nil }

func (d *directory) EmailsByID(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if email, ok := d.emails[id]; ok {
			out[id] = email
		}
	}
	return out, nil
}

type stack struct {
	posts      *post.Service
	feed       *feed.Service
	moderation *moderation.Service
	repo       *posttest.Memory
	users      *directory
	now        time.Time
}

// tick moves the clock forward so consecutive posts get distinct
// creation and review times.
func (s *stack) tick() {
	s.now = s.now.Add(time.Second)
}

func newStack(t *testing.T) *stack {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	enforcer, err := quota.New(quota.BackendRedis, 3, nil, rdb)
	require.NoError(t, err)

	s := &stack{
		repo:  posttest.NewMemory(),
		users: &directory{count: 3, emails: make(map[string]string)},
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	cal := &core.Calendar{Location: time.UTC, Now: func() time.Time { return s.now }}

	s.posts = post.NewService(post.ServiceConfig{
		Repo:      s.repo,
		Quota:     enforcer,
		Calendar:  cal,
		MaxLength: 1000,
	})
	s.feed = feed.NewService(s.repo, cal)
	s.moderation = moderation.NewService(s.repo, s.posts, s.users, cal)
	return s
}

func actor(role user.Role) user.Actor {
	return user.Actor{ID: uuid.NewString(), Role: role}
}

func TestScenario_SubmitReviewFeedReact(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	a := actor(user.RoleNewUser)
	b := actor(user.RoleNewUser)
	mod := actor(user.RoleModerator)

	var submitted []*post.Post
	for _, text := range []string{"first", "second", "third"} {
		p, err := s.posts.Submit(ctx, a, text, post.TagHuman2Human)
		require.NoError(t, err)
		assert.Equal(t, post.StatusPending, p.Status)
		submitted = append(submitted, p)
		s.tick()
	}

	_, err := s.posts.Submit(ctx, a, "fourth", post.TagHuman2Human)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)

	_, err = s.moderation.Review(ctx, mod, submitted[0].ID, post.StatusApproved)
	require.NoError(t, err)
	s.tick()
	_, err = s.moderation.Review(ctx, mod, submitted[1].ID, post.StatusRejected)
	require.NoError(t, err)
	s.tick()

	page, err := s.feed.GetFeed(ctx, b, feed.Query{Limit: 50})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, submitted[0].ID, page.Posts[0].ID)

	own, err := s.feed.GetFeed(ctx, a, feed.Query{Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, own.Posts)

	for range 2 {
		_, err = s.posts.React(ctx, b, submitted[0].ID, post.ReactionResonate)
		require.NoError(t, err)
	}

	got, err := s.posts.Get(ctx, b, submitted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ResonateCount)
	assert.Zero(t, got.CherishCount)

	pending, err := s.moderation.ListPending(ctx, mod, 50, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted[2].ID, pending[0].ID)
}

func TestListPending_OldestFirstAfterApproval(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	seed := actor(user.RoleSeedUser)

	var order []string
	for range 3 {
		author := actor(user.RoleNewUser)
		p, err := s.posts.Submit(ctx, author, "queued", post.TagWitSpark)
		require.NoError(t, err)
		order = append(order, p.ID)
		s.tick()
	}

	queue, err := s.moderation.ListPending(ctx, seed, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, order, pendingIDs(queue))

	_, err = s.moderation.Review(ctx, seed, order[0], post.StatusApproved)
	require.NoError(t, err)

	queue, err = s.moderation.ListPending(ctx, seed, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, order[1:], pendingIDs(queue))
}

func TestListPending_CarriesAuthorEmail(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	mod := actor(user.RoleModerator)

	known := actor(user.RoleNewUser)
	s.users.emails[known.ID] = "known@example.com"
	_, err := s.posts.Submit(ctx, known, "with email", post.TagHuman2Human)
	require.NoError(t, err)
	s.tick()

	_, err = s.posts.Submit(ctx, actor(user.RoleNewUser), "author gone", post.TagHuman2Human)
	require.NoError(t, err)

	queue, err := s.moderation.ListPending(ctx, mod, 50, 0)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "known@example.com", queue[0].AuthorEmail)
	assert.Equal(t, known.ID, queue[0].AuthorID)
	assert.Empty(t, queue[1].AuthorEmail)
}

func TestModeration_ForbiddenForNewUsers(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	newbie := actor(user.RoleNewUser)

	_, err := s.moderation.ListPending(ctx, newbie, 50, 0)
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = s.moderation.History(ctx, newbie, post.StatusRejected, 50, 0)
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = s.moderation.Stats(ctx, newbie)
	require.ErrorIs(t, err, core.ErrForbidden)

	p, err := s.posts.Submit(ctx, newbie, "mine", post.TagWitSpark)
	require.NoError(t, err)

	_, err = s.moderation.Review(ctx, newbie, p.ID, post.StatusApproved)
	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestHistoryAndStats(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	mod := actor(user.RoleModerator)

	var ids []string
	for range 3 {
		p, err := s.posts.Submit(ctx, actor(user.RoleNewUser), "x", post.TagWitSpark)
		require.NoError(t, err)
		ids = append(ids, p.ID)
		s.tick()
	}

	_, err := s.moderation.Review(ctx, mod, ids[0], post.StatusRejected)
	require.NoError(t, err)
	s.tick()
	_, err = s.moderation.Review(ctx, mod, ids[1], post.StatusRejected)
	require.NoError(t, err)

	rejected, err := s.moderation.History(ctx, mod, post.StatusRejected, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[0]}, postIDs(rejected))

	_, err = s.moderation.History(ctx, mod, post.StatusPending, 50, 0)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	s.now = s.now.Add(time.Hour)

	stats, err := s.moderation.Stats(ctx, mod)
	require.NoError(t, err)
	assert.Equal(t, post.StatusCounts{Pending: 1, Rejected: 2}, stats.Posts)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Greater(t, stats.OldestPendingAge, time.Hour)
}

func pendingIDs(queue []moderation.PendingPost) []string {
	out := make([]string, 0, len(queue))
	for _, p := range queue {
		out = append(out, p.ID)
	}
	return out
}

func postIDs(posts []post.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
