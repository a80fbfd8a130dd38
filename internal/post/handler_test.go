// AngelaMos | 2026
// handler_test.go

package post_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notbyai-space/curation-api/internal/middleware"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func passthrough(next http.Handler) http.Handler { return next }

// asUser injects the resolved caller from test headers.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithUser(r.Context(), r.Header.Get("X-User"), r.Header.Get("X-Role"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newHandlerRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()

	f := newFixture(t)
	r := chi.NewRouter()
	post.NewHandler(f.svc, 50, 100).RegisterRoutes(r, passthrough, asUser)
	return r, f
}

func call(
	t *testing.T,
	h http.Handler,
	method, path string,
	actor user.Actor,
	body string,
) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User", actor.ID)
	req.Header.Set("X-Role", string(actor.Role))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestHandler_SubmitErrors(t *testing.T) {
	r, _ := newHandlerRouter(t)
	author := newActor(user.RoleNewUser)

	for _, body := range []string{
		`{"content":"","tag":"WitSpark"}`,
		`{"content":"   ","tag":"WitSpark"}`,
		`{"content":"x"}`,
		`{"content":"x","tag":""}`,
		`{"content":"x","tag":"Nope"}`,
	} {
		code, env := call(t, r, http.MethodPost, "/posts", author, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "INVALID_CONTENT", env.Error.Code, body)
	}

	code, env := call(t, r, http.MethodPost, "/posts", author, `{"content":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	for range 3 {
		code, _ = call(t, r, http.MethodPost, "/posts", author, `{"content":"ok","tag":"WitSpark"}`)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env = call(t, r, http.MethodPost, "/posts", author, `{"content":"ok","tag":"WitSpark"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "QUOTA_EXCEEDED", env.Error.Code)
}

func TestHandler_ReactAndGet(t *testing.T) {
	r, f := newHandlerRouter(t)
	author := newActor(user.RoleNewUser)
	reader := newActor(user.RoleNewUser)

	code, env := call(t, r, http.MethodPost, "/posts", author, `{"content":"hello","tag":"HeartLed"}`)
	require.Equal(t, http.StatusCreated, code)

	var created post.PostResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env = call(t, r, http.MethodPost, "/posts/"+created.ID+"/resonate", reader, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_VISIBLE", env.Error.Code)

	code, _ = call(t, r, http.MethodGet, "/posts/"+created.ID, reader, "")
	assert.Equal(t, http.StatusNotFound, code)

	_, err := f.svc.Review(t.Context(), newActor(user.RoleModerator), created.ID, post.StatusApproved)
	require.NoError(t, err)

	for _, applied := range []bool{true, false} {
		code, env = call(t, r, http.MethodPost, "/posts/"+created.ID+"/resonate", reader, "")
		require.Equal(t, http.StatusOK, code)

		var counts post.ReactionResponse
		require.NoError(t, json.Unmarshal(env.Data, &counts))
		assert.Equal(t, applied, counts.Applied)
		assert.Equal(t, 1, counts.ResonateCount)
	}

	code, _ = call(t, r, http.MethodGet, "/posts/not-a-uuid", reader, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = call(t, r, http.MethodGet, "/posts/mine", author, "")
	require.Equal(t, http.StatusOK, code)

	var mine post.MyPostsResponse
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine.Posts, 1)
	assert.Equal(t, 2, mine.Remaining)
	assert.Equal(t, 3, mine.DailyLimit)
}
