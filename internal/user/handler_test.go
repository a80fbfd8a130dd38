// AngelaMos | 2026
// handler_test.go

package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notbyai-space/curation-api/internal/config"
	"github.com/notbyai-space/curation-api/internal/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// headerIdentity stands in for token verification: the subject comes
// straight from X-Test-Subject. Subjects starting with "anon-" carry no
// email claim.
func headerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := r.Header.Get("X-Test-Subject")
		email := sub + "@example.com"
		if strings.HasPrefix(sub, "anon-") {
			email = ""
		}
		ctx := middleware.WithIdentity(r.Context(), sub, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()

	svc, _ := newTestService(t)
	h := NewHandler(svc)

	r := chi.NewRouter()
	h.RegisterRoutes(r, headerIdentity, middleware.ResolveUser(svc))
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, subject, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-Subject", subject)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHandler_SyncCreatedThenOK(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := do(t, r, http.MethodPost, "/auth/sync", "sub-a", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body SyncResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.True(t, body.Created)
	assert.Equal(t, "new_user", body.User.Role)
	assert.Equal(t, "none", body.Invite)

	rec, env = do(t, r, http.MethodPost, "/auth/sync", "sub-a", `{"invite_code":"whatever"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.False(t, body.Created)
	assert.Equal(t, "ignored", body.Invite)
}

func TestHandler_SyncWithoutEmail(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := do(t, r, http.MethodPost, "/auth/sync", "anon-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestHandler_MeRequiresSync(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := do(t, r, http.MethodGet, "/me", "sub-ghost", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "USER_NOT_SYNCED", env.Error.Code)

	do(t, r, http.MethodPost, "/auth/sync", "sub-ghost", "")

	rec, _ = do(t, r, http.MethodGet, "/me", "sub-ghost", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ModeratorRoutes(t *testing.T) {
	r, svc := newTestRouter(t)
	ctx := t.Context()

	code := "bootstrap-mod"
	require.NoError(t, svc.SeedInvites(ctx, []config.BootstrapCode{
		{Code: code, Role: "moderator"},
	}))

	do(t, r, http.MethodPost, "/auth/sync", "sub-mod", `{"invite_code":"`+code+`"}`)
	_, env := do(t, r, http.MethodPost, "/auth/sync", "sub-plain", "")

	var plain SyncResponse
	require.NoError(t, json.Unmarshal(env.Data, &plain))

	rec, env := do(t, r, http.MethodPost, "/invites", "sub-plain", `{"role":"seed_user"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, env = do(t, r, http.MethodPost, "/invites", "sub-mod", `{"role":"seed_user"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv InviteResponse
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.NotEmpty(t, inv.Code)

	rec, _ = do(t, r, http.MethodPost, "/invites", "sub-mod", `{"role":"new_user"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, r, http.MethodPut, "/users/"+plain.User.ID+"/role", "sub-mod", `{"role":"seed_user"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, r, http.MethodPut, "/users/not-a-uuid/role", "sub-mod", `{"role":"seed_user"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, http.MethodDelete, "/users/"+plain.User.ID, "sub-mod", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = do(t, r, http.MethodGet, "/me", "sub-plain", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}
