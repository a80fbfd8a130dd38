// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notbyai-space/curation-api/internal/config"
	"github.com/notbyai-space/curation-api/internal/core"
)

type stubVerifier struct{}

func (stubVerifier) VerifyIdentityToken(_ context.Context, token string) (*IdentityClaims, error) {
	switch token {
	case "good":
		return &IdentityClaims{Subject: "auth0|alice", Email: "alice@example.com"}, nil
	case "expired":
		return nil, fmt.Errorf("verify: %w", core.ErrTokenExpired)
	default:
		return nil, fmt.Errorf("verify: %w", core.ErrTokenInvalid)
	}
}

type stubResolver map[string]error

func (s stubResolver) ResolveSubject(_ context.Context, subject string) (*ResolvedUser, error) {
	if err, ok := s[subject]; ok {
		return nil, err
	}
	return &ResolvedUser{ID: "user-" + subject, Role: "seed_user"}, nil
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "%s|%s|%s",
			GetSubject(r.Context()),
			GetUserID(r.Context()),
			GetUserRole(r.Context()),
		)
	})
}

func TestAuthenticator(t *testing.T) {
	h := Authenticator(stubVerifier{})(echoIdentity())

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"expired", "Bearer expired", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestResolveUser(t *testing.T) {
	resolver := stubResolver{
		"auth0|ghost":   fmt.Errorf("resolve: %w", core.ErrNotFound),
		"auth0|retired": fmt.Errorf("resolve: %w", core.ErrForbidden),
	}
	h := ResolveUser(resolver)(echoIdentity())

	call := func(subject string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if subject != "" {
			req = req.WithContext(WithIdentity(req.Context(), subject, ""))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := call("auth0|alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth0|alice|user-auth0|alice|seed_user", rec.Body.String())

	rec = call("auth0|ghost")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER_NOT_SYNCED")

	assert.Equal(t, http.StatusForbidden, call("auth0|retired").Code)
	assert.Equal(t, http.StatusUnauthorized, call("").Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("seed_user", "moderator")(echoIdentity())

	call := func(role string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			req = req.WithContext(WithUser(req.Context(), "u", role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("moderator"))
	assert.Equal(t, http.StatusOK, call("seed_user"))
	assert.Equal(t, http.StatusForbidden, call("new_user"))
	assert.Equal(t, http.StatusUnauthorized, call(""))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id with spaces", seen)
	assert.Len(t, seen, 36)
}

func TestCORS(t *testing.T) {
	h := CORS(config.CORSConfig{
		AllowedOrigins:   []string{"https://notbyai.example"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/feed", nil)
	req.Header.Set("Origin", "https://notbyai.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://notbyai.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(true)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	SecurityHeaders(false)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
