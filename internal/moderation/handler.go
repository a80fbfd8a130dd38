// AngelaMos | 2026
// handler.go

package moderation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/middleware"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/user"
)

type Handler struct {
	service      *Service
	probe        SystemProbe
	validator    *validator.Validate
	defaultLimit int
	maxLimit     int
}

func NewHandler(
	service *Service,
	probe SystemProbe,
	defaultLimit, maxLimit int,
) *Handler {
	return &Handler{
		service:      service,
		probe:        probe,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, resolveUser func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(resolveUser)
		r.Use(middleware.RequireRole(user.ReviewerRoles()...))

		r.Get("/posts/pending", h.ListPending)
		r.Put("/posts/{postID}/review", h.Review)
		r.Get("/moderation/history", h.History)
		r.Get("/moderation/stats", h.Stats)

		r.With(middleware.RequireRole(string(user.RoleModerator))).
			Get("/moderation/system", h.System)
	})
}

type ReviewedPostResponse struct {
	post.PostResponse
	ReviewerID *string `json:"reviewer_id,omitempty"`
}

type PendingPostResponse struct {
	post.PostResponse
	AuthorEmail string `json:"author_email,omitempty"`
}

type StatsResponse struct {
	Pending          int     `json:"pending_count"`
	Approved         int     `json:"approved_count"`
	Rejected         int     `json:"rejected_count"`
	TotalUsers       int     `json:"total_users"`
	OldestPendingAge float64 `json:"oldest_pending_age_seconds"`
}

func toPending(posts []PendingPost) []PendingPostResponse {
	out := make([]PendingPostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, PendingPostResponse{
			PostResponse: post.ToPostResponse(&posts[i].Post),
			AuthorEmail:  posts[i].AuthorEmail,
		})
	}
	return out
}

func toReviewed(posts []post.Post) []ReviewedPostResponse {
	out := make([]ReviewedPostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, ReviewedPostResponse{
			PostResponse: post.ToPostResponse(&posts[i]),
			ReviewerID:   posts[i].ReviewerID,
		})
	}
	return out
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		post.WriteError(w, err)
		return
	}

	limit, offset, err := core.ParsePagination(r, h.defaultLimit, h.maxLimit)
	if err != nil {
		post.WriteError(w, err)
		return
	}

	posts, err := h.service.ListPending(r.Context(), actor, limit, offset)
	if err != nil {
		post.WriteError(w, err)
		return
	}

	core.Page(w, toPending(posts), limit, offset, len(posts))
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		post.WriteError(w, err)
		return
	}

	postID, ok := post.PostIDParam(w, r)
	if !ok {
		return
	}

	var req post.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.Review(r.Context(), actor, postID, post.Status(req.Decision))
	if err != nil {
		post.WriteError(w, err)
		return
	}

	core.OK(w, toReviewed([]post.Post{*p})[0])
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		post.WriteError(w, err)
		return
	}

	limit, offset, err := core.ParsePagination(r, h.defaultLimit, h.maxLimit)
	if err != nil {
		post.WriteError(w, err)
		return
	}

	status := post.StatusApproved
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err = post.ParseDecision(raw)
		if err != nil {
			post.WriteError(w, err)
			return
		}
	}

	posts, err := h.service.History(r.Context(), actor, status, limit, offset)
	if err != nil {
		post.WriteError(w, err)
		return
	}

	core.Page(w, toReviewed(posts), limit, offset, len(posts))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		post.WriteError(w, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		post.WriteError(w, err)
		return
	}

	core.OK(w, StatsResponse{
		Pending:          stats.Posts.Pending,
		Approved:         stats.Posts.Approved,
		Rejected:         stats.Posts.Rejected,
		TotalUsers:       stats.TotalUsers,
		OldestPendingAge: stats.OldestPendingAge.Round(time.Second).Seconds(),
	})
}

func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.probe.Collect(r.Context()))
}
