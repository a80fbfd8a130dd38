// AngelaMos | 2026
// handler.go

package post

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/quota"
	"github.com/notbyai-space/curation-api/internal/user"
)

type Handler struct {
	service      *Service
	defaultLimit int
	maxLimit     int
}

func NewHandler(service *Service, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		service:      service,
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

		r.Post("/posts", h.Submit)
		r.Get("/posts/mine", h.ListMine)
		r.Get("/posts/{postID}", h.Get)
		r.Post("/posts/{postID}/resonate", h.react(ReactionResonate))
		r.Post("/posts/{postID}/cherish", h.react(ReactionCherish))
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	p, err := h.service.Submit(r.Context(), actor, req.Content, Tag(req.Tag))
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Created(w, ToPostResponse(p))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	postID, ok := PostIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), actor, postID)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToPostResponse(p))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	limit, offset, err := core.ParsePagination(r, h.defaultLimit, h.maxLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	mine, err := h.service.ListMine(r.Context(), actor, limit, offset)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Page(w, MyPostsResponse{
		Posts:      ToPostResponseList(mine.Posts),
		Day:        string(mine.Day),
		DailyLimit: mine.DailyLimit,
		Remaining:  mine.Remaining,
	}, limit, offset, len(mine.Posts))
}

func (h *Handler) react(kind ReactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := user.ActorFromContext(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}

		postID, ok := PostIDParam(w, r)
		if !ok {
			return
		}

		counts, err := h.service.React(r.Context(), actor, postID, kind)
		if err != nil {
			WriteError(w, err)
			return
		}

		core.OK(w, ReactionResponse{
			PostID:        postID,
			Kind:          string(kind),
			ResonateCount: counts.Resonate,
			CherishCount:  counts.Cherish,
			Applied:       counts.Applied,
		})
	}
}

// PostIDParam reads {postID}. Anything that is not a UUID cannot name a
// post, so it is answered with 404 before touching the database.
func PostIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	postID := chi.URLParam(r, "postID")
	if uuid.Validate(postID) != nil {
		core.NotFound(w, "post")
		return "", false
	}
	return postID, true
}

// WriteError maps post lifecycle errors onto their stable response codes.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidContent):
		core.JSONError(w, core.NewAppError(
			err, err.Error(), http.StatusBadRequest, "INVALID_CONTENT",
		))
	case errors.Is(err, quota.ErrQuotaExceeded):
		core.JSONError(w, core.NewAppError(
			err, "daily post limit reached", http.StatusTooManyRequests, "QUOTA_EXCEEDED",
		))
	case errors.Is(err, ErrAlreadyReviewed):
		core.JSONError(w, core.NewAppError(
			err, "post has already been reviewed", http.StatusConflict, "ALREADY_REVIEWED",
		))
	case errors.Is(err, ErrNotVisible):
		core.JSONError(w, core.NewAppError(
			err, "post is not open for reactions", http.StatusConflict, "NOT_VISIBLE",
		))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "post")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "insufficient permissions")
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "authentication required")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
