// AngelaMos | 2026
// handler.go

package feed

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/post"
	"github.com/notbyai-space/curation-api/internal/user"
)

type Handler struct {
	service      *Service
	calendar     *core.Calendar
	defaultLimit int
	maxLimit     int
}

func NewHandler(
	service *Service,
	calendar *core.Calendar,
	defaultLimit, maxLimit int,
) *Handler {
	return &Handler{
		service:      service,
		calendar:     calendar,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, resolveUser func(http.Handler) http.Handler,
) {
	r.With(authenticator, resolveUser).Get("/feed", h.GetFeed)
}

type Response struct {
	Day   string              `json:"day"`
	AsOf  time.Time           `json:"as_of"`
	Posts []post.PostResponse `json:"posts"`
}

func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	actor, err := user.ActorFromContext(r.Context())
	if err != nil {
		core.Unauthorized(w, "authentication required")
		return
	}

	q, err := h.parseQuery(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	page, err := h.service.GetFeed(r.Context(), actor, q)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Page(w, Response{
		Day:   string(page.Day),
		AsOf:  page.AsOf,
		Posts: post.ToPostResponseList(page.Posts),
	}, page.Limit, page.Offset, len(page.Posts))
}

func (h *Handler) parseQuery(r *http.Request) (Query, error) {
	limit, offset, err := core.ParsePagination(r, h.defaultLimit, h.maxLimit)
	if err != nil {
		return Query{}, err
	}

	q := Query{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("day"); raw != "" {
		day, err := h.calendar.ParseDay(raw)
		if err != nil {
			return Query{}, err
		}
		q.Day = day
	}

	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Query{}, errors.New("as_of must be an RFC 3339 timestamp")
		}
		q.AsOf = &asOf
	}

	return q, nil
}
