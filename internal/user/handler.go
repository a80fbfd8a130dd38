// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/notbyai-space/curation-api/internal/core"
	"github.com/notbyai-space/curation-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the directory endpoints. Sync only needs a
// verified token; everything else needs a synced caller.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, resolveUser func(http.Handler) http.Handler,
) {
	r.With(authenticator).Post("/auth/sync", h.Sync)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(resolveUser)

		r.Get("/me", h.GetMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(RoleModerator)))

			r.Post("/invites", h.MintInvite)
			r.Put("/users/{userID}/role", h.UpdateRole)
			r.Delete("/users/{userID}", h.Deactivate)
		})
	})
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	identity := Identity{
		Subject: middleware.GetSubject(r.Context()),
		Email:   middleware.GetEmail(r.Context()),
	}

	res, err := h.service.Sync(r.Context(), identity, req.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	body := SyncResponse{
		User:    ToUserResponse(res.User),
		Created: res.Created,
		Invite:  string(res.Invite),
	}

	if res.Created {
		core.Created(w, body)
		return
	}
	core.OK(w, body)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetMe(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) MintInvite(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req MintInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	code, invite, err := h.service.MintInvite(r.Context(), actor, Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, InviteResponse{
		Code:      code,
		Role:      string(invite.Role),
		CreatedAt: invite.CreatedAt,
	})
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	userID := chi.URLParam(r, "userID")
	if uuid.Validate(userID) != nil {
		core.NotFound(w, "user")
		return
	}

	u, err := h.service.UpdateRole(r.Context(), actor, userID, Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if uuid.Validate(userID) != nil {
		core.NotFound(w, "user")
		return
	}

	if err := h.service.Deactivate(r.Context(), actor, userID); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, ErrDeactivated):
		core.Forbidden(w, "account deactivated")
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
