package accesshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vigil-ops/vigil/internal/access"
	"github.com/vigil-ops/vigil/internal/catalog"
	"github.com/vigil-ops/vigil/internal/directory"
	"github.com/vigil-ops/vigil/internal/platform/httpx"
	"github.com/vigil-ops/vigil/internal/shared"
)

type directoryService interface {
	GetUser(ctx context.Context, id access.UserID) (access.User, error)
	ListRoles(ctx context.Context) ([]access.Role, error)
}

type catalogService interface {
	ListGroups(ctx context.Context) ([]catalog.Group, error)
}

// Handler wires HTTP endpoints for the access-policy editor.
type Handler struct {
	logger    *slog.Logger
	editor    *access.Editor
	directory directoryService
	catalog   catalogService
	validator *validator.Validate
}

// NewHandler constructs an access HTTP handler.
func NewHandler(logger *slog.Logger, editor *access.Editor, dir directoryService, cat catalogService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		editor:    editor,
		directory: dir,
		catalog:   cat,
		validator: validator.New(),
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/policy", h.getPolicy)
	r.Post("/matrix/toggle", h.toggleMatrix)
	r.Put("/overrides", h.setOverride)
	r.Post("/commit", h.commit)
	r.Post("/refresh", h.refresh)
	r.Get("/users/{id}/effective", h.effectivePermissions)
}

type toggleRequest struct {
	Role       string `json:"role" validate:"required"`
	Permission string `json:"permission" validate:"required"`
}

type overrideRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Permission string `json:"permission" validate:"required"`
	// Value forces allow (true) or deny (false); null clears the override
	// so the role default applies again.
	Value *bool `json:"value"`
}

type effectiveEntry struct {
	Permission string `json:"permission"`
	Label      string `json:"label"`
	Group      string `json:"group"`
	Allowed    bool   `json:"allowed"`
	Source     string `json:"source"`
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	roles, err := h.directory.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("policy roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	view := access.NewPolicyView(h.editor.Draft(), h.editor.Saving())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"matrix":     view.Matrix,
		"overrides":  view.Overrides,
		"saving":     view.Saving,
		"roles":      roles,
		"super_role": access.RoleAdmin,
	})
}

func (h *Handler) toggleMatrix(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	// Super-role rows are locked: the editor treats the toggle as a no-op
	// rather than an error, matching the locked rendering on the screen.
	draft := h.editor.Toggle(r.Context(), shared.ActorFromContext(r.Context()),
		access.Role(req.Role), access.PermissionID(req.Permission))
	httpx.JSON(w, http.StatusOK, access.NewPolicyView(draft, h.editor.Saving()))
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	draft := h.editor.SetOverride(r.Context(), shared.ActorFromContext(r.Context()),
		access.UserID(req.UserID), access.PermissionID(req.Permission), req.Value)
	httpx.JSON(w, http.StatusOK, access.NewPolicyView(draft, h.editor.Saving()))
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	err := h.editor.Commit(r.Context(), shared.ActorFromContext(r.Context()))
	switch {
	case err == nil:
		httpx.NoContent(w)
	case errors.Is(err, access.ErrCommitInFlight):
		httpx.Problem(w, http.StatusConflict, "Commit In Flight", "a save is already running; retry when it finishes")
	default:
		h.logger.Error("commit policy", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Persistence Failure", "saving the policy failed; your draft is kept, retry the save")
	}
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Refresh(r.Context(), shared.ActorFromContext(r.Context())); err != nil {
		h.logger.Error("refresh policy", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Load Failure", "reloading the committed policy failed")
		return
	}
	httpx.JSON(w, http.StatusOK, access.NewPolicyView(h.editor.Draft(), h.editor.Saving()))
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	id := access.UserID(chi.URLParam(r, "id"))

	var user *access.User
	found, err := h.directory.GetUser(r.Context(), id)
	switch {
	case err == nil:
		user = &found
	case errors.Is(err, directory.ErrNotFound):
		// Unknown users resolve fail-closed rather than erroring.
	default:
		h.logger.Error("effective permissions user lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	groups, err := h.catalog.ListGroups(r.Context())
	if err != nil {
		h.logger.Error("effective permissions catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	draft := h.editor.Draft()
	var entries []effectiveEntry
	for _, group := range groups {
		for _, entry := range group.Entries {
			decision := access.Resolve(user, entry.ID, draft.Matrix, draft.Overrides)
			entries = append(entries, effectiveEntry{
				Permission: string(entry.ID),
				Label:      entry.Label,
				Group:      group.Label,
				Allowed:    decision.Allowed,
				Source:     string(decision.Source),
			})
		}
	}

	payload := map[string]any{"entries": entries, "known": user != nil}
	if user != nil {
		payload["user_id"] = string(user.ID)
		payload["role"] = string(user.Role)
	}
	httpx.JSON(w, http.StatusOK, payload)
}
