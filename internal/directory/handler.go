package directory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vigil-ops/vigil/internal/access"
	"github.com/vigil-ops/vigil/internal/platform/httpx"
)

// Handler exposes directory lookups as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.searchUsers)
	r.Get("/roles", h.listRoles)
}

type userView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	BadgeNo   string `json:"badge_no,omitempty"`
	AvatarKey string `json:"avatar_key,omitempty"`
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("search users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": views})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles, "super_role": access.RoleAdmin})
}

func newUserView(u access.User) userView {
	return userView{
		ID:        string(u.ID),
		Name:      u.Name,
		Role:      string(u.Role),
		BadgeNo:   u.BadgeNo,
		AvatarKey: u.AvatarKey,
	}
}
