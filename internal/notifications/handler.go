package notifications

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves /api/dashboard/notifications.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /api/dashboard/notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profileID, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	q := r.URL.Query()
	filter := Filter{}
	if t, ok := ParseType(q.Get("type")); ok {
		filter.Type = t
	}
	if raw := q.Get("is_read"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.IsRead = &v
		}
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}

	items, err := h.repo.List(r.Context(), profileID, filter)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "profile_id", profileID)
		respond.Fail(w, http.StatusInternalServerError, "Failed to load notifications")
		return
	}
	unread, err := h.repo.UnreadCount(r.Context(), profileID)
	if err != nil {
		h.logger.Error("failed to count notifications", "error", err, "profile_id", profileID)
		respond.Fail(w, http.StatusInternalServerError, "Failed to load notifications")
		return
	}
	respond.OK(w, http.StatusOK, Page{Notifications: items, UnreadCount: unread})
}

// Counts handles GET /api/dashboard/notifications/counts.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	profileID, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	counts, err := h.repo.UnreadCountsByType(r.Context(), profileID)
	if err != nil {
		h.logger.Error("failed to load notification counts", "error", err, "profile_id", profileID)
		respond.Fail(w, http.StatusInternalServerError, "Failed to load counts")
		return
	}
	respond.OK(w, http.StatusOK, counts)
}

// MarkRead handles POST /api/dashboard/notifications/{notificationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	profileID, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	err := h.repo.MarkRead(r.Context(), profileID, chi.URLParam(r, "notificationID"))
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Fail(w, http.StatusNotFound, "Notification not found")
	case err != nil:
		h.logger.Error("failed to mark notification read", "error", err)
		respond.Fail(w, http.StatusInternalServerError, "Failed to update notification")
	default:
		respond.OK(w, http.StatusOK, nil)
	}
}

// MarkAllRead handles POST /api/dashboard/notifications/read-all?type=.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	profileID, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	typ, _ := ParseType(r.URL.Query().Get("type"))
	n, err := h.repo.MarkAllRead(r.Context(), profileID, typ)
	if err != nil {
		h.logger.Error("failed to mark notifications read", "error", err)
		respond.Fail(w, http.StatusInternalServerError, "Failed to update notifications")
		return
	}
	respond.OK(w, http.StatusOK, map[string]int64{"updated": n})
}
