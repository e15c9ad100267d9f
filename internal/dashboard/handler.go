package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves page shells and the caller's plan.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Page handles GET /api/dashboard/pages/{page}.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	actor, ok := tenancy.ActorFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	view, err := h.svc.Render(r.Context(), actor, PageName(chi.URLParam(r, "page")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, view)
}

// Plan handles GET /api/dashboard/plan.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	actor, ok := tenancy.ActorFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	res, err := h.svc.Plan(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownPage):
		respond.Fail(w, http.StatusNotFound, "Page not found")
	case errors.Is(err, plans.ErrProfileNotFound):
		respond.Fail(w, http.StatusNotFound, "Profile not found")
	default:
		h.logger.Error("dashboard request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, "Failed to load page")
	}
}
