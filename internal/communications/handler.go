package communications

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/clients"
	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves the dashboard communications endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a communications handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func profileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
	}
	return id, ok
}

// Templates handles GET /api/dashboard/communications/templates.
func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	if _, ok := profileID(w, r); !ok {
		return
	}
	respond.OK(w, http.StatusOK, h.svc.Templates())
}

// Template handles GET /api/dashboard/communications/templates/{slug}.
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	if _, ok := profileID(w, r); !ok {
		return
	}
	tpl, err := h.svc.Template(chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err, "Failed to load template")
		return
	}
	respond.OK(w, http.StatusOK, tpl)
}

// Preview handles POST /api/dashboard/communications/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var req PreviewRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := h.svc.Preview(r.Context(), pid, req)
	if err != nil {
		h.writeError(w, err, "Failed to preview message")
		return
	}
	respond.OK(w, http.StatusOK, p)
}

// Send handles POST /api/dashboard/communications.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var req SendRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	m, err := h.svc.Send(r.Context(), pid, req)
	if err != nil {
		h.writeError(w, err, "Failed to send communication")
		return
	}
	respond.OK(w, http.StatusCreated, map[string]string{"communicationId": m.ID})
}

// List handles GET /api/dashboard/communications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := Filter{ClientID: q.Get("clientId"), TemplateSlug: q.Get("template")}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	var err error
	if f.From, err = parseDate(q.Get("from"), false); err != nil {
		respond.Invalid(w, inputval.Field("from", "Use a YYYY-MM-DD date"))
		return
	}
	if f.To, err = parseDate(q.Get("to"), true); err != nil {
		respond.Invalid(w, inputval.Field("to", "Use a YYYY-MM-DD date"))
		return
	}
	page, err := h.svc.List(r.Context(), pid, f)
	if err != nil {
		h.writeError(w, err, "Failed to load communications")
		return
	}
	respond.OK(w, http.StatusOK, page)
}

// ClientHistory handles GET /api/dashboard/clients/{clientID}/communications.
func (h *Handler) ClientHistory(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.ClientHistory(r.Context(), pid, chi.URLParam(r, "clientID"))
	if err != nil {
		h.writeError(w, err, "Failed to load communications")
		return
	}
	respond.OK(w, http.StatusOK, rows)
}

// parseDate accepts a calendar date or RFC 3339 time. A bare end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var denied *plans.DeniedError
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		respond.Fail(w, http.StatusNotFound, "Template not found")
	case errors.Is(err, clients.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, "Client not found")
	case errors.Is(err, ErrSendFailed):
		respond.Fail(w, http.StatusBadGateway, "Failed to send email")
	case errors.As(err, &denied):
		respond.Denied(w, denied)
	case errors.Is(err, inputval.ErrInvalid):
		respond.Invalid(w, err)
	default:
		h.logger.Error("communications request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, fallback)
	}
}
