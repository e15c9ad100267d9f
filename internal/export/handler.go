package export

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves the customer list and CSV downloads.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates an export handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CustomerList handles GET /api/admin/customers.
func (h *Handler) CustomerList(w http.ResponseWriter, r *http.Request) {
	actor, ok := tenancy.ActorFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	q := r.URL.Query()
	f := CustomerFilter{
		SortBy:    SortField(q.Get("sortBy")),
		SortOrder: q.Get("sortOrder"),
		Search:    q.Get("search"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if tier := q.Get("tier"); tier != "" && tier != "all" {
		f.Tier = plans.ParseTier(tier)
	}

	page, err := h.svc.CustomerList(r.Context(), actor, f)
	if err != nil {
		h.writeError(w, err, "Failed to fetch customers")
		return
	}
	respond.OK(w, http.StatusOK, page)
}

// AdminExport handles GET /api/admin/export/{kind}.
func (h *Handler) AdminExport(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respond.Fail(w, http.StatusNotFound, "Unknown export")
		return
	}
	h.download(w, r, kind)
}

// InquiryExport handles GET /api/dashboard/export/inquiries.csv.
func (h *Handler) InquiryExport(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, KindInquiries)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, kind Kind) {
	actor, ok := tenancy.ActorFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	file, err := h.svc.ExportCSV(r.Context(), actor, kind)
	if err != nil {
		h.writeError(w, err, "Failed to export data")
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		h.logger.Warn("failed to write csv export", "error", err, "kind", kind)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Fail(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, ErrUnknownKind):
		respond.Fail(w, http.StatusNotFound, "Unknown export")
	default:
		h.logger.Error("export request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, fallback)
	}
}
