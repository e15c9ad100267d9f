package inquiries

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves the public contact form and the dashboard inbox.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates an inquiries handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Submit handles POST /api/listings/{listingID}/inquiries.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ListingID = chi.URLParam(r, "listingID")
	req.RemoteIP = clientIP(r)

	if err := h.svc.Submit(r.Context(), req); err != nil {
		h.writeError(w, err, "Failed to submit inquiry. Please try again.")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// List handles GET /api/dashboard/inquiries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	q := r.URL.Query()
	var filter Filter
	if raw := q.Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			respond.Invalid(w, inputval.Field("status", "Unknown status"))
			return
		}
		filter.Status = status
	}
	for _, id := range strings.Split(q.Get("locations"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			filter.LocationIDs = append(filter.LocationIDs, id)
		}
	}

	page, err := h.svc.List(r.Context(), pid, filter)
	if err != nil {
		h.writeError(w, err, "Failed to fetch inquiries")
		return
	}
	respond.OK(w, http.StatusOK, page)
}

// Get handles GET /api/dashboard/inquiries/{inquiryID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	pid, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	in, err := h.svc.Get(r.Context(), pid, chi.URLParam(r, "inquiryID"))
	if err != nil {
		h.writeError(w, err, "Failed to fetch inquiry")
		return
	}
	respond.OK(w, http.StatusOK, in)
}

// UnreadCount handles GET /api/dashboard/inquiries/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	pid, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.OK(w, http.StatusOK, 0)
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "Failed to count inquiries")
		return
	}
	respond.OK(w, http.StatusOK, n)
}

// MarkRead handles POST /api/dashboard/inquiries/{inquiryID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.MarkRead, "Failed to update inquiry")
}

// MarkReplied handles POST /api/dashboard/inquiries/{inquiryID}/replied.
func (h *Handler) MarkReplied(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.MarkReplied, "Failed to update inquiry")
}

// Archive handles POST /api/dashboard/inquiries/{inquiryID}/archive.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Archive, "Failed to archive inquiry")
}

type transitionFunc func(ctx context.Context, profileID, id string) (*Inquiry, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, fallback string) {
	pid, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	in, err := fn(r.Context(), pid, chi.URLParam(r, "inquiryID"))
	if err != nil {
		h.writeError(w, err, fallback)
		return
	}
	respond.OK(w, http.StatusOK, in)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	for sentinel, message := range userMessages {
		if errors.Is(err, sentinel) {
			respond.Fail(w, statusFor(sentinel), message)
			return
		}
	}
	if errors.Is(err, inputval.ErrInvalid) {
		respond.Invalid(w, err)
		return
	}
	h.logger.Error("inquiries request failed", "error", err)
	respond.Fail(w, http.StatusInternalServerError, fallback)
}

func statusFor(sentinel error) int {
	switch sentinel {
	case ErrNotFound, ErrListingUnavailable, ErrNoListing:
		return http.StatusNotFound
	case ErrNotAccepting:
		return http.StatusForbidden
	case ErrInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
