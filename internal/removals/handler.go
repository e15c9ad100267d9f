package removals

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves the provider request form and the admin queue.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a removals handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func actor(w http.ResponseWriter, r *http.Request) (tenancy.Actor, bool) {
	a, ok := tenancy.ActorFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
	}
	return a, ok
}

// Create handles POST /api/dashboard/removal-requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		DirectoryListingID string `json:"googlePlacesListingId"`
		Reason             string `json:"reason"`
	}
	if err := respond.DecodeJSON(r, &body); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, err := h.svc.Create(r.Context(), a.ProfileID, body.DirectoryListingID, body.Reason)
	if err != nil {
		h.writeError(w, err, "Failed to submit removal request")
		return
	}
	respond.OK(w, http.StatusCreated, map[string]string{"id": id})
}

// Eligibility handles GET /api/dashboard/removal-requests/eligibility.
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Eligibility(r.Context(), a.ProfileID, r.URL.Query().Get("googlePlacesListingId"))
	if err != nil {
		h.writeError(w, err, "Failed to check removal status")
		return
	}
	respond.OK(w, http.StatusOK, e)
}

// List handles GET /api/admin/removal-requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var f Filter
	if raw := q.Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			respond.Invalid(w, inputval.Field("status", "Unknown status"))
			return
		}
		f.Status = status
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.svc.List(r.Context(), a, f)
	if err != nil {
		h.writeError(w, err, "Failed to fetch removal requests")
		return
	}
	respond.OK(w, http.StatusOK, page)
}

// Stats handles GET /api/admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(r.Context(), a)
	if err != nil {
		h.writeError(w, err, "Failed to load stats")
		return
	}
	respond.OK(w, http.StatusOK, stats)
}

// Approve handles POST /api/admin/removal-requests/{requestID}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Approve, "Failed to approve request")
}

// Deny handles POST /api/admin/removal-requests/{requestID}/deny.
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Deny, "Failed to deny request")
}

type decideFunc func(ctx context.Context, a tenancy.Actor, id, notes string) (*Request, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc, fallback string) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		AdminNotes string `json:"adminNotes"`
	}
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &body); err != nil {
			respond.Fail(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	req, err := fn(r.Context(), a, chi.URLParam(r, "requestID"), body.AdminNotes)
	if err != nil {
		h.writeError(w, err, fallback)
		return
	}
	respond.OK(w, http.StatusOK, req)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Fail(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, ErrNoPublishedListing):
		respond.Fail(w, http.StatusBadRequest, "You must have a published listing to request removal")
	case errors.Is(err, ErrPendingExists):
		respond.Fail(w, http.StatusConflict, "You already have a pending request for this listing")
	case errors.Is(err, ErrNotFound):
		respond.Fail(w, http.StatusNotFound, "Request not found")
	case errors.Is(err, ErrAlreadyProcessed):
		respond.Fail(w, http.StatusConflict, "Request has already been processed")
	case errors.Is(err, ErrTargetNotFound):
		respond.Fail(w, http.StatusNotFound, "Directory listing not found")
	case errors.Is(err, inputval.ErrInvalid):
		respond.Invalid(w, err)
	default:
		h.logger.Error("removals request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, fallback)
	}
}
