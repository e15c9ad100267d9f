package attributes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// ListingLookup finds the listing id owned by a profile.
type ListingLookup interface {
	ListingIDForProfile(ctx context.Context, profileID string) (string, error)
}

// Handler serves /api/dashboard/attributes.
type Handler struct {
	svc      *Service
	listings ListingLookup
	logger   *logging.Logger
}

// NewHandler creates the attributes handler.
func NewHandler(svc *Service, listings ListingLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, listings: listings, logger: logger}
}

func (h *Handler) listingID(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	profileID, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return "", "", false
	}
	listingID, err := h.listings.ListingIDForProfile(r.Context(), profileID)
	if err != nil {
		respond.Fail(w, http.StatusNotFound, "Listing not found")
		return "", "", false
	}
	return profileID, listingID, true
}

// Get handles GET /api/dashboard/attributes.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	profileID, listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	attrs, err := h.svc.Get(r.Context(), profileID, listingID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, attrs)
}

// Update handles PATCH /api/dashboard/attributes.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	profileID, listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := respond.DecodeJSON(r, &body); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	attrs, err := h.svc.Update(r.Context(), profileID, listingID, body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, attrs)
}

// Clear handles DELETE /api/dashboard/attributes?keys=a,b.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	profileID, listingID, ok := h.listingID(w, r)
	if !ok {
		return
	}
	var names []string
	if raw := strings.TrimSpace(r.URL.Query().Get("keys")); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				names = append(names, k)
			}
		}
	}
	if err := h.svc.Clear(r.Context(), profileID, listingID, names); err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var denied *plans.DeniedError
	switch {
	case errors.Is(err, ErrListingNotFound):
		respond.Fail(w, http.StatusNotFound, "Listing not found")
	case errors.As(err, &denied):
		respond.Denied(w, denied)
	case errors.Is(err, inputval.ErrInvalid):
		respond.Invalid(w, err)
	default:
		h.logger.Error("attributes request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, "Failed to update listing attributes")
	}
}
