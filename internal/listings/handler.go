package listings

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/geo"
	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves listing, location and search endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a listings handler.
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

// GetListing handles GET /api/dashboard/listing.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	listing, err := h.svc.GetForProfile(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "Failed to load listing")
		return
	}
	respond.OK(w, http.StatusOK, listing)
}

// UpdateListing handles PATCH /api/dashboard/listing.
func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var req struct {
		ListingUpdate
		Slug *string `json:"slug,omitempty"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	listing, err := h.svc.Update(r.Context(), pid, req.ListingUpdate)
	if err == nil && req.Slug != nil {
		listing, err = h.svc.ChangeSlug(r.Context(), pid, *req.Slug)
	}
	if err != nil {
		h.writeError(w, err, "Failed to update listing")
		return
	}
	respond.OK(w, http.StatusOK, listing)
}

// Publish handles POST /api/dashboard/listing/publish.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Publish(r.Context(), pid); err != nil {
		h.writeError(w, err, "Failed to publish listing")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

// Unpublish handles POST /api/dashboard/listing/unpublish.
func (h *Handler) Unpublish(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unpublish(r.Context(), pid); err != nil {
		h.writeError(w, err, "Failed to unpublish listing")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

// ListLocations handles GET /api/dashboard/locations.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	locs, err := h.svc.ListLocations(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "Failed to load locations")
		return
	}
	if locs == nil {
		locs = []Location{}
	}
	respond.OK(w, http.StatusOK, locs)
}

type locationResponse struct {
	*Location
	Geocoded bool `json:"geocoded"`
}

// AddLocation handles POST /api/dashboard/locations.
func (h *Handler) AddLocation(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var in LocationInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	loc, geocoded, err := h.svc.AddLocation(r.Context(), pid, in)
	if err != nil {
		h.writeError(w, err, "Failed to add location")
		return
	}
	respond.OK(w, http.StatusCreated, locationResponse{Location: loc, Geocoded: geocoded})
}

// UpdateLocation handles PATCH /api/dashboard/locations/{locationID}.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var in LocationInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	loc, geocoded, err := h.svc.UpdateLocation(r.Context(), pid, chi.URLParam(r, "locationID"), in)
	if err != nil {
		h.writeError(w, err, "Failed to update location")
		return
	}
	respond.OK(w, http.StatusOK, locationResponse{Location: loc, Geocoded: geocoded})
}

// DeleteLocation handles DELETE /api/dashboard/locations/{locationID}.
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteLocation(r.Context(), pid, chi.URLParam(r, "locationID")); err != nil {
		h.writeError(w, err, "Failed to delete location")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

// SetPrimary handles POST /api/dashboard/locations/{locationID}/primary.
func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetPrimary(r.Context(), pid, chi.URLParam(r, "locationID")); err != nil {
		h.writeError(w, err, "Failed to set primary location")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

// GetPublic handles GET /api/listings/{slug}.
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err, "Failed to load listing")
		return
	}
	respond.OK(w, http.StatusOK, listing)
}

// SearchNearby handles GET /api/search/nearby.
func (h *Handler) SearchNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := SearchQuery{
		Address: strings.TrimSpace(q.Get("q")),
		SearchFilter: SearchFilter{
			ServiceMode:   ServiceMode(q.Get("mode")),
			AcceptingOnly: q.Get("accepting") == "true",
		},
	}
	if lat, lng := q.Get("lat"), q.Get("lng"); lat != "" && lng != "" {
		latF, err1 := strconv.ParseFloat(lat, 64)
		lngF, err2 := strconv.ParseFloat(lng, 64)
		if err1 != nil || err2 != nil {
			respond.Invalid(w, inputval.Field("lat", "Invalid coordinates"))
			return
		}
		query.Center = &geo.Point{Latitude: latF, Longitude: lngF}
	}
	if v, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil {
		query.RadiusMiles = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		query.Limit = v
	}

	resp, err := h.svc.SearchNearby(r.Context(), query)
	if err != nil {
		h.writeError(w, err, "Search failed")
		return
	}
	respond.OK(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var denied *plans.DeniedError
	switch {
	case errors.Is(err, ErrListingNotFound):
		respond.Fail(w, http.StatusNotFound, "Listing not found")
	case errors.Is(err, ErrLocationNotFound):
		respond.Fail(w, http.StatusNotFound, "Location not found")
	case errors.Is(err, ErrOnlyLocation):
		respond.Fail(w, http.StatusConflict, "Cannot delete the only location")
	case errors.Is(err, ErrSlugTaken):
		respond.Invalid(w, inputval.Field("slug", "That URL is already taken"))
	case errors.Is(err, ErrSlugLocked):
		respond.Invalid(w, inputval.Field("slug", "Your listing URL cannot be changed after publishing"))
	case errors.As(err, &denied):
		respond.Denied(w, denied)
	case errors.Is(err, inputval.ErrInvalid):
		respond.Invalid(w, err)
	default:
		h.logger.Error("listings request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, fallback)
	}
}
