package jobs

import (
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// PrefillKeyHeader carries the client's opaque prefill key.
const PrefillKeyHeader = "X-Prefill-Key"

// multipartOverhead is room for the text fields next to the resume.
const multipartOverhead = 1 << 20

// Handler serves the public application form and the dashboard job board.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a jobs handler.
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

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Apply handles POST /api/jobs/{jobID}/applications. The body is either
// multipart with an optional "resume" file or plain JSON without one.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	req, err := decodeApplication(w, r)
	if err != nil {
		if errors.Is(err, inputval.ErrInvalid) {
			respond.Invalid(w, err)
			return
		}
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.JobPostingID = chi.URLParam(r, "jobID")
	req.RemoteIP = clientIP(r)
	req.PrefillKey = r.Header.Get(PrefillKeyHeader)

	if err := h.svc.SubmitApplication(r.Context(), req); err != nil {
		h.writeError(w, err, "Failed to submit application. Please try again.")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

func decodeApplication(w http.ResponseWriter, r *http.Request) (ApplicationRequest, error) {
	var req ApplicationRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := respond.DecodeJSON(r, &req)
		return req, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxResumeBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, inputval.Field("resume", "Resume must be less than 10MB")
		}
		return req, err
	}
	req.ApplicantName = r.FormValue("applicantName")
	req.ApplicantEmail = r.FormValue("applicantEmail")
	req.ApplicantPhone = r.FormValue("applicantPhone")
	req.CoverLetter = r.FormValue("coverLetter")
	req.LinkedInURL = r.FormValue("linkedinUrl")
	req.Source = r.FormValue("source")
	req.Website = r.FormValue("website")
	req.CaptchaToken = r.FormValue("turnstileToken")

	file, header, err := r.FormFile("resume")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return req, err
	}
	req.Resume = &Resume{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return req, nil
}

// Prefill handles GET /api/jobs/prefill.
func (h *Handler) Prefill(w http.ResponseWriter, r *http.Request) {
	contact, ok, err := h.svc.Prefill(r.Context(), r.Header.Get(PrefillKeyHeader))
	if err != nil {
		h.logger.Warn("prefill lookup failed", "error", err)
		respond.OK(w, http.StatusOK, nil)
		return
	}
	if !ok {
		respond.OK(w, http.StatusOK, nil)
		return
	}
	respond.OK(w, http.StatusOK, contact)
}

// ListPostings handles GET /api/dashboard/jobs.
func (h *Handler) ListPostings(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	postings, err := h.svc.ListPostings(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "Failed to fetch job postings")
		return
	}
	respond.OK(w, http.StatusOK, postings)
}

// Quota handles GET /api/dashboard/jobs/quota.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	q, err := h.svc.Quota(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "Failed to load job posting limit")
		return
	}
	respond.OK(w, http.StatusOK, q)
}

// CreatePosting handles POST /api/dashboard/jobs.
func (h *Handler) CreatePosting(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var in PostingInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := h.svc.CreatePosting(r.Context(), pid, in)
	if err != nil {
		h.writeError(w, err, "Failed to create job posting")
		return
	}
	respond.OK(w, http.StatusCreated, p)
}

// GetPosting handles GET /api/dashboard/jobs/{jobID}.
func (h *Handler) GetPosting(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetPosting(r.Context(), pid, chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeError(w, err, "Failed to fetch job posting")
		return
	}
	respond.OK(w, http.StatusOK, p)
}

// UpdatePosting handles PATCH /api/dashboard/jobs/{jobID}.
func (h *Handler) UpdatePosting(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var u PostingUpdate
	if err := respond.DecodeJSON(r, &u); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := h.svc.UpdatePosting(r.Context(), pid, chi.URLParam(r, "jobID"), u)
	if err != nil {
		h.writeError(w, err, "Failed to update job posting")
		return
	}
	respond.OK(w, http.StatusOK, p)
}

// Publish handles POST /api/dashboard/jobs/{jobID}/publish.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, PostingPublished)
}

// MarkFilled handles POST /api/dashboard/jobs/{jobID}/filled.
func (h *Handler) MarkFilled(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, PostingFilled)
}

// Close handles POST /api/dashboard/jobs/{jobID}/close.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, PostingClosed)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status PostingStatus) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.SetPostingStatus(r.Context(), pid, chi.URLParam(r, "jobID"), status)
	if err != nil {
		h.writeError(w, err, "Failed to update job posting")
		return
	}
	respond.OK(w, http.StatusOK, p)
}

// DeletePosting handles DELETE /api/dashboard/jobs/{jobID}.
func (h *Handler) DeletePosting(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePosting(r.Context(), pid, chi.URLParam(r, "jobID")); err != nil {
		h.writeError(w, err, "Failed to delete job posting")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

// ListApplications handles GET /api/dashboard/applications.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ApplicationFilter{
		Status: ApplicationStatus(strings.TrimSpace(q.Get("status"))),
		JobID:  strings.TrimSpace(q.Get("job")),
	}
	page, err := h.svc.ListApplications(r.Context(), pid, filter)
	if err != nil {
		h.writeError(w, err, "Failed to fetch applications")
		return
	}
	respond.OK(w, http.StatusOK, page)
}

// NewApplicationCount handles GET /api/dashboard/applications/new-count.
// Anonymous callers see zero.
func (h *Handler) NewApplicationCount(w http.ResponseWriter, r *http.Request) {
	pid, ok := tenancy.ProfileIDFromContext(r.Context())
	if !ok {
		respond.OK(w, http.StatusOK, 0)
		return
	}
	n, err := h.svc.NewApplicationCount(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "Failed to count applications")
		return
	}
	respond.OK(w, http.StatusOK, n)
}

// GetApplication handles GET /api/dashboard/applications/{applicationID}.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	app, err := h.svc.GetApplication(r.Context(), pid, chi.URLParam(r, "applicationID"))
	if err != nil {
		h.writeError(w, err, "Failed to fetch application")
		return
	}
	respond.OK(w, http.StatusOK, app)
}

// UpdateApplicationStatus handles POST /api/dashboard/applications/{applicationID}/status.
func (h *Handler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status ApplicationStatus `json:"status"`
	}
	if err := respond.DecodeJSON(r, &body); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	app, err := h.svc.UpdateApplicationStatus(r.Context(), pid, chi.URLParam(r, "applicationID"), body.Status)
	if err != nil {
		h.writeError(w, err, "Failed to update application")
		return
	}
	respond.OK(w, http.StatusOK, app)
}

// UpdateApplicationDetails handles PATCH /api/dashboard/applications/{applicationID}.
func (h *Handler) UpdateApplicationDetails(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var u DetailsUpdate
	if err := respond.DecodeJSON(r, &u); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	app, err := h.svc.UpdateApplicationDetails(r.Context(), pid, chi.URLParam(r, "applicationID"), u)
	if err != nil {
		h.writeError(w, err, "Failed to update application")
		return
	}
	respond.OK(w, http.StatusOK, app)
}

// ResumeURL handles GET /api/dashboard/applications/{applicationID}/resume.
func (h *Handler) ResumeURL(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	url, err := h.svc.ResumeDownloadURL(r.Context(), pid, chi.URLParam(r, "applicationID"))
	if err != nil {
		h.writeError(w, err, "Failed to generate download link")
		return
	}
	respond.OK(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var denied *plans.DeniedError
	switch {
	case errors.Is(err, ErrPostingNotFound):
		respond.Fail(w, http.StatusNotFound, "Job posting not found")
	case errors.Is(err, ErrApplicationNotFound):
		respond.Fail(w, http.StatusNotFound, "Application not found")
	case errors.Is(err, ErrNotAccepting):
		respond.Fail(w, http.StatusNotFound, "Job posting not found or no longer accepting applications")
	case errors.Is(err, ErrDuplicate):
		respond.Fail(w, http.StatusConflict, "You have already applied to this position")
	case errors.Is(err, ErrCaptchaRequired):
		respond.Fail(w, http.StatusBadRequest, "Security verification required")
	case errors.Is(err, ErrCaptchaFailed):
		respond.Fail(w, http.StatusBadRequest, "Security verification failed. Please try again.")
	case errors.Is(err, ErrNoResume):
		respond.Fail(w, http.StatusNotFound, "No resume attached to this application")
	case errors.Is(err, ErrUploadFailed):
		respond.Fail(w, http.StatusBadGateway, "Failed to upload resume. Please try again.")
	case errors.As(err, &denied):
		respond.Denied(w, denied)
	case errors.Is(err, inputval.ErrInvalid):
		respond.Invalid(w, err)
	default:
		h.logger.Error("jobs request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, fallback)
	}
}
