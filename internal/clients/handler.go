package clients

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/inquiries"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Handler serves the dashboard client pipeline and task list.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a clients handler.
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

// List handles GET /api/dashboard/clients?status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), pid, Status(r.URL.Query().Get("status")))
	if err != nil {
		h.writeError(w, err, "Failed to fetch clients")
		return
	}
	respond.OK(w, http.StatusOK, items)
}

// Create handles POST /api/dashboard/clients.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), pid, in)
	if err != nil {
		h.writeError(w, err, "Failed to create client")
		return
	}
	respond.OK(w, http.StatusCreated, c)
}

// Get handles GET /api/dashboard/clients/{clientID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), pid, chi.URLParam(r, "clientID"))
	if err != nil {
		h.writeError(w, err, "Failed to fetch client")
		return
	}
	respond.OK(w, http.StatusOK, c)
}

// Update handles PATCH /api/dashboard/clients/{clientID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, err := h.svc.Update(r.Context(), pid, chi.URLParam(r, "clientID"), in)
	if err != nil {
		h.writeError(w, err, "Failed to update client")
		return
	}
	respond.OK(w, http.StatusOK, c)
}

// ConvertInquiry handles POST /api/dashboard/inquiries/{inquiryID}/convert.
func (h *Handler) ConvertInquiry(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.ConvertInquiry(r.Context(), pid, chi.URLParam(r, "inquiryID"))
	if err != nil {
		h.writeError(w, err, "Failed to convert inquiry")
		return
	}
	respond.OK(w, http.StatusCreated, c)
}

// ListTasks handles GET /api/dashboard/tasks?status=&clientId=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	tasks, err := h.svc.ListTasks(r.Context(), pid, TaskFilter{
		Status:   TaskStatus(q.Get("status")),
		ClientID: q.Get("clientId"),
	})
	if err != nil {
		h.writeError(w, err, "Failed to fetch tasks")
		return
	}
	respond.OK(w, http.StatusOK, tasks)
}

// AddTask handles POST /api/dashboard/tasks.
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	var in TaskInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := h.svc.AddTask(r.Context(), pid, in)
	if err != nil {
		h.writeError(w, err, "Failed to add task")
		return
	}
	respond.OK(w, http.StatusCreated, t)
}

// CompleteTask handles POST /api/dashboard/tasks/{taskID}/complete.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.CompleteTask(r.Context(), pid, chi.URLParam(r, "taskID")); err != nil {
		h.writeError(w, err, "Failed to complete task")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

// DeleteTask handles DELETE /api/dashboard/tasks/{taskID}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	pid, ok := profileID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(r.Context(), pid, chi.URLParam(r, "taskID")); err != nil {
		h.writeError(w, err, "Failed to delete task")
		return
	}
	respond.OK(w, http.StatusOK, nil)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var denied *plans.DeniedError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Fail(w, http.StatusNotFound, "Client not found")
	case errors.Is(err, ErrTaskNotFound):
		respond.Fail(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, inquiries.ErrNotFound), errors.Is(err, inquiries.ErrNoListing):
		respond.Fail(w, http.StatusNotFound, "Inquiry not found")
	case errors.Is(err, ErrAlreadyConverted):
		respond.Fail(w, http.StatusConflict, "This inquiry has already been converted to a client")
	case errors.As(err, &denied):
		respond.Denied(w, denied)
	case errors.Is(err, inputval.ErrInvalid):
		respond.Invalid(w, err)
	default:
		h.logger.Error("clients request failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, fallback)
	}
}
