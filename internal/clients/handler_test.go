package clients

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

func newTestRouter(f *fixture, profileID string) http.Handler {
	h := NewHandler(f.svc, logging.Discard())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := tenancy.WithActor(req.Context(), tenancy.Actor{ProfileID: profileID})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/api/dashboard/clients", h.List)
	r.Post("/api/dashboard/clients", h.Create)
	r.Post("/api/dashboard/inquiries/{inquiryID}/convert", h.ConvertInquiry)
	r.Post("/api/dashboard/tasks", h.AddTask)
	r.Post("/api/dashboard/tasks/{taskID}/complete", h.CompleteTask)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, respond.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env respond.Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return w, env
}

func TestHandlerConvertInquiry(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "pro-1")

	w, env := doJSON(t, router, http.MethodPost, "/api/dashboard/inquiries/inq-1/convert", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	w, _ = doJSON(t, router, http.MethodPost, "/api/dashboard/inquiries/inq-1/convert", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/dashboard/inquiries/missing/convert", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerFreeTierDenied(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "free-1")

	w, env := doJSON(t, router, http.MethodPost, "/api/dashboard/clients", map[string]string{"childFirstName": "Ava"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.Success)

	w, env = doJSON(t, router, http.MethodGet, "/api/dashboard/clients", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestHandlerTaskErrors(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, "pro-1")

	w, env := doJSON(t, router, http.MethodPost, "/api/dashboard/tasks", map[string]string{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title", env.Field)

	w, _ = doJSON(t, router, http.MethodPost, "/api/dashboard/tasks/nope/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
