package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/tenancy"
)

const testSecret = "session-secret"

func actorEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := tenancy.ActorFromContext(r.Context())
		respond.OK(w, http.StatusOK, map[string]any{"profileId": actor.ProfileID, "admin": actor.IsAdmin})
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/plan", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateSetsActor(t *testing.T) {
	token, err := IssueToken(testSecret, tenancy.Actor{ProfileID: "prof-1", Email: "a@b.example"}, time.Hour, time.Now())
	require.NoError(t, err)

	rec := serve(Authenticate(testSecret)(actorEcho()), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var env respond.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	data := env.Data.(map[string]any)
	assert.Equal(t, "prof-1", data["profileId"])
	assert.Equal(t, false, data["admin"])
}

func TestAuthenticateRejects(t *testing.T) {
	now := time.Now()
	expired, _ := IssueToken(testSecret, tenancy.Actor{ProfileID: "prof-1"}, time.Minute, now.Add(-time.Hour))
	otherKey, _ := IssueToken("other", tenancy.Actor{ProfileID: "prof-1"}, time.Hour, now)
	noSubject, _ := IssueToken(testSecret, tenancy.Actor{}, time.Hour, now)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "prof-1"},
	}).SignedString([]byte(testSecret))

	h := Authenticate(testSecret)(actorEcho())
	for name, token := range map[string]string{
		"missing":    "",
		"garbage":    "not-a-jwt",
		"expired":    expired,
		"wrong key":  otherKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(h, token).Code)
		})
	}
}

func TestAuthenticateWithoutSecretRejectsEverything(t *testing.T) {
	token, _ := IssueToken("", tenancy.Actor{ProfileID: "prof-1"}, time.Hour, time.Now())
	assert.Equal(t, http.StatusUnauthorized, serve(Authenticate("")(actorEcho()), token).Code)
}

func TestRequireAdmin(t *testing.T) {
	h := Authenticate(testSecret)(RequireAdmin(actorEcho()))

	provider, _ := IssueToken(testSecret, tenancy.Actor{ProfileID: "prof-1"}, time.Hour, time.Now())
	rec := serve(h, provider)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")

	admin, _ := IssueToken(testSecret, tenancy.Actor{ProfileID: "admin-1", IsAdmin: true}, time.Hour, time.Now())
	rec = serve(h, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"admin":true`)

	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(actorEcho()), "").Code)
}
