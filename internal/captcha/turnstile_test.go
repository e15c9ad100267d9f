package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnstileVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret-key", r.PostForm.Get("secret"))
		assert.Equal(t, "203.0.113.9", r.PostForm.Get("remoteip"))
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewTurnstile("secret-key")
	v.SetVerifyURL(srv.URL)

	require.NoError(t, v.Verify(context.Background(), "good", "203.0.113.9"))

	err := v.Verify(context.Background(), "bad", "203.0.113.9")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "invalid-input-response")

	assert.ErrorIs(t, v.Verify(context.Background(), " ", ""), ErrMissingToken)
}

func TestTurnstileUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewTurnstile("k")
	v.SetVerifyURL(srv.URL)
	err := v.Verify(context.Background(), "token", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestStatic(t *testing.T) {
	v := Static{Token: "ok"}
	assert.NoError(t, v.Verify(context.Background(), "ok", ""))
	assert.ErrorIs(t, v.Verify(context.Background(), "nope", ""), ErrRejected)
	assert.ErrorIs(t, v.Verify(context.Background(), "", ""), ErrMissingToken)
}
