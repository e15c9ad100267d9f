package billing

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	good := Sign("whsec_test", ts, payload)

	cases := []struct {
		name   string
		secret string
		header string
		want   error
	}{
		{"valid", "whsec_test", "t=" + ts + ",v1=" + good, nil},
		{"valid among rotated", "whsec_test", "t=" + ts + ",v1=deadbeef,v1=" + good, nil},
		{"empty secret", "", "t=" + ts + ",v1=" + good, ErrMissingSignature},
		{"no header", "whsec_test", "", ErrMissingSignature},
		{"no v1", "whsec_test", "t=" + ts, ErrMissingSignature},
		{"bad timestamp", "whsec_test", "t=soon,v1=" + good, ErrMissingSignature},
		{"wrong secret", "whsec_other", "t=" + ts + ",v1=" + good, ErrBadSignature},
		{"stale", "whsec_test", "t=" + strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10) + ",v1=" + good, ErrStaleSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.secret, payload, tc.header, now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := Sign("whsec_test", ts, []byte(`{"id":"evt_1"}`))

	err := VerifySignature("whsec_test", []byte(`{"id":"evt_2"}`), "t="+ts+",v1="+sig, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}
