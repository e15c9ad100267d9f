// Package billing applies subscription webhooks from the payment provider
// to provider plan state.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SignatureTolerance bounds the age of a signed webhook.
const SignatureTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("billing: missing signature")
	ErrStaleSignature   = errors.New("billing: signature timestamp outside tolerance")
	ErrBadSignature     = errors.New("billing: signature mismatch")
)

// VerifySignature checks a Stripe-Signature header of the form
// t=<unix>,v1=<hex hmac>[,v1=...] against HMAC-SHA256(secret, "t.payload").
func VerifySignature(secret string, payload []byte, header string, now time.Time) error {
	if secret == "" || header == "" {
		return ErrMissingSignature
	}

	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMissingSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > SignatureTolerance {
		return ErrStaleSignature
	}

	expected := Sign(secret, timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign returns the hex v1 signature for a payload at timestamp.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
