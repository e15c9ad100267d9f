package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

func newService(sender notify.EmailSender) *notify.Service {
	return notify.NewService(sender, notify.NewLayout("https://findabatherapy.example", ""), logging.Discard())
}

func TestSendAllRendersEveryTemplate(t *testing.T) {
	rec := &notify.RecordingSender{}
	var out bytes.Buffer

	failed := sendAll(context.Background(), newService(rec), "qa@example.com", nil, &out)
	assert.Zero(t, failed)

	sent := rec.Sent()
	require.Len(t, sent, len(samples))
	for _, msg := range sent {
		assert.Equal(t, "qa@example.com", msg.To)
		assert.NotEmpty(t, msg.Subject)
		assert.NotEmpty(t, msg.HTML)
	}
	assert.Contains(t, out.String(), "5 sent, 0 failed")
}

func TestSendAllFiltersAndReportsFailures(t *testing.T) {
	rec := &notify.RecordingSender{Err: errors.New("mailbox full")}
	var out bytes.Buffer

	failed := sendAll(context.Background(), newService(rec), "qa@example.com", selected("payment_failed, provider_inquiry"), &out)
	assert.Equal(t, 2, failed)
	assert.Len(t, rec.Sent(), 2)
	assert.Contains(t, out.String(), "FAIL payment_failed")
	assert.Contains(t, out.String(), "0 sent, 2 failed")
}

func TestSelected(t *testing.T) {
	assert.Empty(t, selected(""))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, selected(" a,,b "))
}
