package billing

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/events"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

const testSecret = "whsec_test"

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	confirmations []notify.SubscriptionEmail
	failures      []notify.PaymentFailedEmail
	err           error
}

func (f *fakeNotifier) ConfirmSubscription(_ context.Context, p notify.SubscriptionEmail) error {
	f.confirmations = append(f.confirmations, p)
	return f.err
}

func (f *fakeNotifier) NotifyPaymentFailed(_ context.Context, p notify.PaymentFailedEmail) error {
	f.failures = append(f.failures, p)
	return f.err
}

type failingTracker struct{}

func (failingTracker) AlreadyProcessed(context.Context, string, string) (bool, error) {
	return false, errors.New("db down")
}

func (failingTracker) MarkProcessed(context.Context, string, string) (bool, error) {
	return false, errors.New("db down")
}

type fixture struct {
	handler  *WebhookHandler
	profiles *profiles.InMemoryRepository
	notifier *fakeNotifier
	tracker  *events.MemoryStore
}

func newFixture() *fixture {
	repo := profiles.NewInMemoryRepository(&profiles.Profile{
		ID:                 "prof-1",
		AgencyName:         "Bright Steps ABA",
		ContactEmail:       "owner@brightsteps.example",
		PlanTier:           plans.TierFree,
		SubscriptionStatus: plans.StatusNone,
		StripeCustomerID:   "cus_123",
	})
	f := &fixture{profiles: repo, notifier: &fakeNotifier{}, tracker: events.NewMemoryStore()}
	f.handler = NewWebhookHandler(testSecret, repo, f.tracker, f.notifier, logging.Discard())
	f.handler.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) deliver(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	ts := strconv.FormatInt(fixedNow.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(body))
	req.Header.Set("Stripe-Signature", "t="+ts+",v1="+Sign(testSecret, ts, []byte(body)))
	w := httptest.NewRecorder()
	f.handler.Handle(w, req)
	return w
}

func (f *fixture) profile(t *testing.T) *profiles.Profile {
	t.Helper()
	p, err := f.profiles.Get(context.Background(), "prof-1")
	require.NoError(t, err)
	return p
}

const createdEnterprise = `{"id":"evt_1","type":"customer.subscription.created","data":{"object":{
	"id":"sub_1","customer":"cus_123","status":"active",
	"metadata":{"plan_tier":"enterprise","billing_interval":"year"}}}}`

func TestWebhook_SubscriptionCreatedUpgradesAndConfirms(t *testing.T) {
	f := newFixture()

	w := f.deliver(t, createdEnterprise)
	require.Equal(t, http.StatusOK, w.Code)

	p := f.profile(t)
	assert.Equal(t, plans.TierEnterprise, p.PlanTier)
	assert.Equal(t, plans.StatusActive, p.SubscriptionStatus)
	assert.Equal(t, "year", p.BillingInterval)

	require.Len(t, f.notifier.confirmations, 1)
	email := f.notifier.confirmations[0]
	assert.Equal(t, "owner@brightsteps.example", email.To)
	assert.Equal(t, "Enterprise", email.PlanName)
	assert.Contains(t, email.Highlights, plans.Info(plans.FeatureHomepagePlacement).Name)

	processed, _ := f.tracker.AlreadyProcessed(context.Background(), "stripe", "evt_1")
	assert.True(t, processed)
}

func TestWebhook_RedeliveryIsIgnored(t *testing.T) {
	f := newFixture()

	require.Equal(t, http.StatusOK, f.deliver(t, createdEnterprise).Code)
	require.NoError(t, f.profiles.ApplySubscription(context.Background(), profiles.SubscriptionUpdate{
		StripeCustomerID: "cus_123", PlanTier: plans.TierFree, Status: plans.StatusCanceled,
	}))

	require.Equal(t, http.StatusOK, f.deliver(t, createdEnterprise).Code)
	assert.Equal(t, plans.TierFree, f.profile(t).PlanTier)
	assert.Len(t, f.notifier.confirmations, 1)
}

func TestWebhook_PriceMetadataAndDefaults(t *testing.T) {
	f := newFixture()

	body := `{"id":"evt_2","type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","customer":"cus_123","status":"trialing","metadata":{},
		"items":{"data":[{"price":{"metadata":{"plan_tier":"pro"},"recurring":{"interval":"year"}}}]}}}}`
	require.Equal(t, http.StatusOK, f.deliver(t, body).Code)
	p := f.profile(t)
	assert.Equal(t, plans.TierPro, p.PlanTier)
	assert.Equal(t, plans.StatusTrialing, p.SubscriptionStatus)
	assert.Equal(t, "year", p.BillingInterval)
	assert.Empty(t, f.notifier.confirmations, "updates never send the welcome email")

	body = `{"id":"evt_3","type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","customer":"cus_123","status":"active"}}}`
	require.Equal(t, http.StatusOK, f.deliver(t, body).Code)
	p = f.profile(t)
	assert.Equal(t, plans.TierPro, p.PlanTier)
	assert.Equal(t, "month", p.BillingInterval)
}

func TestWebhook_InactiveStatusStoresFree(t *testing.T) {
	f := newFixture()

	body := `{"id":"evt_4","type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","customer":"cus_123","status":"unpaid","metadata":{"plan_tier":"pro"}}}}`
	require.Equal(t, http.StatusOK, f.deliver(t, body).Code)
	p := f.profile(t)
	assert.Equal(t, plans.TierFree, p.PlanTier)
	assert.Equal(t, plans.StatusPastDue, p.SubscriptionStatus)
}

func TestWebhook_DeletedDowngrades(t *testing.T) {
	f := newFixture()
	require.Equal(t, http.StatusOK, f.deliver(t, createdEnterprise).Code)

	body := `{"id":"evt_5","type":"customer.subscription.deleted","data":{"object":{
		"id":"sub_1","customer":"cus_123","status":"canceled"}}}`
	require.Equal(t, http.StatusOK, f.deliver(t, body).Code)
	p := f.profile(t)
	assert.Equal(t, plans.TierFree, p.PlanTier)
	assert.Equal(t, plans.StatusCanceled, p.SubscriptionStatus)
}

func TestWebhook_FeaturedLocationSubscriptionsAreSkipped(t *testing.T) {
	f := newFixture()

	body := `{"id":"evt_6","type":"customer.subscription.created","data":{"object":{
		"id":"sub_9","customer":"cus_123","status":"active","metadata":{"type":"featured_location","plan_tier":"enterprise"}}}}`
	require.Equal(t, http.StatusOK, f.deliver(t, body).Code)
	assert.Equal(t, plans.TierFree, f.profile(t).PlanTier)
	assert.Empty(t, f.notifier.confirmations)
}

func TestWebhook_PaymentFailedNotifiesOwner(t *testing.T) {
	f := newFixture()

	body := `{"id":"evt_7","type":"invoice.payment_failed","data":{"object":{
		"id":"in_1","customer":"cus_123","amount_due":7900,"currency":"usd","attempt_count":2}}}`
	require.Equal(t, http.StatusOK, f.deliver(t, body).Code)

	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, notify.PaymentFailedEmail{
		To:           "owner@brightsteps.example",
		ProviderName: "Bright Steps ABA",
		InvoiceID:    "in_1",
		AmountCents:  7900,
		Currency:     "usd",
		AttemptCount: 2,
	}, f.notifier.failures[0])
}

func TestWebhook_EmailFailureStillAcks(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("smtp down")

	require.Equal(t, http.StatusOK, f.deliver(t, createdEnterprise).Code)
	assert.Equal(t, plans.TierEnterprise, f.profile(t).PlanTier)
}

func TestWebhook_UnknownCustomerAndTypeAreAcked(t *testing.T) {
	f := newFixture()

	body := `{"id":"evt_8","type":"customer.subscription.updated","data":{"object":{
		"id":"sub_1","customer":"cus_missing","status":"active"}}}`
	assert.Equal(t, http.StatusOK, f.deliver(t, body).Code)

	body = `{"id":"evt_9","type":"checkout.session.completed","data":{"object":{}}}`
	assert.Equal(t, http.StatusOK, f.deliver(t, body).Code)
	processed, _ := f.tracker.AlreadyProcessed(context.Background(), "stripe", "evt_9")
	assert.False(t, processed)
}

func TestWebhook_RejectsBadInput(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(createdEnterprise))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	f.handler.Handle(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusBadRequest, f.deliver(t, `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, f.deliver(t, `{"type":"invoice.payment_failed"}`).Code)
	assert.Equal(t, plans.TierFree, f.profile(t).PlanTier)
}

func TestWebhook_TrackerFailureAsksForRetry(t *testing.T) {
	f := newFixture()
	f.handler.processed = failingTracker{}

	assert.Equal(t, http.StatusInternalServerError, f.deliver(t, createdEnterprise).Code)
	assert.Equal(t, plans.TierFree, f.profile(t).PlanTier)
}
