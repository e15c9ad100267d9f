package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.billing")

const (
	provider        = "stripe"
	maxPayloadBytes = 1 << 20
)

// ProfileStore reads and updates the billed profile.
type ProfileStore interface {
	GetByStripeCustomer(ctx context.Context, customerID string) (*profiles.Profile, error)
	ApplySubscription(ctx context.Context, update profiles.SubscriptionUpdate) error
}

// ProcessedTracker remembers handled event ids.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// Notifier sends billing emails.
type Notifier interface {
	ConfirmSubscription(ctx context.Context, p notify.SubscriptionEmail) error
	NotifyPaymentFailed(ctx context.Context, p notify.PaymentFailedEmail) error
}

// WebhookHandler receives subscription and invoice events.
type WebhookHandler struct {
	secret    string
	profiles  ProfileStore
	processed ProcessedTracker
	notifier  Notifier
	logger    *logging.Logger
	now       func() time.Time
}

// NewWebhookHandler wires the webhook. notifier may be nil.
func NewWebhookHandler(secret string, store ProfileStore, processed ProcessedTracker, notifier Notifier, logger *logging.Logger) *WebhookHandler {
	if store == nil || processed == nil {
		panic("billing: profile store and processed tracker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		secret:    secret,
		profiles:  store,
		processed: processed,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type subscriptionObject struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
	Items    struct {
		Data []struct {
			Price struct {
				Metadata  map[string]string `json:"metadata"`
				Recurring *struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// planTier reads plan_tier from the subscription, then from its first
// price. Paid subscriptions without one are pro.
func (s subscriptionObject) planTier() plans.Tier {
	raw := s.Metadata["plan_tier"]
	if raw == "" && len(s.Items.Data) > 0 {
		raw = s.Items.Data[0].Price.Metadata["plan_tier"]
	}
	if raw == "" {
		return plans.TierPro
	}
	return plans.ParseTier(raw)
}

func (s subscriptionObject) interval() string {
	if v := s.Metadata["billing_interval"]; v != "" {
		return v
	}
	if len(s.Items.Data) > 0 && s.Items.Data[0].Price.Recurring != nil {
		return s.Items.Data[0].Price.Recurring.Interval
	}
	return "month"
}

type invoiceObject struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	AttemptCount int    `json:"attempt_count"`
}

var errUnknownCustomer = errors.New("billing: no profile for customer")

// Handle processes one webhook delivery. Unknown event types and events
// for unknown customers are acknowledged so the provider stops retrying.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := VerifySignature(h.secret, payload, r.Header.Get("Stripe-Signature"), h.now()); err != nil {
		h.logger.Warn("billing webhook rejected", "error", err)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode billing event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	ctx, span := tracer.Start(r.Context(), "billing.webhook")
	defer span.End()
	span.SetAttributes(attribute.String("aba.billing.event_type", evt.Type), attribute.String("aba.billing.event_id", evt.ID))

	var apply func(context.Context, json.RawMessage, string) error
	switch evt.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		apply = h.applySubscription
	case "customer.subscription.deleted":
		apply = h.cancelSubscription
	case "invoice.payment_failed":
		apply = h.paymentFailed
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	if processed, err := h.processed.AlreadyProcessed(ctx, provider, evt.ID); err != nil {
		h.logger.Error("processed lookup failed", "error", err, "event_id", evt.ID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if processed {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := apply(ctx, evt.Data.Object, evt.Type); err != nil {
		if errors.Is(err, errUnknownCustomer) {
			h.logger.Warn("billing event for unknown customer", "event_id", evt.ID, "type", evt.Type)
			w.WriteHeader(http.StatusOK)
			return
		}
		span.RecordError(err)
		h.logger.Error("failed to apply billing event", "error", err, "event_id", evt.ID, "type", evt.Type)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.processed.MarkProcessed(ctx, provider, evt.ID); err != nil {
		h.logger.Error("failed to mark billing event processed", "error", err, "event_id", evt.ID)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) applySubscription(ctx context.Context, raw json.RawMessage, eventType string) error {
	var sub subscriptionObject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("billing: decode subscription: %w", err)
	}
	if sub.Metadata["type"] == "featured_location" {
		h.logger.Info("ignoring featured location subscription", "subscription_id", sub.ID)
		return nil
	}

	status := plans.ParseSubscriptionStatus(sub.Status)
	tier := sub.planTier()
	if !status.IsActive() {
		tier = plans.TierFree
	}
	profile, err := h.apply(ctx, profiles.SubscriptionUpdate{
		StripeCustomerID:     sub.Customer,
		StripeSubscriptionID: sub.ID,
		PlanTier:             tier,
		Status:               status,
		BillingInterval:      sub.interval(),
	})
	if err != nil {
		return err
	}

	if eventType == "customer.subscription.created" && status.IsActive() && h.notifier != nil {
		err := h.notifier.ConfirmSubscription(ctx, notify.SubscriptionEmail{
			To:           profile.ContactEmail,
			ProviderName: profile.AgencyName,
			PlanName:     tier.DisplayName(),
			Highlights:   highlights(tier),
		})
		if err != nil {
			h.logger.Error("failed to send subscription confirmation", "error", err, "profile_id", profile.ID)
		}
	}
	return nil
}

func (h *WebhookHandler) cancelSubscription(ctx context.Context, raw json.RawMessage, _ string) error {
	var sub subscriptionObject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("billing: decode subscription: %w", err)
	}
	if sub.Metadata["type"] == "featured_location" {
		h.logger.Info("ignoring featured location subscription", "subscription_id", sub.ID)
		return nil
	}
	_, err := h.apply(ctx, profiles.SubscriptionUpdate{
		StripeCustomerID: sub.Customer,
		PlanTier:         plans.TierFree,
		Status:           plans.StatusCanceled,
		BillingInterval:  "month",
	})
	return err
}

func (h *WebhookHandler) apply(ctx context.Context, u profiles.SubscriptionUpdate) (*profiles.Profile, error) {
	profile, err := h.profiles.GetByStripeCustomer(ctx, u.StripeCustomerID)
	if errors.Is(err, profiles.ErrNotFound) {
		return nil, errUnknownCustomer
	}
	if err != nil {
		return nil, err
	}
	if err := h.profiles.ApplySubscription(ctx, u); err != nil {
		return nil, err
	}
	h.logger.Info("subscription applied", "profile_id", profile.ID, "plan_tier", u.PlanTier, "status", u.Status)
	return profile, nil
}

func (h *WebhookHandler) paymentFailed(ctx context.Context, raw json.RawMessage, _ string) error {
	var inv invoiceObject
	if err := json.Unmarshal(raw, &inv); err != nil {
		return fmt.Errorf("billing: decode invoice: %w", err)
	}
	profile, err := h.profiles.GetByStripeCustomer(ctx, inv.Customer)
	if errors.Is(err, profiles.ErrNotFound) {
		return errUnknownCustomer
	}
	if err != nil {
		return err
	}
	if h.notifier == nil {
		return nil
	}
	attempts := inv.AttemptCount
	if attempts < 1 {
		attempts = 1
	}
	err = h.notifier.NotifyPaymentFailed(ctx, notify.PaymentFailedEmail{
		To:           profile.ContactEmail,
		ProviderName: profile.AgencyName,
		InvoiceID:    inv.ID,
		AmountCents:  inv.AmountDue,
		Currency:     inv.Currency,
		AttemptCount: attempts,
	})
	if err != nil {
		h.logger.Error("failed to send payment failure notice", "error", err, "profile_id", profile.ID)
	}
	return nil
}

// highlights lists the upgrade copy of every boolean feature the tier
// grants over free.
func highlights(tier plans.Tier) []string {
	free := plans.FeaturesFor(plans.TierFree)
	granted := plans.FeaturesFor(tier)
	var out []string
	for _, f := range []plans.Feature{
		plans.FeatureContactForm, plans.FeatureContactInbox, plans.FeatureMedia,
		plans.FeatureVerifiedBadge, plans.FeatureAnalytics, plans.FeatureHomepagePlacement,
		plans.FeatureSearchPriority,
	} {
		if granted.Has(f) && !free.Has(f) {
			out = append(out, plans.Info(f).Name)
		}
	}
	return out
}
