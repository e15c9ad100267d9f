package notify

import (
	"context"
	"fmt"

	"github.com/wolfman30/aba-directory/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("aba.internal.notify")

// Service renders and sends the platform's transactional emails. Callers
// treat every method as best effort: errors are logged here and returned so
// the caller can decide, but they never roll back the triggering write.
type Service struct {
	email  EmailSender
	layout *Layout
	logger *logging.Logger
}

// NewService wires a sender and layout. A nil sender falls back to the stub.
func NewService(email EmailSender, layout *Layout, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	if layout == nil {
		layout = NewLayout("", "")
	}
	return &Service{email: email, layout: layout, logger: logger}
}

// Layout exposes the template layout, used by the test-email command.
func (s *Service) Layout() *Layout { return s.layout }

// NotifyNewInquiry emails the provider about a new contact form message.
func (s *Service) NotifyNewInquiry(ctx context.Context, p InquiryEmail) error {
	return s.deliver(ctx, "provider_inquiry", p.To, func() (EmailMessage, error) {
		return s.layout.ProviderInquiry(p)
	})
}

// ConfirmApplication emails the applicant a receipt.
func (s *Service) ConfirmApplication(ctx context.Context, p ApplicantConfirmationEmail) error {
	return s.deliver(ctx, "applicant_confirmation", p.To, func() (EmailMessage, error) {
		return s.layout.ApplicantConfirmation(p)
	})
}

// NotifyNewApplication emails the provider about a new job application.
func (s *Service) NotifyNewApplication(ctx context.Context, p ApplicationEmail) error {
	return s.deliver(ctx, "provider_application", p.To, func() (EmailMessage, error) {
		return s.layout.ProviderApplication(p)
	})
}

// ConfirmSubscription emails the provider after a paid plan starts.
func (s *Service) ConfirmSubscription(ctx context.Context, p SubscriptionEmail) error {
	return s.deliver(ctx, "subscription_confirmation", p.To, func() (EmailMessage, error) {
		return s.layout.SubscriptionConfirmation(p)
	})
}

// NotifyPaymentFailed emails the provider after a failed invoice charge.
func (s *Service) NotifyPaymentFailed(ctx context.Context, p PaymentFailedEmail) error {
	return s.deliver(ctx, "payment_failed", p.To, func() (EmailMessage, error) {
		return s.layout.PaymentFailed(p)
	})
}

// SendClientMessage emails an agency message to a client's parent. Unlike
// the notices above, the caller records the outcome.
func (s *Service) SendClientMessage(ctx context.Context, p ClientMessageEmail) error {
	return s.deliver(ctx, "client_message", p.To, func() (EmailMessage, error) {
		return s.layout.ClientMessage(p)
	})
}

// Send delivers an already rendered message.
func (s *Service) Send(ctx context.Context, kind string, msg EmailMessage) error {
	return s.deliver(ctx, kind, msg.To, func() (EmailMessage, error) { return msg, nil })
}

func (s *Service) deliver(ctx context.Context, kind, to string, build func() (EmailMessage, error)) error {
	ctx, span := tracer.Start(ctx, "notify.send")
	defer span.End()
	span.SetAttributes(attribute.String("aba.email.kind", kind))

	if to == "" {
		s.logger.Debug("notify: no recipient, skipping email", "kind", kind)
		return nil
	}
	msg, err := build()
	if err != nil {
		span.RecordError(err)
		s.logger.Error("notify: failed to render email", "error", err, "kind", kind)
		return err
	}
	if err := s.email.Send(ctx, msg); err != nil {
		span.RecordError(err)
		s.logger.Error("notify: failed to send email", "error", err, "kind", kind, "to", to)
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	s.logger.Info("notify: email sent", "kind", kind, "to", to)
	return nil
}
