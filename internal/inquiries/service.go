// Package inquiries implements the family contact form and the provider's
// inquiry inbox.
package inquiries

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/attributes"
	"github.com/wolfman30/aba-directory/internal/captcha"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.inquiries")

// ListingReader is the slice of the listings repository used here.
type ListingReader interface {
	GetByID(ctx context.Context, listingID string) (*listings.Listing, error)
	GetByProfile(ctx context.Context, profileID string) (*listings.Listing, error)
	GetLocation(ctx context.Context, listingID, locationID string) (*listings.Location, error)
}

// PlanResolver resolves the listing owner's effective tier.
type PlanResolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// AttributeReader loads the owner's contact form preference.
type AttributeReader interface {
	Get(ctx context.Context, listingID string) (attributes.Attributes, error)
}

// ProfileReader loads the listing owner for the email notice.
type ProfileReader interface {
	Get(ctx context.Context, id string) (*profiles.Profile, error)
}

// NotificationCreator records the in-app alert.
type NotificationCreator interface {
	Create(ctx context.Context, n *notifications.Notification) error
}

// Mailer sends the provider's email notice.
type Mailer interface {
	NotifyNewInquiry(ctx context.Context, p notify.InquiryEmail) error
}

// SubmissionObserver counts public form outcomes.
type SubmissionObserver interface {
	ObserveSubmission(form, outcome string)
}

// Deps are the collaborators of the inquiry service. Notifications, Mailer,
// Profiles and Metrics are optional.
type Deps struct {
	Listings      ListingReader
	Plans         PlanResolver
	Attributes    AttributeReader
	Captcha       captcha.Verifier
	Profiles      ProfileReader
	Notifications NotificationCreator
	Mailer        Mailer
	Metrics       SubmissionObserver
}

// Service handles inquiry submission and the provider inbox.
type Service struct {
	repo   Repository
	deps   Deps
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires the inquiry service.
func NewService(repo Repository, deps Deps, logger *logging.Logger) *Service {
	if repo == nil || deps.Listings == nil || deps.Plans == nil || deps.Captcha == nil {
		panic("inquiries: repository, listings, plans and captcha required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, deps: deps, logger: logger, now: time.Now}
}

const formName = "contact"

func (s *Service) observe(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSubmission(formName, outcome)
	}
}

// Submit records a family's contact form message. A filled honeypot is
// reported as success without writing anything.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) error {
	ctx, span := tracer.Start(ctx, "inquiries.submit")
	defer span.End()

	req, err := normalize(req)
	if err != nil {
		s.observe("invalid")
		return err
	}
	span.SetAttributes(attribute.String("aba.listing_id", req.ListingID))

	if req.Website != "" {
		s.observe("honeypot")
		s.logger.Info("inquiry honeypot triggered", "listing_id", req.ListingID)
		return nil
	}

	if err := s.verifyCaptcha(ctx, req); err != nil {
		s.observe("captcha_failed")
		return err
	}

	listing, err := s.deps.Listings.GetByID(ctx, req.ListingID)
	if errors.Is(err, listings.ErrListingNotFound) || (err == nil && !listing.Published()) {
		s.observe("rejected")
		return ErrListingUnavailable
	}
	if err != nil {
		span.RecordError(err)
		s.observe("error")
		return fmt.Errorf("inquiries: load listing: %w", err)
	}

	if err := s.checkAccepting(ctx, listing); err != nil {
		if errors.Is(err, ErrNotAccepting) {
			s.observe("rejected")
		} else {
			s.observe("error")
		}
		return err
	}

	var location *listings.Location
	if req.LocationID != "" {
		location, err = s.deps.Listings.GetLocation(ctx, listing.ID, req.LocationID)
		if errors.Is(err, listings.ErrLocationNotFound) {
			s.observe("invalid")
			return inputval.Field("locationId", "Location not found")
		}
		if err != nil {
			s.observe("error")
			return fmt.Errorf("inquiries: load location: %w", err)
		}
	}

	in := &Inquiry{
		ListingID:           listing.ID,
		LocationID:          req.LocationID,
		FamilyName:          req.FamilyName,
		FamilyEmail:         req.FamilyEmail,
		FamilyPhone:         req.FamilyPhone,
		ChildAge:            req.ChildAge,
		Message:             req.Message,
		ReferralSource:      req.ReferralSource,
		ReferralSourceOther: req.ReferralSourceOther,
		Source:              req.Source,
	}
	if err := s.repo.Create(ctx, in); err != nil {
		span.RecordError(err)
		s.observe("error")
		s.logger.Error("failed to create inquiry", "error", err, "listing_id", listing.ID)
		return err
	}
	s.observe("accepted")
	s.logger.Info("inquiry created", "inquiry_id", in.ID, "listing_id", listing.ID)

	s.afterCreate(ctx, listing, location, in)
	return nil
}

func (s *Service) verifyCaptcha(ctx context.Context, req SubmitRequest) error {
	if req.CaptchaToken == "" {
		return ErrCaptchaRequired
	}
	if err := s.deps.Captcha.Verify(ctx, req.CaptchaToken, req.RemoteIP); err != nil {
		if errors.Is(err, captcha.ErrMissingToken) {
			return ErrCaptchaRequired
		}
		s.logger.Warn("inquiry captcha rejected", "error", err, "listing_id", req.ListingID)
		return ErrCaptchaFailed
	}
	return nil
}

// checkAccepting applies the owner's effective tier and contact form
// preference.
func (s *Service) checkAccepting(ctx context.Context, listing *listings.Listing) error {
	res, err := s.deps.Plans.Resolve(ctx, listing.ProfileID)
	if err != nil {
		return fmt.Errorf("inquiries: resolve plan: %w", err)
	}
	decision := plans.GuardContactForm(res.Tier)
	s.deps.Plans.Observe(plans.FeatureContactForm, decision)
	if !decision.Allowed {
		return ErrNotAccepting
	}
	if s.deps.Attributes != nil {
		attrs, err := s.deps.Attributes.Get(ctx, listing.ID)
		if err != nil {
			return fmt.Errorf("inquiries: load attributes: %w", err)
		}
		if !attrs.ContactFormEnabled() {
			return ErrNotAccepting
		}
	}
	return nil
}

// afterCreate fans out the in-app notification and the provider email.
// Failures are logged and never surface to the family.
func (s *Service) afterCreate(ctx context.Context, listing *listings.Listing, location *listings.Location, in *Inquiry) {
	if s.deps.Notifications != nil {
		err := s.deps.Notifications.Create(ctx, &notifications.Notification{
			ProfileID:  listing.ProfileID,
			Type:       notifications.TypeContactForm,
			Title:      "New inquiry from " + in.FamilyName,
			Body:       excerpt(in.Message, 100),
			Link:       "/dashboard/inbox",
			EntityID:   in.ID,
			EntityType: "inquiry",
		})
		if err != nil {
			s.logger.Error("failed to create inquiry notification", "error", err, "inquiry_id", in.ID)
		}
	}

	if s.deps.Mailer == nil || s.deps.Profiles == nil {
		return
	}
	owner, err := s.deps.Profiles.Get(ctx, listing.ProfileID)
	if err != nil {
		s.logger.Error("failed to load inquiry recipient", "error", err, "profile_id", listing.ProfileID)
		return
	}
	email := notify.InquiryEmail{
		To:           owner.ContactEmail,
		ProviderName: owner.AgencyName,
		FamilyName:   in.FamilyName,
		FamilyEmail:  in.FamilyEmail,
		FamilyPhone:  in.FamilyPhone,
		ChildAge:     in.ChildAge,
		Message:      in.Message,
	}
	if location != nil {
		email.LocationLabel = location.Label
		if email.LocationLabel == "" {
			email.LocationLabel = location.City + ", " + location.State
		}
	}
	if err := s.deps.Mailer.NotifyNewInquiry(ctx, email); err != nil {
		s.logger.Error("failed to email inquiry notification", "error", err, "inquiry_id", in.ID)
	}
}

func excerpt(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

func (s *Service) listingFor(ctx context.Context, profileID string) (*listings.Listing, error) {
	listing, err := s.deps.Listings.GetByProfile(ctx, profileID)
	if errors.Is(err, listings.ErrListingNotFound) {
		return nil, ErrNoListing
	}
	if err != nil {
		return nil, fmt.Errorf("inquiries: load listing: %w", err)
	}
	return listing, nil
}

// List returns the caller's inbox and unread count.
func (s *Service) List(ctx context.Context, profileID string, filter Filter) (*Page, error) {
	listing, err := s.listingFor(ctx, profileID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, listing.ID, filter)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCount(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	return &Page{Inquiries: rows, UnreadCount: unread}, nil
}

// Get returns one of the caller's inquiries.
func (s *Service) Get(ctx context.Context, profileID, id string) (*Inquiry, error) {
	listing, err := s.listingFor(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, listing.ID, id)
}

// UnreadCount is the sidebar badge count. A caller without a listing has
// nothing unread.
func (s *Service) UnreadCount(ctx context.Context, profileID string) (int, error) {
	listing, err := s.listingFor(ctx, profileID)
	if errors.Is(err, ErrNoListing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, listing.ID)
}

// MarkRead moves an unread inquiry to read. Inquiries already read or
// replied are left as they are.
func (s *Service) MarkRead(ctx context.Context, profileID, id string) (*Inquiry, error) {
	return s.transition(ctx, profileID, id, StatusRead, func(current Status) bool {
		return current == StatusRead || current == StatusReplied
	})
}

// MarkReplied records that the provider answered the family.
func (s *Service) MarkReplied(ctx context.Context, profileID, id string) (*Inquiry, error) {
	return s.transition(ctx, profileID, id, StatusReplied, func(current Status) bool {
		return current == StatusReplied
	})
}

// Archive hides an inquiry from the inbox. Archived is terminal.
func (s *Service) Archive(ctx context.Context, profileID, id string) (*Inquiry, error) {
	return s.transition(ctx, profileID, id, StatusArchived, nil)
}

// transition applies one state machine step. noop reports current states for
// which the call succeeds without a write.
func (s *Service) transition(ctx context.Context, profileID, id string, next Status, noop func(Status) bool) (*Inquiry, error) {
	ctx, span := tracer.Start(ctx, "inquiries.transition")
	defer span.End()
	span.SetAttributes(attribute.String("aba.inquiry.to", string(next)))

	listing, err := s.listingFor(ctx, profileID)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, listing.ID, id)
	if err != nil {
		return nil, err
	}
	if noop != nil && noop(current.Status) {
		return current, nil
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.Transition(ctx, listing.ID, id, current.Status, next, s.now().UTC()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("inquiry status changed", "inquiry_id", id, "from", current.Status, "to", next)
	return s.repo.Get(ctx, listing.ID, id)
}
