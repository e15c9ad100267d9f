package communications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/clients"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.communications")

// PlanResolver resolves the caller's effective tier.
type PlanResolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// ClientReader loads one of the caller's clients.
type ClientReader interface {
	Get(ctx context.Context, profileID, id string) (*clients.Client, error)
}

// ProfileReader loads the sending agency.
type ProfileReader interface {
	Get(ctx context.Context, id string) (*profiles.Profile, error)
}

// ListingReader finds the agency's listing for link fields.
type ListingReader interface {
	GetByProfile(ctx context.Context, profileID string) (*listings.Listing, error)
}

// Mailer delivers the agency-branded message.
type Mailer interface {
	SendClientMessage(ctx context.Context, p notify.ClientMessageEmail) error
}

// Deps are the collaborators of the communication service. Listings is
// optional; without it the link fields resolve empty.
type Deps struct {
	Plans    PlanResolver
	Clients  ClientReader
	Profiles ProfileReader
	Listings ListingReader
	Mailer   Mailer
	SiteURL  string
}

// Service sends templated messages to client families and keeps the log.
type Service struct {
	repo   Repository
	deps   Deps
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires the communication service.
func NewService(repo Repository, deps Deps, logger *logging.Logger) *Service {
	if repo == nil || deps.Plans == nil || deps.Clients == nil || deps.Profiles == nil || deps.Mailer == nil {
		panic("communications: repository, plans, clients, profiles and mailer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, deps: deps, logger: logger, now: time.Now}
}

// Templates lists the templates available to every agency.
func (s *Service) Templates() []Template {
	return Templates()
}

// Template returns one template by slug.
func (s *Service) Template(slug string) (Template, error) {
	return TemplateBySlug(slug)
}

// PopulateMergeFields fills content's placeholders from the client, the
// agency profile and its listing. Manual fields come from the sender.
func (s *Service) PopulateMergeFields(ctx context.Context, profileID, clientID, content string, manual map[string]string) (string, error) {
	c, err := s.deps.Clients.Get(ctx, profileID, clientID)
	if err != nil {
		return "", err
	}
	profile, err := s.deps.Profiles.Get(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("communications: load profile: %w", err)
	}
	return Populate(content, s.fields(ctx, c, profile, manual)), nil
}

func (s *Service) fields(ctx context.Context, c *clients.Client, p *profiles.Profile, manual map[string]string) map[string]string {
	src := mergeSource{
		ClientName:    c.ChildName(),
		ParentName:    c.ParentName(),
		ParentEmail:   c.ParentEmail,
		AgencyName:    p.AgencyName,
		AgencyPhone:   p.ContactPhone,
		AgencyEmail:   p.ContactEmail,
		InsuranceName: c.InsuranceName,
		SiteURL:       s.deps.SiteURL,
	}
	if s.deps.Listings != nil {
		l, err := s.deps.Listings.GetByProfile(ctx, p.ID)
		switch {
		case err == nil:
			src.ListingSlug = l.Slug
		case !errors.Is(err, listings.ErrListingNotFound):
			s.logger.Warn("communications: listing lookup failed, link fields left empty", "error", err, "profile_id", p.ID)
		}
	}
	return mergeFields(src, manual)
}

// Preview renders a template for one client without sending or logging.
func (s *Service) Preview(ctx context.Context, profileID string, req PreviewRequest) (Preview, error) {
	tpl, err := TemplateBySlug(req.TemplateSlug)
	if err != nil {
		return Preview{}, err
	}
	c, err := s.deps.Clients.Get(ctx, profileID, req.ClientID)
	if err != nil {
		return Preview{}, err
	}
	profile, err := s.deps.Profiles.Get(ctx, profileID)
	if err != nil {
		return Preview{}, fmt.Errorf("communications: load profile: %w", err)
	}
	fields := s.fields(ctx, c, profile, req.Fields)
	return Preview{Subject: Populate(tpl.Subject, fields), Body: Populate(tpl.Body, fields)}, nil
}

func (s *Service) guard(ctx context.Context, profileID string) error {
	res, err := s.deps.Plans.Resolve(ctx, profileID)
	if err != nil {
		return fmt.Errorf("communications: resolve plan: %w", err)
	}
	decision := plans.GuardFeature(res.Tier, plans.FeatureCommunications)
	s.deps.Plans.Observe(plans.FeatureCommunications, decision)
	return plans.Denied(plans.FeatureCommunications, decision)
}

// Send emails a client's family in the agency's branding and logs the
// attempt whether or not delivery succeeded. A failed delivery returns the
// logged row together with ErrSendFailed.
func (s *Service) Send(ctx context.Context, profileID string, req SendRequest) (*Communication, error) {
	ctx, span := tracer.Start(ctx, "communications.send")
	defer span.End()
	span.SetAttributes(attribute.String("aba.template", req.TemplateSlug))

	if err := s.guard(ctx, profileID); err != nil {
		return nil, err
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" {
		return nil, inputval.Field("clientId", "Client is required")
	}
	c, err := s.deps.Clients.Get(ctx, profileID, req.ClientID)
	if err != nil {
		return nil, err
	}
	profile, err := s.deps.Profiles.Get(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("communications: load profile: %w", err)
	}
	if req.TemplateSlug != "" {
		tpl, err := TemplateBySlug(req.TemplateSlug)
		if err != nil {
			return nil, err
		}
		fields := s.fields(ctx, c, profile, req.Fields)
		if strings.TrimSpace(req.Subject) == "" {
			req.Subject = Populate(tpl.Subject, fields)
		}
		if strings.TrimSpace(req.Body) == "" {
			req.Body = Populate(tpl.Body, fields)
		}
	}
	m, err := s.normalize(c, req)
	if err != nil {
		return nil, err
	}
	m.ProfileID = profileID
	m.SentBy = profileID

	sendErr := s.deps.Mailer.SendClientMessage(ctx, notify.ClientMessageEmail{
		To:      m.RecipientEmail,
		ToName:  m.RecipientName,
		Subject: m.Subject,
		Body:    m.Body,
		Agency:  branding(profile),
	})
	m.Status = StatusSent
	if sendErr != nil {
		span.RecordError(sendErr)
		m.Status = StatusFailed
	}
	m.SentAt = s.now().UTC()
	if err := s.repo.Create(ctx, m); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sendErr != nil {
		s.logger.Warn("communication logged as failed", "communication_id", m.ID, "client_id", c.ID, "error", sendErr)
		return m, fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
	}
	s.logger.Info("communication sent", "communication_id", m.ID, "client_id", c.ID, "template", m.TemplateSlug)
	return m, nil
}

// normalize validates the outgoing message. Subject and body are stored as
// plain text; markup is stripped before anything is sent or logged.
func (s *Service) normalize(c *clients.Client, req SendRequest) (*Communication, error) {
	m := &Communication{
		ClientID:       c.ID,
		ClientName:     c.ChildName(),
		TemplateSlug:   req.TemplateSlug,
		Subject:        inputval.PlainText(req.Subject),
		Body:           inputval.PlainText(req.Body),
		RecipientEmail: strings.ToLower(strings.TrimSpace(req.RecipientEmail)),
		RecipientName:  inputval.PlainText(req.RecipientName),
	}
	if m.RecipientEmail == "" {
		m.RecipientEmail = c.ParentEmail
	}
	if m.RecipientName == "" {
		m.RecipientName = c.ParentName()
	}
	if m.RecipientEmail == "" {
		return nil, inputval.Field("recipientEmail", "This client has no parent email on file")
	}
	if !inputval.IsValidEmail(m.RecipientEmail) {
		return nil, inputval.Field("recipientEmail", "Please enter a valid email address")
	}
	if err := inputval.Length("subject", m.Subject, 1, 200, "Subject"); err != nil {
		return nil, err
	}
	if err := inputval.Length("body", m.Body, 1, 20000, "Message"); err != nil {
		return nil, err
	}
	return m, nil
}

func branding(p *profiles.Profile) notify.AgencyBranding {
	name := p.AgencyName
	if name == "" {
		name = "Our Agency"
	}
	return notify.AgencyBranding{
		AgencyName:   name,
		ContactEmail: p.ContactEmail,
		LogoURL:      p.LogoURL,
		BrandColor:   p.BrandColor,
		Website:      p.Website,
		Phone:        p.ContactPhone,
	}
}

// ClientHistory returns every message sent to one of the caller's clients.
func (s *Service) ClientHistory(ctx context.Context, profileID, clientID string) ([]Communication, error) {
	if _, err := s.deps.Clients.Get(ctx, profileID, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListForClient(ctx, profileID, clientID)
}

// List returns one page of the caller's log.
func (s *Service) List(ctx context.Context, profileID string, filter Filter) (Page, error) {
	filter = filter.normalized()
	rows, total, err := s.repo.List(ctx, profileID, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Communications: rows, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}
