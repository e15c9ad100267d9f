// Package jobs implements the provider job board: postings, public
// applications with resume upload, and the applicant pipeline.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/captcha"
	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/prefill"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.jobs")

// DefaultJobsBaseURL prefixes public job links in applicant emails.
const DefaultJobsBaseURL = "https://www.findabajobs.org"

// PlanResolver resolves the poster's effective tier.
type PlanResolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// ProfileReader loads the agency behind a posting.
type ProfileReader interface {
	Get(ctx context.Context, id string) (*profiles.Profile, error)
}

// LocationReader checks that a posting's location belongs to the poster.
type LocationReader interface {
	GetByProfile(ctx context.Context, profileID string) (*listings.Listing, error)
	GetLocation(ctx context.Context, listingID, locationID string) (*listings.Location, error)
}

// NotificationCreator records the in-app alert.
type NotificationCreator interface {
	Create(ctx context.Context, n *notifications.Notification) error
}

// Mailer sends the applicant and provider emails.
type Mailer interface {
	ConfirmApplication(ctx context.Context, p notify.ApplicantConfirmationEmail) error
	NotifyNewApplication(ctx context.Context, p notify.ApplicationEmail) error
}

// SubmissionObserver counts public form outcomes.
type SubmissionObserver interface {
	ObserveSubmission(form, outcome string)
}

// Deps are the collaborators of the job board. Everything after Captcha is
// optional.
type Deps struct {
	Plans         PlanResolver
	Profiles      ProfileReader
	Captcha       captcha.Verifier
	Resumes       ResumeStore
	Locations     LocationReader
	Notifications NotificationCreator
	Mailer        Mailer
	Prefill       prefill.Store
	Metrics       SubmissionObserver
	JobsBaseURL   string
}

// Service owns postings and applications.
type Service struct {
	repo   Repository
	deps   Deps
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires the job board.
func NewService(repo Repository, deps Deps, logger *logging.Logger) *Service {
	if repo == nil || deps.Plans == nil || deps.Profiles == nil || deps.Captcha == nil {
		panic("jobs: repository, plans, profiles and captcha required")
	}
	if deps.Prefill == nil {
		deps.Prefill = prefill.NoopStore{}
	}
	if deps.JobsBaseURL == "" {
		deps.JobsBaseURL = DefaultJobsBaseURL
	}
	deps.JobsBaseURL = strings.TrimRight(deps.JobsBaseURL, "/")
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, deps: deps, logger: logger, now: time.Now}
}

// Quota reports how many postings the caller has against the plan limit.
func (s *Service) Quota(ctx context.Context, profileID string) (Quota, error) {
	res, err := s.deps.Plans.Resolve(ctx, profileID)
	if err != nil {
		return Quota{}, fmt.Errorf("jobs: resolve plan: %w", err)
	}
	count, err := s.repo.CountPostings(ctx, profileID)
	if err != nil {
		return Quota{}, err
	}
	limit := res.Features.MaxJobPostings
	return Quota{Count: count, Limit: limit, CanCreate: count < limit}, nil
}

// CreatePosting validates and stores a new posting under the plan quota.
func (s *Service) CreatePosting(ctx context.Context, profileID string, in PostingInput) (*Posting, error) {
	ctx, span := tracer.Start(ctx, "jobs.create_posting")
	defer span.End()

	p, err := newPosting(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkLocation(ctx, profileID, p.LocationID); err != nil {
		return nil, err
	}
	owner, err := s.deps.Profiles.Get(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("jobs: load profile: %w", err)
	}

	res, err := s.deps.Plans.Resolve(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("jobs: resolve plan: %w", err)
	}
	count, err := s.repo.CountPostings(ctx, profileID)
	if err != nil {
		return nil, err
	}
	decision := plans.GuardAddJobPosting(res.Tier, count)
	s.deps.Plans.Observe(plans.FeatureJobPostings, decision)
	if err := plans.Denied(plans.FeatureJobPostings, decision); err != nil {
		return nil, err
	}

	p.ProfileID = profileID
	if p.Status == PostingPublished {
		at := s.now().UTC()
		p.PublishedAt = &at
	}
	base := inputval.Slugify(p.Title+"-"+owner.AgencyName, maxSlugLength)
	for attempt := 0; attempt < 3; attempt++ {
		if p.Slug, err = s.uniqueSlug(ctx, base); err != nil {
			return nil, err
		}
		err = s.repo.CreatePosting(ctx, p)
		if !errors.Is(err, ErrSlugTaken) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("aba.job.slug", p.Slug))
	s.logger.Info("job posting created", "job_id", p.ID, "profile_id", profileID, "status", p.Status)
	return p, nil
}

// uniqueSlug returns base, or base-N for the first free N.
func (s *Service) uniqueSlug(ctx context.Context, base string) (string, error) {
	slug := base
	for n := 1; n <= 100; n++ {
		taken, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return fmt.Sprintf("%s-%d", base, s.now().UnixNano()), nil
}

func (s *Service) checkLocation(ctx context.Context, profileID, locationID string) error {
	if locationID == "" || s.deps.Locations == nil {
		return nil
	}
	listing, err := s.deps.Locations.GetByProfile(ctx, profileID)
	if errors.Is(err, listings.ErrListingNotFound) {
		return inputval.Field("locationId", "Location not found")
	}
	if err != nil {
		return fmt.Errorf("jobs: load listing: %w", err)
	}
	if _, err := s.deps.Locations.GetLocation(ctx, listing.ID, locationID); err != nil {
		if errors.Is(err, listings.ErrLocationNotFound) {
			return inputval.Field("locationId", "Location not found")
		}
		return fmt.Errorf("jobs: load location: %w", err)
	}
	return nil
}

// ListPostings returns the caller's postings with application counts.
func (s *Service) ListPostings(ctx context.Context, profileID string) ([]Posting, error) {
	return s.repo.ListPostings(ctx, profileID)
}

// GetPosting returns one of the caller's postings.
func (s *Service) GetPosting(ctx context.Context, profileID, id string) (*Posting, error) {
	return s.repo.GetPosting(ctx, profileID, id)
}

// UpdatePosting edits a posting. The slug never changes.
func (s *Service) UpdatePosting(ctx context.Context, profileID, id string, u PostingUpdate) (*Posting, error) {
	current, err := s.repo.GetPosting(ctx, profileID, id)
	if err != nil {
		return nil, err
	}
	next, err := applyUpdate(*current, u)
	if err != nil {
		return nil, err
	}
	if next.LocationID != current.LocationID {
		if err := s.checkLocation(ctx, profileID, next.LocationID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdatePosting(ctx, next); err != nil {
		return nil, err
	}
	return s.repo.GetPosting(ctx, profileID, id)
}

// SetPostingStatus moves a posting between draft, published, filled and
// closed. Reopening a closed posting is a publish.
func (s *Service) SetPostingStatus(ctx context.Context, profileID, id string, status PostingStatus) (*Posting, error) {
	if !status.Valid() {
		return nil, fieldStatus()
	}
	if err := s.repo.SetPostingStatus(ctx, profileID, id, status, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("job posting status changed", "job_id", id, "status", status)
	return s.repo.GetPosting(ctx, profileID, id)
}

// DeletePosting removes a posting together with its applications.
func (s *Service) DeletePosting(ctx context.Context, profileID, id string) error {
	return s.repo.DeletePosting(ctx, profileID, id)
}
