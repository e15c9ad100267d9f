package removals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.removals")

const (
	maxReasonLength = 1000
	maxNotesLength  = 2000
)

// ListingReader finds the caller's own listing.
type ListingReader interface {
	GetByProfile(ctx context.Context, profileID string) (*listings.Listing, error)
}

// NotificationCreator tells the requester about a decision.
type NotificationCreator interface {
	Create(ctx context.Context, n *notifications.Notification) error
}

// DecisionObserver counts admin decisions.
type DecisionObserver interface {
	ObserveRemovalDecision(outcome string)
}

// Service runs the removal request workflow.
type Service struct {
	repo          Repository
	listings      ListingReader
	notifications NotificationCreator
	metrics       DecisionObserver
	logger        *logging.Logger
	now           func() time.Time
}

// NewService wires the workflow. notes and metrics may be nil.
func NewService(repo Repository, listings ListingReader, notes NotificationCreator, metrics DecisionObserver, logger *logging.Logger) *Service {
	if repo == nil || listings == nil {
		panic("removals: repository and listing reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, listings: listings, notifications: notes, metrics: metrics, logger: logger, now: time.Now}
}

func (s *Service) publishedListing(ctx context.Context, profileID string) (*listings.Listing, error) {
	listing, err := s.listings.GetByProfile(ctx, profileID)
	if errors.Is(err, listings.ErrListingNotFound) {
		return nil, ErrNoPublishedListing
	}
	if err != nil {
		return nil, fmt.Errorf("removals: load listing: %w", err)
	}
	if !listing.Published() {
		return nil, ErrNoPublishedListing
	}
	return listing, nil
}

// Eligibility reports whether the caller can file a request for the
// directory listing and returns their latest request for it.
func (s *Service) Eligibility(ctx context.Context, profileID, directoryListingID string) (*Eligibility, error) {
	listing, err := s.publishedListing(ctx, profileID)
	if errors.Is(err, ErrNoPublishedListing) {
		return &Eligibility{}, nil
	}
	if err != nil {
		return nil, err
	}
	latest, err := s.repo.Latest(ctx, profileID, strings.TrimSpace(directoryListingID))
	if err != nil {
		return nil, err
	}
	return &Eligibility{HasPublishedListing: true, ListingSlug: listing.Slug, Existing: latest}, nil
}

// Create files a request from the caller's published listing. Only one
// request per directory listing may be pending at a time.
func (s *Service) Create(ctx context.Context, profileID, directoryListingID, reason string) (string, error) {
	ctx, span := tracer.Start(ctx, "removals.create")
	defer span.End()

	directoryListingID = strings.TrimSpace(directoryListingID)
	if directoryListingID == "" {
		return "", inputval.Field("googlePlacesListingId", "Directory listing is required")
	}
	reason = inputval.PlainText(reason)
	if err := inputval.Length("reason", reason, 0, maxReasonLength, "Reason"); err != nil {
		return "", err
	}

	listing, err := s.publishedListing(ctx, profileID)
	if err != nil {
		return "", err
	}
	pending, err := s.repo.PendingExists(ctx, profileID, directoryListingID)
	if err != nil {
		return "", err
	}
	if pending {
		return "", ErrPendingExists
	}

	id, err := s.repo.Create(ctx, NewRequest{
		ProfileID:          profileID,
		ListingID:          listing.ID,
		DirectoryListingID: directoryListingID,
		Reason:             reason,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("aba.removal_request_id", id))
	s.logger.Info("removal request created", "request_id", id, "profile_id", profileID, "directory_listing_id", directoryListingID)
	return id, nil
}

func requireAdmin(actor tenancy.Actor) error {
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// List returns a page of the admin queue.
func (s *Service) List(ctx context.Context, actor tenancy.Actor, f Filter) (*Page, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f.normalized())
}

// Stats returns the admin dashboard counters.
func (s *Service) Stats(ctx context.Context, actor tenancy.Actor) (Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return Stats{}, err
	}
	return s.repo.Stats(ctx)
}

// Approve hides the directory listing and marks the request approved. When
// hiding fails the request stays pending and can be approved again.
func (s *Service) Approve(ctx context.Context, actor tenancy.Actor, id, notes string) (*Request, error) {
	return s.decide(ctx, actor, id, StatusApproved, notes)
}

// Deny marks the request denied. The directory listing is untouched.
func (s *Service) Deny(ctx context.Context, actor tenancy.Actor, id, notes string) (*Request, error) {
	return s.decide(ctx, actor, id, StatusDenied, notes)
}

func (s *Service) decide(ctx context.Context, actor tenancy.Actor, id string, status Status, notes string) (*Request, error) {
	ctx, span := tracer.Start(ctx, "removals.decide")
	defer span.End()
	span.SetAttributes(attribute.String("aba.removal_request_id", id), attribute.String("aba.decision", string(status)))

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	notes = inputval.PlainText(notes)
	if err := inputval.Length("adminNotes", notes, 0, maxNotesLength, "Notes"); err != nil {
		return nil, err
	}

	err := s.repo.Decide(ctx, id, Decision{
		Status:     status,
		AdminNotes: notes,
		ReviewedBy: actor.ProfileID,
		ReviewedAt: s.now().UTC(),
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyProcessed) {
			span.RecordError(err)
			s.observe("failed")
			s.logger.Error("removal decision failed", "error", err, "request_id", id, "decision", status)
		}
		return nil, err
	}
	s.observe(string(status))
	s.logger.Info("removal request decided", "request_id", id, "decision", status, "admin_id", actor.ProfileID)

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyRequester(ctx, req)
	return req, nil
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRemovalDecision(outcome)
	}
}

func (s *Service) notifyRequester(ctx context.Context, req *Request) {
	if s.notifications == nil {
		return
	}
	title := "Removal request approved"
	body := req.DirectoryListing.Name + " has been removed from the directory."
	if req.Status == StatusDenied {
		title = "Removal request denied"
		body = "Your request to remove " + req.DirectoryListing.Name + " was not approved."
	}
	err := s.notifications.Create(ctx, &notifications.Notification{
		ProfileID:  req.Profile.ID,
		Type:       notifications.TypeStatusChange,
		Title:      title,
		Body:       body,
		EntityID:   req.ID,
		EntityType: "removal_request",
	})
	if err != nil {
		s.logger.Error("failed to create removal notification", "error", err, "request_id", req.ID)
	}
}
