package removals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var admin = tenancy.Actor{ProfileID: "admin-1", IsAdmin: true}

type decisionCounter map[string]int

func (d decisionCounter) ObserveRemovalDecision(outcome string) { d[outcome]++ }

type fixture struct {
	svc      *Service
	repo     *InMemoryRepository
	listings *listings.InMemoryRepository
	notes    *notifications.InMemoryRepository
	metrics  decisionCounter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewInMemoryRepository(),
		listings: listings.NewInMemoryRepository(),
		notes:    notifications.NewInMemoryRepository(),
		metrics:  decisionCounter{},
	}
	now := time.Now()
	listing := f.listings.PutListing(listings.Listing{ProfileID: "owner-1", Slug: "bright-aba", Status: listings.StatusPublished, PublishedAt: &now})
	f.listings.PutListing(listings.Listing{ProfileID: "draft-1", Slug: "draft-aba"})
	f.repo.PutRequester(Requester{ID: "owner-1", AgencyName: "Bright ABA", ContactEmail: "owner@bright.example"}, ListingRef{ID: listing.ID, Slug: "bright-aba"})
	f.repo.PutDirectoryListing(DirectoryListing{ID: "gp-1", Name: "Bright ABA Therapy", Slug: "bright-aba-therapy-austin", City: "Austin", State: "TX"})
	f.repo.PutDirectoryListing(DirectoryListing{ID: "gp-2", Name: "Bright ABA North", Slug: "bright-aba-north", City: "Round Rock", State: "TX"})
	f.svc = NewService(f.repo, f.listings, f.notes, f.metrics, logging.Discard())
	return f
}

func (f *fixture) create(t *testing.T, target string) string {
	t.Helper()
	id, err := f.svc.Create(context.Background(), "owner-1", target, "This duplicates our verified listing")
	require.NoError(t, err)
	return id
}

func TestCreateRequiresPublishedListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "draft-1", "gp-1", "")
	assert.ErrorIs(t, err, ErrNoPublishedListing)
	_, err = f.svc.Create(ctx, "nobody", "gp-1", "")
	assert.ErrorIs(t, err, ErrNoPublishedListing)

	e, err := f.svc.Eligibility(ctx, "draft-1", "gp-1")
	require.NoError(t, err)
	assert.False(t, e.HasPublishedListing)
}

func TestCreateOnePendingPerTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "gp-1")

	_, err := f.svc.Create(ctx, "owner-1", "gp-1", "again")
	assert.ErrorIs(t, err, ErrPendingExists)

	f.create(t, "gp-2")

	e, err := f.svc.Eligibility(ctx, "owner-1", "gp-1")
	require.NoError(t, err)
	assert.True(t, e.HasPublishedListing)
	assert.Equal(t, "bright-aba", e.ListingSlug)
	require.NotNil(t, e.Existing)
	assert.Equal(t, StatusPending, e.Existing.Status)
}

func TestCreateAfterDenialIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "gp-1")
	_, err := f.svc.Deny(ctx, admin, id, "")
	require.NoError(t, err)

	f.create(t, "gp-1")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "owner-1", " ", "")
	fe, ok := inputval.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "googlePlacesListingId", fe.Field)

	_, err = f.svc.Create(ctx, "owner-1", "gp-1", strings.Repeat("a", 1001))
	_, ok = inputval.AsFieldError(err)
	assert.True(t, ok)

	_, err = f.svc.Create(ctx, "owner-1", "gp-missing", "")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestApproveHidesDirectoryListing(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "gp-1")

	req, err := f.svc.Approve(context.Background(), admin, id, "Verified <i>ownership</i>")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
	assert.Equal(t, "Verified ownership", req.AdminNotes)
	assert.Equal(t, "admin-1", req.ReviewedBy)
	require.NotNil(t, req.ReviewedAt)

	target, _ := f.repo.DirectoryListing("gp-1")
	assert.Equal(t, "removed", target.Status)
	assert.Equal(t, 1, f.metrics["approved"])

	notes := f.notes.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "owner-1", notes[0].ProfileID)
	assert.Equal(t, notifications.TypeStatusChange, notes[0].Type)
	assert.Equal(t, "Removal request approved", notes[0].Title)
}

func TestDenyLeavesDirectoryListingVisible(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "gp-1")

	req, err := f.svc.Deny(context.Background(), admin, id, "Not the same business")
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, req.Status)

	target, _ := f.repo.DirectoryListing("gp-1")
	assert.Equal(t, "active", target.Status)
	assert.Equal(t, 1, f.metrics["denied"])
}

func TestDecisionsAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "gp-1")
	_, err := f.svc.Deny(ctx, admin, id, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, admin, id, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = f.svc.Deny(ctx, admin, id, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = f.svc.Approve(ctx, admin, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveFailureKeepsRequestPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "gp-1")
	f.repo.HideErr = errors.New("directory unavailable")

	_, err := f.svc.Approve(ctx, admin, id, "")
	require.Error(t, err)
	req, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Nil(t, req.ReviewedAt)
	target, _ := f.repo.DirectoryListing("gp-1")
	assert.Equal(t, "active", target.Status)
	assert.Equal(t, 1, f.metrics["failed"])
	assert.Empty(t, f.notes.All())

	f.repo.HideErr = nil
	req, err = f.svc.Approve(ctx, admin, id, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "gp-1")
	provider := tenancy.Actor{ProfileID: "owner-1"}

	_, err := f.svc.Approve(ctx, provider, id, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Deny(ctx, provider, id, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.List(ctx, provider, Filter{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Stats(ctx, provider)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListPagesWithTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		target := fmt.Sprintf("gp-x%02d", i)
		f.repo.PutDirectoryListing(DirectoryListing{ID: target, Name: target})
		f.create(t, target)
	}

	first, err := f.svc.List(ctx, admin, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 25, first.Total)
	assert.Len(t, first.Requests, DefaultPageSize)
	assert.Equal(t, "gp-x24", first.Requests[0].DirectoryListing.ID)

	second, err := f.svc.List(ctx, admin, Filter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Requests, 5)

	approved, err := f.svc.List(ctx, admin, Filter{Status: StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 0, approved.Total)
	assert.Empty(t, approved.Requests)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.create(t, "gp-1")
	f.create(t, "gp-2")
	_, err := f.svc.Approve(ctx, admin, id, "")
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalDirectoryListings:   2,
		ActiveDirectoryListings:  1,
		RemovedDirectoryListings: 1,
		PendingRequests:          1,
		TotalRequests:            2,
	}, stats)
}
