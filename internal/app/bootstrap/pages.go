package bootstrap

import (
	"context"

	"github.com/wolfman30/aba-directory/internal/attributes"
	"github.com/wolfman30/aba-directory/internal/communications"
	"github.com/wolfman30/aba-directory/internal/dashboard"
	"github.com/wolfman30/aba-directory/internal/inquiries"
	"github.com/wolfman30/aba-directory/internal/jobs"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
)

// PageSources are the services dashboard pages read from.
type PageSources struct {
	Inquiries      *inquiries.Service
	Jobs           *jobs.Service
	Listings       *listings.Service
	Attributes     *attributes.Service
	Owners         attributes.ListingLookup
	Notifications  notifications.Repository
	Communications *communications.Service
}

// DashboardPages registers every page shell with its loader.
func DashboardPages(src PageSources) *dashboard.Registry {
	page := func(name dashboard.PageName, load dashboard.Loader) dashboard.Page {
		return dashboard.Page{Name: name, Feature: dashboard.DefaultFeatures[name], Load: load}
	}
	return dashboard.NewRegistry(
		page(dashboard.PageInbox, src.inbox),
		page(dashboard.PageCommunications, src.communications),
		page(dashboard.PageMedia, src.media),
		page(dashboard.PageAnalytics, src.analytics),
		page(dashboard.PageJobs, src.jobs),
		page(dashboard.PageLocations, src.locations),
	)
}

func (src PageSources) inbox(ctx context.Context, actor tenancy.Actor, _ plans.Resolution) (any, error) {
	return src.Inquiries.List(ctx, actor.ProfileID, inquiries.Filter{})
}

// communications loads the template list and the most recent page of the
// communication log alongside the notification feed.
func (src PageSources) communications(ctx context.Context, actor tenancy.Actor, _ plans.Resolution) (any, error) {
	log, err := src.Communications.List(ctx, actor.ProfileID, communications.Filter{})
	if err != nil {
		return nil, err
	}
	recent, err := src.Notifications.List(ctx, actor.ProfileID, notifications.Filter{Limit: 20})
	if err != nil {
		return nil, err
	}
	counts, err := src.Notifications.UnreadCountsByType(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"templates":      src.Communications.Templates(),
		"communications": log.Communications,
		"total":          log.Total,
		"notifications":  recent,
		"unreadByType":   counts,
	}, nil
}

func (src PageSources) media(ctx context.Context, actor tenancy.Actor, res plans.Resolution) (any, error) {
	listingID, err := src.Owners.ListingIDForProfile(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	attrs, err := src.Attributes.Get(ctx, actor.ProfileID, listingID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"videoUrl":      attrs.VideoURL(),
		"maxPhotos":     res.Features.MaxPhotos,
		"hasVideoEmbed": res.Features.HasVideoEmbed,
	}, nil
}

func (src PageSources) analytics(ctx context.Context, actor tenancy.Actor, _ plans.Resolution) (any, error) {
	unread, err := src.Inquiries.UnreadCount(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	newApplications, err := src.Jobs.NewApplicationCount(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	locations, err := src.Listings.ListLocations(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		"unreadInquiries": unread,
		"newApplications": newApplications,
		"locations":       len(locations),
	}, nil
}

func (src PageSources) jobs(ctx context.Context, actor tenancy.Actor, _ plans.Resolution) (any, error) {
	postings, err := src.Jobs.ListPostings(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	quota, err := src.Jobs.Quota(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"postings": postings, "quota": quota}, nil
}

func (src PageSources) locations(ctx context.Context, actor tenancy.Actor, res plans.Resolution) (any, error) {
	locations, err := src.Listings.ListLocations(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"locations": locations, "maxLocations": res.Features.MaxLocations}, nil
}
