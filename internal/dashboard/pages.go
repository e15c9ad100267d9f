// Package dashboard renders the provider dashboard's feature page shells.
// A page whose feature is not granted by the effective tier renders an
// upgrade prompt and its data is never loaded.
package dashboard

import (
	"context"
	"errors"
	"sort"

	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
)

// ErrUnknownPage is returned for a page name that is not registered.
var ErrUnknownPage = errors.New("dashboard: unknown page")

// BillingPath is where upgrade prompts send the provider.
const BillingPath = "/dashboard/billing"

// PageName identifies a dashboard page.
type PageName string

const (
	PageInbox          PageName = "inbox"
	PageCommunications PageName = "communications"
	PageMedia          PageName = "media"
	PageAnalytics      PageName = "analytics"
	PageJobs           PageName = "jobs"
	PageLocations      PageName = "locations"
)

// Loader fetches a page's data once access has been granted.
type Loader func(ctx context.Context, actor tenancy.Actor, res plans.Resolution) (any, error)

// Page binds a name to the feature guarding it. An empty Feature means the
// page is open to every tier.
type Page struct {
	Name    PageName
	Feature plans.Feature
	Load    Loader
}

// DefaultFeatures maps each page to its gate.
var DefaultFeatures = map[PageName]plans.Feature{
	PageInbox:          plans.FeatureContactInbox,
	PageCommunications: plans.FeatureCommunications,
	PageMedia:          plans.FeatureMedia,
	PageAnalytics:      plans.FeatureAnalytics,
	PageJobs:           plans.FeatureJobPostings,
	PageLocations:      "",
}

// Registry holds the known pages.
type Registry struct {
	pages map[PageName]Page
}

// NewRegistry builds a registry. Later pages replace earlier ones with the
// same name.
func NewRegistry(pages ...Page) *Registry {
	r := &Registry{pages: make(map[PageName]Page, len(pages))}
	for _, p := range pages {
		r.pages[p.Name] = p
	}
	return r
}

// Lookup finds a page by name.
func (r *Registry) Lookup(name PageName) (Page, bool) {
	p, ok := r.pages[name]
	return p, ok
}

// Names lists registered pages in name order.
func (r *Registry) Names() []PageName {
	names := make([]PageName, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
