package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

type gateCounter struct {
	allowed map[string]int
	denied  map[string]int
}

func newGateCounter() *gateCounter {
	return &gateCounter{allowed: map[string]int{}, denied: map[string]int{}}
}

func (g *gateCounter) ObserveGate(feature string, allowed bool) {
	if allowed {
		g.allowed[feature]++
		return
	}
	g.denied[feature]++
}

type countingLoader struct {
	calls int
	data  any
	err   error
}

func (c *countingLoader) load(context.Context, tenancy.Actor, plans.Resolution) (any, error) {
	c.calls++
	return c.data, c.err
}

type fixture struct {
	svc       *Service
	gates     *gateCounter
	inbox     *countingLoader
	locations *countingLoader
}

func newFixture() *fixture {
	done := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	loader := plans.StaticLoader{
		"free-1":     {StoredTier: plans.TierFree, Status: plans.StatusNone, OnboardingCompletedAt: &done},
		"pro-1":      {StoredTier: plans.TierPro, Status: plans.StatusActive, OnboardingCompletedAt: &done},
		"lapsed-1":   {StoredTier: plans.TierEnterprise, Status: plans.StatusPastDue, OnboardingCompletedAt: &done},
		"trialing-1": {StoredTier: plans.TierPro, Status: plans.StatusTrialing},
	}
	f := &fixture{
		gates:     newGateCounter(),
		inbox:     &countingLoader{data: map[string]int{"unreadCount": 2}},
		locations: &countingLoader{data: []string{"Austin"}},
	}
	pages := NewRegistry(
		Page{Name: PageInbox, Feature: DefaultFeatures[PageInbox], Load: f.inbox.load},
		Page{Name: PageLocations, Feature: DefaultFeatures[PageLocations], Load: f.locations.load},
		Page{Name: PageAnalytics, Feature: DefaultFeatures[PageAnalytics]},
		Page{Name: PageJobs, Feature: DefaultFeatures[PageJobs]},
	)
	f.svc = NewService(plans.NewResolver(loader, f.gates), pages, logging.Discard())
	return f
}

func TestFreeInboxRendersUpgradePromptWithoutLoading(t *testing.T) {
	f := newFixture()

	view, err := f.svc.Render(context.Background(), tenancy.Actor{ProfileID: "free-1"}, PageInbox)
	require.NoError(t, err)
	assert.Equal(t, ViewUpgradePrompt, view.View)
	assert.Equal(t, plans.FeatureContactInbox, view.Feature)
	assert.Equal(t, plans.TierPro, view.RequiredTier)
	assert.Equal(t, "/dashboard/billing", view.Href)
	assert.Equal(t, plans.Info(plans.FeatureContactInbox).UpgradeMessage, view.Message)
	assert.Nil(t, view.Data)
	assert.Zero(t, f.inbox.calls)
	assert.Equal(t, 1, f.gates.denied[string(plans.FeatureContactInbox)])
}

func TestLapsedSubscriptionIsGatedLikeFree(t *testing.T) {
	f := newFixture()

	view, err := f.svc.Render(context.Background(), tenancy.Actor{ProfileID: "lapsed-1"}, PageAnalytics)
	require.NoError(t, err)
	assert.Equal(t, ViewUpgradePrompt, view.View)
	assert.Equal(t, plans.TierFree, view.EffectiveTier)
}

func TestGrantedPageLoadsData(t *testing.T) {
	f := newFixture()

	for _, profile := range []string{"pro-1", "trialing-1"} {
		view, err := f.svc.Render(context.Background(), tenancy.Actor{ProfileID: profile}, PageInbox)
		require.NoError(t, err)
		assert.Equal(t, ViewFeature, view.View)
		assert.Equal(t, plans.TierPro, view.EffectiveTier)
		assert.Equal(t, map[string]int{"unreadCount": 2}, view.Data)
	}
	assert.Equal(t, 2, f.inbox.calls)
	assert.Equal(t, 2, f.gates.allowed[string(plans.FeatureContactInbox)])
}

func TestOpenPagesRenderForEveryTier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.svc.Render(ctx, tenancy.Actor{ProfileID: "free-1"}, PageLocations)
	require.NoError(t, err)
	assert.Equal(t, ViewFeature, view.View)
	assert.Equal(t, 1, f.locations.calls)

	view, err = f.svc.Render(ctx, tenancy.Actor{ProfileID: "free-1"}, PageJobs)
	require.NoError(t, err)
	assert.Equal(t, ViewFeature, view.View)
	assert.Nil(t, view.Data)
}

func TestRenderErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Render(ctx, tenancy.Actor{ProfileID: "pro-1"}, PageName("billing-secrets"))
	assert.ErrorIs(t, err, ErrUnknownPage)

	_, err = f.svc.Render(ctx, tenancy.Actor{ProfileID: "ghost"}, PageInbox)
	assert.ErrorIs(t, err, plans.ErrProfileNotFound)

	f.locations.err = errors.New("db down")
	_, err = f.svc.Render(ctx, tenancy.Actor{ProfileID: "pro-1"}, PageLocations)
	assert.ErrorContains(t, err, "dashboard: load locations")
}

func TestRegistryNames(t *testing.T) {
	f := newFixture()
	assert.Equal(t, []PageName{PageAnalytics, PageInbox, PageJobs, PageLocations}, f.svc.pages.Names())
}

func TestHandler_PageAndPlan(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, logging.Discard())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(tenancy.WithActor(req.Context(), tenancy.Actor{ProfileID: "free-1"})))
		})
	})
	r.Get("/api/dashboard/pages/{page}", h.Page)
	r.Get("/api/dashboard/plan", h.Plan)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/pages/inbox", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var env respond.Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	data := env.Data.(map[string]any)
	assert.Equal(t, "upgrade_prompt", data["view"])
	assert.Equal(t, "/dashboard/billing", data["href"])
	assert.Equal(t, "pro", data["required_tier"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/pages/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/plan", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env = respond.Envelope{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, "free", env.Data.(map[string]any)["effectiveTier"])
}
