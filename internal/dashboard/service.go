package dashboard

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.dashboard")

const (
	ViewFeature       = "feature"
	ViewUpgradePrompt = "upgrade_prompt"
)

// View is what a page shell renders: either the page data or an upgrade
// prompt.
type View struct {
	View          string        `json:"view"`
	Page          PageName      `json:"page"`
	Feature       plans.Feature `json:"feature,omitempty"`
	FeatureName   string        `json:"featureName,omitempty"`
	Message       string        `json:"message,omitempty"`
	RequiredTier  plans.Tier    `json:"required_tier,omitempty"`
	Href          string        `json:"href,omitempty"`
	EffectiveTier plans.Tier    `json:"effectiveTier"`
	Data          any           `json:"data,omitempty"`
}

// Resolver resolves a profile's effective tier and records gate decisions.
type Resolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// Service renders page shells.
type Service struct {
	resolver Resolver
	pages    *Registry
	logger   *logging.Logger
}

// NewService wires the resolver and page registry.
func NewService(resolver Resolver, pages *Registry, logger *logging.Logger) *Service {
	if resolver == nil || pages == nil {
		panic("dashboard: resolver and registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{resolver: resolver, pages: pages, logger: logger}
}

// Plan returns the caller's effective tier and feature record.
func (s *Service) Plan(ctx context.Context, actor tenancy.Actor) (plans.Resolution, error) {
	return s.resolver.Resolve(ctx, actor.ProfileID)
}

// Render resolves the caller's plan, then either loads the page or returns
// the upgrade prompt.
func (s *Service) Render(ctx context.Context, actor tenancy.Actor, name PageName) (*View, error) {
	ctx, span := tracer.Start(ctx, "dashboard.render")
	defer span.End()
	span.SetAttributes(attribute.String("aba.page", string(name)))

	page, ok := s.pages.Lookup(name)
	if !ok {
		return nil, ErrUnknownPage
	}
	res, err := s.resolver.Resolve(ctx, actor.ProfileID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if page.Feature != "" {
		decision := plans.GuardFeature(res.Tier, page.Feature)
		s.resolver.Observe(page.Feature, decision)
		if !decision.Allowed {
			info := plans.Info(page.Feature)
			span.SetAttributes(attribute.Bool("aba.gate.allowed", false))
			return &View{
				View:          ViewUpgradePrompt,
				Page:          name,
				Feature:       page.Feature,
				FeatureName:   info.Name,
				Message:       info.UpgradeMessage,
				RequiredTier:  decision.RequiredTier,
				Href:          BillingPath,
				EffectiveTier: res.Tier,
			}, nil
		}
	}

	view := &View{View: ViewFeature, Page: name, Feature: page.Feature, EffectiveTier: res.Tier}
	if page.Load != nil {
		data, err := page.Load(ctx, actor, res)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("dashboard: load %s: %w", name, err)
		}
		view.Data = data
	}
	return view, nil
}
