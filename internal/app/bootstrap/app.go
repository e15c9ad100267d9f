package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/aba-directory/internal/api/router"
	"github.com/wolfman30/aba-directory/internal/attributes"
	"github.com/wolfman30/aba-directory/internal/billing"
	"github.com/wolfman30/aba-directory/internal/captcha"
	"github.com/wolfman30/aba-directory/internal/clients"
	"github.com/wolfman30/aba-directory/internal/communications"
	appconfig "github.com/wolfman30/aba-directory/internal/config"
	"github.com/wolfman30/aba-directory/internal/dashboard"
	"github.com/wolfman30/aba-directory/internal/events"
	"github.com/wolfman30/aba-directory/internal/export"
	"github.com/wolfman30/aba-directory/internal/geo"
	httpmiddleware "github.com/wolfman30/aba-directory/internal/http/middleware"
	"github.com/wolfman30/aba-directory/internal/inquiries"
	"github.com/wolfman30/aba-directory/internal/jobs"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/observability/metrics"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/internal/prefill"
	"github.com/wolfman30/aba-directory/internal/profiles"
	"github.com/wolfman30/aba-directory/internal/removals"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// DevCaptchaToken is accepted by public forms outside production when no
// Turnstile secret is configured.
const DevCaptchaToken = "XXXX.DUMMY.TOKEN.XXXX"

// Infra holds the connections opened by the binary. Redis, S3 and SES may
// be nil.
type Infra struct {
	Pool           *pgxpool.Pool
	SQL            *sql.DB
	Redis          *redis.Client
	S3             *s3.Client
	SES            *sesv2.Client
	Metrics        *metrics.DirectoryMetrics
	MetricsHandler http.Handler
}

// BuildAPI wires repositories, services and handlers into the router
// configuration.
func BuildAPI(ctx context.Context, cfg *appconfig.Config, infra Infra, logger *logging.Logger) (*router.Config, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config required")
	}
	if infra.Pool == nil || infra.SQL == nil {
		return nil, errors.New("bootstrap: postgres connections required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	verifier, err := buildCaptcha(cfg, logger)
	if err != nil {
		return nil, err
	}

	profileRepo := profiles.NewPostgresRepository(infra.Pool)
	listingRepo := listings.NewPostgresRepository(infra.Pool)
	attrStore := attributes.NewPostgresStore(infra.Pool)
	noteRepo := notifications.NewPostgresRepository(infra.Pool)
	owners := listings.AttributeOwners{Repo: listingRepo}

	var gates plans.GateObserver
	if infra.Metrics != nil {
		gates = infra.Metrics
	}
	resolver := plans.NewResolver(profileRepo, gates)

	mailer := notify.NewService(
		BuildEmailSender(cfg, infra.SES, logger),
		notify.NewLayout(cfg.PublicBaseURL, cfg.PublicBaseURL+"/logo.png"),
		logger,
	)

	listingSvc := listings.NewService(listingRepo, resolver, buildGeocoder(cfg, infra.Redis, logger), attrStore, profileRepo, logger)
	attrSvc := attributes.NewService(attrStore, owners, resolver, logger)

	inquiryDeps := inquiries.Deps{
		Listings:      listingRepo,
		Plans:         resolver,
		Attributes:    attrStore,
		Captcha:       verifier,
		Profiles:      profileRepo,
		Notifications: noteRepo,
		Mailer:        mailer,
	}
	jobDeps := jobs.Deps{
		Plans:         resolver,
		Profiles:      profileRepo,
		Captcha:       verifier,
		Locations:     listingRepo,
		Notifications: noteRepo,
		Mailer:        mailer,
		Prefill:       prefill.NoopStore{},
		JobsBaseURL:   cfg.JobsBaseURL,
	}
	var decisions removals.DecisionObserver
	if infra.Metrics != nil {
		inquiryDeps.Metrics = infra.Metrics
		jobDeps.Metrics = infra.Metrics
		decisions = infra.Metrics
	}
	if infra.Redis != nil {
		jobDeps.Prefill = prefill.NewRedisStore(infra.Redis, cfg.PrefillTTL)
	}
	if resumes := jobs.NewS3ResumeStore(infra.S3, cfg.ResumeBucket, logger); resumes != nil {
		jobDeps.Resumes = resumes
	} else {
		logger.Warn("resume storage not configured; applications will be accepted without resumes")
	}

	inquirySvc := inquiries.NewService(inquiries.NewPostgresRepository(infra.Pool), inquiryDeps, logger)
	jobSvc := jobs.NewService(jobs.NewPostgresRepository(infra.Pool), jobDeps, logger)
	removalSvc := removals.NewService(removals.NewPostgresRepository(infra.Pool), listingRepo, noteRepo, decisions, logger)
	clientSvc := clients.NewService(clients.NewPostgresRepository(infra.Pool), clients.Deps{
		Plans:         resolver,
		Inquiries:     inquirySvc,
		Notifications: noteRepo,
	}, logger)
	commSvc := communications.NewService(communications.NewPostgresRepository(infra.Pool), communications.Deps{
		Plans:    resolver,
		Clients:  clientSvc,
		Profiles: profileRepo,
		Listings: listingRepo,
		Mailer:   mailer,
		SiteURL:  cfg.PublicBaseURL,
	}, logger)

	pages := DashboardPages(PageSources{
		Inquiries:      inquirySvc,
		Jobs:           jobSvc,
		Listings:       listingSvc,
		Attributes:     attrSvc,
		Owners:         owners,
		Notifications:  noteRepo,
		Communications: commSvc,
	})

	rc := &router.Config{
		Logger:         logger,
		AuthSecret:     cfg.AuthJWTSecret,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		FormLimiter:    buildFormLimiter(ctx, cfg, infra.Redis),
		MetricsHandler: infra.MetricsHandler,
		HealthChecks:   map[string]router.Pinger{"postgres": infra.Pool},

		Listings:       listings.NewHandler(listingSvc, logger),
		Attributes:     attributes.NewHandler(attrSvc, owners, logger),
		Inquiries:      inquiries.NewHandler(inquirySvc, logger),
		Jobs:           jobs.NewHandler(jobSvc, logger),
		Clients:        clients.NewHandler(clientSvc, logger),
		Communications: communications.NewHandler(commSvc, logger),
		Notifications:  notifications.NewHandler(noteRepo, logger),
		Removals:       removals.NewHandler(removalSvc, logger),
		Export:         export.NewHandler(export.NewService(export.NewStore(infra.SQL), logger), logger),
		Dashboard:      dashboard.NewHandler(dashboard.NewService(resolver, pages, logger), logger),
	}
	if infra.Metrics != nil {
		rc.RequestObserver = infra.Metrics
	}
	if infra.Redis != nil {
		rc.HealthChecks["redis"] = redisPinger{client: infra.Redis}
	}
	if cfg.StripeWebhookSecret != "" {
		rc.Billing = billing.NewWebhookHandler(cfg.StripeWebhookSecret, profileRepo, events.NewProcessedStore(infra.Pool), mailer, logger)
	} else {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set; billing webhook disabled")
	}
	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; dashboard and admin routes will reject every request")
	}
	return rc, nil
}

func buildCaptcha(cfg *appconfig.Config, logger *logging.Logger) (captcha.Verifier, error) {
	if cfg.TurnstileSecretKey != "" {
		return captcha.NewTurnstile(cfg.TurnstileSecretKey), nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("bootstrap: TURNSTILE_SECRET_KEY is required in production")
	}
	logger.Warn("TURNSTILE_SECRET_KEY not set; accepting the development captcha token")
	return captcha.Static{Token: DevCaptchaToken}, nil
}

func buildGeocoder(cfg *appconfig.Config, client *redis.Client, logger *logging.Logger) geo.Geocoder {
	if cfg.GeocodingAPIKey == "" {
		logger.Warn("GEOCODING_API_KEY not set; locations will be saved without coordinates")
		return geo.NoopGeocoder{}
	}
	var g geo.Geocoder = geo.NewGoogleGeocoder(cfg.GeocodingAPIKey)
	if client != nil {
		g = geo.NewCachedGeocoder(g, client, cfg.GeocodeCacheTTL, logger)
	}
	return g
}

// buildFormLimiter shares the public form budget across instances through
// Redis when it is available.
func buildFormLimiter(ctx context.Context, cfg *appconfig.Config, client *redis.Client) httpmiddleware.Limiter {
	rate, burst := cfg.PublicFormRatePerSec, cfg.PublicFormBurst
	if rate <= 0 || burst <= 0 {
		return nil
	}
	if client != nil {
		window := time.Duration(float64(burst) / rate * float64(time.Second))
		return httpmiddleware.NewRedisLimiter(client, burst, window)
	}
	return httpmiddleware.NewMemoryLimiter(ctx, rate, burst)
}
