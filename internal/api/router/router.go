package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/aba-directory/internal/attributes"
	"github.com/wolfman30/aba-directory/internal/billing"
	"github.com/wolfman30/aba-directory/internal/clients"
	"github.com/wolfman30/aba-directory/internal/communications"
	"github.com/wolfman30/aba-directory/internal/dashboard"
	"github.com/wolfman30/aba-directory/internal/export"
	httpmiddleware "github.com/wolfman30/aba-directory/internal/http/middleware"
	"github.com/wolfman30/aba-directory/internal/inquiries"
	"github.com/wolfman30/aba-directory/internal/jobs"
	"github.com/wolfman30/aba-directory/internal/listings"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/removals"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	AuthSecret      string
	CORSOrigins     []string
	FormLimiter     httpmiddleware.Limiter
	RequestObserver httpmiddleware.RequestObserver
	MetricsHandler  http.Handler
	HealthChecks    map[string]Pinger

	Listings       *listings.Handler
	Attributes     *attributes.Handler
	Inquiries      *inquiries.Handler
	Jobs           *jobs.Handler
	Clients        *clients.Handler
	Communications *communications.Handler
	Notifications  *notifications.Handler
	Removals       *removals.Handler
	Export         *export.Handler
	Dashboard      *dashboard.Handler
	Billing        *billing.WebhookHandler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.RequestObserver))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	}

	r.Get("/health", health(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Billing != nil {
		r.Post("/webhooks/stripe", cfg.Billing.Handle)
	}

	// Public directory and forms
	r.Route("/api", func(api chi.Router) {
		api.Group(func(forms chi.Router) {
			if cfg.FormLimiter != nil {
				forms.Use(httpmiddleware.RateLimit(cfg.FormLimiter, cfg.Logger))
			}
			forms.Post("/listings/{listingID}/inquiries", cfg.Inquiries.Submit)
			forms.Post("/jobs/{jobID}/applications", cfg.Jobs.Apply)
		})
		api.Get("/listings/{slug}", cfg.Listings.GetPublic)
		api.Get("/search/nearby", cfg.Listings.SearchNearby)
		api.Get("/jobs/prefill", cfg.Jobs.Prefill)

		api.Route("/dashboard", func(d chi.Router) {
			d.Use(httpmiddleware.Authenticate(cfg.AuthSecret))
			d.Use(middleware.NoCache)
			dashboardRoutes(d, cfg)
		})

		api.Route("/admin", func(a chi.Router) {
			a.Use(httpmiddleware.Authenticate(cfg.AuthSecret))
			a.Use(httpmiddleware.RequireAdmin)
			a.Use(middleware.NoCache)
			a.Get("/removal-requests", cfg.Removals.List)
			a.Post("/removal-requests/{requestID}/approve", cfg.Removals.Approve)
			a.Post("/removal-requests/{requestID}/deny", cfg.Removals.Deny)
			a.Get("/stats", cfg.Removals.Stats)
			a.Get("/customers", cfg.Export.CustomerList)
			a.Get("/export/{kind}", cfg.Export.AdminExport)
		})
	})

	return r
}

func dashboardRoutes(d chi.Router, cfg *Config) {
	d.Get("/plan", cfg.Dashboard.Plan)
	d.Get("/pages/{page}", cfg.Dashboard.Page)

	d.Get("/listing", cfg.Listings.GetListing)
	d.Patch("/listing", cfg.Listings.UpdateListing)
	d.Post("/listing/publish", cfg.Listings.Publish)
	d.Post("/listing/unpublish", cfg.Listings.Unpublish)

	d.Get("/attributes", cfg.Attributes.Get)
	d.Patch("/attributes", cfg.Attributes.Update)
	d.Delete("/attributes", cfg.Attributes.Clear)

	d.Route("/locations", func(l chi.Router) {
		l.Get("/", cfg.Listings.ListLocations)
		l.Post("/", cfg.Listings.AddLocation)
		l.Patch("/{locationID}", cfg.Listings.UpdateLocation)
		l.Delete("/{locationID}", cfg.Listings.DeleteLocation)
		l.Post("/{locationID}/primary", cfg.Listings.SetPrimary)
	})

	d.Route("/inquiries", func(i chi.Router) {
		i.Get("/", cfg.Inquiries.List)
		i.Get("/unread-count", cfg.Inquiries.UnreadCount)
		i.Get("/{inquiryID}", cfg.Inquiries.Get)
		i.Post("/{inquiryID}/read", cfg.Inquiries.MarkRead)
		i.Post("/{inquiryID}/replied", cfg.Inquiries.MarkReplied)
		i.Post("/{inquiryID}/archive", cfg.Inquiries.Archive)
		i.Post("/{inquiryID}/convert", cfg.Clients.ConvertInquiry)
	})

	d.Route("/clients", func(c chi.Router) {
		c.Get("/", cfg.Clients.List)
		c.Post("/", cfg.Clients.Create)
		c.Get("/{clientID}", cfg.Clients.Get)
		c.Patch("/{clientID}", cfg.Clients.Update)
		c.Get("/{clientID}/communications", cfg.Communications.ClientHistory)
	})

	d.Route("/tasks", func(t chi.Router) {
		t.Get("/", cfg.Clients.ListTasks)
		t.Post("/", cfg.Clients.AddTask)
		t.Post("/{taskID}/complete", cfg.Clients.CompleteTask)
		t.Delete("/{taskID}", cfg.Clients.DeleteTask)
	})

	d.Route("/communications", func(c chi.Router) {
		c.Get("/", cfg.Communications.List)
		c.Post("/", cfg.Communications.Send)
		c.Post("/preview", cfg.Communications.Preview)
		c.Get("/templates", cfg.Communications.Templates)
		c.Get("/templates/{slug}", cfg.Communications.Template)
	})

	d.Route("/jobs", func(j chi.Router) {
		j.Get("/", cfg.Jobs.ListPostings)
		j.Post("/", cfg.Jobs.CreatePosting)
		j.Get("/quota", cfg.Jobs.Quota)
		j.Get("/{jobID}", cfg.Jobs.GetPosting)
		j.Patch("/{jobID}", cfg.Jobs.UpdatePosting)
		j.Delete("/{jobID}", cfg.Jobs.DeletePosting)
		j.Post("/{jobID}/publish", cfg.Jobs.Publish)
		j.Post("/{jobID}/filled", cfg.Jobs.MarkFilled)
		j.Post("/{jobID}/close", cfg.Jobs.Close)
	})

	d.Route("/applications", func(a chi.Router) {
		a.Get("/", cfg.Jobs.ListApplications)
		a.Get("/new-count", cfg.Jobs.NewApplicationCount)
		a.Get("/{applicationID}", cfg.Jobs.GetApplication)
		a.Patch("/{applicationID}", cfg.Jobs.UpdateApplicationDetails)
		a.Post("/{applicationID}/status", cfg.Jobs.UpdateApplicationStatus)
		a.Get("/{applicationID}/resume", cfg.Jobs.ResumeURL)
	})

	d.Post("/removal-requests", cfg.Removals.Create)
	d.Get("/removal-requests/eligibility", cfg.Removals.Eligibility)

	d.Route("/notifications", func(n chi.Router) {
		n.Get("/", cfg.Notifications.List)
		n.Get("/counts", cfg.Notifications.Counts)
		n.Post("/read-all", cfg.Notifications.MarkAllRead)
		n.Post("/{notificationID}/read", cfg.Notifications.MarkRead)
	})

	d.Get("/export/inquiries.csv", cfg.Export.InquiryExport)
}

func health(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				body[name] = "unavailable"
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
