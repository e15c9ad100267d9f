// Command send-test-emails renders every transactional email with sample
// data and sends it to one inbox so the templates can be checked in real
// mail clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/aba-directory/cmd/mainconfig"
	"github.com/wolfman30/aba-directory/internal/app/bootstrap"
	appconfig "github.com/wolfman30/aba-directory/internal/config"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

type sample struct {
	name string
	send func(ctx context.Context, svc *notify.Service, to string) error
}

var samples = []sample{
	{"provider_inquiry", func(ctx context.Context, svc *notify.Service, to string) error {
		return svc.NotifyNewInquiry(ctx, notify.InquiryEmail{
			To:            to,
			ProviderName:  "Bright Steps ABA",
			FamilyName:    "Jordan Rivera",
			FamilyEmail:   "jordan.rivera@example.com",
			FamilyPhone:   "(512) 555-0142",
			ChildAge:      "4",
			Message:       "Hi! We're looking for in-home ABA for our son. Do you have openings this spring?",
			LocationLabel: "Austin, TX",
		})
	}},
	{"applicant_confirmation", func(ctx context.Context, svc *notify.Service, to string) error {
		return svc.ConfirmApplication(ctx, notify.ApplicantConfirmationEmail{
			To:            to,
			ApplicantName: "Sam Patel",
			JobTitle:      "Registered Behavior Technician",
			JobURL:        "https://jobs.findabatherapy.org/job/rbt-austin",
			Agency: notify.AgencyBranding{
				AgencyName:   "Bright Steps ABA",
				ContactEmail: "careers@brightsteps.example",
				BrandColor:   "#0866C6",
				Website:      "https://brightsteps.example",
			},
		})
	}},
	{"provider_application", func(ctx context.Context, svc *notify.Service, to string) error {
		return svc.NotifyNewApplication(ctx, notify.ApplicationEmail{
			To:             to,
			ProviderName:   "Bright Steps ABA",
			JobTitle:       "Board Certified Behavior Analyst",
			ApplicantName:  "Sam Patel",
			ApplicantEmail: "sam.patel@example.com",
			ApplicantPhone: "(512) 555-0199",
			LinkedInURL:    "https://www.linkedin.com/in/sampatel",
			CoverLetter:    "I have five years of clinical experience supervising early intervention programs.",
			HasResume:      true,
			ApplicationID:  "app-sample",
		})
	}},
	{"subscription_confirmation", func(ctx context.Context, svc *notify.Service, to string) error {
		return svc.ConfirmSubscription(ctx, notify.SubscriptionEmail{
			To:           to,
			ProviderName: "Bright Steps ABA",
			PlanName:     "Pro",
			Highlights:   []string{"Contact form", "Inbox", "Photo gallery", "Verified badge"},
		})
	}},
	{"payment_failed", func(ctx context.Context, svc *notify.Service, to string) error {
		return svc.NotifyPaymentFailed(ctx, notify.PaymentFailedEmail{
			To:           to,
			ProviderName: "Bright Steps ABA",
			InvoiceID:    "in_sample",
			AmountCents:  7900,
			Currency:     "usd",
			AttemptCount: 2,
		})
	}},
}

func main() {
	_ = godotenv.Load()

	to := flag.String("to", os.Getenv("TEST_EMAIL_TO"), "recipient address")
	only := flag.String("only", "", "comma separated template names to send")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if strings.TrimSpace(*to) == "" {
		logger.Error("a recipient is required (-to or TEST_EMAIL_TO)")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	sender := bootstrap.BuildEmailSender(cfg, mainconfig.NewSESClient(awsCfg, cfg), logger)
	svc := notify.NewService(sender, notify.NewLayout(cfg.PublicBaseURL, cfg.PublicBaseURL+"/logo.png"), logger)

	if failed := sendAll(ctx, svc, *to, selected(*only), os.Stdout); failed > 0 {
		os.Exit(1)
	}
}

// selected parses the -only flag. An empty result means every sample.
func selected(only string) map[string]bool {
	names := map[string]bool{}
	for _, name := range strings.Split(only, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names[name] = true
		}
	}
	return names
}

// sendAll sends each selected sample, reports per-template outcomes to out
// and returns the number of failures.
func sendAll(ctx context.Context, svc *notify.Service, to string, names map[string]bool, out io.Writer) int {
	failed, sent := 0, 0
	for _, s := range samples {
		if len(names) > 0 && !names[s.name] {
			continue
		}
		if err := s.send(ctx, svc, to); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %-28s %v\n", s.name, err)
			continue
		}
		sent++
		fmt.Fprintf(out, "ok   %s\n", s.name)
	}
	fmt.Fprintf(out, "%d sent, %d failed\n", sent, failed)
	return failed
}
