package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// InquiryEmail is the provider-facing notice of a new contact form message.
type InquiryEmail struct {
	To            string
	ProviderName  string
	FamilyName    string
	FamilyEmail   string
	FamilyPhone   string
	ChildAge      string
	Message       string
	LocationLabel string
}

// ApplicantConfirmationEmail acknowledges a job application to the applicant.
type ApplicantConfirmationEmail struct {
	To            string
	ApplicantName string
	JobTitle      string
	JobURL        string
	Agency        AgencyBranding
}

// ApplicationEmail tells a provider a new application arrived.
type ApplicationEmail struct {
	To             string
	ProviderName   string
	JobTitle       string
	ApplicantName  string
	ApplicantEmail string
	ApplicantPhone string
	LinkedInURL    string
	CoverLetter    string
	HasResume      bool
	ApplicationID  string
}

// SubscriptionEmail confirms a new or upgraded subscription.
type SubscriptionEmail struct {
	To           string
	ProviderName string
	PlanName     string
	Highlights   []string
}

// PaymentFailedEmail warns a provider that an invoice could not be charged.
type PaymentFailedEmail struct {
	To           string
	ProviderName string
	InvoiceID    string
	AmountCents  int64
	Currency     string
	AttemptCount int
}

// ClientMessageEmail is an agency-authored message to a client's parent.
// Body is plain text; blank lines separate paragraphs.
type ClientMessageEmail struct {
	To      string
	ToName  string
	Subject string
	Body    string
	Agency  AgencyBranding
}

var fragments = template.Must(template.New("fragments").Option("missingkey=error").Parse(`
{{define "inquiry"}}<h2 style="color: #1e293b; margin: 0 0 16px 0;">New Inquiry Received</h2>
<p style="color: #475569;">Hello {{.ProviderName}},</p>
<p style="color: #475569;">You have received a new inquiry{{if .LocationLabel}} for <strong>{{.LocationLabel}}</strong>{{end}}.</p>
<div style="background: #f8fafc; border-radius: 8px; padding: 16px; margin: 24px 0;">
  <h3 style="color: #1e293b; margin: 0 0 12px 0;">Contact Details</h3>
  <p style="color: #475569; margin: 4px 0;"><strong>Name:</strong> {{.FamilyName}}</p>
  <p style="color: #475569; margin: 4px 0;"><strong>Email:</strong> {{.FamilyEmail}}</p>
  {{- if .FamilyPhone}}
  <p style="color: #475569; margin: 4px 0;"><strong>Phone:</strong> {{.FamilyPhone}}</p>
  {{- end}}
  {{- if .ChildAge}}
  <p style="color: #475569; margin: 4px 0;"><strong>Child's Age:</strong> {{.ChildAge}}</p>
  {{- end}}
</div>
<div style="background: #f8fafc; border-radius: 8px; padding: 16px; margin: 24px 0;">
  <h3 style="color: #1e293b; margin: 0 0 12px 0;">Message</h3>
  <p style="color: #475569; white-space: pre-wrap;">{{.Message}}</p>
</div>
<a href="{{.DashboardURL}}" style="display: inline-block; background: #5788FF; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">View in Dashboard</a>{{end}}

{{define "applicant_confirmation"}}<h2 style="color: #1e293b; margin: 0 0 16px 0;">Application Received</h2>
<p style="color: #475569;">Hi {{.ApplicantName}},</p>
<p style="color: #475569;">Thank you for applying for <strong>{{.JobTitle}}</strong> with {{.AgencyName}}. Your application has been sent to the hiring team and they will reach out if your experience is a good fit.</p>
{{- if .JobURL}}
<a href="{{.JobURL}}" style="display: inline-block; background: #5788FF; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">View Job Posting</a>
{{- end}}{{end}}

{{define "provider_application"}}<h2 style="color: #1e293b; margin: 0 0 16px 0;">New Application</h2>
<p style="color: #475569;">Hello {{.ProviderName}},</p>
<p style="color: #475569;"><strong>{{.ApplicantName}}</strong> applied for <strong>{{.JobTitle}}</strong>.</p>
<div style="background: #f8fafc; border-radius: 8px; padding: 16px; margin: 24px 0;">
  <p style="color: #475569; margin: 4px 0;"><strong>Email:</strong> {{.ApplicantEmail}}</p>
  {{- if .ApplicantPhone}}
  <p style="color: #475569; margin: 4px 0;"><strong>Phone:</strong> {{.ApplicantPhone}}</p>
  {{- end}}
  {{- if .LinkedInURL}}
  <p style="color: #475569; margin: 4px 0;"><strong>LinkedIn:</strong> {{.LinkedInURL}}</p>
  {{- end}}
  <p style="color: #475569; margin: 4px 0;"><strong>Resume:</strong> {{if .HasResume}}Attached in dashboard{{else}}Not provided{{end}}</p>
</div>
{{- if .CoverLetter}}
<div style="background: #f8fafc; border-radius: 8px; padding: 16px; margin: 24px 0;">
  <h3 style="color: #1e293b; margin: 0 0 12px 0;">Cover Letter</h3>
  <p style="color: #475569; white-space: pre-wrap;">{{.CoverLetter}}</p>
</div>
{{- end}}
<a href="{{.DashboardURL}}" style="display: inline-block; background: #5788FF; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Review Application</a>{{end}}

{{define "subscription"}}<h2 style="color: #059669; margin: 0 0 16px 0;">Welcome to {{.PlanName}}!</h2>
<p style="color: #475569;">Hello {{.ProviderName}},</p>
<p style="color: #475569;">Thank you for subscribing to Find ABA Therapy <strong>{{.PlanName}}</strong>. Your account has been upgraded and all features are now available.</p>
{{- if .Highlights}}
<ul style="color: #047857;">
  {{- range .Highlights}}
  <li>{{.}}</li>
  {{- end}}
</ul>
{{- end}}
<a href="{{.DashboardURL}}" style="display: inline-block; background: #059669; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Go to Dashboard</a>{{end}}

{{define "client_message"}}{{range .}}<p style="color: #475569; white-space: pre-wrap;">{{.}}</p>
{{end}}{{end}}

{{define "payment_failed"}}<h2 style="color: #dc2626; margin: 0 0 16px 0;">Payment Failed</h2>
<p style="color: #475569;">Hello {{.ProviderName}},</p>
<p style="color: #475569;">We were unable to process your payment of <strong>{{.Amount}}</strong>.{{if gt .AttemptCount 1}} This is attempt {{.AttemptCount}}.{{end}}</p>
<p style="color: #991b1b;"><strong>Important:</strong> If payment continues to fail, your listing may be hidden from search results.</p>
<a href="{{.BillingURL}}" style="display: inline-block; background: #dc2626; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Update Payment Method</a>
<p style="color: #94a3b8; font-size: 14px;">Invoice ID: {{.InvoiceID}}</p>{{end}}
`))

func fragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// ProviderInquiry renders the new-inquiry notice for a provider. Replies go
// straight to the family.
func (l *Layout) ProviderInquiry(p InquiryEmail) (EmailMessage, error) {
	content, err := fragment("inquiry", struct {
		InquiryEmail
		DashboardURL template.URL
	}{p, template.URL(l.SiteURL + "/dashboard/inbox")})
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := l.Platform(content, "New inquiry from "+p.FamilyName)
	if err != nil {
		return EmailMessage{}, err
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nYou have received a new inquiry from %s (%s).\n\n%s\n\nView it at %s/dashboard/inbox\n",
		p.ProviderName, p.FamilyName, p.FamilyEmail, p.Message, l.SiteURL)
	return EmailMessage{
		To:      p.To,
		ToName:  p.ProviderName,
		ReplyTo: p.FamilyEmail,
		Subject: "New inquiry from " + p.FamilyName,
		Body:    body.String(),
		HTML:    html,
	}, nil
}

// ClientMessage renders an agency message to a family in the agency's
// branding. Replies go to the agency.
func (l *Layout) ClientMessage(p ClientMessageEmail) (EmailMessage, error) {
	content, err := fragment("client_message", paragraphs(p.Body))
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := l.Agency(p.Agency, content, p.Subject)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      p.To,
		ToName:  p.ToName,
		ReplyTo: p.Agency.ContactEmail,
		Subject: p.Subject,
		Body:    p.Body,
		HTML:    html,
	}, nil
}

func paragraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	for _, part := range strings.Split(body, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ApplicantConfirmation renders the applicant's receipt in the agency's
// branding.
func (l *Layout) ApplicantConfirmation(p ApplicantConfirmationEmail) (EmailMessage, error) {
	var jobURL template.URL
	if strings.HasPrefix(p.JobURL, "https://") || strings.HasPrefix(p.JobURL, "http://") {
		jobURL = template.URL(p.JobURL)
	}
	content, err := fragment("applicant_confirmation", struct {
		ApplicantName string
		JobTitle      string
		AgencyName    string
		JobURL        template.URL
	}{p.ApplicantName, p.JobTitle, p.Agency.AgencyName, jobURL})
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := l.Agency(p.Agency, content, "Your application for "+p.JobTitle)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      p.To,
		ToName:  p.ApplicantName,
		ReplyTo: p.Agency.ContactEmail,
		Subject: fmt.Sprintf("Application received: %s at %s", p.JobTitle, p.Agency.AgencyName),
		Body: fmt.Sprintf("Hi %s,\n\nThank you for applying for %s with %s. The hiring team will reach out if your experience is a good fit.\n",
			p.ApplicantName, p.JobTitle, p.Agency.AgencyName),
		HTML: html,
	}, nil
}

// ProviderApplication renders the new-application notice for a provider.
func (l *Layout) ProviderApplication(p ApplicationEmail) (EmailMessage, error) {
	content, err := fragment("provider_application", struct {
		ApplicationEmail
		DashboardURL template.URL
	}{p, template.URL(l.SiteURL + "/dashboard/team/applicants/" + p.ApplicationID)})
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := l.Platform(content, "New application for "+p.JobTitle)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      p.To,
		ToName:  p.ProviderName,
		ReplyTo: p.ApplicantEmail,
		Subject: fmt.Sprintf("New application for %s from %s", p.JobTitle, p.ApplicantName),
		Body: fmt.Sprintf("Hello %s,\n\n%s (%s) applied for %s.\n\nReview it at %s/dashboard/team/applicants/%s\n",
			p.ProviderName, p.ApplicantName, p.ApplicantEmail, p.JobTitle, l.SiteURL, p.ApplicationID),
		HTML: html,
	}, nil
}

// SubscriptionConfirmation renders the welcome email for a paid plan.
func (l *Layout) SubscriptionConfirmation(p SubscriptionEmail) (EmailMessage, error) {
	content, err := fragment("subscription", struct {
		SubscriptionEmail
		DashboardURL template.URL
	}{p, template.URL(l.SiteURL + "/dashboard")})
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := l.Platform(content, "Welcome to "+p.PlanName)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      p.To,
		ToName:  p.ProviderName,
		Subject: fmt.Sprintf("Welcome to Find ABA Therapy %s!", p.PlanName),
		Body:    fmt.Sprintf("Hello %s,\n\nYour account has been upgraded to %s.\n", p.ProviderName, p.PlanName),
		HTML:    html,
	}, nil
}

// PaymentFailed renders the dunning notice for a failed invoice.
func (l *Layout) PaymentFailed(p PaymentFailedEmail) (EmailMessage, error) {
	amount := FormatAmount(p.AmountCents, p.Currency)
	content, err := fragment("payment_failed", struct {
		PaymentFailedEmail
		Amount     string
		BillingURL template.URL
	}{p, amount, template.URL(l.SiteURL + "/dashboard/billing")})
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := l.Platform(content, "Action required: payment failed")
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      p.To,
		ToName:  p.ProviderName,
		Subject: "Action Required: Payment Failed",
		Body: fmt.Sprintf("Hello %s,\n\nWe were unable to process your payment of %s. Update your payment method at %s/dashboard/billing\n",
			p.ProviderName, amount, l.SiteURL),
		HTML: html,
	}, nil
}

// FormatAmount renders minor units as "$12.34 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
