package notify

import (
	"html/template"
	"strings"
	"testing"
	"time"
)

func fixedLayout() *Layout {
	l := NewLayout("https://www.findabatherapy.org/", "https://cdn.example.com/logo.png")
	l.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return l
}

func TestContrastColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FFFFFF", "#000000"},
		{"#ffd700", "#000000"},
		{"#000000", "#FFFFFF"},
		{"#5788FF", "#000000"},
		{"#1e293b", "#FFFFFF"},
		{"#224488", "#FFFFFF"},
		{"not-a-color", "#000000"},
		{"", "#000000"},
	}
	for _, tt := range tests {
		if got := ContrastColor(tt.in); got != tt.want {
			t.Errorf("ContrastColor(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPlatformWrapper(t *testing.T) {
	html, err := fixedLayout().Platform(template.HTML("<p>Body</p>"), "Preview <text>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<p>Body</p>",
		"Preview &lt;text&gt;",
		"background-color: #5788FF",
		"https://www.findabatherapy.org/legal/privacy",
		"https://www.findabatherapy.org/legal/terms",
		"&copy; 2026 Find ABA Therapy",
		"https://cdn.example.com/logo.png",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("platform email missing %q", want)
		}
	}
	if strings.Contains(html, "Powered by") {
		t.Error("platform email should not carry the agency footer")
	}
}

func TestPlatformWrapper_NoPreheader(t *testing.T) {
	html, err := fixedLayout().Platform("<p>x</p>", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "display: none") {
		t.Error("empty preheader should not render the hidden block")
	}
}

func TestAgencyWrapper(t *testing.T) {
	html, err := fixedLayout().Agency(AgencyBranding{
		AgencyName:   "Bright <Futures> ABA",
		ContactEmail: "hello@bright.example",
		BrandColor:   "#FFD700",
		Website:      "bright.example",
		Phone:        "555-0100",
	}, "<p>Hi</p>", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Bright &lt;Futures&gt; ABA",
		"background-color: #FFD700",
		"color: #000000",
		`href="mailto:hello@bright.example"`,
		`href="https://bright.example"`,
		"555-0100",
		"Powered by",
		"/legal/terms",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("agency email missing %q", want)
		}
	}
	if strings.Contains(html, "<Futures>") {
		t.Error("agency name was not escaped")
	}
}

func TestAgencyWrapper_LogoAndBadColor(t *testing.T) {
	html, err := fixedLayout().Agency(AgencyBranding{
		AgencyName: "Spectrum",
		LogoURL:    "https://cdn.example.com/spectrum.png",
		BrandColor: "red; background:url(x)",
	}, "<p>Hi</p>", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, `src="https://cdn.example.com/spectrum.png"`) {
		t.Error("expected agency logo in header")
	}
	if !strings.Contains(html, "background-color: #5788FF") {
		t.Error("invalid brand color should fall back to the platform primary")
	}
	if !strings.Contains(html, "color: #000000") {
		t.Error("fallback brand color should take dark header text")
	}
	if strings.Contains(html, "url(x)") {
		t.Error("brand color leaked into markup")
	}
}

func TestProviderInquiryEscapesFamilyInput(t *testing.T) {
	msg, err := fixedLayout().ProviderInquiry(InquiryEmail{
		To:            "owner@agency.example",
		ProviderName:  "Agency",
		FamilyName:    "Jane <b>Doe</b>",
		FamilyEmail:   "jane@example.com",
		ChildAge:      "4",
		Message:       "<script>alert(1)</script>",
		LocationLabel: "Austin Clinic",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "New inquiry from Jane <b>Doe</b>" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.ReplyTo != "jane@example.com" {
		t.Errorf("expected reply-to family email, got %q", msg.ReplyTo)
	}
	if strings.Contains(msg.HTML, "<script>") || strings.Contains(msg.HTML, "<b>Doe") {
		t.Error("family input was not escaped")
	}
	for _, want := range []string{"Austin Clinic", "Child's Age", "/dashboard/inbox"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("inquiry email missing %q", want)
		}
	}
}

func TestApplicantConfirmationUsesAgencyBranding(t *testing.T) {
	msg, err := fixedLayout().ApplicantConfirmation(ApplicantConfirmationEmail{
		To:            "applicant@example.com",
		ApplicantName: "Sam",
		JobTitle:      "RBT",
		JobURL:        "javascript:alert(1)",
		Agency:        AgencyBranding{AgencyName: "Bright ABA", BrandColor: "#123456", ContactEmail: "jobs@bright.example"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Application received: RBT at Bright ABA" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Powered by") || !strings.Contains(msg.HTML, "Bright ABA") {
		t.Error("expected agency shell")
	}
	if strings.Contains(msg.HTML, "javascript:") {
		t.Error("non-http job url should be dropped")
	}
}

func TestClientMessageEscapesParagraphs(t *testing.T) {
	msg, err := fixedLayout().ClientMessage(ClientMessageEmail{
		To:      "maria@example.com",
		ToName:  "Maria",
		Subject: "Welcome to Bright ABA",
		Body:    "Hi Maria,\r\n\r\nWe're glad <b>Leo</b> is joining us.\n\n\n\nBright ABA",
		Agency:  AgencyBranding{AgencyName: "Bright ABA", ContactEmail: "office@bright.example"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.ReplyTo != "office@bright.example" || msg.Subject != "Welcome to Bright ABA" {
		t.Errorf("unexpected headers %+v", msg)
	}
	if got := strings.Count(msg.HTML, "white-space: pre-wrap;\">"); got != 3 {
		t.Errorf("expected 3 paragraphs, got %d", got)
	}
	if strings.Contains(msg.HTML, "<b>Leo</b>") || !strings.Contains(msg.HTML, "&lt;b&gt;Leo&lt;/b&gt;") {
		t.Error("body must be escaped")
	}
	if !strings.Contains(msg.HTML, "Powered by") {
		t.Error("expected agency shell")
	}
}

func TestProviderApplication(t *testing.T) {
	msg, err := fixedLayout().ProviderApplication(ApplicationEmail{
		To:             "owner@agency.example",
		ProviderName:   "Agency",
		JobTitle:       "BCBA",
		ApplicantName:  "Alex",
		ApplicantEmail: "alex@example.com",
		HasResume:      true,
		ApplicationID:  "app-1",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(msg.HTML, "/dashboard/team/applicants/app-1") {
		t.Error("expected link to the application")
	}
	if !strings.Contains(msg.HTML, "Attached in dashboard") {
		t.Error("expected resume note")
	}
}

func TestPaymentFailedAndSubscription(t *testing.T) {
	l := fixedLayout()
	msg, err := l.PaymentFailed(PaymentFailedEmail{To: "a@example.com", ProviderName: "A", InvoiceID: "in_1", AmountCents: 4900, Currency: "usd", AttemptCount: 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(msg.HTML, "$49.00 USD") || !strings.Contains(msg.HTML, "attempt 2") {
		t.Errorf("unexpected payment email body")
	}

	msg, err = l.SubscriptionConfirmation(SubscriptionEmail{To: "a@example.com", ProviderName: "A", PlanName: "Pro", Highlights: []string{"Up to 5 locations"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Welcome to Find ABA Therapy Pro!" || !strings.Contains(msg.HTML, "<li>Up to 5 locations</li>") {
		t.Errorf("unexpected subscription email %q", msg.Subject)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(14900, "usd"); got != "$149.00 USD" {
		t.Errorf("got %q", got)
	}
	if got := FormatAmount(-5, "usd"); got != "-$0.05 USD" {
		t.Errorf("got %q", got)
	}
}
