package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Brand palette shared by every platform email.
const (
	BrandPrimary    = "#5788FF"
	BrandTextDark   = "#1e293b"
	BrandTextMedium = "#475569"
	BrandTextLight  = "#94a3b8"
	BrandBgLight    = "#f8fafc"
	BrandBorder     = "#e2e8f0"
)

var hexColorRE = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ContrastColor picks black or white text for a #rrggbb background using
// perceived luminance. Malformed input is treated as the brand primary.
func ContrastColor(hex string) string {
	if !hexColorRE.MatchString(hex) {
		hex = BrandPrimary
	}
	r, _ := strconv.ParseUint(hex[1:3], 16, 8)
	g, _ := strconv.ParseUint(hex[3:5], 16, 8)
	b, _ := strconv.ParseUint(hex[5:7], 16, 8)
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#000000"
	}
	return "#FFFFFF"
}

// AgencyBranding is what an agency email shows in place of platform branding.
type AgencyBranding struct {
	AgencyName   string
	ContactEmail string
	LogoURL      string
	BrandColor   string
	Website      string
	Phone        string
}

// Layout wraps rendered content in the platform or agency email shell.
type Layout struct {
	SiteURL string
	LogoURL string
	now     func() time.Time
}

// NewLayout builds a layout rooted at siteURL.
func NewLayout(siteURL, logoURL string) *Layout {
	siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		siteURL = "https://www.findabatherapy.org"
	}
	return &Layout{SiteURL: siteURL, LogoURL: logoURL, now: time.Now}
}

type footerLink struct {
	Href template.URL
	Text string
}

type shellData struct {
	Title        string
	Preheader    string
	SiteURL      template.URL
	LogoURL      template.URL
	HeaderBg     template.CSS
	HeaderText   template.CSS
	AccentColor  template.CSS
	AgencyName   string
	AgencyLogo   template.URL
	FooterLinks  []footerLink
	Agency       bool
	Content      template.HTML
	Year         int
	TextDark     template.CSS
	TextMedium   template.CSS
	TextLight    template.CSS
	BgLight      template.CSS
	Border       template.CSS
	PrimaryColor template.CSS
}

// Platform wraps content in the Find ABA Therapy shell. content must already
// be escaped HTML.
func (l *Layout) Platform(content template.HTML, preheader string) (string, error) {
	data := l.baseData(content, preheader)
	data.Title = "Find ABA Therapy"
	data.HeaderBg = BrandPrimary
	return render(shellTemplate, data)
}

// Agency wraps content in an agency-branded shell with a "Powered by"
// platform footer.
func (l *Layout) Agency(b AgencyBranding, content template.HTML, preheader string) (string, error) {
	color := b.BrandColor
	if !hexColorRE.MatchString(color) {
		color = BrandPrimary
	}
	data := l.baseData(content, preheader)
	data.Agency = true
	data.Title = b.AgencyName
	data.AgencyName = b.AgencyName
	data.HeaderBg = template.CSS(color)
	data.HeaderText = template.CSS(ContrastColor(color))
	data.AccentColor = template.CSS(color)
	if logo := strings.TrimSpace(b.LogoURL); strings.HasPrefix(logo, "https://") || strings.HasPrefix(logo, "http://") {
		data.AgencyLogo = template.URL(logo)
	}
	if email := strings.TrimSpace(b.ContactEmail); email != "" {
		data.FooterLinks = append(data.FooterLinks, footerLink{Href: template.URL("mailto:" + email), Text: email})
	}
	if phone := strings.TrimSpace(b.Phone); phone != "" {
		data.FooterLinks = append(data.FooterLinks, footerLink{Text: phone})
	}
	if site := strings.TrimSpace(b.Website); site != "" {
		href := site
		if !strings.HasPrefix(site, "http") {
			href = "https://" + site
		}
		data.FooterLinks = append(data.FooterLinks, footerLink{Href: template.URL(href), Text: site})
	}
	return render(shellTemplate, data)
}

func (l *Layout) baseData(content template.HTML, preheader string) shellData {
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	return shellData{
		Preheader:    preheader,
		SiteURL:      template.URL(l.SiteURL),
		LogoURL:      template.URL(l.LogoURL),
		Content:      content,
		Year:         now().Year(),
		TextDark:     BrandTextDark,
		TextMedium:   BrandTextMedium,
		TextLight:    BrandTextLight,
		BgLight:      BrandBgLight,
		Border:       BrandBorder,
		PrimaryColor: BrandPrimary,
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

var shellTemplate = template.Must(template.New("shell").Option("missingkey=error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
</head>
<body style="margin: 0; padding: 0; background-color: #f1f5f9; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;">
{{- if .Preheader}}
  <div style="display: none; max-height: 0; overflow: hidden;">{{.Preheader}}</div>
{{- end}}
  <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="background-color: #f1f5f9;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="600" style="max-width: 600px; width: 100%;">
          <tr>
            <td style="background-color: {{.HeaderBg}}; border-radius: 12px 12px 0 0; padding: 24px 32px; text-align: center;">
{{- if .Agency}}
  {{- if .AgencyLogo}}
              <img src="{{.AgencyLogo}}" alt="{{.AgencyName}}" width="90" style="display: block; margin: 0 auto 12px; max-width: 90px; height: auto; border-radius: 6px;">
              <p style="margin: 0; font-size: 18px; font-weight: 700; color: {{.HeaderText}};">{{.AgencyName}}</p>
  {{- else}}
              <p style="margin: 0; font-size: 24px; font-weight: 700; color: {{.HeaderText}};">{{.AgencyName}}</p>
  {{- end}}
{{- else if .LogoURL}}
              <img src="{{.LogoURL}}" alt="Find ABA Therapy" width="300" style="display: block; margin: 0 auto; max-width: 300px; height: auto; border-radius: 6px;">
{{- else}}
              <p style="margin: 0; font-size: 24px; font-weight: 700; color: #FFFFFF;">Find ABA Therapy</p>
{{- end}}
            </td>
          </tr>
          <tr>
            <td style="background-color: #ffffff; padding: 40px;">
              {{.Content}}
            </td>
          </tr>
          <tr>
            <td style="background-color: {{.BgLight}}; border-radius: 0 0 12px 12px; padding: 24px 40px; border-top: 1px solid {{.Border}};">
{{- if .Agency}}
              <p style="margin: 0 0 12px 0; text-align: center; font-weight: 600; font-size: 14px; color: {{.TextDark}};">{{.AgencyName}}</p>
  {{- if .FooterLinks}}
              <p style="margin: 0; text-align: center; color: {{.TextMedium}}; font-size: 13px; line-height: 1.8;">
    {{- range $i, $l := .FooterLinks}}{{if $i}} &nbsp;&bull;&nbsp; {{end}}{{if $l.Href}}<a href="{{$l.Href}}" style="color: {{$.AccentColor}}; text-decoration: none;">{{$l.Text}}</a>{{else}}{{$l.Text}}{{end}}{{end -}}
              </p>
  {{- end}}
{{- else}}
              <p style="margin: 0 0 16px 0; text-align: center;"><a href="{{.SiteURL}}" style="color: {{.PrimaryColor}}; text-decoration: none; font-weight: 600; font-size: 14px;">Visit FindABATherapy.org</a></p>
              <p style="margin: 0 0 8px 0; text-align: center; color: {{.TextLight}}; font-size: 12px;">Find ABA Therapy helps families connect with trusted ABA therapy providers.</p>
              <p style="margin: 0; text-align: center; color: {{.TextLight}}; font-size: 12px;">Questions? Contact us at <a href="mailto:support@findabatherapy.org" style="color: {{.PrimaryColor}}; text-decoration: none;">support@findabatherapy.org</a></p>
{{- end}}
            </td>
          </tr>
        </table>
        <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="600" style="max-width: 600px; width: 100%;">
          <tr>
            <td align="center" style="padding: 24px 20px; color: {{.TextLight}}; font-size: 11px; line-height: 1.5;">
{{- if .Agency}}
              <p style="margin: 0;">Powered by <a href="{{.SiteURL}}" style="color: {{.TextLight}}; text-decoration: underline;">Find ABA Therapy</a></p>
{{- else}}
              <p style="margin: 0;">&copy; {{.Year}} Find ABA Therapy. All rights reserved.</p>
{{- end}}
              <p style="margin: 8px 0 0 0;">
                <a href="{{.SiteURL}}/legal/privacy" style="color: {{.TextLight}}; text-decoration: underline;">Privacy Policy</a>
                &nbsp;&bull;&nbsp;
                <a href="{{.SiteURL}}/legal/terms" style="color: {{.TextLight}}; text-decoration: underline;">Terms of Service</a>
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))
