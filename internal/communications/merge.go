package communications

import (
	"sort"
	"strings"
)

// ManualFields are placeholders the sender fills in by hand. They stay as
// literal {field} text until a value is given.
var ManualFields = []string{"assessment_date", "assessment_time", "assessment_location"}

// Populate replaces every {key} in content with fields[key]. Unknown
// placeholders are left alone.
func Populate(content string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", fields[k])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// mergeSource is what the client and agency records contribute.
type mergeSource struct {
	ClientName    string
	ParentName    string
	ParentEmail   string
	AgencyName    string
	AgencyPhone   string
	AgencyEmail   string
	InsuranceName string
	ListingSlug   string
	SiteURL       string
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// mergeFields resolves every automatic field, then overlays the manual ones
// the sender supplied. Manual input cannot override automatic fields.
func mergeFields(src mergeSource, manual map[string]string) map[string]string {
	fields := map[string]string{
		"client_name":    orDefault(src.ClientName, "your child"),
		"parent_name":    orDefault(src.ParentName, "there"),
		"parent_email":   src.ParentEmail,
		"agency_name":    orDefault(src.AgencyName, "Our Agency"),
		"agency_phone":   src.AgencyPhone,
		"agency_email":   src.AgencyEmail,
		"insurance_name": orDefault(src.InsuranceName, "your insurance provider"),
		"resources_link": "",
		"intake_link":    "",
		"contact_link":   "",
	}
	if src.ListingSlug != "" {
		base := strings.TrimRight(src.SiteURL, "/")
		fields["resources_link"] = base + "/resources/" + src.ListingSlug
		fields["intake_link"] = base + "/intake/" + src.ListingSlug + "/client"
		fields["contact_link"] = base + "/contact/" + src.ListingSlug
	}
	for _, k := range ManualFields {
		if v := strings.TrimSpace(manual[k]); v != "" {
			fields[k] = v
		}
	}
	return fields
}
