package listings

import (
	"regexp"
	"strings"

	"github.com/wolfman30/aba-directory/internal/inputval"
)

const (
	maxHeadline    = 150
	maxSummary     = 300
	maxDescription = 10000
	maxSlug        = 80
	minSlug        = 3
	maxRadiusMiles = 500
)

func normalizeUpdate(u ListingUpdate) (ListingUpdate, error) {
	if u.Headline != nil {
		v := inputval.PlainText(*u.Headline)
		if err := inputval.Length("headline", v, 0, maxHeadline, "Headline"); err != nil {
			return u, err
		}
		u.Headline = &v
	}
	if u.Summary != nil {
		v := inputval.PlainText(*u.Summary)
		if err := inputval.Length("summary", v, 0, maxSummary, "Summary"); err != nil {
			return u, err
		}
		u.Summary = &v
	}
	if u.Description != nil {
		v := strings.TrimSpace(*u.Description)
		if err := inputval.Length("description", v, 0, maxDescription, "Description"); err != nil {
			return u, err
		}
		u.Description = &v
	}
	if u.ServiceModes != nil {
		seen := make(map[ServiceMode]struct{}, len(*u.ServiceModes))
		modes := make([]ServiceMode, 0, len(*u.ServiceModes))
		for _, m := range *u.ServiceModes {
			if !m.Valid() {
				return u, inputval.Field("serviceModes", "Unknown service mode %q", m)
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			modes = append(modes, m)
		}
		u.ServiceModes = &modes
	}
	if u.LogoURL != nil {
		v := strings.TrimSpace(*u.LogoURL)
		if v != "" && !inputval.IsValidURL(v) {
			return u, inputval.Field("logoUrl", "Please enter a valid logo URL")
		}
		u.LogoURL = &v
	}
	return u, nil
}

func normalizeSlug(raw string) (string, error) {
	slug := inputval.Slugify(raw, maxSlug)
	if len(slug) < minSlug || !inputval.IsValidSlug(slug) {
		return "", inputval.Field("slug", "URL must be at least %d letters or numbers", minSlug)
	}
	return slug, nil
}

var (
	statePattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	postalPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

func normalizeLocation(in LocationInput) (LocationInput, error) {
	in.Label = inputval.PlainText(in.Label)
	in.Street = inputval.PlainText(in.Street)
	in.City = inputval.PlainText(in.City)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	in.PostalCode = strings.TrimSpace(in.PostalCode)

	if err := inputval.Length("label", in.Label, 0, 100, "Label"); err != nil {
		return in, err
	}
	if err := inputval.Length("street", in.Street, 0, 200, "Street"); err != nil {
		return in, err
	}
	if err := inputval.Length("city", in.City, 1, 100, "City"); err != nil {
		return in, err
	}
	if !statePattern.MatchString(in.State) {
		return in, inputval.Field("state", "Please select a state")
	}
	if in.PostalCode != "" && !postalPattern.MatchString(in.PostalCode) {
		return in, inputval.Field("postalCode", "Please enter a valid ZIP code")
	}
	if in.ServiceRadiusMiles == 0 {
		in.ServiceRadiusMiles = DefaultServiceRadiusMiles
	}
	if in.ServiceRadiusMiles < 1 || in.ServiceRadiusMiles > maxRadiusMiles {
		return in, inputval.Field("serviceRadiusMiles", "Service radius must be between 1 and %d miles", maxRadiusMiles)
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return in, inputval.Field("latitude", "Latitude and longitude must be provided together")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180) {
		return in, inputval.Field("latitude", "Coordinates are out of range")
	}
	return in, nil
}
