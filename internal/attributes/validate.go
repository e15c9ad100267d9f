package attributes

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/wolfman30/aba-directory/internal/inputval"
	"github.com/wolfman30/aba-directory/internal/plans"
)

const (
	maxListItems  = 50
	maxItemLength = 100
	maxAge        = 99
)

// Validate checks a raw value against its key's schema and returns the
// normalized JSON that gets stored.
func Validate(key Key, raw json.RawMessage) (json.RawMessage, error) {
	field := string(key)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, inputval.Field(field, "%s is required", field)
	}
	switch key {
	case KeyInsurances, KeyLanguages, KeyDiagnoses, KeyClinicalSpecialties:
		return validateList(field, raw)
	case KeyAgesServed:
		var r struct {
			Min *int `json:"min"`
			Max *int `json:"max"`
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil || r.Min == nil || r.Max == nil {
			return nil, inputval.Field(field, "Ages served must be an object with integer min and max")
		}
		if *r.Min < 0 || *r.Max > maxAge {
			return nil, inputval.Field(field, "Ages served must be between 0 and %d", maxAge)
		}
		if *r.Min > *r.Max {
			return nil, inputval.Field(field, "Minimum age cannot be greater than maximum age")
		}
		return json.Marshal(AgeRange{Min: *r.Min, Max: *r.Max})
	case KeyVideoURL:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, inputval.Field(field, "Video URL must be a string")
		}
		s = strings.TrimSpace(s)
		if !inputval.IsValidURL(s) {
			return nil, inputval.Field(field, "Please enter a valid video URL")
		}
		return json.Marshal(s)
	case KeyContactFormEnabled:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, inputval.Field(field, "Contact form setting must be true or false")
		}
		return json.Marshal(b)
	default:
		return nil, inputval.Field(field, "Unknown attribute %q", field)
	}
}

func validateList(field string, raw json.RawMessage) (json.RawMessage, error) {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, inputval.Field(field, "%s must be a list of strings", field)
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = inputval.PlainText(item)
		if item == "" {
			continue
		}
		if len(item) > maxItemLength {
			return nil, inputval.Field(field, "Each %s entry must be less than %d characters", field, maxItemLength)
		}
		fold := strings.ToLower(item)
		if _, dup := seen[fold]; dup {
			continue
		}
		seen[fold] = struct{}{}
		out = append(out, item)
	}
	if len(out) > maxListItems {
		return nil, inputval.Field(field, "%s cannot have more than %d entries", field, maxListItems)
	}
	return json.Marshal(out)
}

// requiredFeature returns the plan feature that must be granted to write
// the value. Insurances are free for every tier.
func requiredFeature(key Key, normalized json.RawMessage) (plans.Feature, bool) {
	switch key {
	case KeyAgesServed:
		return plans.FeatureAgeRange, true
	case KeyLanguages:
		return plans.FeatureLanguages, true
	case KeyDiagnoses:
		return plans.FeatureDiagnoses, true
	case KeyClinicalSpecialties:
		return plans.FeatureSpecialties, true
	case KeyVideoURL:
		return plans.FeatureVideoEmbed, true
	case KeyContactFormEnabled:
		// Turning the form off is always allowed.
		if string(normalized) == "true" {
			return plans.FeatureContactForm, true
		}
	}
	return "", false
}
