package attributes

import (
	"encoding/json"
	"errors"
	"sort"
)

var (
	// ErrListingNotFound covers both missing listings and listings the
	// caller does not own.
	ErrListingNotFound = errors.New("attributes: listing not found")

	// ErrUnknownKey is returned for keys outside the closed set.
	ErrUnknownKey = errors.New("attributes: unknown attribute key")
)

// Key is an attribute name. The set is closed; each key has its own value
// schema checked at write time.
type Key string

const (
	KeyInsurances          Key = "insurances"
	KeyLanguages           Key = "languages"
	KeyDiagnoses           Key = "diagnoses"
	KeyClinicalSpecialties Key = "clinical_specialties"
	KeyAgesServed          Key = "ages_served"
	KeyVideoURL            Key = "video_url"
	KeyContactFormEnabled  Key = "contact_form_enabled"
)

// Keys lists every attribute key.
var Keys = []Key{
	KeyInsurances,
	KeyLanguages,
	KeyDiagnoses,
	KeyClinicalSpecialties,
	KeyAgesServed,
	KeyVideoURL,
	KeyContactFormEnabled,
}

// ParseKey validates a raw key.
func ParseKey(raw string) (Key, bool) {
	for _, k := range Keys {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// AgeRange is the ages_served value.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultAgeRange applies when ages_served is absent.
var DefaultAgeRange = AgeRange{Min: 0, Max: 99}

// Attributes is the collapsed view of every stored row for one listing.
// Missing keys are absent; the accessors apply defaults.
type Attributes map[Key]json.RawMessage

// Has reports whether the key is stored.
func (a Attributes) Has(k Key) bool {
	_, ok := a[k]
	return ok
}

func (a Attributes) strings(k Key) []string {
	var out []string
	if raw, ok := a[k]; ok {
		_ = json.Unmarshal(raw, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Insurances returns accepted insurance carriers.
func (a Attributes) Insurances() []string { return a.strings(KeyInsurances) }

// Languages returns languages spoken by staff.
func (a Attributes) Languages() []string { return a.strings(KeyLanguages) }

// Diagnoses returns diagnoses supported.
func (a Attributes) Diagnoses() []string { return a.strings(KeyDiagnoses) }

// ClinicalSpecialties returns clinical specialties.
func (a Attributes) ClinicalSpecialties() []string { return a.strings(KeyClinicalSpecialties) }

// AgesServed returns the served age range, defaulting to 0-99.
func (a Attributes) AgesServed() AgeRange {
	raw, ok := a[KeyAgesServed]
	if !ok {
		return DefaultAgeRange
	}
	var r AgeRange
	if err := json.Unmarshal(raw, &r); err != nil {
		return DefaultAgeRange
	}
	return r
}

// VideoURL returns the embedded video, if any.
func (a Attributes) VideoURL() string {
	var s string
	if raw, ok := a[KeyVideoURL]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// ContactFormEnabled defaults to true when absent.
func (a Attributes) ContactFormEnabled() bool {
	raw, ok := a[KeyContactFormEnabled]
	if !ok {
		return true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return true
	}
	return b
}

// MarshalJSON renders keys in a stable order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := make(map[string]json.RawMessage, len(a))
	for _, k := range keys {
		out[k] = a[Key(k)]
	}
	return json.Marshal(out)
}

func sortedKeys(values map[Key]json.RawMessage) []Key {
	keys := make([]Key, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
