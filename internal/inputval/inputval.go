// Package inputval holds the field checks shared by public forms and
// dashboard writes.
package inputval

import (
	"errors"
	"fmt"
	"html"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ErrInvalid is the root of every validation failure.
var ErrInvalid = errors.New("validation failed")

// FieldError names the offending field so the UI can show it inline.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// Unwrap lets callers match with errors.Is(err, ErrInvalid).
func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

// Field builds a FieldError.
func Field(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AsFieldError extracts a FieldError from an error chain.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsValidEmail accepts a bare address (no display name) with no empty
// or doubled dots.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]
	for _, part := range []string{local, domain} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	return true
}

var phonePattern = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)

// IsValidPhone accepts digits, spaces, dashes, parentheses and plus signs
// with at least seven digits.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

// IsValidURL accepts absolute http and https URLs.
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Length checks a trimmed string against inclusive rune bounds. A zero max
// means no upper bound.
func Length(field, value string, min, max int, label string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		if min == 1 {
			return Field(field, "%s is required", label)
		}
		return Field(field, "%s must be at least %d characters", label, min)
	}
	if max > 0 && n > max {
		return Field(field, "%s must be less than %d characters", label, max)
	}
	return nil
}

var strict = bluemonday.StrictPolicy()

// PlainText strips every HTML tag from user supplied free text and trims it.
// The policy escapes what it keeps, so the result is unescaped again: stored
// values are plain text and renderers escape them once.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses runs of anything outside [a-z0-9] into a
// single dash and trims the result to max characters.
func Slugify(s string, max int) string {
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if max > 0 && len(slug) > max {
		slug = strings.TrimRight(slug[:max], "-")
	}
	return slug
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug reports whether s is already in Slugify form.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
