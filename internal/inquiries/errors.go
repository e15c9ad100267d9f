package inquiries

import "errors"

var (
	// ErrNotFound is returned when an inquiry does not exist or belongs to
	// another listing.
	ErrNotFound = errors.New("inquiries: not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("inquiries: invalid status transition")

	// ErrListingUnavailable means the listing is missing or unpublished.
	ErrListingUnavailable = errors.New("inquiries: listing unavailable")

	// ErrNotAccepting means the provider cannot receive platform inquiries.
	ErrNotAccepting = errors.New("inquiries: provider not accepting inquiries")

	// ErrCaptchaRequired means the form arrived without a verification token.
	ErrCaptchaRequired = errors.New("inquiries: captcha token required")

	// ErrCaptchaFailed means the verification token was rejected.
	ErrCaptchaFailed = errors.New("inquiries: captcha verification failed")

	// ErrNoListing means the dashboard caller has no listing yet.
	ErrNoListing = errors.New("inquiries: caller has no listing")
)

// userMessages are the texts shown to families and providers.
var userMessages = map[error]string{
	ErrNotFound:           "Inquiry not found",
	ErrInvalidTransition:  "This inquiry cannot be moved to that status",
	ErrListingUnavailable: "Provider not found",
	ErrNotAccepting:       "This provider does not accept inquiries through the platform",
	ErrCaptchaRequired:    "Security verification required",
	ErrCaptchaFailed:      "Security verification failed. Please try again.",
	ErrNoListing:          "Listing not found",
}
