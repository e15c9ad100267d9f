package inquiries

import (
	"strings"
	"time"
)

// Status is the provider-side state of an inquiry.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusReplied  Status = "replied"
	StatusArchived Status = "archived"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusUnread, StatusRead, StatusReplied, StatusArchived}

var transitions = map[Status][]Status{
	StatusUnread:  {StatusRead, StatusReplied, StatusArchived},
	StatusRead:    {StatusReplied, StatusArchived},
	StatusReplied: {StatusArchived},
}

// ParseStatus returns the status named by s, or false.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Archived is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Source records which form produced the inquiry.
type Source string

const (
	SourceListingPage Source = "listing_page"
	SourceIntake      Source = "intake_standalone"
)

// ReferralSources are the answers offered for "how did you hear about us".
var ReferralSources = []string{
	"google_search", "social_media", "doctor_referral", "school_referral",
	"insurance_referral", "friend_family", "other",
}

// LocationSummary is the location an inquiry was sent to.
type LocationSummary struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
}

// Inquiry is a family's contact form message to a provider.
type Inquiry struct {
	ID                  string           `json:"id"`
	ListingID           string           `json:"listingId"`
	LocationID          string           `json:"locationId,omitempty"`
	Location            *LocationSummary `json:"location,omitempty"`
	FamilyName          string           `json:"familyName"`
	FamilyEmail         string           `json:"familyEmail"`
	FamilyPhone         string           `json:"familyPhone,omitempty"`
	ChildAge            string           `json:"childAge,omitempty"`
	Message             string           `json:"message"`
	ReferralSource      string           `json:"referralSource,omitempty"`
	ReferralSourceOther string           `json:"referralSourceOther,omitempty"`
	Source              Source           `json:"source"`
	Status              Status           `json:"status"`
	CreatedAt           time.Time        `json:"createdAt"`
	ReadAt              *time.Time       `json:"readAt,omitempty"`
	RepliedAt           *time.Time       `json:"repliedAt,omitempty"`
	ArchivedAt          *time.Time       `json:"archivedAt,omitempty"`
}

// SubmitRequest is the public contact form payload.
type SubmitRequest struct {
	ListingID           string `json:"-"`
	LocationID          string `json:"locationId"`
	FamilyName          string `json:"familyName"`
	FamilyEmail         string `json:"familyEmail"`
	FamilyPhone         string `json:"familyPhone"`
	ChildAge            string `json:"childAge"`
	Message             string `json:"message"`
	ReferralSource      string `json:"referralSource"`
	ReferralSourceOther string `json:"referralSourceOther"`
	Source              Source `json:"source"`
	Website             string `json:"website"` // honeypot
	CaptchaToken        string `json:"turnstileToken"`
	RemoteIP            string `json:"-"`
}

// Filter narrows the dashboard inbox. Archived inquiries are hidden unless
// Status asks for them. LocationIDs also keeps inquiries with no location.
type Filter struct {
	Status      Status
	LocationIDs []string
}

// Page is the inbox view.
type Page struct {
	Inquiries   []Inquiry `json:"inquiries"`
	UnreadCount int       `json:"unreadCount"`
}
