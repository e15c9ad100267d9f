package inquiries

import (
	"strings"

	"github.com/wolfman30/aba-directory/internal/inputval"
)

const (
	maxChildAge      = 50
	maxReferralOther = 100
)

func validReferral(s string) bool {
	for _, known := range ReferralSources {
		if s == known {
			return true
		}
	}
	return false
}

// normalize validates a submission and returns the cleaned copy. The honeypot
// and captcha token are carried through untouched.
func normalize(req SubmitRequest) (SubmitRequest, error) {
	out := req
	out.ListingID = strings.TrimSpace(req.ListingID)
	out.LocationID = strings.TrimSpace(req.LocationID)
	out.FamilyName = inputval.PlainText(req.FamilyName)
	out.FamilyEmail = strings.TrimSpace(req.FamilyEmail)
	out.FamilyPhone = strings.TrimSpace(req.FamilyPhone)
	out.ChildAge = inputval.PlainText(req.ChildAge)
	out.Message = inputval.PlainText(req.Message)
	out.ReferralSource = strings.TrimSpace(req.ReferralSource)
	out.ReferralSourceOther = inputval.PlainText(req.ReferralSourceOther)

	if out.ListingID == "" {
		return out, inputval.Field("listingId", "Provider is required")
	}
	if err := inputval.Length("familyName", out.FamilyName, 2, 100, "Name"); err != nil {
		return out, err
	}
	if !inputval.IsValidEmail(out.FamilyEmail) {
		return out, inputval.Field("familyEmail", "Please enter a valid email address")
	}
	if out.FamilyPhone != "" && !inputval.IsValidPhone(out.FamilyPhone) {
		return out, inputval.Field("familyPhone", "Please enter a valid phone number")
	}
	if err := inputval.Length("childAge", out.ChildAge, 0, maxChildAge, "Child's age"); err != nil {
		return out, err
	}
	if err := inputval.Length("message", out.Message, 10, 2000, "Message"); err != nil {
		return out, err
	}
	if out.ReferralSource != "" {
		if !validReferral(out.ReferralSource) {
			return out, inputval.Field("referralSource", "Please choose how you heard about us")
		}
		if out.ReferralSource == "other" && out.ReferralSourceOther == "" {
			return out, inputval.Field("referralSourceOther", "Please tell us how you heard about us")
		}
		if err := inputval.Length("referralSourceOther", out.ReferralSourceOther, 0, maxReferralOther, "Referral source"); err != nil {
			return out, err
		}
	}
	if out.ReferralSource != "other" {
		out.ReferralSourceOther = ""
	}
	switch out.Source {
	case "":
		out.Source = SourceListingPage
	case SourceListingPage, SourceIntake:
	default:
		return out, inputval.Field("source", "Unknown inquiry source")
	}
	return out, nil
}
