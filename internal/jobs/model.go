package jobs

import (
	"errors"
	"io"
	"time"
)

var (
	ErrPostingNotFound     = errors.New("jobs: posting not found")
	ErrApplicationNotFound = errors.New("jobs: application not found")
	ErrNotAccepting        = errors.New("jobs: posting not accepting applications")
	ErrDuplicate           = errors.New("jobs: duplicate application")
	ErrSlugTaken           = errors.New("jobs: slug taken")
	ErrCaptchaRequired     = errors.New("jobs: captcha token missing")
	ErrCaptchaFailed       = errors.New("jobs: captcha rejected")
	ErrNoResume            = errors.New("jobs: no resume attached")
	ErrUploadFailed        = errors.New("jobs: resume upload failed")
)

// PostingStatus is the lifecycle state of a job posting. Only published
// postings accept applications.
type PostingStatus string

const (
	PostingDraft     PostingStatus = "draft"
	PostingPublished PostingStatus = "published"
	PostingFilled    PostingStatus = "filled"
	PostingClosed    PostingStatus = "closed"
)

// Valid reports whether s is a known posting status.
func (s PostingStatus) Valid() bool {
	switch s {
	case PostingDraft, PostingPublished, PostingFilled, PostingClosed:
		return true
	}
	return false
}

var (
	PositionTypes   = []string{"bcba", "bcaba", "rbt", "bt", "clinical_director", "regional_director", "executive_director", "admin", "other"}
	EmploymentTypes = []string{"full_time", "part_time", "contract", "per_diem", "internship"}
	SalaryTypes     = []string{"hourly", "annual"}
	Benefits        = []string{
		"health_insurance", "dental_vision", "pto", "401k", "supervision", "ceu_stipend",
		"tuition_reimbursement", "signing_bonus", "flexible_schedule", "mileage_reimbursement",
	}
)

// Posting is a job advertised by a provider agency.
type Posting struct {
	ID               string        `json:"id"`
	ProfileID        string        `json:"profileId"`
	LocationID       string        `json:"locationId,omitempty"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	Description      string        `json:"description"`
	Requirements     string        `json:"requirements,omitempty"`
	PositionType     string        `json:"positionType"`
	EmploymentTypes  []string      `json:"employmentTypes"`
	Benefits         []string      `json:"benefits"`
	RemoteOption     bool          `json:"remoteOption"`
	SalaryMin        *int          `json:"salaryMin,omitempty"`
	SalaryMax        *int          `json:"salaryMax,omitempty"`
	SalaryType       string        `json:"salaryType,omitempty"`
	Status           PostingStatus `json:"status"`
	PublishedAt      *time.Time    `json:"publishedAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	ApplicationCount int           `json:"applicationCount"`
}

// PostingInput is the create form. Salary fields are kept only when
// ShowSalary is set.
type PostingInput struct {
	Title           string        `json:"title"`
	PositionType    string        `json:"positionType"`
	EmploymentTypes []string      `json:"employmentTypes"`
	LocationID      string        `json:"locationId"`
	RemoteOption    bool          `json:"remoteOption"`
	ShowSalary      bool          `json:"showSalary"`
	SalaryType      string        `json:"salaryType"`
	SalaryMin       *int          `json:"salaryMin"`
	SalaryMax       *int          `json:"salaryMax"`
	Description     string        `json:"description"`
	Requirements    string        `json:"requirements"`
	Benefits        []string      `json:"benefits"`
	Status          PostingStatus `json:"status"`
}

// PostingUpdate edits a posting. Nil fields are left unchanged.
type PostingUpdate struct {
	Title           *string   `json:"title,omitempty"`
	PositionType    *string   `json:"positionType,omitempty"`
	EmploymentTypes *[]string `json:"employmentTypes,omitempty"`
	LocationID      *string   `json:"locationId,omitempty"`
	RemoteOption    *bool     `json:"remoteOption,omitempty"`
	ShowSalary      *bool     `json:"showSalary,omitempty"`
	SalaryType      *string   `json:"salaryType,omitempty"`
	SalaryMin       *int      `json:"salaryMin,omitempty"`
	SalaryMax       *int      `json:"salaryMax,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Requirements    *string   `json:"requirements,omitempty"`
	Benefits        *[]string `json:"benefits,omitempty"`
}

// Quota is the caller's posting count against the plan limit.
type Quota struct {
	Count     int  `json:"count"`
	Limit     int  `json:"limit"`
	CanCreate bool `json:"canCreate"`
}

// ApplicationStatus is moved by the provider only. New applications start
// as new.
type ApplicationStatus string

const (
	ApplicationNew         ApplicationStatus = "new"
	ApplicationReviewed    ApplicationStatus = "reviewed"
	ApplicationPhoneScreen ApplicationStatus = "phone_screen"
	ApplicationInterview   ApplicationStatus = "interview"
	ApplicationOffered     ApplicationStatus = "offered"
	ApplicationHired       ApplicationStatus = "hired"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// ApplicationStatuses lists every status in pipeline order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationNew, ApplicationReviewed, ApplicationPhoneScreen, ApplicationInterview,
	ApplicationOffered, ApplicationHired, ApplicationRejected,
}

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ApplicationSources are the accepted values of the source field.
var ApplicationSources = []string{"direct", "careers_page", "linkedin", "indeed", "referral", "google", "other"}

// Application is a candidate's submission to a posting.
type Application struct {
	ID             string            `json:"id"`
	JobPostingID   string            `json:"jobPostingId"`
	JobTitle       string            `json:"jobTitle,omitempty"`
	ApplicantName  string            `json:"applicantName"`
	ApplicantEmail string            `json:"applicantEmail"`
	ApplicantPhone string            `json:"applicantPhone,omitempty"`
	LinkedInURL    string            `json:"linkedinUrl,omitempty"`
	ResumePath     string            `json:"resumePath,omitempty"`
	CoverLetter    string            `json:"coverLetter,omitempty"`
	Source         string            `json:"source"`
	Status         ApplicationStatus `json:"status"`
	Rating         *int              `json:"rating,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Resume is an uploaded file attached to an application.
type Resume struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ApplicationRequest is the public application form.
type ApplicationRequest struct {
	JobPostingID   string  `json:"-"`
	ApplicantName  string  `json:"applicantName"`
	ApplicantEmail string  `json:"applicantEmail"`
	ApplicantPhone string  `json:"applicantPhone"`
	CoverLetter    string  `json:"coverLetter"`
	LinkedInURL    string  `json:"linkedinUrl"`
	Source         string  `json:"source"`
	Website        string  `json:"website"` // honeypot
	CaptchaToken   string  `json:"turnstileToken"`
	RemoteIP       string  `json:"-"`
	PrefillKey     string  `json:"-"`
	Resume         *Resume `json:"-"`
}

// ApplicationFilter narrows the provider's applicant list.
type ApplicationFilter struct {
	Status ApplicationStatus
	JobID  string
}

// ApplicationPage is the applicant list with the sidebar badge count.
type ApplicationPage struct {
	Applications []Application `json:"applications"`
	NewCount     int           `json:"newCount"`
}

// DetailsUpdate edits the provider's private notes and rating. Nil fields
// are left unchanged; ClearRating removes the rating.
type DetailsUpdate struct {
	Notes       *string `json:"notes,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
	ClearRating bool    `json:"clearRating,omitempty"`
}
