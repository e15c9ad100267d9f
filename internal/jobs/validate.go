package jobs

import (
	"path"
	"strings"

	"github.com/wolfman30/aba-directory/internal/inputval"
)

const (
	// MaxResumeBytes caps an uploaded resume.
	MaxResumeBytes = 10 << 20
	maxSlugLength  = 80
)

var resumeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func allOf(values, allowed []string) bool {
	for _, v := range values {
		if !oneOf(v, allowed) {
			return false
		}
	}
	return true
}

// newPosting validates the create form and builds the draft row.
func newPosting(in PostingInput) (*Posting, error) {
	p := &Posting{
		LocationID:      strings.TrimSpace(in.LocationID),
		Title:           inputval.PlainText(in.Title),
		Description:     inputval.PlainText(in.Description),
		Requirements:    inputval.PlainText(in.Requirements),
		PositionType:    in.PositionType,
		EmploymentTypes: in.EmploymentTypes,
		Benefits:        in.Benefits,
		RemoteOption:    in.RemoteOption,
		Status:          in.Status,
	}
	if in.ShowSalary {
		p.SalaryType = in.SalaryType
		p.SalaryMin = in.SalaryMin
		p.SalaryMax = in.SalaryMax
		if p.SalaryType == "" || p.SalaryMin == nil {
			return nil, inputval.Field("salaryMin", "Please provide salary type and minimum salary")
		}
	}
	switch p.Status {
	case "":
		p.Status = PostingDraft
	case PostingDraft, PostingPublished:
	default:
		return nil, inputval.Field("status", "New job postings must be draft or published")
	}
	if err := validatePosting(p); err != nil {
		return nil, err
	}
	return p, nil
}

// applyUpdate merges u into a copy of p and validates the result.
func applyUpdate(p Posting, u PostingUpdate) (*Posting, error) {
	if u.Title != nil {
		p.Title = inputval.PlainText(*u.Title)
	}
	if u.PositionType != nil {
		p.PositionType = *u.PositionType
	}
	if u.EmploymentTypes != nil {
		p.EmploymentTypes = *u.EmploymentTypes
	}
	if u.LocationID != nil {
		p.LocationID = strings.TrimSpace(*u.LocationID)
	}
	if u.RemoteOption != nil {
		p.RemoteOption = *u.RemoteOption
	}
	if u.Description != nil {
		p.Description = inputval.PlainText(*u.Description)
	}
	if u.Requirements != nil {
		p.Requirements = inputval.PlainText(*u.Requirements)
	}
	if u.Benefits != nil {
		p.Benefits = *u.Benefits
	}
	if u.ShowSalary != nil {
		if *u.ShowSalary {
			p.SalaryType, p.SalaryMin, p.SalaryMax = "", u.SalaryMin, u.SalaryMax
			if u.SalaryType != nil {
				p.SalaryType = *u.SalaryType
			}
			if p.SalaryType == "" || p.SalaryMin == nil {
				return nil, inputval.Field("salaryMin", "Please provide salary type and minimum salary")
			}
		} else {
			p.SalaryType, p.SalaryMin, p.SalaryMax = "", nil, nil
		}
	}
	if err := validatePosting(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func validatePosting(p *Posting) error {
	if err := inputval.Length("title", p.Title, 5, 100, "Job title"); err != nil {
		return err
	}
	if !oneOf(p.PositionType, PositionTypes) {
		return inputval.Field("positionType", "Please select a position type")
	}
	if len(p.EmploymentTypes) == 0 || !allOf(p.EmploymentTypes, EmploymentTypes) {
		return inputval.Field("employmentTypes", "Please select at least one employment type")
	}
	if p.SalaryType != "" && !oneOf(p.SalaryType, SalaryTypes) {
		return inputval.Field("salaryType", "Please select hourly or annual")
	}
	if (p.SalaryMin != nil && *p.SalaryMin < 0) || (p.SalaryMax != nil && *p.SalaryMax < 0) {
		return inputval.Field("salaryMin", "Salary cannot be negative")
	}
	if p.SalaryMin != nil && p.SalaryMax != nil && *p.SalaryMax < *p.SalaryMin {
		return inputval.Field("salaryMax", "Maximum salary must be greater than or equal to minimum salary")
	}
	if err := inputval.Length("description", p.Description, 50, 10000, "Description"); err != nil {
		return err
	}
	if err := inputval.Length("requirements", p.Requirements, 0, 5000, "Requirements"); err != nil {
		return err
	}
	if !allOf(p.Benefits, Benefits) {
		return inputval.Field("benefits", "Unknown benefit")
	}
	if p.EmploymentTypes == nil {
		p.EmploymentTypes = []string{}
	}
	if p.Benefits == nil {
		p.Benefits = []string{}
	}
	return nil
}

// normalizeApplication validates the public form. The email is lowercased so
// duplicate detection matches the unique index.
func normalizeApplication(req ApplicationRequest) (ApplicationRequest, error) {
	out := req
	out.JobPostingID = strings.TrimSpace(req.JobPostingID)
	out.ApplicantName = inputval.PlainText(req.ApplicantName)
	out.ApplicantEmail = strings.ToLower(strings.TrimSpace(req.ApplicantEmail))
	out.ApplicantPhone = strings.TrimSpace(req.ApplicantPhone)
	out.CoverLetter = inputval.PlainText(req.CoverLetter)
	out.LinkedInURL = strings.TrimSpace(req.LinkedInURL)
	out.Source = strings.TrimSpace(req.Source)

	if out.JobPostingID == "" {
		return out, inputval.Field("jobPostingId", "Job posting is required")
	}
	if err := inputval.Length("applicantName", out.ApplicantName, 2, 100, "Name"); err != nil {
		return out, err
	}
	if !inputval.IsValidEmail(out.ApplicantEmail) {
		return out, inputval.Field("applicantEmail", "Please enter a valid email address")
	}
	if out.ApplicantPhone != "" && !inputval.IsValidPhone(out.ApplicantPhone) {
		return out, inputval.Field("applicantPhone", "Please enter a valid phone number")
	}
	if err := inputval.Length("coverLetter", out.CoverLetter, 0, 5000, "Cover letter"); err != nil {
		return out, err
	}
	if out.LinkedInURL != "" && !inputval.IsValidURL(out.LinkedInURL) {
		return out, inputval.Field("linkedinUrl", "Please enter a valid URL")
	}
	if out.Source == "" {
		out.Source = "direct"
	}
	if !oneOf(out.Source, ApplicationSources) {
		return out, inputval.Field("source", "Unknown application source")
	}
	if out.Resume != nil && out.Resume.Size == 0 {
		out.Resume = nil
	}
	return out, nil
}

func validateResume(r *Resume) error {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(r.ContentType, ";", 2)[0]))
	if !resumeTypes[contentType] {
		return inputval.Field("resume", "Resume must be a PDF, DOC, or DOCX file")
	}
	if r.Size > MaxResumeBytes {
		return inputval.Field("resume", "Resume must be less than 10MB")
	}
	return nil
}

// resumeFileName reduces an uploaded file name to a safe object key segment.
func resumeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := inputval.Slugify(strings.TrimSuffix(base, path.Ext(base)), 60)
	if stem == "" {
		stem = "resume"
	}
	switch ext {
	case ".pdf", ".doc", ".docx":
		return stem + ext
	}
	return stem
}

func validateDetails(u DetailsUpdate) (DetailsUpdate, error) {
	if u.Notes != nil {
		notes := inputval.PlainText(*u.Notes)
		if err := inputval.Length("notes", notes, 0, 5000, "Notes"); err != nil {
			return u, err
		}
		u.Notes = &notes
	}
	if u.Rating != nil && (*u.Rating < 1 || *u.Rating > 5) {
		return u, inputval.Field("rating", "Rating must be between 1 and 5")
	}
	return u, nil
}

func fieldStatus() error {
	return inputval.Field("status", "Invalid status")
}
