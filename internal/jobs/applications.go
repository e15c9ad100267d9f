package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/captcha"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/notify"
	"github.com/wolfman30/aba-directory/internal/prefill"
	"github.com/wolfman30/aba-directory/internal/profiles"
)

const formName = "application"

func (s *Service) observe(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSubmission(formName, outcome)
	}
}

// SubmitApplication records a public job application. A filled honeypot is
// reported as success without writing anything.
func (s *Service) SubmitApplication(ctx context.Context, req ApplicationRequest) error {
	ctx, span := tracer.Start(ctx, "jobs.submit_application")
	defer span.End()

	req, err := normalizeApplication(req)
	if err != nil {
		s.observe("invalid")
		return err
	}
	span.SetAttributes(attribute.String("aba.job_id", req.JobPostingID))

	if req.Website != "" {
		s.observe("honeypot")
		s.logger.Info("application honeypot triggered", "job_id", req.JobPostingID)
		return nil
	}
	if err := s.verifyCaptcha(ctx, req); err != nil {
		s.observe("captcha_failed")
		return err
	}

	job, err := s.repo.GetPublishedPosting(ctx, req.JobPostingID)
	if errors.Is(err, ErrPostingNotFound) {
		s.observe("rejected")
		return ErrNotAccepting
	}
	if err != nil {
		s.observe("error")
		return err
	}

	exists, err := s.repo.ApplicationExists(ctx, job.ID, req.ApplicantEmail)
	if err != nil {
		s.observe("error")
		return err
	}
	if exists {
		s.observe("duplicate")
		return ErrDuplicate
	}

	var resumePath string
	if req.Resume != nil {
		if err := validateResume(req.Resume); err != nil {
			s.observe("invalid")
			return err
		}
		if s.deps.Resumes == nil {
			s.observe("error")
			return ErrUploadFailed
		}
		resumePath = fmt.Sprintf("resumes/%s/%s-%s", job.ID, uuid.NewString(), resumeFileName(req.Resume.Name))
		if err := s.deps.Resumes.Put(ctx, resumePath, req.Resume); err != nil {
			span.RecordError(err)
			s.observe("error")
			s.logger.Error("resume upload failed", "error", err, "job_id", job.ID)
			return ErrUploadFailed
		}
	}

	app := &Application{
		JobPostingID:   job.ID,
		ApplicantName:  req.ApplicantName,
		ApplicantEmail: req.ApplicantEmail,
		ApplicantPhone: req.ApplicantPhone,
		LinkedInURL:    req.LinkedInURL,
		ResumePath:     resumePath,
		CoverLetter:    req.CoverLetter,
		Source:         req.Source,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		if resumePath != "" {
			if derr := s.deps.Resumes.Delete(ctx, resumePath); derr != nil {
				s.logger.Error("failed to remove orphaned resume", "error", derr, "s3_key", resumePath)
			}
		}
		if errors.Is(err, ErrDuplicate) {
			s.observe("duplicate")
			return ErrDuplicate
		}
		span.RecordError(err)
		s.observe("error")
		s.logger.Error("failed to create application", "error", err, "job_id", job.ID)
		return err
	}
	s.observe("accepted")
	s.logger.Info("application created", "application_id", app.ID, "job_id", job.ID)

	s.afterSubmit(ctx, job, app, req.PrefillKey)
	return nil
}

func (s *Service) verifyCaptcha(ctx context.Context, req ApplicationRequest) error {
	if req.CaptchaToken == "" {
		return ErrCaptchaRequired
	}
	if err := s.deps.Captcha.Verify(ctx, req.CaptchaToken, req.RemoteIP); err != nil {
		if errors.Is(err, captcha.ErrMissingToken) {
			return ErrCaptchaRequired
		}
		s.logger.Warn("application captcha rejected", "error", err, "job_id", req.JobPostingID)
		return ErrCaptchaFailed
	}
	return nil
}

// afterSubmit runs the best-effort side effects of a new application.
func (s *Service) afterSubmit(ctx context.Context, job *Posting, app *Application, prefillKey string) {
	if err := s.deps.Prefill.Save(ctx, prefillKey, prefill.Contact{
		Name:        app.ApplicantName,
		Email:       app.ApplicantEmail,
		Phone:       app.ApplicantPhone,
		LinkedInURL: app.LinkedInURL,
	}); err != nil {
		s.logger.Warn("failed to save applicant prefill", "error", err)
	}

	if s.deps.Notifications != nil {
		err := s.deps.Notifications.Create(ctx, &notifications.Notification{
			ProfileID:  job.ProfileID,
			Type:       notifications.TypeJobApplication,
			Title:      "New application from " + app.ApplicantName,
			Body:       "Applied for " + job.Title,
			Link:       "/dashboard/team/applicants",
			EntityID:   app.ID,
			EntityType: "job_application",
		})
		if err != nil {
			s.logger.Error("failed to create application notification", "error", err, "application_id", app.ID)
		}
	}

	if s.deps.Mailer == nil {
		return
	}
	owner, err := s.deps.Profiles.Get(ctx, job.ProfileID)
	if err != nil {
		s.logger.Error("failed to load job owner", "error", err, "profile_id", job.ProfileID)
		return
	}
	if err := s.deps.Mailer.ConfirmApplication(ctx, notify.ApplicantConfirmationEmail{
		To:            app.ApplicantEmail,
		ApplicantName: app.ApplicantName,
		JobTitle:      job.Title,
		JobURL:        s.deps.JobsBaseURL + "/job/" + job.Slug,
		Agency:        branding(owner),
	}); err != nil {
		s.logger.Error("failed to send applicant confirmation", "error", err, "application_id", app.ID)
	}
	if err := s.deps.Mailer.NotifyNewApplication(ctx, notify.ApplicationEmail{
		To:             owner.ContactEmail,
		ProviderName:   owner.AgencyName,
		JobTitle:       job.Title,
		ApplicantName:  app.ApplicantName,
		ApplicantEmail: app.ApplicantEmail,
		ApplicantPhone: app.ApplicantPhone,
		LinkedInURL:    app.LinkedInURL,
		CoverLetter:    app.CoverLetter,
		HasResume:      app.ResumePath != "",
		ApplicationID:  app.ID,
	}); err != nil {
		s.logger.Error("failed to send provider application email", "error", err, "application_id", app.ID)
	}
}

func branding(p *profiles.Profile) notify.AgencyBranding {
	return notify.AgencyBranding{
		AgencyName:   p.AgencyName,
		ContactEmail: p.ContactEmail,
		LogoURL:      p.LogoURL,
		BrandColor:   p.BrandColor,
		Website:      p.Website,
		Phone:        p.ContactPhone,
	}
}

// Prefill returns the contact details remembered for a client key.
func (s *Service) Prefill(ctx context.Context, key string) (prefill.Contact, bool, error) {
	return s.deps.Prefill.Load(ctx, key)
}

// ListApplications returns the caller's applicants and the count still new.
func (s *Service) ListApplications(ctx context.Context, profileID string, filter ApplicationFilter) (*ApplicationPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fieldStatus()
	}
	apps, err := s.repo.ListApplications(ctx, profileID, filter)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.NewApplicationCount(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return &ApplicationPage{Applications: apps, NewCount: n}, nil
}

// GetApplication returns one of the caller's applications.
func (s *Service) GetApplication(ctx context.Context, profileID, id string) (*Application, error) {
	return s.repo.GetApplication(ctx, profileID, id)
}

// NewApplicationCount is the sidebar badge count.
func (s *Service) NewApplicationCount(ctx context.Context, profileID string) (int, error) {
	return s.repo.NewApplicationCount(ctx, profileID)
}

// UpdateApplicationStatus moves an application through the hiring pipeline.
// Any status may follow any other; the first move away from new stamps
// reviewed_at.
func (s *Service) UpdateApplicationStatus(ctx context.Context, profileID, id string, status ApplicationStatus) (*Application, error) {
	if !status.Valid() {
		return nil, fieldStatus()
	}
	if err := s.repo.SetApplicationStatus(ctx, profileID, id, status, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("application status changed", "application_id", id, "status", status)
	return s.repo.GetApplication(ctx, profileID, id)
}

// UpdateApplicationDetails edits the provider's notes and rating.
func (s *Service) UpdateApplicationDetails(ctx context.Context, profileID, id string, u DetailsUpdate) (*Application, error) {
	u, err := validateDetails(u)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateApplicationDetails(ctx, profileID, id, u); err != nil {
		return nil, err
	}
	return s.repo.GetApplication(ctx, profileID, id)
}

// ResumeDownloadURL returns a presigned link valid for ResumeDownloadTTL.
func (s *Service) ResumeDownloadURL(ctx context.Context, profileID, id string) (string, error) {
	app, err := s.repo.GetApplication(ctx, profileID, id)
	if err != nil {
		return "", err
	}
	if app.ResumePath == "" || s.deps.Resumes == nil {
		return "", ErrNoResume
	}
	url, err := s.deps.Resumes.PresignGet(ctx, app.ResumePath, ResumeDownloadTTL)
	if err != nil {
		s.logger.Error("failed to presign resume", "error", err, "application_id", id)
		return "", err
	}
	return url, nil
}
