package clients

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/inquiries"
	"github.com/wolfman30/aba-directory/internal/notifications"
	"github.com/wolfman30/aba-directory/internal/plans"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.clients")

// OverdueBatch bounds one reminder sweep.
const OverdueBatch = 100

// PlanResolver resolves the caller's effective tier.
type PlanResolver interface {
	Resolve(ctx context.Context, profileID string) (plans.Resolution, error)
	Observe(feature plans.Feature, d plans.Decision)
}

// InquiryReader loads one of the caller's inquiries.
type InquiryReader interface {
	Get(ctx context.Context, profileID, id string) (*inquiries.Inquiry, error)
}

// NotificationCreator records overdue task alerts.
type NotificationCreator interface {
	Create(ctx context.Context, n *notifications.Notification) error
}

// Deps are the collaborators of the client service. Notifications is
// optional.
type Deps struct {
	Plans         PlanResolver
	Inquiries     InquiryReader
	Notifications NotificationCreator
}

// Service manages the client pipeline.
type Service struct {
	repo   Repository
	deps   Deps
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires the client service.
func NewService(repo Repository, deps Deps, logger *logging.Logger) *Service {
	if repo == nil || deps.Plans == nil || deps.Inquiries == nil {
		panic("clients: repository, plans and inquiries required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, deps: deps, logger: logger, now: time.Now}
}

// guard checks the communications feature, which covers the client
// pipeline. Reads stay open after a downgrade.
func (s *Service) guard(ctx context.Context, profileID string) error {
	res, err := s.deps.Plans.Resolve(ctx, profileID)
	if err != nil {
		return fmt.Errorf("clients: resolve plan: %w", err)
	}
	decision := plans.GuardFeature(res.Tier, plans.FeatureCommunications)
	s.deps.Plans.Observe(plans.FeatureCommunications, decision)
	return plans.Denied(plans.FeatureCommunications, decision)
}

// Create adds a client entered by hand.
func (s *Service) Create(ctx context.Context, profileID string, in Input) (*Client, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.guard(ctx, profileID); err != nil {
		return nil, err
	}
	c := &Client{ProfileID: profileID}
	apply(c, in)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("client created", "client_id", c.ID, "profile_id", profileID)
	return c, nil
}

// ConvertInquiry opens a client record from an inquiry: the family becomes
// the primary parent and the message becomes the notes. Each inquiry
// converts once.
func (s *Service) ConvertInquiry(ctx context.Context, profileID, inquiryID string) (*Client, error) {
	ctx, span := tracer.Start(ctx, "clients.convert_inquiry")
	defer span.End()
	span.SetAttributes(attribute.String("aba.inquiry_id", inquiryID))

	if err := s.guard(ctx, profileID); err != nil {
		return nil, err
	}
	inq, err := s.deps.Inquiries.Get(ctx, profileID, inquiryID)
	if err != nil {
		return nil, err
	}
	first, last := splitName(inq.FamilyName)
	c := &Client{
		ProfileID:       profileID,
		ListingID:       inq.ListingID,
		InquiryID:       inq.ID,
		Status:          StatusIntakePending,
		ParentFirstName: first,
		ParentLastName:  last,
		ParentEmail:     inq.FamilyEmail,
		ParentPhone:     inq.FamilyPhone,
		Notes:           inq.Message,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("inquiry converted to client", "client_id", c.ID, "inquiry_id", inq.ID)
	return c, nil
}

// Get returns one of the caller's clients.
func (s *Service) Get(ctx context.Context, profileID, id string) (*Client, error) {
	return s.repo.Get(ctx, profileID, id)
}

// List returns the caller's clients, optionally of one status.
func (s *Service) List(ctx context.Context, profileID string, status Status) ([]Client, error) {
	if status != "" {
		if _, ok := ParseStatus(string(status)); !ok {
			return nil, fieldStatus()
		}
	}
	return s.repo.List(ctx, profileID, status)
}

// Update replaces a client's editable fields.
func (s *Service) Update(ctx context.Context, profileID, id string, in Input) (*Client, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, profileID, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	apply(c, in)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	if from != c.Status {
		s.logger.Info("client status changed", "client_id", id, "from", from, "to", c.Status)
	}
	return c, nil
}

func apply(c *Client, in Input) {
	c.Status = in.Status
	c.ChildFirstName, c.ChildLastName = in.ChildFirstName, in.ChildLastName
	c.ParentFirstName, c.ParentLastName = in.ParentFirstName, in.ParentLastName
	c.ParentEmail, c.ParentPhone = in.ParentEmail, in.ParentPhone
	c.InsuranceName, c.Notes = in.InsuranceName, in.Notes
}

// AddTask creates a pending task, optionally tied to one of the caller's
// clients.
func (s *Service) AddTask(ctx context.Context, profileID string, in TaskInput) (*Task, error) {
	in, err := normalizeTask(in)
	if err != nil {
		return nil, err
	}
	if err := s.guard(ctx, profileID); err != nil {
		return nil, err
	}
	var clientName string
	if in.ClientID != "" {
		c, err := s.repo.Get(ctx, profileID, in.ClientID)
		if err != nil {
			return nil, err
		}
		clientName = c.ChildName()
	}
	t := &Task{
		ProfileID: profileID,
		ClientID:  in.ClientID,
		Title:     in.Title,
		Content:   in.Content,
		DueDate:   in.DueDate,
	}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	t.ClientName = clientName
	return t, nil
}

// ListTasks returns the caller's live tasks.
func (s *Service) ListTasks(ctx context.Context, profileID string, filter TaskFilter) ([]Task, error) {
	if filter.Status != "" && filter.Status != TaskPending && filter.Status != TaskCompleted {
		return nil, fieldStatus()
	}
	return s.repo.ListTasks(ctx, profileID, filter)
}

// CompleteTask marks one of the caller's tasks done.
func (s *Service) CompleteTask(ctx context.Context, profileID, id string) error {
	return s.repo.CompleteTask(ctx, profileID, id, s.now().UTC())
}

// DeleteTask removes one of the caller's tasks.
func (s *Service) DeleteTask(ctx context.Context, profileID, id string) error {
	return s.repo.DeleteTask(ctx, profileID, id, s.now().UTC())
}

// NotifyOverdue runs one reminder sweep with the service's repository and
// notification sink.
func (s *Service) NotifyOverdue(ctx context.Context) (int, error) {
	r := &Reminder{repo: s.repo, notes: s.deps.Notifications, logger: s.logger, now: s.now}
	return r.NotifyOverdue(ctx)
}

// Reminder raises overdue task notifications. It needs neither plans nor
// inquiries, so the background sweep builds it directly.
type Reminder struct {
	repo   Repository
	notes  NotificationCreator
	logger *logging.Logger
	now    func() time.Time
}

// NewReminder wires a reminder sweep.
func NewReminder(repo Repository, notes NotificationCreator, logger *logging.Logger) *Reminder {
	if repo == nil {
		panic("clients: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reminder{repo: repo, notes: notes, logger: logger, now: time.Now}
}

// NotifyOverdue raises one task_overdue notification per newly overdue
// task and reports how many were raised. A task is reminded at most once.
func (r *Reminder) NotifyOverdue(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "clients.notify_overdue")
	defer span.End()

	if r.notes == nil {
		return 0, nil
	}
	due, err := r.repo.ClaimOverdue(ctx, r.now().UTC(), OverdueBatch)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	raised := 0
	for _, t := range due {
		body := "This task is past its due date."
		if t.DueDate != nil {
			body = "Due " + t.DueDate.Format("Jan 2, 2006")
		}
		err := r.notes.Create(ctx, &notifications.Notification{
			ProfileID:  t.ProfileID,
			Type:       notifications.TypeTaskOverdue,
			Title:      "Task overdue: " + t.Title,
			Body:       body,
			Link:       "/dashboard/tasks",
			EntityID:   t.ID,
			EntityType: "task",
		})
		if err != nil {
			r.logger.Error("failed to create overdue task notification", "error", err, "task_id", t.ID)
			continue
		}
		raised++
	}
	span.SetAttributes(attribute.Int("aba.tasks.reminded", raised))
	return raised, nil
}
