// Package clients is the provider's client pipeline: families converted from
// inquiries and the follow-up tasks attached to them.
package clients

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound covers missing and foreign clients.
	ErrNotFound = errors.New("clients: not found")

	// ErrTaskNotFound covers missing, deleted and foreign tasks.
	ErrTaskNotFound = errors.New("clients: task not found")

	// ErrAlreadyConverted means the inquiry already has a client record.
	ErrAlreadyConverted = errors.New("clients: inquiry already converted")
)

// Status is the client's place in the intake pipeline.
type Status string

const (
	StatusInquiry       Status = "inquiry"
	StatusIntakePending Status = "intake_pending"
	StatusWaitlist      Status = "waitlist"
	StatusAssessment    Status = "assessment"
	StatusActive        Status = "active"
	StatusOnHold        Status = "on_hold"
	StatusDischarged    Status = "discharged"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusInquiry, StatusIntakePending, StatusWaitlist, StatusAssessment,
	StatusActive, StatusOnHold, StatusDischarged,
}

// ParseStatus returns the status named by raw, or false.
func ParseStatus(raw string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Client is one family in the provider's pipeline.
type Client struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profileId"`
	ListingID       string    `json:"listingId,omitempty"`
	InquiryID       string    `json:"inquiryId,omitempty"`
	Status          Status    `json:"status"`
	ChildFirstName  string    `json:"childFirstName,omitempty"`
	ChildLastName   string    `json:"childLastName,omitempty"`
	ParentFirstName string    `json:"parentFirstName,omitempty"`
	ParentLastName  string    `json:"parentLastName,omitempty"`
	ParentEmail     string    `json:"parentEmail,omitempty"`
	ParentPhone     string    `json:"parentPhone,omitempty"`
	InsuranceName   string    `json:"insuranceName,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ChildName joins the child's names, or "" when neither is known.
func (c *Client) ChildName() string {
	return joinName(c.ChildFirstName, c.ChildLastName)
}

// ParentName joins the primary parent's names.
func (c *Client) ParentName() string {
	return joinName(c.ParentFirstName, c.ParentLastName)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// Input is the editable part of a client.
type Input struct {
	Status          Status `json:"status"`
	ChildFirstName  string `json:"childFirstName"`
	ChildLastName   string `json:"childLastName"`
	ParentFirstName string `json:"parentFirstName"`
	ParentLastName  string `json:"parentLastName"`
	ParentEmail     string `json:"parentEmail"`
	ParentPhone     string `json:"parentPhone"`
	InsuranceName   string `json:"insuranceName"`
	Notes           string `json:"notes"`
}

// TaskStatus is pending until the provider completes the task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is a follow-up item, optionally tied to a client.
type Task struct {
	ID          string     `json:"id"`
	ProfileID   string     `json:"profileId"`
	ClientID    string     `json:"clientId,omitempty"`
	ClientName  string     `json:"clientName,omitempty"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Overdue reports whether a pending task is past its due date at now.
func (t *Task) Overdue(now time.Time) bool {
	return t.Status == TaskPending && t.DueDate != nil && t.DueDate.Before(now)
}

// TaskInput is the payload for adding a task.
type TaskInput struct {
	ClientID string     `json:"clientId"`
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	DueDate  *time.Time `json:"dueDate"`
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	Status   TaskStatus
	ClientID string
}
