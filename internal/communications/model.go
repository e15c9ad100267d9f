package communications

import (
	"errors"
	"time"
)

var (
	ErrTemplateNotFound = errors.New("communications: template not found")
	ErrSendFailed       = errors.New("communications: email was not delivered")
)

// Status is the delivery outcome recorded for a communication.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Template is a reusable message for one stage of the client lifecycle.
// Subject and Body carry {field} placeholders.
type Template struct {
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	LifecycleStage string   `json:"lifecycleStage"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	MergeFields    []string `json:"mergeFields"`
}

// Communication is one logged email to a client's family.
type Communication struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"clientId"`
	ProfileID      string    `json:"-"`
	TemplateSlug   string    `json:"templateSlug,omitempty"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	RecipientEmail string    `json:"recipientEmail"`
	RecipientName  string    `json:"recipientName,omitempty"`
	Status         Status    `json:"status"`
	SentAt         time.Time `json:"sentAt"`
	SentBy         string    `json:"sentBy,omitempty"`
	ClientName     string    `json:"clientName,omitempty"`
}

// Filter selects one page of an agency's communication log.
type Filter struct {
	ClientID     string
	TemplateSlug string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f Filter) offset() int { return (f.Page - 1) * f.PageSize }

// Page is one page of the log plus the filtered total.
type Page struct {
	Communications []Communication `json:"communications"`
	Total          int             `json:"total"`
	Page           int             `json:"page"`
	PageSize       int             `json:"pageSize"`
}

// SendRequest is the payload for sending a communication. Subject and Body
// fall back to the template's when empty; recipient falls back to the
// client's parent. Fields fills manual placeholders such as
// {assessment_date}.
type SendRequest struct {
	ClientID       string            `json:"clientId"`
	TemplateSlug   string            `json:"templateSlug"`
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	RecipientEmail string            `json:"recipientEmail"`
	RecipientName  string            `json:"recipientName"`
	Fields         map[string]string `json:"fields"`
}

// PreviewRequest renders a template for a client without sending.
type PreviewRequest struct {
	ClientID     string            `json:"clientId"`
	TemplateSlug string            `json:"templateSlug"`
	Fields       map[string]string `json:"fields"`
}

// Preview is a populated subject and body.
type Preview struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
