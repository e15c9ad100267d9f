// Package notifications stores in-app alerts shown in the provider dashboard.
package notifications

import (
	"errors"
	"time"
)

// ErrNotFound covers missing and foreign notifications.
var ErrNotFound = errors.New("notifications: not found")

// Type classifies a notification.
type Type string

const (
	TypeContactForm        Type = "contact_form"
	TypeIntakeSubmission   Type = "intake_submission"
	TypeJobApplication     Type = "job_application"
	TypeTaskOverdue        Type = "task_overdue"
	TypeAuthExpiring       Type = "auth_expiring"
	TypeCredentialExpiring Type = "credential_expiring"
	TypeStatusChange       Type = "status_change"
	TypeSystem             Type = "system"
)

// Types lists every notification type.
var Types = []Type{
	TypeContactForm, TypeIntakeSubmission, TypeJobApplication, TypeTaskOverdue,
	TypeAuthExpiring, TypeCredentialExpiring, TypeStatusChange, TypeSystem,
}

// ParseType validates a raw type.
func ParseType(raw string) (Type, bool) {
	for _, t := range Types {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// Notification is one dashboard alert.
type Notification struct {
	ID         string     `json:"id"`
	ProfileID  string     `json:"profileId"`
	Type       Type       `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body,omitempty"`
	Link       string     `json:"link,omitempty"`
	EntityID   string     `json:"entityId,omitempty"`
	EntityType string     `json:"entityType,omitempty"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// DefaultLimit is the page size when none is given.
const DefaultLimit = 50

// Filter narrows List.
type Filter struct {
	Type   Type
	IsRead *bool
	Limit  int
	Offset int
}

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > 200 {
		return DefaultLimit
	}
	return f.Limit
}

// Page is a page of notifications plus the profile's unread total.
type Page struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}
