package models

import (
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Notification is a UI-facing alert record. ExpiresAfter is only meaningful
// when AutoExpire is set.
type Notification struct {
	ID           string        `json:"id"`
	Message      string        `json:"message"`
	Severity     Severity      `json:"severity"`
	Source       string        `json:"source"`
	CreatedAt    time.Time     `json:"createdAt"`
	AutoExpire   bool          `json:"autoExpire"`
	ExpiresAfter time.Duration `json:"-"`
}

// ExpiresAt returns the auto-expiry deadline, or the zero time for sticky notifications.
func (n Notification) ExpiresAt() time.Time {
	if !n.AutoExpire {
		return time.Time{}
	}
	return n.CreatedAt.Add(n.ExpiresAfter)
}
