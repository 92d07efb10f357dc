package entities

import "time"

// Severity selects the toast styling.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// NotificationDisplayDuration is how long a toast stays visible.
const NotificationDisplayDuration = 3 * time.Second

// Notification is a transient message queued for the next render of a session.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseSeverity maps unknown values to info.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return Severity(s)
	}
	return SeverityInfo
}

// DurationMs is the display duration in milliseconds, used by the toast markup.
func (n Notification) DurationMs() int64 {
	return NotificationDisplayDuration.Milliseconds()
}
