package domain

import "time"

// ChangeType captures what changed in a history entry.
type ChangeType string

const (
	ChangeTypeStatus     ChangeType = "status_change"
	ChangeTypeAssignment ChangeType = "assignment"
)

// RequestHistory is an immutable audit trail entry for a service request.
type RequestHistory struct {
	ID         string
	RequestID  string
	ChangedBy  string
	ChangeType ChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
