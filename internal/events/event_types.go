package events

import (
	"time"

	"github.com/spec-kit/gas-service-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestCommentAdded  EventType = "request_comment_added"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"requestId"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	CustomerID  string                 `json:"customerId"`
	Type        domain.RequestType     `json:"type"`
	Priority    domain.RequestPriority `json:"priority"`
	Attachments int                    `json:"attachments"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"oldStatus"`
	NewStatus domain.RequestStatus `json:"newStatus"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	OldAssignee *string              `json:"oldAssignee,omitempty"`
	NewAssignee string               `json:"newAssignee"`
	OldStatus   domain.RequestStatus `json:"oldStatus"`
}

// RequestCommentAddedPayload payload.
type RequestCommentAddedPayload struct {
	CommentID   string `json:"commentId"`
	AuthorID    string `json:"authorId"`
	TextPreview string `json:"textPreview"`
}
