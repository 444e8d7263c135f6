package dto

import (
	"time"

	"github.com/spec-kit/gas-service-portal/internal/domain"
)

// CreateServiceRequestForm holds the text fields of the multipart create call.
// Location arrives as a JSON string.
type CreateServiceRequestForm struct {
	Type        string `form:"type" validate:"required"`
	Description string `form:"description" validate:"required"`
	Priority    string `form:"priority"`
	Location    string `form:"location"`
}

// CreateServiceRequestBody is the JSON form of the create call, used when no
// files are attached.
type CreateServiceRequestBody struct {
	Type        string           `json:"type" validate:"required"`
	Description string           `json:"description" validate:"required"`
	Priority    string           `json:"priority"`
	Location    *domain.Location `json:"location"`
}

// UpdateStatusRequest payload for PATCH /service-requests/:id/status.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Version *int64 `json:"version" validate:"omitempty,min=1"`
}

// AssignRequest payload for PATCH /service-requests/:id/assign.
type AssignRequest struct {
	AssignedTo string `json:"assignedTo" validate:"required"`
	Version    *int64 `json:"version" validate:"omitempty,min=1"`
}

// CommentRequest payload for POST /service-requests/:id/comments.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// ServiceRequestResponse is the API shape of a service request. Customer and
// Assignee are present only on joined listings.
type ServiceRequestResponse struct {
	ID          string                 `json:"id"`
	CustomerID  string                 `json:"customerId"`
	Customer    *UserSummaryResponse   `json:"customer,omitempty"`
	Type        domain.RequestType     `json:"type"`
	Status      domain.RequestStatus   `json:"status"`
	Priority    domain.RequestPriority `json:"priority"`
	Description string                 `json:"description"`
	Location    *domain.Location       `json:"location,omitempty"`
	Attachments []domain.Attachment    `json:"attachments"`
	AssignedTo  *string                `json:"assignedTo"`
	Assignee    *UserSummaryResponse   `json:"assignee,omitempty"`
	Comments    []domain.Comment       `json:"comments"`
	ResolvedAt  *time.Time             `json:"resolvedAt"`
	Version     int64                  `json:"version"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         string            `json:"id"`
	RequestID  string            `json:"requestId"`
	ChangedBy  string            `json:"changedBy"`
	ChangeType domain.ChangeType `json:"changeType"`
	OldValue   map[string]any    `json:"oldValue"`
	NewValue   map[string]any    `json:"newValue"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// NewServiceRequestResponse maps a bare request.
func NewServiceRequestResponse(r *domain.ServiceRequest) ServiceRequestResponse {
	attachments := r.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	comments := r.Comments
	if comments == nil {
		comments = []domain.Comment{}
	}
	return ServiceRequestResponse{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		Type:        r.Type,
		Status:      r.Status,
		Priority:    r.Priority,
		Description: r.Description,
		Location:    r.Location,
		Attachments: attachments,
		AssignedTo:  r.AssignedTo,
		Comments:    comments,
		ResolvedAt:  r.ResolvedAt,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewServiceRequestViewResponse maps a request with its joined identities.
func NewServiceRequestViewResponse(v *domain.ServiceRequestView) ServiceRequestResponse {
	resp := NewServiceRequestResponse(&v.ServiceRequest)
	resp.Customer = newUserSummary(v.Customer)
	resp.Assignee = newUserSummary(v.Assignee)
	return resp
}

// NewServiceRequestViewResponses maps a joined listing.
func NewServiceRequestViewResponses(views []domain.ServiceRequestView) []ServiceRequestResponse {
	items := make([]ServiceRequestResponse, 0, len(views))
	for i := range views {
		items = append(items, NewServiceRequestViewResponse(&views[i]))
	}
	return items
}

// NewHistoryResponses maps audit trail entries.
func NewHistoryResponses(entries []domain.RequestHistory) []HistoryResponse {
	items := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryResponse{
			ID:         e.ID,
			RequestID:  e.RequestID,
			ChangedBy:  e.ChangedBy,
			ChangeType: e.ChangeType,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			CreatedAt:  e.CreatedAt,
		})
	}
	return items
}
