package domain

import "time"

// RequestType classifies what the customer needs.
type RequestType string

const (
	RequestTypeGasLeak         RequestType = "gas_leak"
	RequestTypeConnectionIssue RequestType = "connection_issue"
	RequestTypeBillingQuery    RequestType = "billing_query"
	RequestTypeNewConnection   RequestType = "new_connection"
	RequestTypeMaintenance     RequestType = "maintenance"
	RequestTypeOther           RequestType = "other"
)

// RequestTypes lists every accepted request type.
var RequestTypes = []RequestType{
	RequestTypeGasLeak,
	RequestTypeConnectionIssue,
	RequestTypeBillingQuery,
	RequestTypeNewConnection,
	RequestTypeMaintenance,
	RequestTypeOther,
}

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	for _, candidate := range RequestTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// RequestStatus enumerates lifecycle states. Staff may write any status at any
// time; closed is terminal only by convention.
type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "new"
	RequestStatusAssigned   RequestStatus = "assigned"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusResolved   RequestStatus = "resolved"
	RequestStatusClosed     RequestStatus = "closed"
)

// RequestStatuses lists every status in lifecycle order.
var RequestStatuses = []RequestStatus{
	RequestStatusNew,
	RequestStatusAssigned,
	RequestStatusInProgress,
	RequestStatusResolved,
	RequestStatusClosed,
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	for _, candidate := range RequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequestPriority enumerates urgency.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "low"
	RequestPriorityMedium RequestPriority = "medium"
	RequestPriorityHigh   RequestPriority = "high"
	RequestPriorityUrgent RequestPriority = "urgent"
)

// RequestPriorities lists every priority from lowest to highest.
var RequestPriorities = []RequestPriority{
	RequestPriorityLow,
	RequestPriorityMedium,
	RequestPriorityHigh,
	RequestPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p RequestPriority) Valid() bool {
	for _, candidate := range RequestPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Coordinates pin a location on the map.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is where the service is needed. It is stored as submitted.
type Location struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Attachment records a file stored alongside a request.
type Attachment struct {
	FileName   string    `json:"filename"`
	Path       string    `json:"path"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Comment is an entry in a request's discussion thread.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ServiceRequest is a customer's issue and its resolution lifecycle.
//
// CustomerID is set once at creation. ResolvedAt is stamped whenever the status
// moves into resolved and is never cleared. Version increases on every status or
// assignment write and guards those writes against lost updates.
type ServiceRequest struct {
	ID          string
	CustomerID  string
	Type        RequestType
	Status      RequestStatus
	Priority    RequestPriority
	Description string
	Location    *Location
	Attachments []Attachment
	AssignedTo  *string
	Comments    []Comment
	ResolvedAt  *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ServiceRequestView is a request with the identities it references joined in.
type ServiceRequestView struct {
	ServiceRequest
	Customer *UserSummary
	Assignee *UserSummary
}
