package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/events"
	"github.com/spec-kit/gas-service-portal/internal/observability"
	"github.com/spec-kit/gas-service-portal/internal/repository"
	"github.com/spec-kit/gas-service-portal/internal/storage"
	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

// AttachmentStore stores uploaded files out of band.
type AttachmentStore interface {
	Validate(upload storage.Upload) error
	Save(upload storage.Upload) (domain.Attachment, error)
	Remove(attachments []domain.Attachment) error
}

// RequestService owns the service request lifecycle.
type RequestService struct {
	requests       repository.ServiceRequestRepository
	users          repository.UserRepository
	history        repository.RequestHistoryRepository
	attachments    AttachmentStore
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	logger         *zap.Logger
	maxAttachments int
	now            func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo    repository.ServiceRequestRepository
	UserRepo       repository.UserRepository
	HistoryRepo    repository.RequestHistoryRepository
	Attachments    AttachmentStore
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	MaxAttachments int
}

// CreateRequestInput describes a new service request.
type CreateRequestInput struct {
	Type        domain.RequestType
	Description string
	Priority    domain.RequestPriority
	Location    *domain.Location
	Uploads     []storage.Upload
}

// RequestFilter narrows the staff listing. Empty slices match everything.
type RequestFilter struct {
	Statuses   []domain.RequestStatus
	Priorities []domain.RequestPriority
	Types      []domain.RequestType
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttachments := deps.MaxAttachments
	if maxAttachments <= 0 {
		maxAttachments = 5
	}
	return &RequestService{
		requests:       deps.RequestRepo,
		users:          deps.UserRepo,
		history:        deps.HistoryRepo,
		attachments:    deps.Attachments,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		logger:         logger,
		maxAttachments: maxAttachments,
		now:            time.Now,
	}
}

// Create files a new request owned by actor. Every upload is validated before
// any is stored; stored files are removed again if the record cannot be saved.
func (s *RequestService) Create(ctx context.Context, actor *domain.User, input CreateRequestInput) (*domain.ServiceRequest, error) {
	if err := authorize(actor, domain.CapRequestCreate); err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid or missing type", map[string]any{"type": input.Type})
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.RequestPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	attachments, err := s.storeUploads(input.Uploads)
	if err != nil {
		return nil, err
	}

	req := &domain.ServiceRequest{
		CustomerID:  actor.ID,
		Type:        input.Type,
		Status:      domain.RequestStatusNew,
		Priority:    priority,
		Description: description,
		Location:    input.Location,
		Attachments: attachments,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		s.discard(attachments)
		return nil, apperrors.MapError(err)
	}

	s.metrics.RequestCreated(req.Type, req.Priority)
	s.publish(ctx, actor, req.ID, events.EventRequestCreated, events.RequestCreatedPayload{
		CustomerID:  req.CustomerID,
		Type:        req.Type,
		Priority:    req.Priority,
		Attachments: len(req.Attachments),
	})
	return req, nil
}

// ListAll returns every matching request, newest first, with customer and
// assignee summaries. Support and admin only.
func (s *RequestService) ListAll(ctx context.Context, actor *domain.User, filter RequestFilter) ([]domain.ServiceRequestView, error) {
	if err := authorize(actor, domain.CapRequestListAll); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	reqs, err := s.requests.List(ctx, repository.ServiceRequestFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Types:      filter.Types,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.join(ctx, reqs, true)
}

// ListOwn returns the actor's own requests, newest first, with assignee summaries.
func (s *RequestService) ListOwn(ctx context.Context, actor *domain.User) ([]domain.ServiceRequestView, error) {
	if err := authorize(actor, domain.CapRequestListOwn); err != nil {
		return nil, err
	}
	customerID := actor.ID
	reqs, err := s.requests.List(ctx, repository.ServiceRequestFilter{CustomerID: &customerID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.join(ctx, reqs, false)
}

// Get returns one request to its owner or to staff.
func (s *RequestService) Get(ctx context.Context, actor *domain.User, id string) (*domain.ServiceRequestView, error) {
	if err := authorize(actor, domain.CapRequestView); err != nil {
		return nil, err
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != actor.ID && !actor.Role.Can(domain.CapRequestListAll) {
		return nil, apperrors.NewForbidden("access denied")
	}
	views, err := s.join(ctx, []domain.ServiceRequest{*req}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// SetStatus writes any of the five statuses. Entering resolved stamps
// ResolvedAt; no transition clears it. expectedVersion, when given, must match
// the stored version.
func (s *RequestService) SetStatus(ctx context.Context, actor *domain.User, id string, status domain.RequestStatus, expectedVersion *int64) (*domain.ServiceRequest, error) {
	if err := authorize(actor, domain.CapRequestSetStatus); err != nil {
		return nil, err
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	if err := checkVersion(req, expectedVersion); err != nil {
		return nil, err
	}

	oldStatus := req.Status
	req.Status = status
	if status == domain.RequestStatusResolved {
		now := s.now()
		req.ResolvedAt = &now
	}
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(status)
	s.record(ctx, &domain.RequestHistory{
		RequestID:  req.ID,
		ChangedBy:  actor.ID,
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   map[string]any{"status": oldStatus},
		NewValue:   map[string]any{"status": status},
	})
	s.publish(ctx, actor, req.ID, events.EventRequestStatusChanged, events.RequestStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
	})
	return req, nil
}

// Assign hands a request to a support or admin user and forces status to
// assigned, whatever the current status is. Admin only.
func (s *RequestService) Assign(ctx context.Context, actor *domain.User, id, assigneeID string, expectedVersion *int64) (*domain.ServiceRequest, error) {
	if err := authorize(actor, domain.CapRequestAssign); err != nil {
		return nil, err
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	assignee, err := s.loadAssignee(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(req, expectedVersion); err != nil {
		return nil, err
	}

	oldAssignee := req.AssignedTo
	oldStatus := req.Status
	req.AssignedTo = &assignee.ID
	req.Status = domain.RequestStatusAssigned
	if err := s.save(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(req.Status)
	s.record(ctx, &domain.RequestHistory{
		RequestID:  req.ID,
		ChangedBy:  actor.ID,
		ChangeType: domain.ChangeTypeAssignment,
		OldValue:   map[string]any{"assignedTo": oldAssignee, "status": oldStatus},
		NewValue:   map[string]any{"assignedTo": assignee.ID, "status": req.Status},
	})
	s.publish(ctx, actor, req.ID, events.EventRequestAssigned, events.RequestAssignedPayload{
		OldAssignee: oldAssignee,
		NewAssignee: assignee.ID,
		OldStatus:   oldStatus,
	})
	return req, nil
}

// AddComment appends a comment. Status is untouched.
func (s *RequestService) AddComment(ctx context.Context, actor *domain.User, id, text string) (*domain.ServiceRequest, error) {
	if err := authorize(actor, domain.CapRequestComment); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text required", nil)
	}

	comment := domain.Comment{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Text:      text,
		CreatedAt: s.now(),
	}
	req, err := s.requests.AppendComment(ctx, id, comment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, actor, req.ID, events.EventRequestCommentAdded, events.RequestCommentAddedPayload{
		CommentID:   comment.ID,
		AuthorID:    actor.ID,
		TextPreview: stringPreview(text, 120),
	})
	return req, nil
}

// History returns the status and assignment audit trail. Support and admin only.
func (s *RequestService) History(ctx context.Context, actor *domain.User, id string) ([]domain.RequestHistory, error) {
	if err := authorize(actor, domain.CapRequestViewHistory); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.RequestHistory{}, nil
	}
	entries, err := s.history.ListByRequest(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (s *RequestService) loadAssignee(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("assignee", map[string]any{"assignedTo": id})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignee", map[string]any{"assignedTo": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be support or admin", map[string]any{"assignedTo": id})
	}
	return user, nil
}

func (s *RequestService) save(ctx context.Context, req *domain.ServiceRequest) error {
	err := s.requests.Update(ctx, req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("service request was modified concurrently", map[string]any{"id": req.ID})
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("service request", map[string]any{"id": req.ID})
	default:
		return apperrors.MapError(err)
	}
}

func checkVersion(req *domain.ServiceRequest, expected *int64) error {
	if expected != nil && *expected != req.Version {
		return apperrors.NewConflict("stale version", map[string]any{
			"id":              req.ID,
			"currentVersion":  req.Version,
			"expectedVersion": *expected,
		})
	}
	return nil
}

func (s *RequestService) storeUploads(uploads []storage.Upload) ([]domain.Attachment, error) {
	if len(uploads) == 0 {
		return []domain.Attachment{}, nil
	}
	if len(uploads) > s.maxAttachments {
		return nil, apperrors.NewValidationError("too many attachments", map[string]any{"max": s.maxAttachments})
	}
	if s.attachments == nil {
		return nil, apperrors.NewInternalError(errors.New("attachment storage not configured"))
	}
	for _, upload := range uploads {
		if err := s.attachments.Validate(upload); err != nil {
			return nil, uploadError(upload, err)
		}
	}

	stored := make([]domain.Attachment, 0, len(uploads))
	for _, upload := range uploads {
		att, err := s.attachments.Save(upload)
		if err != nil {
			s.discard(stored)
			return nil, uploadError(upload, err)
		}
		stored = append(stored, att)
	}
	return stored, nil
}

func uploadError(upload storage.Upload, err error) error {
	details := map[string]any{"file": upload.FileName}
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewValidationError("attachment too large", details)
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperrors.NewValidationError("invalid file type", details)
	case errors.Is(err, storage.ErrEmpty):
		return apperrors.NewValidationError("attachment is empty", details)
	default:
		return apperrors.NewInternalError(err)
	}
}

func (s *RequestService) discard(attachments []domain.Attachment) {
	if len(attachments) == 0 || s.attachments == nil {
		return
	}
	if err := s.attachments.Remove(attachments); err != nil {
		s.logger.Warn("failed to remove orphaned attachments", zap.Error(err))
	}
}

func (s *RequestService) join(ctx context.Context, reqs []domain.ServiceRequest, withCustomer bool) ([]domain.ServiceRequestView, error) {
	ids := make([]string, 0, len(reqs)*2)
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, req := range reqs {
		if withCustomer {
			add(req.CustomerID)
		}
		if req.AssignedTo != nil {
			add(*req.AssignedTo)
		}
	}

	summaries := make(map[string]domain.UserSummary, len(ids))
	if len(ids) > 0 {
		users, err := s.users.ListByIDs(ctx, ids)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for i := range users {
			summaries[users[i].ID] = users[i].Summary()
		}
	}
	lookup := func(id string) *domain.UserSummary {
		if summary, ok := summaries[id]; ok {
			return &summary
		}
		return nil
	}

	views := make([]domain.ServiceRequestView, 0, len(reqs))
	for _, req := range reqs {
		view := domain.ServiceRequestView{ServiceRequest: req}
		if withCustomer {
			view.Customer = lookup(req.CustomerID)
		}
		if req.AssignedTo != nil {
			view.Assignee = lookup(*req.AssignedTo)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *RequestService) record(ctx context.Context, entry *domain.RequestHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record request history",
			zap.String("request_id", entry.RequestID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func (s *RequestService) publish(ctx context.Context, actor *domain.User, requestID string, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func validateFilter(filter RequestFilter) error {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": priority})
		}
	}
	for _, t := range filter.Types {
		if !t.Valid() {
			return apperrors.NewValidationError("invalid type filter", map[string]any{"type": t})
		}
	}
	return nil
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
