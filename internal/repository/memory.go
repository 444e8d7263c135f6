package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/gas-service-portal/internal/domain"
)

// MemoryStore is an in-process implementation of every repository. It backs
// development runs without POSTGRES_DSN and the test suite. Records are copied
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	users    map[string]domain.User
	requests map[string]memoryRequest
	history  map[string][]domain.RequestHistory
}

type memoryRequest struct {
	seq int64
	req domain.ServiceRequest
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		users:    make(map[string]domain.User),
		requests: make(map[string]memoryRequest),
		history:  make(map[string][]domain.RequestHistory),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// ServiceRequests returns the service request repository view of the store.
func (s *MemoryStore) ServiceRequests() ServiceRequestRepository { return memoryRequests{s} }

// History returns the request history repository view of the store.
func (s *MemoryStore) History() RequestHistoryRepository { return memoryHistory{s} }

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(_ context.Context, user *domain.User) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (m memoryUsers) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Address != nil {
		user.Address = *update.Address
	}
	user.UpdatedAt = s.now()
	s.users[id] = user
	return &user, nil
}

func (m memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m memoryUsers) List(_ context.Context, filter UserFilter) ([]domain.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.User{}
	for _, user := range s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m memoryUsers) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

type memoryRequests struct{ s *MemoryStore }

func (m memoryRequests) Create(_ context.Context, req *domain.ServiceRequest) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	req.ID = uuid.NewString()
	req.Version = 1
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Attachments == nil {
		req.Attachments = []domain.Attachment{}
	}
	if req.Comments == nil {
		req.Comments = []domain.Comment{}
	}
	s.requests[req.ID] = memoryRequest{seq: s.seq, req: cloneRequest(*req)}
	return nil
}

func (m memoryRequests) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	req := cloneRequest(stored.req)
	return &req, nil
}

func (m memoryRequests) List(_ context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]memoryRequest, 0, len(s.requests))
	for _, stored := range s.requests {
		if matchesFilter(stored.req, filter) {
			matched = append(matched, stored)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.req.CreatedAt.Equal(b.req.CreatedAt) {
			return a.req.CreatedAt.After(b.req.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.ServiceRequest, 0, len(matched))
	for _, stored := range matched {
		result = append(result, cloneRequest(stored.req))
	}
	return result, nil
}

func (m memoryRequests) Update(_ context.Context, req *domain.ServiceRequest) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.req.Version != req.Version {
		return ErrVersionConflict
	}
	stored.req.Status = req.Status
	stored.req.Priority = req.Priority
	stored.req.AssignedTo = cloneString(req.AssignedTo)
	stored.req.ResolvedAt = cloneTime(req.ResolvedAt)
	stored.req.Version++
	stored.req.UpdatedAt = s.now()
	s.requests[req.ID] = stored

	req.Version = stored.req.Version
	req.UpdatedAt = stored.req.UpdatedAt
	return nil
}

func (m memoryRequests) AppendComment(_ context.Context, id string, comment domain.Comment) (*domain.ServiceRequest, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	stored.req.Comments = append(stored.req.Comments, comment)
	stored.req.UpdatedAt = s.now()
	s.requests[id] = stored

	req := cloneRequest(stored.req)
	return &req, nil
}

type memoryHistory struct{ s *MemoryStore }

func (m memoryHistory) Create(_ context.Context, history *domain.RequestHistory) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()

	history.ID = uuid.NewString()
	history.CreatedAt = s.now()
	s.history[history.RequestID] = append(s.history[history.RequestID], *history)
	return nil
}

func (m memoryHistory) ListByRequest(_ context.Context, requestID string) ([]domain.RequestHistory, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[requestID]
	result := make([]domain.RequestHistory, len(entries))
	copy(result, entries)
	return result, nil
}

func matchesFilter(req domain.ServiceRequest, filter ServiceRequestFilter) bool {
	if filter.CustomerID != nil && req.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.AssignedTo != nil && (req.AssignedTo == nil || *req.AssignedTo != *filter.AssignedTo) {
		return false
	}
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, req.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !contains(filter.Priorities, req.Priority) {
		return false
	}
	if len(filter.Types) > 0 && !contains(filter.Types, req.Type) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func cloneRequest(req domain.ServiceRequest) domain.ServiceRequest {
	out := req
	out.Attachments = append([]domain.Attachment{}, req.Attachments...)
	out.Comments = append([]domain.Comment{}, req.Comments...)
	out.AssignedTo = cloneString(req.AssignedTo)
	out.ResolvedAt = cloneTime(req.ResolvedAt)
	if req.Location != nil {
		loc := *req.Location
		if loc.Coordinates != nil {
			coords := *loc.Coordinates
			loc.Coordinates = &coords
		}
		out.Location = &loc
	}
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
