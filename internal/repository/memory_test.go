package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/gas-service-portal/internal/domain"
)

func newRequest(customerID string, status domain.RequestStatus) *domain.ServiceRequest {
	return &domain.ServiceRequest{
		CustomerID:  customerID,
		Type:        domain.RequestTypeMaintenance,
		Status:      status,
		Priority:    domain.RequestPriorityMedium,
		Description: "meter check",
	}
}

func TestMemoryUsers_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	require.NoError(t, users.Create(ctx, &domain.User{Email: "Ann@Example.com", Role: domain.RoleCustomer}))
	err := users.Create(ctx, &domain.User{Email: "ann@example.com", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := users.GetByEmail(ctx, " ANN@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", found.Email)
}

func TestMemoryUsers_UpdateProfileLeavesNilFields(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()
	user := &domain.User{FirstName: "Ann", LastName: "Lee", Phone: "111", Email: "a@x.io"}
	require.NoError(t, users.Create(ctx, user))

	phone := "222"
	updated, err := users.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ann", updated.FirstName)
	assert.Equal(t, "222", updated.Phone)

	_, err = users.UpdateProfile(ctx, uuid.NewString(), domain.ProfileUpdate{})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryRequests_ListOrdersNewestFirstAndFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	requests := store.ServiceRequests()

	first := newRequest("c1", domain.RequestStatusNew)
	second := newRequest("c2", domain.RequestStatusResolved)
	third := newRequest("c1", domain.RequestStatusNew)
	for _, r := range []*domain.ServiceRequest{first, second, third} {
		require.NoError(t, requests.Create(ctx, r))
	}

	all, err := requests.List(ctx, ServiceRequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	customer := "c1"
	own, err := requests.List(ctx, ServiceRequestFilter{CustomerID: &customer})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	resolved, err := requests.List(ctx, ServiceRequestFilter{Statuses: []domain.RequestStatus{domain.RequestStatusResolved}})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, second.ID, resolved[0].ID)
}

func TestMemoryRequests_UpdateDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	requests := NewMemoryStore().ServiceRequests()
	req := newRequest("c1", domain.RequestStatusNew)
	require.NoError(t, requests.Create(ctx, req))

	a, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	b, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)

	a.Status = domain.RequestStatusInProgress
	require.NoError(t, requests.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Status = domain.RequestStatusClosed
	assert.ErrorIs(t, requests.Update(ctx, b), ErrVersionConflict)

	stored, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, stored.Status)

	missing := newRequest("c1", domain.RequestStatusNew)
	missing.ID = uuid.NewString()
	assert.ErrorIs(t, requests.Update(ctx, missing), pgx.ErrNoRows)
}

func TestMemoryRequests_ConcurrentCommentsAreAdditive(t *testing.T) {
	ctx := context.Background()
	requests := NewMemoryStore().ServiceRequests()
	req := newRequest("c1", domain.RequestStatusNew)
	require.NoError(t, requests.Create(ctx, req))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := requests.AppendComment(ctx, req.ID, domain.Comment{ID: uuid.NewString(), Text: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Comments, 20)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMemoryRequests_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	requests := NewMemoryStore().ServiceRequests()
	req := newRequest("c1", domain.RequestStatusNew)
	req.Attachments = []domain.Attachment{{FileName: "a.png"}}
	require.NoError(t, requests.Create(ctx, req))

	got, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	got.Attachments[0].FileName = "changed.png"

	again, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.png", again.Attachments[0].FileName)
}
