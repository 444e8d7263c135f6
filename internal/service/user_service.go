package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/repository"
	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

// UserService serves profile and directory operations.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns users, optionally restricted to one role. Admin only.
func (s *UserService) List(ctx context.Context, actor *domain.User, role string) ([]domain.User, error) {
	if err := authorize(actor, domain.CapUserList); err != nil {
		return nil, err
	}
	filter := repository.UserFilter{}
	if role != "" {
		r := domain.Role(role)
		if !r.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
		}
		filter.Role = &r
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Get returns a single user. Admin only.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := authorize(actor, domain.CapUserView); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateProfile applies the caller's own profile changes.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, update domain.ProfileUpdate) (*domain.User, error) {
	if err := authorize(actor, domain.CapProfileUpdate); err != nil {
		return nil, err
	}
	for field, value := range map[string]*string{"firstName": update.FirstName, "lastName": update.LastName} {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return nil, apperrors.NewValidationError(field+" cannot be empty", map[string]any{"field": field})
		}
		*value = trimmed
	}
	user, err := s.users.UpdateProfile(ctx, actor.ID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthenticated("user not found")
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// authorize applies the capability table to a resolved actor.
func authorize(actor *domain.User, capability domain.Capability) error {
	if actor == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !actor.Role.Can(capability) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}
