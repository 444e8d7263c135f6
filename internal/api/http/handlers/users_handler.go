package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gas-service-portal/internal/api/dto"
	"github.com/spec-kit/gas-service-portal/internal/auth"
	"github.com/spec-kit/gas-service-portal/internal/service"
	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

// UsersHandler exposes the user directory and profile endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List GET /users?role=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	users, err := h.users.List(c.UserContext(), principal.User, c.Query("role"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(users))
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	user, err := h.users.Get(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UpdateProfile PATCH /users/profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), principal.User, req.ToDomain())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}
