package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/repository"
	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

type gateFixture struct {
	app     *fiber.App
	tokens  *TokenManager
	users   repository.UserRepository
	revoked RevocationStore
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{
		tokens:  NewTokenManager("secret", 30),
		users:   repository.NewMemoryStore().Users(),
		revoked: NewMemoryRevocationStore(),
	}
	gate := NewAuthMiddleware(f.tokens, f.users, f.revoked, zap.NewNop())

	f.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
			}
			return c.Status(http.StatusInternalServerError).SendString(err.Error())
		},
	})
	f.app.Get("/me", gate.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return errors.New("no principal")
		}
		return c.SendString(principal.User.ID)
	})
	f.app.Get("/staff", gate.Handle, RequireRole(domain.RoleSupport, domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	f.app.Get("/assign", gate.Handle, RequireCapability(domain.CapRequestAssign), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return f
}

func (f *gateFixture) user(t *testing.T, role domain.Role) (*domain.User, string) {
	t.Helper()
	user := &domain.User{FirstName: "T", LastName: "U", Email: string(role) + "-" + time.Now().Format("150405.000000000") + "@x.io", Role: role}
	require.NoError(t, f.users.Create(context.Background(), user))
	token, _, err := f.tokens.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func (f *gateFixture) do(t *testing.T, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware_ResolvesPrincipal(t *testing.T) {
	f := newGateFixture(t)
	user, token := f.user(t, domain.RoleCustomer)

	status, body := f.do(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.ID, body)
}

func TestAuthMiddleware_RejectsBadCredentials(t *testing.T) {
	f := newGateFixture(t)
	_, token := f.user(t, domain.RoleCustomer)
	otherToken, _, err := NewTokenManager("other", 5).GenerateToken("x")
	require.NoError(t, err)

	cases := map[string]string{
		"missing":       "",
		"wrong scheme":  "Basic " + token,
		"no token":      "Bearer ",
		"garbage":       "Bearer not-a-jwt",
		"bad signature": "Bearer " + otherToken,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := f.do(t, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, apperrors.CodeUnauthenticated, body)
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	f := newGateFixture(t)
	user, _ := f.user(t, domain.RoleCustomer)
	f.tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := f.tokens.GenerateToken(user.ID)
	require.NoError(t, err)
	f.tokens.now = time.Now

	status, _ := f.do(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware_UnknownUser(t *testing.T) {
	f := newGateFixture(t)
	token, _, err := f.tokens.GenerateToken("3f7b1a2c-0000-4000-8000-000000000000")
	require.NoError(t, err)

	status, body := f.do(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, body)
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	f := newGateFixture(t)
	_, token := f.user(t, domain.RoleCustomer)
	claims, err := f.tokens.ParseToken(token)
	require.NoError(t, err)
	require.NoError(t, f.revoked.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))

	status, _ := f.do(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleGuards(t *testing.T) {
	f := newGateFixture(t)
	_, customer := f.user(t, domain.RoleCustomer)
	_, support := f.user(t, domain.RoleSupport)
	_, admin := f.user(t, domain.RoleAdmin)

	status, body := f.do(t, "/staff", "Bearer "+customer)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)

	status, _ = f.do(t, "/staff", "Bearer "+support)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = f.do(t, "/assign", "Bearer "+support)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(t, "/assign", "Bearer "+admin)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRoleGuards_AuthenticationTakesPrecedence(t *testing.T) {
	f := newGateFixture(t)

	status, body := f.do(t, "/staff", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, body)

	status, _ = f.do(t, "/assign", "Bearer junk")
	assert.Equal(t, http.StatusUnauthorized, status)
}
