package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/gas-service-portal/internal/auth"
	"github.com/spec-kit/gas-service-portal/internal/config"
	"github.com/spec-kit/gas-service-portal/internal/domain"
	"github.com/spec-kit/gas-service-portal/internal/repository"
	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, repository.UserRepository, auth.RevocationStore) {
	t.Helper()
	users := repository.NewMemoryStore().Users()
	revoked := auth.NewMemoryRevocationStore()
	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 10, BcryptCost: 4}
	return NewAuthService(cfg, users, revoked, zap.NewNop()), users, revoked
}

func validRegistration() RegisterInput {
	return RegisterInput{
		FirstName: "Cara",
		LastName:  "Customer",
		Email:     " Cara@Example.com ",
		Password:  "correct-horse",
		Phone:     "555-0100",
		Address:   domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"},
	}
}

func TestRegister_CreatesCustomerAndToken(t *testing.T) {
	svc, users, _ := newAuthService(t)

	result, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, result.User.Role)
	assert.Equal(t, "cara@example.com", result.User.Email)
	assert.NotEqual(t, "correct-horse", result.User.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID())

	stored, err := users.GetByID(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", stored.Address.City)
}

func TestRegister_Rejections(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegistration())
	assertCode(t, err, apperrors.CodeConflict)

	short := validRegistration()
	short.Email = "other@example.com"
	short.Password = "short"
	_, err = svc.Register(ctx, short)
	assertCode(t, err, apperrors.CodeValidation)

	nameless := validRegistration()
	nameless.Email = "nameless@example.com"
	nameless.FirstName = " "
	_, err = svc.Register(ctx, nameless)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	result, err := svc.Login(ctx, "cara@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)

	_, err = svc.Login(ctx, "cara@example.com", "wrong-horse")
	assertCode(t, err, apperrors.CodeUnauthenticated)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, revoked := newAuthService(t)
	ctx := context.Background()
	result, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, isRevoked)

	assertCode(t, svc.Logout(ctx, nil), apperrors.CodeUnauthenticated)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureBootstrapAdmin(ctx, "Root@Example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	created, err = svc.EnsureBootstrapAdmin(ctx, "root@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login(ctx, "root@example.com", "bootstrap-pass")
	require.NoError(t, err)
}
