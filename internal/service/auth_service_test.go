package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/repository/memory"
)

type authFixture struct {
	auth   *AuthService
	tokens *TokenService
	users  *memory.UserRepository
	bus    *events.Bus
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := memory.NewUserRepository()
	tokens, _ := newTokenService(t, 15*time.Minute, time.Hour)
	bus := events.NewBus(testLogger())
	return &authFixture{
		auth:   NewAuthService(users, tokens, bus, testLogger()),
		tokens: tokens,
		users:  users,
		bus:    bus,
	}
}

func validRegister() RegisterCommand {
	return RegisterCommand{
		Name:                 "John Doe",
		Email:                "john@example.com",
		Phone:                "1234567890",
		Password:             "password123",
		PasswordConfirmation: "password123",
	}
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.auth.Register(context.Background(), validRegister())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "john@example.com", user.Email)
	assert.Equal(t, []string{DefaultRole}, user.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func TestAuthService_RegisterNormalizesEmail(t *testing.T) {
	f := newAuthFixture(t)

	cmd := validRegister()
	cmd.Email = "  John@Example.COM "
	user, err := f.auth.Register(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", user.Email)

	// Login with the canonical form works.
	_, err = f.auth.Login(context.Background(), "JOHN@example.com", "password123")
	assert.NoError(t, err)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name   string
		mutate func(*RegisterCommand)
		field  string
	}{
		{"missing name", func(c *RegisterCommand) { c.Name = "" }, "name"},
		{"missing email", func(c *RegisterCommand) { c.Email = "" }, "email"},
		{"bad email", func(c *RegisterCommand) { c.Email = "not-an-email" }, "email"},
		{"missing phone", func(c *RegisterCommand) { c.Phone = "" }, "phone"},
		{"short password", func(c *RegisterCommand) { c.Password = "short"; c.PasswordConfirmation = "short" }, "password"},
		{"confirmation mismatch", func(c *RegisterCommand) { c.PasswordConfirmation = "different123" }, "password_confirmation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validRegister()
			tt.mutate(&cmd)

			_, err := f.auth.Register(context.Background(), cmd)
			var v *apperr.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Contains(t, v.Fields, tt.field)
		})
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, validRegister())
	require.NoError(t, err)

	cmd := validRegister()
	cmd.Phone = "0987654321"
	_, err = f.auth.Register(ctx, cmd)

	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "email")
}

func TestAuthService_RegisterDuplicatePhone(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, validRegister())
	require.NoError(t, err)

	cmd := validRegister()
	cmd.Email = "other@example.com"
	_, err = f.auth.Register(ctx, cmd)

	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "phone")
}

func TestAuthService_RegisterPublishesEvent(t *testing.T) {
	f := newAuthFixture(t)

	var count atomic.Int32
	f.bus.Subscribe(events.UserRegistered, func(ctx context.Context, e events.Event) {
		count.Add(1)
	})

	user, err := f.auth.Register(context.Background(), validRegister())
	require.NoError(t, err)
	f.bus.Wait()

	assert.Equal(t, int32(1), count.Load())
	assert.NotEmpty(t, user.ID)
}

func TestAuthService_LoginUniformError(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, validRegister())
	require.NoError(t, err)

	_, wrongPassword := f.auth.Login(ctx, "john@example.com", "wrong-password")
	_, unknownEmail := f.auth.Login(ctx, "nobody@example.com", "password123")

	// Same error either way: responses cannot be used as an
	// account-existence oracle.
	require.ErrorIs(t, wrongPassword, apperr.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, apperr.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_LoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, validRegister())
	require.NoError(t, err)

	user, err := f.auth.Login(ctx, "john@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestAuthService_LogoutRevokesEverywhere(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, validRegister())
	require.NoError(t, err)

	// Two devices, two tokens.
	first, err := f.auth.IssueToken(ctx, user.ID)
	require.NoError(t, err)
	second, err := f.auth.IssueToken(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, user))

	_, err = f.tokens.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
	_, err = f.tokens.Authenticate(ctx, second.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
}

func TestAuthService_RefreshKeepsOldTokenValid(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, validRegister())
	require.NoError(t, err)

	old, err := f.auth.IssueToken(ctx, user.ID)
	require.NoError(t, err)

	fresh, err := f.auth.RefreshToken(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, old.AccessToken, fresh.AccessToken)

	// The replaced token is not proactively revoked.
	_, err = f.tokens.Authenticate(ctx, old.AccessToken)
	assert.NoError(t, err)
	_, err = f.tokens.Authenticate(ctx, fresh.AccessToken)
	assert.NoError(t, err)
}
