package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository/memory"
)

type adminFixture struct {
	svc    *UserService
	tokens *TokenService
	users  *memory.UserRepository
	roles  *memory.RoleRepository
	audit  *memory.AuditRepository
	bus    *events.Bus
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	users := memory.NewUserRepository()
	roles := memory.NewRoleRepository()
	audit := memory.NewAuditRepository()
	tokens, _ := newTokenService(t, 15*time.Minute, time.Hour)
	bus := events.NewBus(testLogger())
	NewAuditRecorder(audit, testLogger()).Register(bus)

	require.NoError(t, roles.Create(context.Background(), &models.Role{
		ID:          uuid.New().String(),
		Name:        "admin",
		Description: "Administrator with full access",
	}))
	require.NoError(t, roles.Create(context.Background(), &models.Role{
		ID:          uuid.New().String(),
		Name:        DefaultRole,
		Description: "Regular user with basic access",
	}))

	return &adminFixture{
		svc:    NewUserService(users, roles, tokens, bus, 15, testLogger()),
		tokens: tokens,
		users:  users,
		roles:  roles,
		audit:  audit,
		bus:    bus,
	}
}

func createCmd(n int) CreateUserCommand {
	return CreateUserCommand{
		Name:     fmt.Sprintf("User %02d", n),
		Email:    fmt.Sprintf("user%02d@example.com", n),
		Phone:    fmt.Sprintf("555000%04d", n),
		Password: "password123",
	}
}

func TestUserService_CreateWithRole(t *testing.T) {
	f := newAdminFixture(t)

	cmd := createCmd(1)
	cmd.Role = "admin"
	user, err := f.svc.Create(context.Background(), "actor", cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, user.Roles)
}

func TestUserService_CreateDefaultRole(t *testing.T) {
	f := newAdminFixture(t)

	user, err := f.svc.Create(context.Background(), "actor", createCmd(1))
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultRole}, user.Roles)
}

func TestUserService_CreateUnknownRole(t *testing.T) {
	f := newAdminFixture(t)

	cmd := createCmd(1)
	cmd.Role = "superuser"
	_, err := f.svc.Create(context.Background(), "actor", cmd)

	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "role")
}

func TestUserService_UpdateKeepsPasswordWhenEmpty(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)
	originalHash := user.PasswordHash

	updated, err := f.svc.Update(ctx, "actor", user.ID, UpdateUserCommand{
		Name:  "Renamed",
		Email: user.Email,
		Phone: user.Phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, originalHash, updated.PasswordHash)
}

func TestUserService_UpdateRehashesPassword(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, "actor", user.ID, UpdateUserCommand{
		Name:     user.Name,
		Email:    user.Email,
		Phone:    user.Phone,
		Password: "newpassword456",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpassword456")))
}

func TestUserService_UpdateDuplicateEmail(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, "actor", createCmd(2))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "actor", second.ID, UpdateUserCommand{
		Name:  second.Name,
		Email: first.Email,
		Phone: second.Phone,
	})
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "email")
}

func TestUserService_SoftDeleteCascadesToTokens(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)

	issued, err := f.tokens.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "actor", user.ID, false))

	_, err = f.svc.Get(ctx, user.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.tokens.Authenticate(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
}

func TestUserService_RestoreAfterSoftDelete(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "actor", user.ID, false))

	restored, err := f.svc.Restore(ctx, "actor", user.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	got, err := f.svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
}

func TestUserService_SoftDeleteFreesEmail(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "actor", user.ID, false))

	// A new user may claim the released email; restoring the old one then
	// clashes.
	_, err = f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)

	_, err = f.svc.Restore(ctx, "actor", user.ID)
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
}

func TestUserService_HardDelete(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "actor", user.ID, true))

	_, err = f.users.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserService_ListPagination(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	for i := 1; i <= 20; i++ {
		_, err := f.svc.Create(ctx, "actor", createCmd(i))
		require.NoError(t, err)
	}

	first, pagination, err := f.svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, first, 15)
	assert.Equal(t, Pagination{Total: 20, PerPage: 15, CurrentPage: 1, LastPage: 2}, pagination)

	second, pagination, err := f.svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second, 5)
	assert.Equal(t, 2, pagination.CurrentPage)
}

func TestUserService_LifecycleEventsAudited(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.Create(ctx, "actor", createCmd(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "actor", user.ID, false))
	f.bus.Wait()

	actions := make(map[string]int)
	for _, entry := range f.audit.Entries() {
		actions[entry.Action]++
	}
	assert.Equal(t, 1, actions[events.UserCreated])
	assert.Equal(t, 1, actions[events.UserDeleted])
}
