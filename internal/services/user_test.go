package services

import (
	"context"
	"errors"
	"testing"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	user, err := s.users.Register(ctx, RegisterUserInput{
		Username:  "jane",
		Email:     " Jane@Example.com ",
		Password:  "password123",
		FirstName: " Jane ",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane", user.FirstName)
	assert.True(t, user.CheckPassword("password123"))

	tests := []struct {
		name  string
		input RegisterUserInput
		check func(error) bool
	}{
		{"duplicate username", RegisterUserInput{Username: "jane", Email: "other@example.com", Password: "password123"}, isConflict},
		{"duplicate email", RegisterUserInput{Username: "other", Email: "JANE@example.com", Password: "password123"}, isConflict},
		{"short password", RegisterUserInput{Username: "x", Email: "x@example.com", Password: "short"}, IsValidation},
		{"missing username", RegisterUserInput{Email: "y@example.com", Password: "password123"}, IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.users.Register(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}

	found, err := s.users.GetByEmail(ctx, "JANE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func isConflict(err error) bool { return errors.Is(err, ErrConflict) }

func TestUserService_ProfileAndPassword(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := testutil.CreateTestUser(t, s.tc.DB)

	first, phone := "Janet", "+49 30 1234567"
	updated, err := s.users.UpdateProfile(ctx, user.ID, UpdateProfileInput{FirstName: &first, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)
	assert.Equal(t, phone, updated.Phone)

	assert.True(t, IsValidation(s.users.ChangePassword(ctx, user.ID, "wrong-password", "newpassword1")))
	assert.True(t, IsValidation(s.users.ChangePassword(ctx, user.ID, "password123", "short")))
	require.NoError(t, s.users.ChangePassword(ctx, user.ID, "password123", "newpassword1"))

	reloaded, err := s.users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CheckPassword("newpassword1"))

	_, err = s.users.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_EmailAndActivation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := testutil.CreateTestUser(t, s.tc.DB)
	b := testutil.CreateTestUser(t, s.tc.DB)

	verified, err := s.users.VerifyEmail(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)
	assert.NotNil(t, verified.EmailVerifiedAt)

	_, err = s.users.UpdateEmail(ctx, a.ID, b.Email)
	assert.ErrorIs(t, err, ErrConflict)

	changed, err := s.users.UpdateEmail(ctx, a.ID, "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", changed.Email)
	assert.False(t, changed.IsEmailVerified)
	assert.Nil(t, changed.EmailVerifiedAt)

	off, err := s.users.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	on, err := s.users.Activate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
}

func TestUserService_InviteUser(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tenant := testutil.CreateTestTenant(t, s.tc.DB, 3)
	owner := testutil.CreateTestUser(t, s.tc.DB)
	testutil.AddTestMember(t, s.tc.DB, tenant, owner, models.TenantRoleOwner)

	res, err := s.users.InviteUser(ctx, tenant.ID, InviteUserInput{Email: "New.Hire@Example.com", FirstName: "New"}, owner.ID)
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Equal(t, "new.hire@example.com", res.User.Email)
	assert.Equal(t, "new.hire@example.com", res.User.Username)
	assert.Equal(t, models.TenantRoleMember, res.Membership.Role)
	assert.Equal(t, tenant.ID, res.Tenant.ID)

	existing := testutil.CreateTestUser(t, s.tc.DB)
	res, err = s.users.InviteUser(ctx, tenant.ID, InviteUserInput{Email: existing.Email, Role: models.TenantRoleAdmin}, owner.ID)
	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, existing.ID, res.User.ID)

	_, err = s.users.InviteUser(ctx, tenant.ID, InviteUserInput{Email: "one.more@example.com"}, owner.ID)
	assert.ErrorIs(t, err, ErrTenantFull)
	testutil.AssertRecordCount(t, s.tc.DB, &models.User{}, 0, "email = ?", "one.more@example.com")

	_, err = s.users.InviteUser(ctx, tenant.ID, InviteUserInput{Email: "x@example.com", Role: "boss"}, owner.ID)
	assert.True(t, IsValidation(err))

	users, err := s.users.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestRandomToken(t *testing.T) {
	a, b := randomToken(8), randomToken(8)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestUserService_InviteUserRejectsOwnerRole(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tenant := testutil.CreateTestTenant(t, s.tc.DB, 5)
	owner := testutil.CreateTestUser(t, s.tc.DB)
	testutil.AddTestMember(t, s.tc.DB, tenant, owner, models.TenantRoleOwner)
	existing := testutil.CreateTestUser(t, s.tc.DB)

	tests := []struct {
		name  string
		email string
	}{
		{"new_user", "future.owner@example.com"},
		{"existing_user", existing.Email},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.users.InviteUser(ctx, tenant.ID, InviteUserInput{Email: tt.email, Role: models.TenantRoleOwner}, owner.ID)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "role", verr.Field)
		})
	}

	testutil.AssertRecordCount(t, s.tc.DB, &models.User{}, 0, "email = ?", "future.owner@example.com")
	testutil.AssertRecordCount(t, s.tc.DB, &models.TenantMembership{}, 1, "tenant_id = ?", tenant.ID)
}
