package services

import (
	"context"
	"testing"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Acme Corp":          "acme-corp",
		"  Ünïcode Café  ":   "ünïcode-café",
		"a -- b":             "a-b",
		"!!!":                "",
		"Talent & Co. GmbH!": "talent-co-gmbh",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestTenantService_Create(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tenant, err := s.tenants.Create(ctx, CreateTenantInput{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", tenant.Slug)
	assert.Equal(t, models.PlanBasic, tenant.Plan)
	assert.Equal(t, 5, tenant.MaxUsers)
	assert.True(t, tenant.IsActive)

	_, err = s.tenants.Create(ctx, CreateTenantInput{Name: "Acme  Corp"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.tenants.Create(ctx, CreateTenantInput{Name: "  "})
	assert.True(t, IsValidation(err))

	_, err = s.tenants.Create(ctx, CreateTenantInput{Name: "Other", Plan: "platinum"})
	assert.True(t, IsValidation(err))

	found, err := s.tenants.GetBySlug(ctx, "acme-corp")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, found.ID)

	_, err = s.tenants.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	testutil.AssertRecordCount(t, s.tc.DB, &models.Activity{}, 1)
}

func TestTenantService_Update(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	a, err := s.tenants.Create(ctx, CreateTenantInput{Name: "Alpha"})
	require.NoError(t, err)
	_, err = s.tenants.Create(ctx, CreateTenantInput{Name: "Beta"})
	require.NoError(t, err)

	name := "Alpha Recruiting"
	updated, err := s.tenants.Update(ctx, a.ID, UpdateTenantInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Recruiting", updated.Name)
	assert.Equal(t, "alpha", updated.Slug)

	slug := "beta"
	_, err = s.tenants.Update(ctx, a.ID, UpdateTenantInput{Slug: &slug})
	assert.ErrorIs(t, err, ErrConflict)

	blank := " "
	_, err = s.tenants.Update(ctx, a.ID, UpdateTenantInput{Name: &blank})
	assert.True(t, IsValidation(err))
}

func TestTenantService_PlanLimits(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tenant := testutil.CreateTestTenant(t, s.tc.DB, 3)
	for i := 0; i < 2; i++ {
		testutil.AddTestMember(t, s.tc.DB, tenant, testutil.CreateTestUser(t, s.tc.DB), models.TenantRoleMember)
	}

	count, err := s.tenants.MemberCount(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ok, err := s.tenants.CanAddMember(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, ok)

	one := 1
	_, err = s.tenants.UpdatePlan(ctx, tenant.ID, models.PlanBasic, &one)
	assert.True(t, IsValidation(err))

	two := 2
	updated, err := s.tenants.UpdatePlan(ctx, tenant.ID, models.PlanEnterprise, &two)
	require.NoError(t, err)
	assert.Equal(t, models.PlanEnterprise, updated.Plan)
	assert.Equal(t, 2, updated.MaxUsers)

	ok, err = s.tenants.CanAddMember(ctx, updated)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.tenants.UpdatePlan(ctx, tenant.ID, "gold", nil)
	assert.True(t, IsValidation(err))
}

func TestTenantService_UserTenantsSkipsInactive(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, s.tc.DB)
	active := testutil.CreateTestTenant(t, s.tc.DB, 5)
	inactive := testutil.CreateTestTenant(t, s.tc.DB, 5)
	testutil.AddTestMember(t, s.tc.DB, active, user, models.TenantRoleOwner)
	testutil.AddTestMember(t, s.tc.DB, inactive, user, models.TenantRoleMember)

	_, err := s.tenants.Deactivate(ctx, inactive.ID)
	require.NoError(t, err)

	memberships, err := s.tenants.UserTenants(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, active.ID, memberships[0].TenantID)
	require.NotNil(t, memberships[0].Tenant)
	assert.Equal(t, active.Slug, memberships[0].Tenant.Slug)

	reactivated, err := s.tenants.Activate(ctx, inactive.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)

	tenants, total, err := s.tenants.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, tenants, 2)
}
