package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"
	"recruitment-platform/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenantRouter(ctx *testutil.TestContext, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(OptionalAuth(ctx.JWTService), TenantContext(), TenantRequired())
	handlers := append(guards, func(c *gin.Context) {
		id, _ := GetTenantID(c)
		c.JSON(http.StatusOK, gin.H{"tenant_id": id.String()})
	})
	router.GET("/api/v1/vacancies", handlers...)
	router.GET("/api/v1/auth/me", handlers...)
	router.GET("/health", handlers...)
	return router
}

func TestTenantContext(t *testing.T) {
	testutil.SetupGinTestMode()
	ctx := testutil.SetupTestContext(t)

	user := testutil.CreateTestUser(t, ctx.DB)
	tenant := testutil.CreateTestTenant(t, ctx.DB, 5)
	other := testutil.CreateTestTenant(t, ctx.DB, 5)
	m := testutil.AddTestMember(t, ctx.DB, tenant, user, models.TenantRoleMember)

	scoped := testutil.GenerateAuthToken(t, ctx.JWTService, user, m, tenant.Slug)
	unscoped := testutil.GenerateAuthToken(t, ctx.JWTService, user, nil, "")

	client := testutil.NewTestHTTPClient(tenantRouter(ctx))

	t.Run("from_claims", func(t *testing.T) {
		w := client.GET("/api/v1/vacancies", testutil.WithAuth(scoped))
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		testutil.ParseJSONResponse(t, w, &resp)
		assert.Equal(t, tenant.ID.String(), resp["tenant_id"])
	})

	t.Run("claims_win_over_header", func(t *testing.T) {
		w := client.GET("/api/v1/vacancies", testutil.WithTenant(scoped, other.ID))
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		testutil.ParseJSONResponse(t, w, &resp)
		assert.Equal(t, tenant.ID.String(), resp["tenant_id"])
	})

	t.Run("from_header", func(t *testing.T) {
		w := client.GET("/api/v1/vacancies", testutil.WithTenant(unscoped, other.ID))
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		testutil.ParseJSONResponse(t, w, &resp)
		assert.Equal(t, other.ID.String(), resp["tenant_id"])
	})

	t.Run("missing_tenant", func(t *testing.T) {
		w := client.GET("/api/v1/vacancies", testutil.WithAuth(unscoped))
		testutil.AssertErrorResponse(t, w, http.StatusForbidden, "TENANT_REQUIRED")
	})

	t.Run("malformed_header", func(t *testing.T) {
		w := client.GET("/api/v1/vacancies", map[string]string{TenantHeader: "not-a-uuid"})
		testutil.AssertErrorResponse(t, w, http.StatusForbidden, "TENANT_REQUIRED")
	})

	t.Run("exempt_paths", func(t *testing.T) {
		for _, path := range []string{"/api/v1/auth/me", "/health"} {
			w := client.GET(path, nil)
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})
}

func TestTenantFromParam(t *testing.T) {
	testutil.SetupGinTestMode()
	router := gin.New()
	router.GET("/tenants/:id", TenantFromParam("id"), func(c *gin.Context) {
		id, ok := GetTenantID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	id := uuid.New()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/tenants/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/tenants/acme", nil))
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "INVALID_TENANT_ID")
}

func TestRequireTenantRoles(t *testing.T) {
	testutil.SetupGinTestMode()
	ctx := testutil.SetupTestContext(t)
	memberships := services.NewMembershipService(ctx.DB, ctx.Logger, services.NewActivityService(ctx.DB, ctx.Logger))

	tenant := testutil.CreateTestTenant(t, ctx.DB, 10)
	tokens := map[models.TenantRole]string{}
	for _, role := range []models.TenantRole{models.TenantRoleOwner, models.TenantRoleAdmin, models.TenantRoleMember} {
		u := testutil.CreateTestUser(t, ctx.DB)
		m := testutil.AddTestMember(t, ctx.DB, tenant, u, role)
		tokens[role] = testutil.GenerateAuthToken(t, ctx.JWTService, u, m, tenant.Slug)
	}

	granted := testutil.CreateTestUser(t, ctx.DB)
	gm := testutil.AddTestMember(t, ctx.DB, tenant, granted, models.TenantRoleMember, models.PermManageVacancies)
	grantedToken := testutil.GenerateAuthToken(t, ctx.JWTService, granted, gm, tenant.Slug)

	outsider := testutil.CreateTestUser(t, ctx.DB)
	outsiderToken := testutil.GenerateAuthToken(t, ctx.JWTService, outsider, nil, "")

	tests := []struct {
		name   string
		guard  gin.HandlerFunc
		token  string
		status int
		code   string
	}{
		{"member_ok", RequireTenantMember(memberships), tokens[models.TenantRoleMember], http.StatusOK, ""},
		{"outsider_not_member", RequireTenantMember(memberships), outsiderToken, http.StatusForbidden, "NOT_TENANT_MEMBER"},
		{"admin_ok", RequireTenantAdmin(memberships), tokens[models.TenantRoleAdmin], http.StatusOK, ""},
		{"owner_is_admin", RequireTenantAdmin(memberships), tokens[models.TenantRoleOwner], http.StatusOK, ""},
		{"member_not_admin", RequireTenantAdmin(memberships), tokens[models.TenantRoleMember], http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"owner_ok", RequireTenantOwner(memberships), tokens[models.TenantRoleOwner], http.StatusOK, ""},
		{"admin_not_owner", RequireTenantOwner(memberships), tokens[models.TenantRoleAdmin], http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"permission_granted", RequireTenantPermission(memberships, models.PermManageVacancies), grantedToken, http.StatusOK, ""},
		{"permission_admin", RequireTenantPermission(memberships, models.PermManageVacancies), tokens[models.TenantRoleAdmin], http.StatusOK, ""},
		{"permission_missing", RequireTenantPermission(memberships, models.PermManageVacancies), tokens[models.TenantRoleMember], http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewTestHTTPClient(tenantRouter(ctx, tt.guard))
			w := client.GET("/api/v1/vacancies", testutil.WithTenant(tt.token, tenant.ID))
			if tt.code == "" {
				assert.Equal(t, tt.status, w.Code, w.Body.String())
				return
			}
			testutil.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		client := testutil.NewTestHTTPClient(tenantRouter(ctx, RequireTenantMember(memberships)))
		w := client.GET("/api/v1/vacancies", map[string]string{TenantHeader: tenant.ID.String()})
		testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "MISSING_USER_ID")
	})
}
