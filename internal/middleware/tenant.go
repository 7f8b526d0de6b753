package middleware

import (
	"context"
	"net/http"
	"strings"

	"recruitment-platform/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextTenantID   = "tenant_id"
	ContextMembership = "tenant_membership"

	TenantHeader = "X-Tenant-ID"
)

// TenantExemptPrefixes are the paths TenantRequired lets through without a
// tenant.
var TenantExemptPrefixes = []string{
	"/api/v1/auth/",
	"/api/v1/users/",
	"/docs/",
	"/health",
	"/ready",
}

// MembershipLookup resolves the active membership of a user in a tenant
type MembershipLookup interface {
	GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantMembership, error)
}

// TenantContext resolves the tenant of the request from the token claims,
// falling back to the X-Tenant-ID header.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if claims, ok := GetClaims(c); ok {
			raw = claims.TenantIDString()
		}
		if raw == "" {
			raw = c.GetHeader(TenantHeader)
		}

		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil && id != uuid.Nil {
			c.Set(ContextTenantID, id)
		}
		c.Next()
	}
}

// TenantFromParam takes the tenant from a path parameter such as
// /tenants/:id, overriding whatever TenantContext found.
func TenantFromParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(param))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Invalid tenant ID",
				"code":  "INVALID_TENANT_ID",
			})
			return
		}
		c.Set(ContextTenantID, id)
		c.Next()
	}
}

// TenantRequired rejects requests without a tenant unless the path starts
// with one of the exempt prefixes.
func TenantRequired(exempt ...string) gin.HandlerFunc {
	if len(exempt) == 0 {
		exempt = TenantExemptPrefixes
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range exempt {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		if _, ok := GetTenantID(c); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Tenant ID required",
				"code":  "TENANT_REQUIRED",
			})
			return
		}
		c.Next()
	}
}

// GetTenantID returns the tenant resolved for the request
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextTenantID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetMembership returns the membership loaded by a RequireTenant* check
func GetMembership(c *gin.Context) (*models.TenantMembership, bool) {
	v, exists := c.Get(ContextMembership)
	if !exists {
		return nil, false
	}
	m, ok := v.(*models.TenantMembership)
	return m, ok
}

// RequireTenantMember ensures the user is an active member of the tenant
func RequireTenantMember(lookup MembershipLookup) gin.HandlerFunc {
	return requireMembership(lookup, func(*models.TenantMembership) bool { return true })
}

// RequireTenantAdmin ensures the user is an owner or admin of the tenant
func RequireTenantAdmin(lookup MembershipLookup) gin.HandlerFunc {
	return requireMembership(lookup, func(m *models.TenantMembership) bool {
		return m.Role.IsAdmin()
	})
}

// RequireTenantOwner ensures the user owns the tenant
func RequireTenantOwner(lookup MembershipLookup) gin.HandlerFunc {
	return requireMembership(lookup, func(m *models.TenantMembership) bool {
		return m.Role == models.TenantRoleOwner
	})
}

// RequireTenantPermission ensures the membership grants code
func RequireTenantPermission(lookup MembershipLookup, code string) gin.HandlerFunc {
	return requireMembership(lookup, func(m *models.TenantMembership) bool {
		return m.HasPermission(code)
	})
}

func requireMembership(lookup MembershipLookup, allow func(*models.TenantMembership) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetCurrentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User ID not found in context",
				"code":  "MISSING_USER_ID",
			})
			return
		}

		tenantID, ok := GetTenantID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Tenant ID required",
				"code":  "TENANT_REQUIRED",
			})
			return
		}

		m, err := lookup.GetMembership(c.Request.Context(), tenantID, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Not a member of this tenant",
				"code":  "NOT_TENANT_MEMBER",
			})
			return
		}

		if !allow(m) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
				"code":  "INSUFFICIENT_PERMISSIONS",
			})
			return
		}

		c.Set(ContextMembership, m)
		c.Next()
	}
}
