package handlers

import (
	"context"
	"net/http"

	"recruitment-platform/internal/email"
	"recruitment-platform/internal/middleware"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvitationSender notifies invited users. *email.EmailService satisfies it.
type InvitationSender interface {
	SendInvitation(ctx context.Context, user *models.User, tenant *models.Tenant, role models.TenantRole, invitedBy string, isNew bool) (*email.Receipt, error)
}

type TenantHandler struct {
	tenants     *services.TenantService
	memberships *services.MembershipService
	users       *services.UserService
	mailer      InvitationSender
	logger      *zap.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants *services.TenantService, memberships *services.MembershipService, users *services.UserService, mailer InvitationSender, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{tenants: tenants, memberships: memberships, users: users, mailer: mailer, logger: logger}
}

type UpdatePlanRequest struct {
	Plan     models.PlanType `json:"plan" binding:"required"`
	MaxUsers *int            `json:"max_users"`
}

type UpdateRoleRequest struct {
	Role models.TenantRole `json:"role" binding:"required"`
}

type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *TenantHandler) respondTenant(c *gin.Context, status int, tenant *models.Tenant) {
	count, err := h.tenants.MemberCount(c.Request.Context(), tenant.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, tenant.ToResponse(count))
}

// CreateTenant creates a tenant owned by the caller
// @Summary Create tenant
// @Tags tenants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.CreateTenantInput true "Tenant data"
// @Success 201 {object} models.TenantResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateTenantInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	tenant, err := h.tenants.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if _, err := h.memberships.AddMember(c.Request.Context(), tenant.ID, userID, models.TenantRoleOwner, nil); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondTenant(c, http.StatusCreated, tenant)
}

// GetTenant returns a tenant the caller belongs to
// @Summary Get tenant
// @Tags tenants
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.TenantResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	tenant, err := h.tenants.Get(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondTenant(c, http.StatusOK, tenant)
}

// UpdateTenant changes name, slug or seat limit
// @Summary Update tenant
// @Tags tenants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body services.UpdateTenantInput true "Fields to change"
// @Success 200 {object} models.TenantResponse
// @Router /api/v1/tenants/{id} [put]
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req services.UpdateTenantInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	tenant, err := h.tenants.Update(c.Request.Context(), tenantID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondTenant(c, http.StatusOK, tenant)
}

// UpdatePlan switches the subscription plan
// @Summary Update plan
// @Tags tenants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body UpdatePlanRequest true "Plan"
// @Success 200 {object} models.TenantResponse
// @Router /api/v1/tenants/{id}/plan [put]
func (h *TenantHandler) UpdatePlan(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	tenant, err := h.tenants.UpdatePlan(c.Request.Context(), tenantID, req.Plan, req.MaxUsers)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondTenant(c, http.StatusOK, tenant)
}

// Activate reactivates the tenant
// @Summary Activate tenant
// @Tags tenants
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.TenantResponse
// @Router /api/v1/tenants/{id}/activate [post]
func (h *TenantHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate suspends the tenant
// @Summary Deactivate tenant
// @Tags tenants
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.TenantResponse
// @Router /api/v1/tenants/{id}/deactivate [post]
func (h *TenantHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *TenantHandler) setActive(c *gin.Context, active bool) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var (
		tenant *models.Tenant
		err    error
	)
	if active {
		tenant, err = h.tenants.Activate(c.Request.Context(), tenantID)
	} else {
		tenant, err = h.tenants.Deactivate(c.Request.Context(), tenantID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondTenant(c, http.StatusOK, tenant)
}

// ListMembers returns the tenant's active members
// @Summary List members
// @Tags members
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tenant ID"
// @Param admins query bool false "Only owners and admins"
// @Success 200 {array} models.MembershipResponse
// @Router /api/v1/tenants/{id}/members [get]
func (h *TenantHandler) ListMembers(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var (
		members []models.TenantMembership
		err     error
	)
	if c.Query("admins") == "true" {
		members, err = h.memberships.ListAdmins(c.Request.Context(), tenantID)
	} else {
		members, err = h.memberships.ListMembers(c.Request.Context(), tenantID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]models.MembershipResponse, 0, len(members))
	for i := range members {
		resp = append(resp, members[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// InviteMember adds a user by email, creating the account when needed
// @Summary Invite member
// @Tags members
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body services.InviteUserInput true "Invitation"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/tenants/{id}/members/invite [post]
func (h *TenantHandler) InviteMember(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	actorID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.InviteUserInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.users.InviteUser(c.Request.Context(), tenantID, req, actorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	emailSent := false
	if h.mailer != nil {
		inviter := ""
		if actor, err := h.users.Get(c.Request.Context(), actorID); err == nil {
			inviter = actor.FullName()
		}
		_, err := h.mailer.SendInvitation(c.Request.Context(), result.User, result.Tenant, result.Membership.Role, inviter, result.IsNew)
		if err != nil {
			h.logger.Warn("Failed to send invitation", zap.String("email", result.User.Email), zap.Error(err))
		} else {
			emailSent = true
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"membership": result.Membership.ToResponse(),
		"user":       result.User.ToResponse(),
		"is_new":     result.IsNew,
		"email_sent": emailSent,
	})
}

func (h *TenantHandler) memberParams(c *gin.Context) (uuid.UUID, uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	actorID, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return tenantID, actorID, userID, true
}

// UpdateMemberRole changes a member's role
// @Summary Update member role
// @Tags members
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param userId path string true "User ID"
// @Param request body UpdateRoleRequest true "Role"
// @Success 200 {object} models.MembershipResponse
// @Router /api/v1/tenants/{id}/members/{userId}/role [put]
func (h *TenantHandler) UpdateMemberRole(c *gin.Context) {
	tenantID, actorID, userID, ok := h.memberParams(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	m, err := h.memberships.UpdateRole(c.Request.Context(), tenantID, userID, req.Role, actorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, m.ToResponse())
}

// UpdateMemberPermissions replaces a member's permission codes
// @Summary Update member permissions
// @Tags members
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param userId path string true "User ID"
// @Param request body UpdatePermissionsRequest true "Permission codes"
// @Success 200 {object} models.MembershipResponse
// @Router /api/v1/tenants/{id}/members/{userId}/permissions [put]
func (h *TenantHandler) UpdateMemberPermissions(c *gin.Context) {
	tenantID, _, userID, ok := h.memberParams(c)
	if !ok {
		return
	}

	var req UpdatePermissionsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	m, err := h.memberships.UpdatePermissions(c.Request.Context(), tenantID, userID, req.Permissions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, m.ToResponse())
}

// RemoveMember deactivates a membership
// @Summary Remove member
// @Tags members
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.MembershipResponse
// @Router /api/v1/tenants/{id}/members/{userId} [delete]
func (h *TenantHandler) RemoveMember(c *gin.Context) {
	tenantID, actorID, userID, ok := h.memberParams(c)
	if !ok {
		return
	}

	m, err := h.memberships.RemoveMember(c.Request.Context(), tenantID, userID, actorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, m.ToResponse())
}

// MyMembership returns the caller's membership in the tenant
// @Summary Current membership
// @Tags members
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.MembershipResponse
// @Router /api/v1/tenants/{id}/members/me [get]
func (h *TenantHandler) MyMembership(c *gin.Context) {
	m, ok := middleware.GetMembership(c)
	if !ok {
		abortWithError(c, http.StatusForbidden, "NOT_TENANT_MEMBER", "Not a member of this tenant")
		return
	}
	c.JSON(http.StatusOK, m.ToResponse())
}
