package handlers

import (
	"net/http"

	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users   *services.UserService
	tenants *services.TenantService
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService, tenants *services.TenantService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, tenants: tenants, logger: logger}
}

// ChangePasswordRequest represents the change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// GetProfile returns the current user's profile
// @Summary Get profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// UpdateProfile updates name, phone and avatar
// @Summary Update profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.UpdateProfileInput true "Profile fields"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// ChangePassword handles password change
// @Summary Change password
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/users/me/password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// UpdateEmail changes the email address and resets its verification
// @Summary Change email
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body UpdateEmailRequest true "New email"
// @Success 200 {object} models.UserResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users/me/email [put]
func (h *UserHandler) UpdateEmail(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateEmailRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.users.UpdateEmail(c.Request.Context(), userID, req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// ListTenants returns the user's active memberships
// @Summary My tenants
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.TenantMembership
// @Router /api/v1/users/me/tenants [get]
func (h *UserHandler) ListTenants(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	memberships, err := h.tenants.UserTenants(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": memberships})
}
