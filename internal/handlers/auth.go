package handlers

import (
	"net/http"

	"recruitment-platform/internal/middleware"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"
	"recruitment-platform/pkg/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth    *services.AuthService
	users   *services.UserService
	tenants *services.TenantService
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, users *services.UserService, tenants *services.TenantService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, users: users, tenants: tenants, logger: logger}
}

// LoginRequest accepts a username or an email as login
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User       models.UserResponse        `json:"user"`
	Tenant     *models.Tenant             `json:"tenant,omitempty"`
	Membership *models.MembershipResponse `json:"membership,omitempty"`
	*auth.TokenPair
}

func toAuthResponse(r *services.AuthResult) AuthResponse {
	resp := AuthResponse{User: r.User.ToResponse(), Tenant: r.Tenant, TokenPair: r.Tokens}
	if r.Membership != nil {
		m := r.Membership.ToResponse()
		resp.Membership = &m
	}
	return resp
}

// RegisterTenant handles company sign-up
// @Summary Register a company and its owner
// @Description Creates the user, the tenant and the owner membership in one step and logs the owner in
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body services.RegisterTenantOwnerInput true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) RegisterTenant(c *gin.Context) {
	var req services.RegisterTenantOwnerInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.auth.RegisterTenantOwner(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toAuthResponse(result))
}

// Signup handles plain user registration
// @Summary Register a user without a company
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body services.RegisterUserInput true "User data"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.RegisterUserInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, user.ToResponse())
}

// Login handles user login
// @Summary User login
// @Description Authenticate by username or email and receive tokens scoped to the first active tenant
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("User logged in", zap.String("user_id", result.User.ID.String()))
	c.JSON(http.StatusOK, toAuthResponse(result))
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}

// Logout revokes the current access token and the given refresh token
// @Summary User logout
// @Tags authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), middleware.GetAccessToken(c), req.RefreshToken); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GetMe returns the authenticated user with their tenants
// @Summary Current user
// @Tags authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	memberships, err := h.tenants.UserTenants(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{"user": user.ToResponse(), "memberships": memberships}
	if claims, ok := middleware.GetClaims(c); ok && claims.TenantIDString() != "" {
		resp["tenant_id"] = claims.TenantIDString()
		resp["tenant_slug"] = claims.TenantSlug
		resp["role"] = claims.Role
	}
	c.JSON(http.StatusOK, resp)
}
