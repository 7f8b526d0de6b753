package handlers

import (
	"net/http"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AIConfigHandler struct {
	configs *services.AIConfigService
	logger  *zap.Logger
}

// NewAIConfigHandler creates a new AI config handler
func NewAIConfigHandler(configs *services.AIConfigService, logger *zap.Logger) *AIConfigHandler {
	return &AIConfigHandler{configs: configs, logger: logger}
}

type UpdateAPIKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

type ChangeProviderRequest struct {
	Provider  models.AIProvider `json:"provider" binding:"required"`
	APIKey    string            `json:"api_key" binding:"required"`
	ModelName string            `json:"model_name" binding:"required"`
}

func (h *AIConfigHandler) respond(c *gin.Context, status int, cfg *models.TenantAIConfig, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, cfg.ToResponse())
}

// Get returns the tenant's AI configuration with the key masked
// @Summary Get AI configuration
// @Tags ai-config
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.AIConfigResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{id}/ai-config [get]
func (h *AIConfigHandler) Get(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	cfg, err := h.configs.Get(c.Request.Context(), tenantID)
	h.respond(c, http.StatusOK, cfg, err)
}

// Configure creates or replaces the tenant's AI configuration
// @Summary Configure AI provider
// @Tags ai-config
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body services.ConfigureAIInput true "Provider settings"
// @Success 200 {object} models.AIConfigResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/tenants/{id}/ai-config [post]
func (h *AIConfigHandler) Configure(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req services.ConfigureAIInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cfg, err := h.configs.Configure(c.Request.Context(), tenantID, req)
	h.respond(c, http.StatusOK, cfg, err)
}

// UpdateSettings changes model name, temperature or max tokens
// @Summary Update model settings
// @Tags ai-config
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body services.ModelSettingsInput true "Settings"
// @Success 200 {object} models.AIConfigResponse
// @Router /api/v1/tenants/{id}/ai-config [patch]
func (h *AIConfigHandler) UpdateSettings(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req services.ModelSettingsInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cfg, err := h.configs.UpdateModelSettings(c.Request.Context(), tenantID, req)
	h.respond(c, http.StatusOK, cfg, err)
}

// UpdateAPIKey rotates the tenant's key
// @Summary Update API key
// @Tags ai-config
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body UpdateAPIKeyRequest true "Key"
// @Success 200 {object} models.AIConfigResponse
// @Router /api/v1/tenants/{id}/ai-config/api-key [put]
func (h *AIConfigHandler) UpdateAPIKey(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req UpdateAPIKeyRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cfg, err := h.configs.UpdateAPIKey(c.Request.Context(), tenantID, req.APIKey)
	h.respond(c, http.StatusOK, cfg, err)
}

// ChangeProvider switches provider, key and model at once
// @Summary Change provider
// @Tags ai-config
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param request body ChangeProviderRequest true "Provider"
// @Success 200 {object} models.AIConfigResponse
// @Router /api/v1/tenants/{id}/ai-config/provider [put]
func (h *AIConfigHandler) ChangeProvider(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}

	var req ChangeProviderRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	cfg, err := h.configs.ChangeProvider(c.Request.Context(), tenantID, req.Provider, req.APIKey, req.ModelName)
	h.respond(c, http.StatusOK, cfg, err)
}

// Activate turns the tenant's own key back on
// @Summary Activate AI configuration
// @Tags ai-config
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.AIConfigResponse
// @Router /api/v1/tenants/{id}/ai-config/activate [post]
func (h *AIConfigHandler) Activate(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	cfg, err := h.configs.Activate(c.Request.Context(), tenantID)
	h.respond(c, http.StatusOK, cfg, err)
}

// Deactivate falls back to the platform provider
// @Summary Deactivate AI configuration
// @Tags ai-config
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} models.AIConfigResponse
// @Router /api/v1/tenants/{id}/ai-config/deactivate [post]
func (h *AIConfigHandler) Deactivate(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	cfg, err := h.configs.Deactivate(c.Request.Context(), tenantID)
	h.respond(c, http.StatusOK, cfg, err)
}

// ListPermissions returns the permission registry
// @Summary List permissions
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/permissions [get]
func ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"permissions": models.AllPermissions(),
		"categories":  models.PermissionCategories(),
		"by_category": models.PermissionsByCategory(),
	})
}
