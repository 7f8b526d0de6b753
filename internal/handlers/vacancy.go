package handlers

import (
	"net/http"
	"strconv"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VacancyHandler struct {
	vacancies  *services.VacancyService
	activities *services.ActivityService
	logger     *zap.Logger
}

// NewVacancyHandler creates a new vacancy handler
func NewVacancyHandler(vacancies *services.VacancyService, activities *services.ActivityService, logger *zap.Logger) *VacancyHandler {
	return &VacancyHandler{vacancies: vacancies, activities: activities, logger: logger}
}

// SocialPreviewRequest lists the platforms to render drafts for
type SocialPreviewRequest struct {
	Platforms []models.SocialPlatform `json:"platforms" binding:"required"`
}

// scopedID returns the request's tenant and its :id parameter
func scopedID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	vacancyID, ok := uuidParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, vacancyID, true
}

// ListVacancies pages through the tenant's vacancies
// @Summary List vacancies
// @Tags vacancies
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} PagedResponse
// @Router /api/v1/vacancies [get]
func (h *VacancyHandler) ListVacancies(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	vacancies, total, err := h.vacancies.List(c.Request.Context(), tenantID, models.JobStatus(c.Query("status")), page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paged(vacancies, page, pageSize, total))
}

// CreateVacancy creates a draft vacancy
// @Summary Create vacancy
// @Tags vacancies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.VacancyInput true "Vacancy"
// @Success 201 {object} models.JobVacancy
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/vacancies [post]
func (h *VacancyHandler) CreateVacancy(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.VacancyInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	v, err := h.vacancies.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// GetVacancy returns one vacancy
// @Summary Get vacancy
// @Tags vacancies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Vacancy ID"
// @Success 200 {object} models.JobVacancy
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/vacancies/{id} [get]
func (h *VacancyHandler) GetVacancy(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	v, err := h.vacancies.Get(c.Request.Context(), tenantID, vacancyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// UpdateVacancy changes the given fields
// @Summary Update vacancy
// @Tags vacancies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Vacancy ID"
// @Param request body services.UpdateVacancyInput true "Fields"
// @Success 200 {object} models.JobVacancy
// @Router /api/v1/vacancies/{id} [put]
func (h *VacancyHandler) UpdateVacancy(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	var req services.UpdateVacancyInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	v, err := h.vacancies.Update(c.Request.Context(), tenantID, vacancyID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// DeleteVacancy removes a vacancy with its posts and applications
// @Summary Delete vacancy
// @Tags vacancies
// @Security BearerAuth
// @Param id path string true "Vacancy ID"
// @Success 204
// @Router /api/v1/vacancies/{id} [delete]
func (h *VacancyHandler) DeleteVacancy(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	if err := h.vacancies.Delete(c.Request.Context(), tenantID, vacancyID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublishVacancy publishes the vacancy and its social posts
// @Summary Publish vacancy
// @Tags vacancies
// @Security BearerAuth
// @Param id path string true "Vacancy ID"
// @Success 200 {object} models.JobVacancy
// @Router /api/v1/vacancies/{id}/publish [post]
func (h *VacancyHandler) PublishVacancy(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	v, err := h.vacancies.Publish(c.Request.Context(), tenantID, vacancyID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// CloseVacancy stops accepting applications
// @Summary Close vacancy
// @Tags vacancies
// @Security BearerAuth
// @Param id path string true "Vacancy ID"
// @Success 200 {object} models.JobVacancy
// @Router /api/v1/vacancies/{id}/close [post]
func (h *VacancyHandler) CloseVacancy(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	v, err := h.vacancies.Close(c.Request.Context(), tenantID, vacancyID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ArchiveVacancy archives the vacancy
// @Summary Archive vacancy
// @Tags vacancies
// @Security BearerAuth
// @Param id path string true "Vacancy ID"
// @Success 200 {object} models.JobVacancy
// @Router /api/v1/vacancies/{id}/archive [post]
func (h *VacancyHandler) ArchiveVacancy(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	v, err := h.vacancies.Archive(c.Request.Context(), tenantID, vacancyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GenerateSocialPreviews renders one draft post per platform
// @Summary Generate social previews
// @Tags vacancies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Vacancy ID"
// @Param request body SocialPreviewRequest true "Platforms"
// @Success 201 {array} models.VacancySocialPost
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/vacancies/{id}/social-previews [post]
func (h *VacancyHandler) GenerateSocialPreviews(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	var req SocialPreviewRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	posts, err := h.vacancies.GenerateSocialPreviews(c.Request.Context(), tenantID, vacancyID, req.Platforms)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": posts})
}

// ListSocialPosts returns the vacancy's social posts
// @Summary List social posts
// @Tags vacancies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Vacancy ID"
// @Success 200 {array} models.VacancySocialPost
// @Router /api/v1/vacancies/{id}/social-previews [get]
func (h *VacancyHandler) ListSocialPosts(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	posts, err := h.vacancies.ListSocialPosts(c.Request.Context(), tenantID, vacancyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": posts})
}

// ListActivities returns the vacancy's audit trail, newest first
// @Summary Vacancy activities
// @Tags vacancies
// @Security BearerAuth
// @Produce json
// @Param id path string true "Vacancy ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.Activity
// @Router /api/v1/vacancies/{id}/activities [get]
func (h *VacancyHandler) ListActivities(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}
	if _, err := h.vacancies.Get(c.Request.Context(), tenantID, vacancyID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	activities, err := h.activities.ListForVacancy(c.Request.Context(), tenantID, vacancyID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": activities})
}

// ListTenantActivities pages through the tenant's audit trail
// @Summary Tenant activities
// @Tags activities
// @Security BearerAuth
// @Produce json
// @Success 200 {object} PagedResponse
// @Router /api/v1/activities [get]
func (h *VacancyHandler) ListTenantActivities(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	activities, total, err := h.activities.ListForTenant(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paged(activities, page, pageSize, total))
}
