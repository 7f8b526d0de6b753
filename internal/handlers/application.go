package handlers

import (
	"fmt"
	"net/http"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ApplicationHandler struct {
	applications *services.ApplicationService
	vacancies    *services.VacancyService
	tenants      *services.TenantService
	logger       *zap.Logger
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applications *services.ApplicationService, vacancies *services.VacancyService, tenants *services.TenantService, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, vacancies: vacancies, tenants: tenants, logger: logger}
}

type UpdateStatusRequest struct {
	Status models.CandidateStatus `json:"status" binding:"required"`
	Notes  string                 `json:"notes"`
}

// ListApplications returns a vacancy's applications
// @Summary List applications
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Vacancy ID"
// @Param status query string false "Filter by status"
// @Success 200 {array} models.Application
// @Router /api/v1/vacancies/{id}/applications [get]
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	apps, err := h.applications.ListForVacancy(c.Request.Context(), tenantID, vacancyID, models.CandidateStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps})
}

// ExportApplications downloads a vacancy's applications as XLSX
// @Summary Export applications
// @Tags applications
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Vacancy ID"
// @Success 200 {file} file
// @Router /api/v1/vacancies/{id}/applications/export [get]
func (h *ApplicationHandler) ExportApplications(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	data, err := h.applications.ExportApplications(c.Request.Context(), tenantID, vacancyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendXLSX(c, fmt.Sprintf("applications-%s.xlsx", vacancyID), data)
}

// ScreenApplications scores every application of the vacancy
// @Summary Screen applications
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Vacancy ID"
// @Success 200 {array} services.ScreeningResult
// @Router /api/v1/vacancies/{id}/screen [post]
func (h *ApplicationHandler) ScreenApplications(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	results, err := h.applications.Screen(c.Request.Context(), tenantID, vacancyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// GetApplication returns one application with candidate and vacancy
// @Summary Get application
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Router /api/v1/applications/{id} [get]
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	tenantID, id, ok := scopedID(c)
	if !ok {
		return
	}

	app, err := h.applications.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// UpdateApplicationStatus moves an application through the pipeline
// @Summary Update application status
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body UpdateStatusRequest true "Status"
// @Success 200 {object} models.Application
// @Router /api/v1/applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateApplicationStatus(c *gin.Context) {
	tenantID, id, ok := scopedID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	app, err := h.applications.UpdateStatus(c.Request.Context(), tenantID, id, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ListCandidates pages through the tenant's candidates
// @Summary List candidates
// @Tags candidates
// @Security BearerAuth
// @Produce json
// @Success 200 {object} PagedResponse
// @Router /api/v1/candidates [get]
func (h *ApplicationHandler) ListCandidates(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	candidates, total, err := h.applications.ListCandidates(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paged(candidates, page, pageSize, total))
}

// GetCandidate returns one candidate
// @Summary Get candidate
// @Tags candidates
// @Security BearerAuth
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} models.Candidate
// @Router /api/v1/candidates/{id} [get]
func (h *ApplicationHandler) GetCandidate(c *gin.Context) {
	tenantID, id, ok := scopedID(c)
	if !ok {
		return
	}

	candidate, err := h.applications.GetCandidate(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// PublicVacancies lists a company's published vacancies
// @Summary Public job board
// @Tags public
// @Produce json
// @Param slug path string true "Tenant slug"
// @Success 200 {array} models.JobVacancy
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/public/tenants/{slug}/vacancies [get]
func (h *ApplicationHandler) PublicVacancies(c *gin.Context) {
	tenant, err := h.tenants.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !tenant.IsActive {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "tenant not found")
		return
	}

	vacancies, err := h.vacancies.ListPublished(c.Request.Context(), &tenant.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": tenant.Name, "data": vacancies})
}

// PublicVacancy returns a published vacancy
// @Summary Public vacancy
// @Tags public
// @Produce json
// @Param id path string true "Vacancy ID"
// @Success 200 {object} models.JobVacancy
// @Router /api/v1/public/vacancies/{id} [get]
func (h *ApplicationHandler) PublicVacancy(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	v, err := h.vacancies.GetPublic(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Apply submits an application to a published vacancy
// @Summary Apply to vacancy
// @Tags public
// @Accept json
// @Produce json
// @Param id path string true "Vacancy ID"
// @Param request body services.ApplyInput true "Candidate"
// @Success 201 {object} models.Application
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/public/vacancies/{id}/apply [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.ApplyInput
	if !bindJSON(c, h.logger, &req) {
		return
	}

	app, err := h.applications.Apply(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}
