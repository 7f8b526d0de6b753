package handlers

import (
	"fmt"
	"net/http"
	"time"

	"recruitment-platform/internal/ai/usage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UsageHandler struct {
	usage  *usage.Service
	logger *zap.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(u *usage.Service, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usage: u, logger: logger}
}

// UsageResponse combines the period summary with the current month's quota
type UsageResponse struct {
	Summary *usage.Summary     `json:"summary"`
	Quota   *usage.QuotaStatus `json:"quota"`
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty yields the zero time.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func periodParams(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_DATE", "Invalid from date")
		return time.Time{}, time.Time{}, false
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_DATE", "Invalid to date")
		return time.Time{}, time.Time{}, false
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		abortWithError(c, http.StatusBadRequest, "INVALID_DATE", "from must be before to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// GetUsage returns AI spend by node and model together with the quota status
// @Summary AI usage
// @Tags usage
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tenant ID"
// @Param from query string false "Start date (YYYY-MM-DD), defaults to the current month"
// @Param to query string false "End date (exclusive)"
// @Success 200 {object} UsageResponse
// @Router /api/v1/tenants/{id}/usage [get]
func (h *UsageHandler) GetUsage(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	from, to, ok := periodParams(c)
	if !ok {
		return
	}

	quota, err := h.usage.CheckQuota(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	summary, err := h.usage.Summary(c.Request.Context(), tenantID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UsageResponse{Summary: summary, Quota: quota})
}

// ListLogs pages through the tenant's agent executions, newest first
// @Summary AI execution logs
// @Tags usage
// @Security BearerAuth
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} PagedResponse
// @Router /api/v1/tenants/{id}/usage/logs [get]
func (h *UsageHandler) ListLogs(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	logs, total, err := h.usage.ListLogs(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paged(logs, page, pageSize, total))
}

// ExportLogs downloads the period's executions as XLSX
// @Summary Export AI usage
// @Tags usage
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Tenant ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (exclusive)"
// @Success 200 {file} file
// @Router /api/v1/tenants/{id}/usage/export [get]
func (h *UsageHandler) ExportLogs(c *gin.Context) {
	tenantID, ok := currentTenant(c)
	if !ok {
		return
	}
	from, to, ok := periodParams(c)
	if !ok {
		return
	}

	data, err := h.usage.ExportLogs(c.Request.Context(), tenantID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendXLSX(c, fmt.Sprintf("ai-usage-%s.xlsx", tenantID), data)
}
