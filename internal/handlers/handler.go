package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/database"
	"recruitment-platform/internal/middleware"
	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// PagedResponse wraps a page of results
type PagedResponse struct {
	Data       interface{}             `json:"data"`
	Pagination database.PaginationInfo `json:"pagination"`
}

func paged(data interface{}, page, pageSize int, total int64) PagedResponse {
	return PagedResponse{Data: data, Pagination: database.CalculatePagination(page, pageSize, total)}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// respondError maps service errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without leaking its message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Code: "VALIDATION_ERROR", Field: verr.Field})
	case errors.Is(err, services.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrConflict):
		abortWithError(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		abortWithError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, services.ErrForbidden):
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, services.ErrTenantFull):
		abortWithError(c, http.StatusConflict, "TENANT_FULL", err.Error())
	case errors.Is(err, services.ErrQuotaExceeded):
		abortWithError(c, http.StatusPaymentRequired, "QUOTA_EXCEEDED", err.Error())
	case errors.Is(err, llm.ErrMissingAPIKey):
		abortWithError(c, http.StatusBadRequest, "AI_NOT_CONFIGURED", err.Error())
	case errors.Is(err, llm.ErrUnsupportedProvider):
		abortWithError(c, http.StatusBadRequest, "UNSUPPORTED_PROVIDER", err.Error())
	default:
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(middleware.ContextRequestID)),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// bindJSON binds the request body and answers 400 on failure
func bindJSON(c *gin.Context, logger *zap.Logger, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		logger.Debug("Invalid request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"code":    "INVALID_REQUEST",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// uuidParam parses a path parameter and answers 400 when it is not a UUID
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user or answers 401
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetCurrentUserID(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	return id, ok
}

// currentTenant returns the tenant of the request or answers 403
func currentTenant(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetTenantID(c)
	if !ok {
		abortWithError(c, http.StatusForbidden, "TENANT_REQUIRED", "Tenant ID required")
	}
	return id, ok
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func sendXLSX(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
