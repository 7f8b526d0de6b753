package handlers

import (
	"net/http"
	"time"

	"recruitment-platform/internal/ai/workflow"
	"recruitment-platform/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sseKeepAlive = 15 * time.Second

type SourcingHandler struct {
	workflow  *workflow.Service
	vacancies *services.VacancyService
	logger    *zap.Logger
}

// NewSourcingHandler creates a new sourcing handler
func NewSourcingHandler(wf *workflow.Service, vacancies *services.VacancyService, logger *zap.Logger) *SourcingHandler {
	return &SourcingHandler{workflow: wf, vacancies: vacancies, logger: logger}
}

// SourcingResponse is the outcome of a finished sourcing run
type SourcingResponse struct {
	VacancyID   string         `json:"vacancy_id"`
	Group       string         `json:"group"`
	FinalOutput map[string]any `json:"final_output"`
	Messages    int            `json:"messages"`
}

// StartSourcing runs the sourcing workflow for a vacancy
// @Summary Run candidate sourcing
// @Description Runs the analyst and sourcer agents. Progress is streamed on the events endpoint.
// @Tags sourcing
// @Security BearerAuth
// @Produce json
// @Param id path string true "Vacancy ID"
// @Success 200 {object} SourcingResponse
// @Failure 402 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/vacancies/{id}/sourcing [post]
func (h *SourcingHandler) StartSourcing(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}

	state, err := h.workflow.SourceVacancy(c.Request.Context(), tenantID, vacancyID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SourcingResponse{
		VacancyID:   vacancyID.String(),
		Group:       workflow.GroupName(tenantID, vacancyID),
		FinalOutput: state.FinalOutput,
		Messages:    len(state.Messages),
	})
}

// StreamEvents streams the vacancy's workflow events as server-sent events
// until the run ends or the client goes away
// @Summary Sourcing progress
// @Tags sourcing
// @Security BearerAuth
// @Produce text/event-stream
// @Param id path string true "Vacancy ID"
// @Success 200 {object} workflow.Event
// @Router /api/v1/vacancies/{id}/sourcing/events [get]
func (h *SourcingHandler) StreamEvents(c *gin.Context) {
	tenantID, vacancyID, ok := scopedID(c)
	if !ok {
		return
	}
	if _, err := h.vacancies.Get(c.Request.Context(), tenantID, vacancyID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	events, unsubscribe := h.workflow.Hub().Subscribe(workflow.GroupName(tenantID, vacancyID))
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			c.Writer.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			c.SSEvent(string(e.Type), e)
			c.Writer.Flush()
			if e.Type == workflow.EventSuccess || e.Type == workflow.EventError {
				return
			}
		}
	}
}
