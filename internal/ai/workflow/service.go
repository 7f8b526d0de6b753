package workflow

import (
	"context"
	"errors"
	"fmt"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/ai/tools"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type QuotaChecker interface {
	EnsureQuota(ctx context.Context, tenantID uuid.UUID) error
}

// ModelProvider picks the chat model that serves a tenant
type ModelProvider interface {
	ForTenant(ctx context.Context, cfg *models.TenantAIConfig) (llm.ChatModel, error)
}

type Service struct {
	quota      QuotaChecker
	configs    *services.AIConfigService
	vacancies  *services.VacancyService
	models     ModelProvider
	registry   *tools.Registry
	recorder   ExecutionRecorder
	hub        *Hub
	activities *services.ActivityService
	debug      bool
	logger     *zap.Logger
}

type Deps struct {
	Quota      QuotaChecker
	Configs    *services.AIConfigService
	Vacancies  *services.VacancyService
	Models     ModelProvider
	Registry   *tools.Registry
	Recorder   ExecutionRecorder
	Hub        *Hub
	Activities *services.ActivityService

	// Debug logs every workflow event
	Debug bool
}

// NewService creates the workflow service
func NewService(d Deps, logger *zap.Logger) *Service {
	if d.Hub == nil {
		d.Hub = NewHub()
	}
	if d.Registry == nil {
		d.Registry = tools.NewDefaultRegistry(nil)
	}
	return &Service{
		quota:      d.Quota,
		configs:    d.Configs,
		vacancies:  d.Vacancies,
		models:     d.Models,
		registry:   d.Registry,
		recorder:   d.Recorder,
		hub:        d.Hub,
		activities: d.Activities,
		debug:      d.Debug,
		logger:     logger,
	}
}

func (s *Service) Hub() *Hub { return s.hub }

// SourceVacancy runs the sourcing workflow with the vacancy's own data
func (s *Service) SourceVacancy(ctx context.Context, tenantID, vacancyID uuid.UUID) (*State, error) {
	vacancy, err := s.vacancies.Get(ctx, tenantID, vacancyID)
	if err != nil {
		return nil, err
	}
	return s.StartSourcing(ctx, tenantID, vacancyID, JobData(vacancy))
}

// JobData is the vacancy as seen by the agents
func JobData(v *models.JobVacancy) map[string]any {
	data := map[string]any{
		"title":          v.Title,
		"description":    v.Description,
		"requirements":   v.Requirements,
		"location":       v.Location,
		"is_remote":      v.IsRemote,
		"interview_mode": string(v.InterviewMode),
	}
	if v.SalaryMin != nil {
		data["salary_min"] = *v.SalaryMin
	}
	if v.SalaryMax != nil {
		data["salary_max"] = *v.SalaryMax
		data["currency"] = v.Currency
	}
	return data
}

// StartSourcing checks the tenant's quota, picks its model and runs the
// analyst and sourcer nodes to completion. jobData is copied; tenant_id is
// added to the state context for execution logging.
func (s *Service) StartSourcing(ctx context.Context, tenantID, vacancyID uuid.UUID, jobData map[string]any) (*State, error) {
	if err := s.quota.EnsureQuota(ctx, tenantID); err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			return nil, fmt.Errorf("plan limit reached, please contact support: %w", services.ErrQuotaExceeded)
		}
		return nil, err
	}

	cfg, err := s.configs.Find(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load AI configuration: %w", err)
	}

	model, err := s.models.ForTenant(ctx, cfg)
	if err != nil {
		return nil, err
	}

	graph, err := NewSourcingBuilder(model, s.registry, s.recorder, s.logger).Build()
	if err != nil {
		return nil, err
	}

	sinks := []Sink{s.hub}
	if s.debug {
		sinks = append(sinks, LogSink(s.logger))
	}
	if s.activities != nil {
		sinks = append(sinks, ActivitySink(s.activities))
	}
	monitor := NewMonitor(tenantID, vacancyID, sinks...)

	jobContext := make(map[string]any, len(jobData)+1)
	for k, v := range jobData {
		jobContext[k] = v
	}
	jobContext["tenant_id"] = tenantID.String()
	state := NewState(vacancyID, jobContext)

	s.logger.Info("Sourcing workflow started",
		zap.String("group", monitor.Group()),
		zap.String("provider", model.Provider()),
		zap.String("model", model.ModelName()),
	)

	if err := graph.Run(ctx, state, monitor); err != nil {
		s.logger.Error("Sourcing workflow failed", zap.String("group", monitor.Group()), zap.Error(err))
		return state, err
	}

	state.FinalOutput = map[string]any{
		"analysis":   state.Output(NodeAnalyst),
		"candidates": state.Output(NodeSourcer),
		"profiles":   state.ToolResults[tools.ToolLinkedInSearch],
	}
	return state, nil
}
