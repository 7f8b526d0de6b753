package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/database"
	"recruitment-platform/internal/export"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLogModel = "gpt-4o"

var DefaultMonthlyQuota = decimal.RequireFromString("20.00")

type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	pricing *PricingTable
	quota   decimal.Decimal
	now     func() time.Time
}

// NewService creates a usage service. monthlyQuota is the platform spend
// allowed per tenant and calendar month.
func NewService(db *gorm.DB, logger *zap.Logger, pricing *PricingTable, monthlyQuota decimal.Decimal) *Service {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	if !monthlyQuota.IsPositive() {
		monthlyQuota = DefaultMonthlyQuota
	}
	return &Service{
		db:      db,
		logger:  logger,
		pricing: pricing,
		quota:   monthlyQuota,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ParseQuota reads the configured monthly quota, falling back to the default
func ParseQuota(s string) decimal.Decimal {
	q, err := decimal.NewFromString(s)
	if err != nil || !q.IsPositive() {
		return DefaultMonthlyQuota
	}
	return q
}

func (s *Service) Pricing() *PricingTable { return s.pricing }

// QuotaStatus describes a tenant's platform spend for the current month
type QuotaStatus struct {
	TenantID    uuid.UUID       `json:"tenant_id"`
	BYOK        bool            `json:"byok"`
	Allowed     bool            `json:"allowed"`
	SpentUSD    decimal.Decimal `json:"spent_usd"`
	LimitUSD    decimal.Decimal `json:"limit_usd"`
	Remaining   decimal.Decimal `json:"remaining_usd"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}

// MonthBounds returns the UTC calendar month containing t as [start, end)
func MonthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// CheckQuota reports whether the tenant may run more AI work. Tenants using
// their own key are never limited; everyone else may spend up to the
// monthly quota of platform cost.
func (s *Service) CheckQuota(ctx context.Context, tenantID uuid.UUID) (*QuotaStatus, error) {
	db := s.db.WithContext(ctx)
	if err := tenantExists(db, tenantID); err != nil {
		return nil, err
	}

	start, end := MonthBounds(s.now())
	status := &QuotaStatus{
		TenantID:    tenantID,
		LimitUSD:    s.quota,
		PeriodStart: start,
		PeriodEnd:   end,
	}

	spent, err := s.spend(db, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	status.SpentUSD = spent
	status.Remaining = decimal.Max(s.quota.Sub(spent), decimal.Zero)

	var cfg models.TenantAIConfig
	err = db.Where("tenant_id = ?", tenantID).First(&cfg).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil && cfg.IsBYOK() {
		status.BYOK = true
		status.Allowed = true
		return status, nil
	}

	status.Allowed = spent.LessThan(s.quota)
	if !status.Allowed {
		s.logger.Warn("Tenant exceeded AI quota",
			zap.String("tenant_id", tenantID.String()),
			zap.String("spent_usd", spent.StringFixed(2)),
		)
	}
	return status, nil
}

// EnsureQuota returns services.ErrQuotaExceeded when the tenant is over quota
func (s *Service) EnsureQuota(ctx context.Context, tenantID uuid.UUID) error {
	status, err := s.CheckQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return fmt.Errorf("monthly AI quota of %s USD used: %w", s.quota.StringFixed(2), services.ErrQuotaExceeded)
	}
	return nil
}

// MonthlySpend sums the cost of the tenant's executions in the current month
func (s *Service) MonthlySpend(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	start, end := MonthBounds(s.now())
	return s.spend(s.db.WithContext(ctx), tenantID, start, end)
}

func (s *Service) spend(db *gorm.DB, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.Model(&models.AgentExecutionLog{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("tenant_id = ? AND start_time >= ? AND start_time < ?", tenantID, from, to).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum execution cost: %w", err)
	}
	return total.Round(6), nil
}

func tenantExists(db *gorm.DB, tenantID uuid.UUID) error {
	var count int64
	if err := db.Model(&models.Tenant{}).Where("id = ?", tenantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("tenant %w", services.ErrNotFound)
	}
	return nil
}

// NodeExecution is one workflow node run to be recorded
type NodeExecution struct {
	TenantID     uuid.UUID
	VacancyID    *uuid.UUID
	WorkflowName string
	NodeName     string
	ModelName    string
	Input        map[string]any
	Output       map[string]any
	Usage        llm.Usage
	Status       models.ExecutionStatus
	Err          error
	StartTime    time.Time
	EndTime      time.Time
}

// LogNodeExecution prices and stores a node run. A missing tenant is logged
// and yields a nil log without error so a workflow is never failed by its
// own bookkeeping.
func (s *Service) LogNodeExecution(ctx context.Context, e NodeExecution) (*models.AgentExecutionLog, error) {
	db := s.db.WithContext(ctx)
	if err := tenantExists(db, e.TenantID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.logger.Error("Tenant not found for execution logging",
				zap.String("tenant_id", e.TenantID.String()),
				zap.String("node", e.NodeName),
			)
			return nil, nil
		}
		return nil, err
	}

	model := e.ModelName
	if model == "" {
		model = defaultLogModel
	}
	status := e.Status
	if status == "" {
		status = models.ExecutionSuccess
	}
	start := e.StartTime
	if start.IsZero() {
		start = s.now()
	}
	end := e.EndTime
	if end.IsZero() {
		end = s.now()
	}

	output := e.Output
	if e.Err != nil {
		if output == nil {
			output = map[string]any{}
		}
		output["error"] = e.Err.Error()
	}

	entry := &models.AgentExecutionLog{
		TenantID:        e.TenantID,
		VacancyID:       e.VacancyID,
		WorkflowName:    e.WorkflowName,
		NodeName:        e.NodeName,
		ModelName:       model,
		InputData:       e.Input,
		OutputData:      output,
		StartTime:       start.UTC(),
		EndTime:         &end,
		DurationSeconds: end.Sub(start).Seconds(),
		TokensInput:     e.Usage.PromptTokens,
		TokensOutput:    e.Usage.CompletionTokens,
		CostUSD:         s.pricing.Cost(model, e.Usage.PromptTokens, e.Usage.CompletionTokens),
		Status:          status,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to store execution log: %w", err)
	}
	return entry, nil
}

// SummaryRow aggregates executions of one node and model
type SummaryRow struct {
	NodeName     string          `json:"node_name"`
	ModelName    string          `json:"model_name"`
	Executions   int64           `json:"executions"`
	TokensInput  int64           `json:"tokens_input"`
	TokensOutput int64           `json:"tokens_output"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
}

type Summary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Rows         []SummaryRow    `json:"rows"`
	Executions   int64           `json:"executions"`
	TokensInput  int64           `json:"tokens_input"`
	TokensOutput int64           `json:"tokens_output"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
}

// Summary groups the tenant's executions in [from, to) by node and model.
// Zero bounds default to the current month.
func (s *Service) Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*Summary, error) {
	from, to = s.period(from, to)

	var rows []SummaryRow
	err := s.db.WithContext(ctx).Model(&models.AgentExecutionLog{}).
		Select("node_name, model_name, COUNT(*) AS executions, " +
			"COALESCE(SUM(tokens_input), 0) AS tokens_input, " +
			"COALESCE(SUM(tokens_output), 0) AS tokens_output, " +
			"COALESCE(SUM(cost_usd), 0) AS cost_usd").
		Where("tenant_id = ? AND start_time >= ? AND start_time < ?", tenantID, from, to).
		Group("node_name, model_name").
		Order("node_name, model_name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}

	summary := &Summary{From: from, To: to, Rows: rows, CostUSD: decimal.Zero}
	for i := range summary.Rows {
		r := &summary.Rows[i]
		r.CostUSD = r.CostUSD.Round(6)
		summary.Executions += r.Executions
		summary.TokensInput += r.TokensInput
		summary.TokensOutput += r.TokensOutput
		summary.CostUSD = summary.CostUSD.Add(r.CostUSD)
	}
	if summary.Rows == nil {
		summary.Rows = []SummaryRow{}
	}
	return summary, nil
}

func (s *Service) period(from, to time.Time) (time.Time, time.Time) {
	start, end := MonthBounds(s.now())
	if from.IsZero() {
		from = start
	}
	if to.IsZero() {
		to = end
	}
	return from.UTC(), to.UTC()
}

// ListLogs returns a page of the tenant's executions, newest first
func (s *Service) ListLogs(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]models.AgentExecutionLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.AgentExecutionLog{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AgentExecutionLog
	err := q.Order("start_time DESC").Scopes(database.Paginate(page, pageSize)).Find(&logs).Error
	return logs, total, err
}

// ExportLogs renders the executions in [from, to) as an XLSX workbook
func (s *Service) ExportLogs(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]byte, error) {
	db := s.db.WithContext(ctx)

	var tenant models.Tenant
	if err := db.First(&tenant, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tenant %w", services.ErrNotFound)
		}
		return nil, err
	}

	from, to = s.period(from, to)
	var logs []models.AgentExecutionLog
	err := db.Where("tenant_id = ? AND start_time >= ? AND start_time < ?", tenantID, from, to).
		Order("start_time ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	totals := export.UsageTotals{TenantName: tenant.Name, From: from, To: to, CostUSD: decimal.Zero}
	for _, l := range logs {
		totals.TokensInput += l.TokensInput
		totals.TokensOutput += l.TokensOutput
		totals.CostUSD = totals.CostUSD.Add(l.CostUSD)
	}
	return export.UsageLogs(logs, totals)
}
