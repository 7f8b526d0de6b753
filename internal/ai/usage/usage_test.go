package usage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"
	"recruitment-platform/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPricingLookup(t *testing.T) {
	table := DefaultPricing()

	tests := []struct {
		model string
		price Price
	}{
		{"gpt-4", price("0.03", "0.06")},
		{"GPT-4-0613", price("0.03", "0.06")},
		{"gpt-4o", price("0.005", "0.015")},
		{"gpt-4o-2024-08-06", price("0.005", "0.015")},
		{"gpt-3.5-turbo-16k", price("0.0005", "0.0015")},
		{"claude-3-opus-20240229", price("0.015", "0.075")},
		{"gemini-1.5-flash", price("0.005", "0.015")},
		{"", price("0.005", "0.015")},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := table.Lookup(tt.model)
			assert.True(t, tt.price.Input.Equal(got.Input), "input %s", got.Input)
			assert.True(t, tt.price.Output.Equal(got.Output), "output %s", got.Output)
		})
	}
}

func TestPriceCost(t *testing.T) {
	table := DefaultPricing()

	assert.Equal(t, "0.06", table.Cost("gpt-4", 1000, 500).String())
	assert.Equal(t, "0.0125", table.Cost("gpt-4o", 1000, 500).String())
	assert.Equal(t, "0.000002", table.Cost("gpt-3.5-turbo", 1, 1).StringFixed(6))
	assert.True(t, table.Cost("gpt-4o", 0, 0).IsZero())
}

func TestLoadPricing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default:
  input: 0.001
  output: 0.002
models:
  gpt-4o-mini:
    input: 0.00015
    output: 0.0006
  GPT-4:
    input: "0.02"
    output: "0.04"
`), 0644))

	table, err := LoadPricing(path)
	require.NoError(t, err)

	assert.Equal(t, "0.001", table.Default.Input.String())
	assert.Equal(t, "0.00015", table.Lookup("gpt-4o-mini-2024").Input.String())
	assert.Equal(t, "0.02", table.Lookup("gpt-4-turbo").Input.String())
	assert.Equal(t, "0.005", table.Lookup("gpt-4o").Input.String())

	defaults, err := LoadPricing("")
	require.NoError(t, err)
	assert.Len(t, defaults.Models, 4)

	_, err = LoadPricing(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestParseQuota(t *testing.T) {
	assert.Equal(t, "35.5", ParseQuota("35.5").String())
	assert.True(t, DefaultMonthlyQuota.Equal(ParseQuota("")))
	assert.True(t, DefaultMonthlyQuota.Equal(ParseQuota("-3")))
}

type fixture struct {
	tc     *testutil.TestContext
	svc    *Service
	tenant *models.Tenant
	now    time.Time
}

func setup(t *testing.T) *fixture {
	tc := testutil.SetupTestContext(t)
	svc := NewService(tc.DB, zap.NewNop(), DefaultPricing(), dec("20.00"))
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{
		tc:     tc,
		svc:    svc,
		tenant: testutil.CreateTestTenant(t, tc.DB, 5),
		now:    now,
	}
}

func (f *fixture) addLog(t *testing.T, start time.Time, cost string) {
	t.Helper()
	require.NoError(t, f.tc.DB.Create(&models.AgentExecutionLog{
		TenantID:     f.tenant.ID,
		WorkflowName: "sourcing",
		NodeName:     "analyst",
		ModelName:    "gpt-4o",
		StartTime:    start,
		CostUSD:      dec(cost),
		Status:       models.ExecutionSuccess,
	}).Error)
}

func TestCheckQuota_CurrentMonthOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.addLog(t, time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC), "50.00")
	f.addLog(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "12.50")
	f.addLog(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), "7.25")

	status, err := f.svc.CheckQuota(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.False(t, status.BYOK)
	assert.Equal(t, "19.75", status.SpentUSD.String())
	assert.Equal(t, "0.25", status.Remaining.String())
	assert.NoError(t, f.svc.EnsureQuota(ctx, f.tenant.ID))

	f.addLog(t, time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC), "0.25")
	status, err = f.svc.CheckQuota(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.True(t, status.Remaining.IsZero())

	err = f.svc.EnsureQuota(ctx, f.tenant.ID)
	assert.ErrorIs(t, err, services.ErrQuotaExceeded)
}

func TestCheckQuota_BYOKExempt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addLog(t, f.now.Add(-time.Hour), "99.00")

	cfg := &models.TenantAIConfig{
		TenantID:  f.tenant.ID,
		Provider:  models.AIProviderClaude,
		APIKey:    "sk-ant-tenant-key",
		ModelName: "claude-3-opus",
		IsActive:  true,
	}
	require.NoError(t, f.tc.DB.Create(cfg).Error)

	status, err := f.svc.CheckQuota(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.True(t, status.BYOK)
	assert.True(t, status.Allowed)

	require.NoError(t, f.tc.DB.Model(cfg).Update("is_active", false).Error)
	status, err = f.svc.CheckQuota(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.False(t, status.BYOK)
	assert.False(t, status.Allowed)
}

func TestCheckQuota_UnknownTenant(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CheckQuota(context.Background(), uuid.New())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestLogNodeExecution(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := f.now.Add(-2 * time.Second)

	entry, err := f.svc.LogNodeExecution(ctx, NodeExecution{
		TenantID:     f.tenant.ID,
		WorkflowName: "sourcing",
		NodeName:     "analyst",
		ModelName:    "gpt-4",
		Input:        map[string]any{"context": map[string]any{"title": "Go Developer"}},
		Output:       map[string]any{"content": "analysis"},
		Usage:        llm.Usage{PromptTokens: 1000, CompletionTokens: 500},
		Status:       models.ExecutionSuccess,
		StartTime:    start,
	})
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "0.06", entry.CostUSD.String())
	assert.Equal(t, 1500, entry.TotalTokens())
	assert.InDelta(t, 2.0, entry.DurationSeconds, 0.001)

	var stored models.AgentExecutionLog
	require.NoError(t, f.tc.DB.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, "analysis", stored.OutputData["content"])
	assert.True(t, dec("0.06").Equal(stored.CostUSD.Round(6)))
}

func TestLogNodeExecution_FailureAndDefaults(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	entry, err := f.svc.LogNodeExecution(ctx, NodeExecution{
		TenantID:     f.tenant.ID,
		WorkflowName: "sourcing",
		NodeName:     "sourcer",
		Input:        map[string]any{"context": map[string]any{}},
		Status:       models.ExecutionFailed,
		Err:          errors.New("rate limited"),
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", entry.ModelName)
	assert.Equal(t, map[string]any{"error": "rate limited"}, entry.OutputData)
	assert.True(t, entry.CostUSD.IsZero())

	missing, err := f.svc.LogNodeExecution(ctx, NodeExecution{TenantID: uuid.New(), NodeName: "analyst"})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSummaryAndExport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, e := range []NodeExecution{
		{NodeName: "analyst", ModelName: "gpt-4o", Usage: llm.Usage{PromptTokens: 1000, CompletionTokens: 500}},
		{NodeName: "analyst", ModelName: "gpt-4o", Usage: llm.Usage{PromptTokens: 2000, CompletionTokens: 0}},
		{NodeName: "sourcer", ModelName: "gpt-4", Usage: llm.Usage{PromptTokens: 1000, CompletionTokens: 1000}},
	} {
		e.TenantID = f.tenant.ID
		e.WorkflowName = "sourcing"
		e.StartTime = f.now.Add(-time.Minute)
		_, err := f.svc.LogNodeExecution(ctx, e)
		require.NoError(t, err)
	}

	summary, err := f.svc.Summary(ctx, f.tenant.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)

	assert.Equal(t, "analyst", summary.Rows[0].NodeName)
	assert.Equal(t, int64(2), summary.Rows[0].Executions)
	assert.Equal(t, int64(3000), summary.Rows[0].TokensInput)
	assert.Equal(t, "0.0225", summary.Rows[0].CostUSD.String())
	assert.Equal(t, "0.09", summary.Rows[1].CostUSD.String())
	assert.Equal(t, int64(3), summary.Executions)
	assert.Equal(t, "0.1125", summary.CostUSD.String())

	spend, err := f.svc.MonthlySpend(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.1125", spend.String())

	logs, total, err := f.svc.ListLogs(ctx, f.tenant.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 2)

	data, err := f.svc.ExportLogs(ctx, f.tenant.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = f.svc.ExportLogs(ctx, uuid.New(), time.Time{}, time.Time{})
	assert.ErrorIs(t, err, services.ErrNotFound)
}
