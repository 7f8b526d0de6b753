package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/ai/usage"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/server"
	"recruitment-platform/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed", "verify-vacancy-flow", "usage-report"} {
		assert.True(t, names[want], want)
	}

	flag := usageReportCmd.Flags().Lookup("tenant")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
}

func TestVerifyVacancyFlow(t *testing.T) {
	tc := testutil.SetupTestContext(t)
	svc, err := server.NewServices(tc.Config, tc.Logger, tc.DB, tc.JWTService, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, verifyVacancyFlow(context.Background(), svc, &out))

	assert.Contains(t, out.String(), "draft    linkedin")
	assert.Contains(t, out.String(), "posted   twitter")
	assert.Contains(t, out.String(), "vacancy flow OK")

	testutil.AssertRecordCount(t, tc.DB, &models.VacancySocialPost{}, 2, "status = ?", models.SocialPostPublished)
	testutil.AssertRecordCount(t, tc.DB, &models.JobVacancy{}, 1, "status = ?", models.JobStatusPublished)
}

func TestReportPeriod(t *testing.T) {
	from, to, err := reportPeriod("2026-01-01", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, err = reportPeriod("", "")
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = reportPeriod("January", "")
	assert.Error(t, err)
}

func TestWriteUsageReport(t *testing.T) {
	tc := testutil.SetupTestContext(t)
	tenant := testutil.CreateTestTenant(t, tc.DB, 5)
	svc := usage.NewService(tc.DB, tc.Logger, usage.DefaultPricing(), decimal.RequireFromString("20"))

	ctx := context.Background()
	now := time.Now().UTC()
	for _, node := range []string{"analyst", "sourcer"} {
		_, err := svc.LogNodeExecution(ctx, usage.NodeExecution{
			TenantID:     tenant.ID,
			WorkflowName: "sourcing",
			NodeName:     node,
			ModelName:    "gpt-4o",
			Usage:        llm.Usage{PromptTokens: 1000, CompletionTokens: 200},
			Status:       models.ExecutionSuccess,
			StartTime:    now,
			EndTime:      now.Add(time.Second),
		})
		require.NoError(t, err)
	}

	path := filepath.Join(tc.TempDir, "usage.xlsx")
	var out bytes.Buffer
	require.NoError(t, writeUsageReport(ctx, svc, tenant.ID, time.Time{}, time.Time{}, path, &out))
	assert.Contains(t, out.String(), "2 executions")

	_, err := os.Stat(path)
	require.NoError(t, err)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())

	err = writeUsageReport(ctx, svc, uuid.New(), time.Time{}, time.Time{}, filepath.Join(tc.TempDir, "missing.xlsx"), &out)
	assert.Error(t, err)
}
