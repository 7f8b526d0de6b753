package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recruitment-platform/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestApplications(t *testing.T) {
	score := 66.67
	apps := []models.Application{
		{
			Status:    models.CandidateStatusScreening,
			Source:    models.SourceLinkedIn,
			Score:     &score,
			AppliedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
			Candidate: &models.Candidate{
				FirstName:       "Jane",
				LastName:        "Smith",
				Email:           "jane@example.com",
				Skills:          []string{"go", "docker"},
				YearsExperience: 6,
			},
		},
		{
			Status:    models.CandidateStatusNew,
			Source:    models.SourceWebsite,
			AppliedAt: time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
			Candidate: &models.Candidate{FirstName: "Bob", Email: "bob@example.com"},
		},
	}
	vacancy := &models.JobVacancy{Title: "Go Developer", Status: models.JobStatusPublished}

	data, err := Applications(vacancy, apps)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	rows, err := f.GetRows(applicationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Candidate", rows[0][0])
	assert.Equal(t, "Jane Smith", rows[1][0])
	assert.Equal(t, "jane@example.com", rows[1][1])
	assert.Equal(t, "screening", rows[1][2])
	assert.Equal(t, "66.67", rows[1][4])
	assert.Equal(t, "go, docker", rows[1][6])
	assert.Equal(t, "2025-03-01 09:30:00", rows[1][7])
	assert.Equal(t, "Bob", rows[2][0])
	assert.Equal(t, "", rows[2][4])

	title, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Go Developer", title)
}

func TestApplications_Empty(t *testing.T) {
	data, err := Applications(nil, nil)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	rows, err := f.GetRows(applicationsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	idx, err := f.GetSheetIndex(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestUsageLogs(t *testing.T) {
	start := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	logs := []models.AgentExecutionLog{
		{
			StartTime:       start,
			WorkflowName:    "sourcing",
			NodeName:        "analyst",
			ModelName:       "gpt-4o",
			Status:          models.ExecutionSuccess,
			DurationSeconds: 1.5,
			TokensInput:     1000,
			TokensOutput:    500,
			CostUSD:         decimal.RequireFromString("0.0125"),
		},
		{
			StartTime:    start.Add(time.Minute),
			WorkflowName: "sourcing",
			NodeName:     "sourcer",
			Status:       models.ExecutionFailed,
			CostUSD:      decimal.Zero,
		},
	}

	data, err := UsageLogs(logs, UsageTotals{
		TenantName:   "Acme",
		From:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		TokensInput:  1000,
		TokensOutput: 500,
		CostUSD:      decimal.RequireFromString("0.0125"),
	})
	require.NoError(t, err)

	f := openWorkbook(t, data)
	rows, err := f.GetRows(usageSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "analyst", rows[1][2])
	assert.Equal(t, "1000", rows[1][6])
	assert.Equal(t, "0.0125", rows[1][8])
	assert.Equal(t, "failed", rows[2][4])

	tenant, _ := f.GetCellValue(summarySheet, "B1")
	from, _ := f.GetCellValue(summarySheet, "B2")
	to, _ := f.GetCellValue(summarySheet, "B3")
	assert.Equal(t, "Acme", tenant)
	assert.Equal(t, "2025-03-01", from)
	assert.Equal(t, "", to)
}

func TestSaveFile_AddsExtension(t *testing.T) {
	data, err := Applications(nil, nil)
	require.NoError(t, err)

	path, err := SaveFile(data, filepath.Join(t.TempDir(), "report"))
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	_, err = os.Stat(path)
	assert.NoError(t, err)

	kept, err := SaveFile(data, filepath.Join(t.TempDir(), "report.XLSX"))
	require.NoError(t, err)
	assert.Equal(t, ".XLSX", filepath.Ext(kept))
}
