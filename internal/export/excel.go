// Package export builds XLSX workbooks for vacancy applications and AI
// usage logs.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recruitment-platform/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	applicationsSheet = "Applications"
	usageSheet        = "Usage"
	summarySheet      = "Summary"
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// Applications renders a vacancy's applications. Candidates must be preloaded.
func Applications(vacancy *models.JobVacancy, apps []models.Application) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", applicationsSheet)

	headers := []interface{}{"Candidate", "Email", "Status", "Source", "Score", "Years", "Skills", "Applied At"}
	if err := writeHeader(f, applicationsSheet, headers); err != nil {
		return nil, err
	}
	setColWidths(f, applicationsSheet, []float64{25, 30, 12, 12, 10, 8, 40, 20})

	styles, err := scoreStyles(f)
	if err != nil {
		return nil, err
	}

	for i, app := range apps {
		row := i + 2
		var name, email, skills string
		var years int
		if app.Candidate != nil {
			name = app.Candidate.FullName()
			email = app.Candidate.Email
			skills = strings.Join(app.Candidate.Skills, ", ")
			years = app.Candidate.YearsExperience
		}

		var score interface{} = ""
		if app.Score != nil {
			score = *app.Score
		}

		values := []interface{}{name, email, string(app.Status), string(app.Source), score, years, skills, app.AppliedAt.UTC().Format("2006-01-02 15:04:05")}
		if err := setRow(f, applicationsSheet, row, values); err != nil {
			return nil, err
		}
		if app.Score != nil {
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			f.SetCellStyle(applicationsSheet, fmt.Sprintf("A%d", row), last, styles.forScore(*app.Score))
		}
	}

	freezeHeader(f, applicationsSheet)
	if len(apps) > 0 {
		f.AutoFilter(applicationsSheet, fmt.Sprintf("A1:H%d", len(apps)+1), []excelize.AutoFilterOptions{})
	}

	if vacancy != nil {
		f.NewSheet(summarySheet)
		summary := [][]interface{}{
			{"Vacancy", vacancy.Title},
			{"Status", string(vacancy.Status)},
			{"Applications", len(apps)},
			{"Generated", time.Now().UTC().Format("2006-01-02 15:04:05")},
		}
		if err := writeSummary(f, summary); err != nil {
			return nil, err
		}
	}

	return toBytes(f)
}

// UsageTotals is the footer of a usage workbook
type UsageTotals struct {
	TenantName   string
	From, To     time.Time
	TokensInput  int
	TokensOutput int
	CostUSD      decimal.Decimal
}

// UsageLogs renders execution logs with one row per node run
func UsageLogs(logs []models.AgentExecutionLog, totals UsageTotals) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", usageSheet)

	headers := []interface{}{"Start Time", "Workflow", "Node", "Model", "Status", "Duration (s)", "Tokens In", "Tokens Out", "Cost (USD)"}
	if err := writeHeader(f, usageSheet, headers); err != nil {
		return nil, err
	}
	setColWidths(f, usageSheet, []float64{20, 20, 14, 22, 10, 12, 10, 10, 12})

	failedStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Border: thinBorder,
	})
	if err != nil {
		return nil, err
	}

	for i, l := range logs {
		row := i + 2
		cost, _ := l.CostUSD.Float64()
		values := []interface{}{
			l.StartTime.UTC().Format("2006-01-02 15:04:05"),
			l.WorkflowName,
			l.NodeName,
			l.ModelName,
			string(l.Status),
			l.DurationSeconds,
			l.TokensInput,
			l.TokensOutput,
			cost,
		}
		if err := setRow(f, usageSheet, row, values); err != nil {
			return nil, err
		}
		if l.Status == models.ExecutionFailed {
			f.SetCellStyle(usageSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), failedStyle)
		}
	}
	freezeHeader(f, usageSheet)

	f.NewSheet(summarySheet)
	totalCost, _ := totals.CostUSD.Float64()
	summary := [][]interface{}{
		{"Tenant", totals.TenantName},
		{"From", formatDate(totals.From)},
		{"To", formatDate(totals.To)},
		{"Executions", len(logs)},
		{"Tokens In", totals.TokensInput},
		{"Tokens Out", totals.TokensOutput},
		{"Total Cost (USD)", totalCost},
	}
	if err := writeSummary(f, summary); err != nil {
		return nil, err
	}

	return toBytes(f)
}

// SaveFile writes a workbook to disk, adding the .xlsx extension when missing
func SaveFile(data []byte, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return outputPath, nil
}

type rowStyles struct {
	strong, partial, weak int
}

func (s rowStyles) forScore(score float64) int {
	switch {
	case score >= 70:
		return s.strong
	case score >= 40:
		return s.partial
	}
	return s.weak
}

func scoreStyles(f *excelize.File) (rowStyles, error) {
	var s rowStyles
	var err error
	fill := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder,
		})
	}
	if s.strong, err = fill("C6EFCE"); err != nil {
		return s, err
	}
	if s.partial, err = fill("FFEB9C"); err != nil {
		return s, err
	}
	if s.weak, err = fill("FFC7CE"); err != nil {
		return s, err
	}
	return s, nil
}

func writeHeader(f *excelize.File, sheet string, headers []interface{}) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func writeSummary(f *excelize.File, rows [][]interface{}) error {
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "B", 40)

	for i, values := range rows {
		if err := setRow(f, summarySheet, i+1, values); err != nil {
			return err
		}
		cell := fmt.Sprintf("A%d", i+1)
		f.SetCellStyle(summarySheet, cell, cell, labelStyle)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func setColWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

func freezeHeader(f *excelize.File, sheet string) {
	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func toBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
