package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/ai/usage"
	"recruitment-platform/internal/database"
	"recruitment-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportTenant string
	reportOut    string
	reportFrom   string
	reportTo     string
)

var usageReportCmd = &cobra.Command{
	Use:   "usage-report",
	Short: "Export a tenant's AI executions to an XLSX workbook",
	Example: `  recruitment-platform usage-report --tenant 6f1c... --out usage.xlsx
  recruitment-platform usage-report --tenant 6f1c... --from 2026-01-01 --to 2026-02-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, err := uuid.Parse(reportTenant)
		if err != nil {
			return fmt.Errorf("invalid --tenant %q: %w", reportTenant, err)
		}
		from, to, err := reportPeriod(reportFrom, reportTo)
		if err != nil {
			return err
		}

		cfg := config.Cfg
		pricing := usage.DefaultPricing()
		if cfg.AI.PricingFile != "" {
			if pricing, err = usage.LoadPricing(cfg.AI.PricingFile); err != nil {
				return err
			}
		}
		svc := usage.NewService(database.DB, logger.Logger, pricing, usage.ParseQuota(cfg.AI.MonthlyQuotaUSD))

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		return writeUsageReport(ctx, svc, tenantID, from, to, reportOut, cmd.OutOrStdout())
	},
}

func init() {
	usageReportCmd.Flags().StringVar(&reportTenant, "tenant", "", "tenant ID")
	usageReportCmd.Flags().StringVar(&reportOut, "out", "usage.xlsx", "output file")
	usageReportCmd.Flags().StringVar(&reportFrom, "from", "", "start date YYYY-MM-DD (default: start of this month)")
	usageReportCmd.Flags().StringVar(&reportTo, "to", "", "end date YYYY-MM-DD, exclusive (default: start of next month)")
	_ = usageReportCmd.MarkFlagRequired("tenant")
}

func reportPeriod(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse("2006-01-02", from); err != nil {
			return start, end, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse("2006-01-02", to); err != nil {
			return start, end, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return start, end, nil
}

func writeUsageReport(ctx context.Context, svc *usage.Service, tenantID uuid.UUID, from, to time.Time, path string, out io.Writer) error {
	summary, err := svc.Summary(ctx, tenantID, from, to)
	if err != nil {
		return err
	}
	data, err := svc.ExportLogs(ctx, tenantID, from, to)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Info("Usage report written",
		zap.String("tenant_id", tenantID.String()),
		zap.String("path", path),
		zap.Int64("executions", summary.Executions),
	)
	fmt.Fprintf(out, "%d executions, %s USD, %s to %s -> %s\n",
		summary.Executions,
		summary.CostUSD.StringFixed(4),
		summary.From.Format("2006-01-02"),
		summary.To.Format("2006-01-02"),
		path,
	)
	return nil
}
