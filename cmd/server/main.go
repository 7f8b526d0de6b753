package main

import (
	"fmt"
	"os"

	"recruitment-platform/config"
	"recruitment-platform/internal/database"
	"recruitment-platform/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Recruitment Platform API
// @version 1.0
// @description Multi-tenant recruitment backend with AI-assisted candidate sourcing

// @contact.name API Support
// @contact.email support@recruitment-platform.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var rootCmd = &cobra.Command{
	Use:   "recruitment-platform",
	Short: "Recruitment platform API server and maintenance tools",
	Long: `Runs the multi-tenant recruitment API.

Without a subcommand the HTTP server is started.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Init(config.Cfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := database.Connect(config.Cfg, logger.Logger); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := database.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
		logger.Close()
	},
	RunE: runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.AutoMigrate(); err != nil {
			return err
		}
		logger.Info("Database migration completed")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo owner, tenant and vacancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Cfg
		cfg.Dev.SeedData = true
		if err := database.AutoMigrate(); err != nil {
			return err
		}
		return database.SeedData(database.DB, cfg, logger.Logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, verifyVacancyFlowCmd, usageReportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
