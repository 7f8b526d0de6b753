package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open opens a database handle for the configured driver without touching
// the package-level DB.
func Open(cfg *config.Config, zapLogger *zap.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		zap.NewStdLog(zapLogger.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(cfg.Log.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error

	switch cfg.Database.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.GetDSN()), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		zapLogger.Info("Connected to PostgreSQL database")

	case "sqlite":
		if err := ensureDir(filepath.Dir(cfg.Database.SQLitePath)); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}

		db, err = gorm.Open(sqlite.Open(cfg.Database.SQLitePath), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
			return nil, fmt.Errorf("failed to enable SQLite foreign keys: %w", err)
		}

		zapLogger.Info("Connected to SQLite database", zap.String("path", cfg.Database.SQLitePath))

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	return db, nil
}

// Connect opens the database, stores it in DB and migrates when enabled
func Connect(cfg *config.Config, zapLogger *zap.Logger) error {
	db, err := Open(cfg, zapLogger)
	if err != nil {
		return err
	}

	DB = db

	if cfg.Dev.AutoMigrate {
		if err := Migrate(db); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		zapLogger.Info("Database auto-migration completed")
	}

	return nil
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tenant{},
		&models.TenantMembership{},
		&models.TenantAIConfig{},
		&models.RefreshToken{},
		&models.JobVacancy{},
		&models.VacancySocialPost{},
		&models.Candidate{},
		&models.Application{},
		&models.AgentExecutionLog{},
		&models.Activity{},
	}
}

// Migrate creates or updates the schema on db
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return createCustomIndexes(db)
}

// AutoMigrate migrates the package-level DB
func AutoMigrate() error {
	return Migrate(DB)
}

func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_activities_vacancy_created_at ON activities(vacancy_id, created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_applications_vacancy_status ON applications(vacancy_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_job_vacancies_tenant_status ON job_vacancies(tenant_id, status);",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index %q: %w", indexSQL, err)
		}
	}

	return nil
}

// Close closes the package-level connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// IsHealthy pings db
func IsHealthy(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// GetStats returns connection pool statistics
func GetStats(db *gorm.DB) map[string]interface{} {
	if db == nil {
		return map[string]interface{}{
			"status": "not_initialized",
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"status":           "connected",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open_conns":   stats.MaxOpenConnections,
		"wait_count":       stats.WaitCount,
		"wait_duration":    stats.WaitDuration.String(),
	}
}

// Paginate creates a pagination scope for GORM queries
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, pageSize = normalizePage(page, pageSize)
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CalculatePagination calculates pagination info
func CalculatePagination(page, pageSize int, total int64) PaginationInfo {
	page, pageSize = normalizePage(page, pageSize)
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return PaginationInfo{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func getLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "debug", "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
