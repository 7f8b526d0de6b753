package database

import (
	"errors"
	"fmt"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedData creates a demo tenant with an owner and one published vacancy.
// It is a no-op when seeding is disabled or the owner already exists.
func SeedData(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if !cfg.Dev.SeedData {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", cfg.Admin.Email).First(&existing).Error
	if err == nil {
		log.Info("Seed owner already exists, skipping seed data", zap.String("email", cfg.Admin.Email))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up seed owner: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		owner := &models.User{
			Username:        cfg.Admin.Username,
			Email:           cfg.Admin.Email,
			Password:        cfg.Admin.Password,
			FirstName:       "Demo",
			LastName:        "Owner",
			IsActive:        true,
			IsEmailVerified: true,
		}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("failed to create seed owner: %w", err)
		}

		tenant := &models.Tenant{
			Name:     cfg.Admin.Company,
			Slug:     "demo-company",
			Plan:     models.PlanPro,
			IsActive: true,
			MaxUsers: 10,
		}
		if err := tx.Create(tenant).Error; err != nil {
			return fmt.Errorf("failed to create seed tenant: %w", err)
		}

		membership := &models.TenantMembership{
			TenantID: tenant.ID,
			UserID:   owner.ID,
			Role:     models.TenantRoleOwner,
			IsActive: true,
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("failed to create seed membership: %w", err)
		}

		salaryMin, salaryMax := 60000.0, 85000.0
		vacancy := &models.JobVacancy{
			TenantID:     tenant.ID,
			Title:        "Senior Go Engineer",
			Description:  "Build and operate the services behind our hiring platform.",
			Requirements: "go, postgresql, kubernetes, grpc",
			Location:     "Remote",
			IsRemote:     true,
			SalaryMin:    &salaryMin,
			SalaryMax:    &salaryMax,
			CreatedByID:  &owner.ID,
			Status:       models.JobStatusPublished,
		}
		if err := tx.Create(vacancy).Error; err != nil {
			return fmt.Errorf("failed to create seed vacancy: %w", err)
		}

		if err := tx.Create(models.TenantCreatedActivity(tenant, owner.ID)).Error; err != nil {
			log.Warn("Failed to record seed activity", zap.Error(err))
		}

		log.Info("Seed data created",
			zap.String("owner", owner.Email),
			zap.String("tenant", tenant.Slug),
			zap.String("vacancy", vacancy.Title),
			zap.Time("at", time.Now().UTC()),
		)
		return nil
	})
}
