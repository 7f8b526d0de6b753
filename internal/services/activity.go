package services

import (
	"context"

	"recruitment-platform/internal/database"
	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityService writes and reads the tenant audit trail. Recording never
// fails the calling operation.
type ActivityService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewActivityService creates a new activity service
func NewActivityService(db *gorm.DB, logger *zap.Logger) *ActivityService {
	return &ActivityService{db: db, logger: logger}
}

// Record persists a; failures are logged and swallowed
func (s *ActivityService) Record(ctx context.Context, a *models.Activity) {
	if s == nil || a == nil {
		return
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		s.logger.Warn("Failed to record activity",
			zap.String("type", string(a.Type)),
			zap.Error(err),
		)
	}
}

// ListForVacancy returns the newest activities of a vacancy first
func (s *ActivityService) ListForVacancy(ctx context.Context, tenantID, vacancyID uuid.UUID, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND vacancy_id = ?", tenantID, vacancyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// ListForTenant pages through a tenant's activities
func (s *ActivityService) ListForTenant(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]models.Activity, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Activity{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var activities []models.Activity
	err := q.Order("created_at DESC").Scopes(database.Paginate(page, pageSize)).Find(&activities).Error
	return activities, total, err
}
