package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruitment-platform/internal/database"
	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VacancyService manages job vacancies and their social posts
type VacancyService struct {
	db         *gorm.DB
	logger     *zap.Logger
	activities *ActivityService
}

// NewVacancyService creates a new vacancy service
func NewVacancyService(db *gorm.DB, logger *zap.Logger, activities *ActivityService) *VacancyService {
	return &VacancyService{db: db, logger: logger, activities: activities}
}

type VacancyInput struct {
	Title                string               `json:"title" binding:"required"`
	Description          string               `json:"description" binding:"required"`
	Requirements         string               `json:"requirements"`
	Location             string               `json:"location"`
	SalaryMin            *float64             `json:"salary_min"`
	SalaryMax            *float64             `json:"salary_max"`
	Currency             string               `json:"currency"`
	IsRemote             bool                 `json:"is_remote"`
	InterviewMode        models.InterviewMode `json:"interview_mode"`
	ManualInterviewGuide string               `json:"manual_interview_guide"`
}

type UpdateVacancyInput struct {
	Title                *string               `json:"title"`
	Description          *string               `json:"description"`
	Requirements         *string               `json:"requirements"`
	Location             *string               `json:"location"`
	SalaryMin            *float64              `json:"salary_min"`
	SalaryMax            *float64              `json:"salary_max"`
	Currency             *string               `json:"currency"`
	IsRemote             *bool                 `json:"is_remote"`
	InterviewMode        *models.InterviewMode `json:"interview_mode"`
	ManualInterviewGuide *string               `json:"manual_interview_guide"`
}

func validInterviewMode(m models.InterviewMode) bool {
	return m == models.InterviewModeAuto || m == models.InterviewModeManual
}

// Create adds a draft vacancy to the tenant
func (s *VacancyService) Create(ctx context.Context, tenantID, createdBy uuid.UUID, in VacancyInput) (*models.JobVacancy, error) {
	db := s.db.WithContext(ctx)
	if _, err := findTenant(db, tenantID); err != nil {
		return nil, err
	}

	v := &models.JobVacancy{
		TenantID:             tenantID,
		Title:                strings.TrimSpace(in.Title),
		Description:          strings.TrimSpace(in.Description),
		Requirements:         strings.TrimSpace(in.Requirements),
		Location:             strings.TrimSpace(in.Location),
		SalaryMin:            in.SalaryMin,
		SalaryMax:            in.SalaryMax,
		Currency:             strings.ToUpper(strings.TrimSpace(in.Currency)),
		IsRemote:             in.IsRemote,
		InterviewMode:        in.InterviewMode,
		ManualInterviewGuide: in.ManualInterviewGuide,
		Status:               models.JobStatusDraft,
	}
	if createdBy != uuid.Nil {
		v.CreatedByID = &createdBy
	}
	if err := validateVacancy(v); err != nil {
		return nil, err
	}

	if err := db.Create(v).Error; err != nil {
		return nil, fmt.Errorf("failed to create vacancy: %w", err)
	}

	s.activities.Record(ctx, models.VacancyStatusActivity(models.ActivityTypeVacancyCreated, v, createdBy))
	return v, nil
}

func validateVacancy(v *models.JobVacancy) error {
	if v.Title == "" {
		return invalid("title", "is required")
	}
	if v.Description == "" {
		return invalid("description", "is required")
	}
	if !v.SalaryRangeValid() {
		return invalid("salary_min", "must not exceed salary_max")
	}
	if v.InterviewMode != "" && !validInterviewMode(v.InterviewMode) {
		return invalid("interview_mode", "unknown mode %q", v.InterviewMode)
	}
	return nil
}

// Get returns a vacancy of the tenant
func (s *VacancyService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.JobVacancy, error) {
	return findVacancy(s.db.WithContext(ctx), "id = ? AND tenant_id = ?", id, tenantID)
}

// GetPublic returns a published vacancy regardless of tenant
func (s *VacancyService) GetPublic(ctx context.Context, id uuid.UUID) (*models.JobVacancy, error) {
	return findVacancy(s.db.WithContext(ctx), "id = ? AND status = ?", id, models.JobStatusPublished)
}

func findVacancy(tx *gorm.DB, query string, args ...interface{}) (*models.JobVacancy, error) {
	var v models.JobVacancy
	if err := tx.Where(query, args...).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("vacancy")
		}
		return nil, err
	}
	return &v, nil
}

// List pages through a tenant's vacancies, optionally by status
func (s *VacancyService) List(ctx context.Context, tenantID uuid.UUID, status models.JobStatus, page, pageSize int) ([]models.JobVacancy, int64, error) {
	if status != "" && !status.IsValid() {
		return nil, 0, invalid("status", "unknown status %q", status)
	}

	q := s.db.WithContext(ctx).Model(&models.JobVacancy{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vacancies []models.JobVacancy
	err := q.Order("created_at DESC").Scopes(database.Paginate(page, pageSize)).Find(&vacancies).Error
	return vacancies, total, err
}

// ListPublished returns published vacancies, of one tenant when given
func (s *VacancyService) ListPublished(ctx context.Context, tenantID *uuid.UUID) ([]models.JobVacancy, error) {
	q := s.db.WithContext(ctx).Where("status = ?", models.JobStatusPublished)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}

	var vacancies []models.JobVacancy
	err := q.Order("created_at DESC").Find(&vacancies).Error
	return vacancies, err
}

// Update changes a vacancy's fields
func (s *VacancyService) Update(ctx context.Context, tenantID, id uuid.UUID, in UpdateVacancyInput) (*models.JobVacancy, error) {
	db := s.db.WithContext(ctx)
	v, err := findVacancy(db, "id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		v.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
	}
	if in.Requirements != nil {
		v.Requirements = strings.TrimSpace(*in.Requirements)
	}
	if in.Location != nil {
		v.Location = strings.TrimSpace(*in.Location)
	}
	if in.SalaryMin != nil {
		v.SalaryMin = in.SalaryMin
	}
	if in.SalaryMax != nil {
		v.SalaryMax = in.SalaryMax
	}
	if in.Currency != nil {
		v.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.IsRemote != nil {
		v.IsRemote = *in.IsRemote
	}
	if in.InterviewMode != nil {
		v.InterviewMode = *in.InterviewMode
	}
	if in.ManualInterviewGuide != nil {
		v.ManualInterviewGuide = *in.ManualInterviewGuide
	}
	if err := validateVacancy(v); err != nil {
		return nil, err
	}

	if err := db.Save(v).Error; err != nil {
		return nil, fmt.Errorf("failed to update vacancy: %w", err)
	}
	return v, nil
}

// Publish opens the vacancy and publishes every social post it has
func (s *VacancyService) Publish(ctx context.Context, tenantID, id, actorID uuid.UUID) (*models.JobVacancy, error) {
	var v *models.JobVacancy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		v, err = findVacancy(tx, "id = ? AND tenant_id = ?", id, tenantID)
		if err != nil {
			return err
		}
		if v.Status == models.JobStatusArchived {
			return invalid("status", "archived vacancies cannot be published")
		}

		v.Publish()
		if err := tx.Model(v).Update("status", v.Status).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		return tx.Model(&models.VacancySocialPost{}).
			Where("vacancy_id = ?", v.ID).
			Updates(map[string]interface{}{"status": models.SocialPostPublished, "posted_at": now}).Error
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.VacancyStatusActivity(models.ActivityTypeVacancyPublished, v, actorID))
	s.logger.Info("Vacancy published", zap.String("vacancy_id", id.String()))
	return v, nil
}

// Close stops accepting applications
func (s *VacancyService) Close(ctx context.Context, tenantID, id, actorID uuid.UUID) (*models.JobVacancy, error) {
	db := s.db.WithContext(ctx)
	v, err := findVacancy(db, "id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return nil, err
	}

	v.Close(time.Now().UTC())
	if err := db.Model(v).Updates(map[string]interface{}{"status": v.Status, "closed_at": v.ClosedAt}).Error; err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.VacancyStatusActivity(models.ActivityTypeVacancyClosed, v, actorID))
	return v, nil
}

// Archive moves a vacancy to archived
func (s *VacancyService) Archive(ctx context.Context, tenantID, id uuid.UUID) (*models.JobVacancy, error) {
	db := s.db.WithContext(ctx)
	v, err := findVacancy(db, "id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return nil, err
	}

	v.Status = models.JobStatusArchived
	if err := db.Model(v).Update("status", v.Status).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the vacancy with its posts and applications
func (s *VacancyService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := findVacancy(tx, "id = ? AND tenant_id = ?", id, tenantID)
		if err != nil {
			return err
		}
		if err := tx.Where("vacancy_id = ?", v.ID).Delete(&models.VacancySocialPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vacancy_id = ?", v.ID).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		return tx.Delete(v).Error
	})
}

// GenerateSocialPreviews writes one draft post per platform, replacing the
// content of existing posts.
func (s *VacancyService) GenerateSocialPreviews(ctx context.Context, tenantID, id uuid.UUID, platforms []models.SocialPlatform) ([]models.VacancySocialPost, error) {
	if len(platforms) == 0 {
		return nil, invalid("platforms", "at least one platform is required")
	}
	for _, p := range platforms {
		if !p.IsValid() {
			return nil, invalid("platforms", "unknown platform %q", p)
		}
	}

	var posts []models.VacancySocialPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := findVacancy(tx, "id = ? AND tenant_id = ?", id, tenantID)
		if err != nil {
			return err
		}

		seen := map[models.SocialPlatform]bool{}
		for _, platform := range platforms {
			if seen[platform] {
				continue
			}
			seen[platform] = true

			var post models.VacancySocialPost
			err := tx.Where("vacancy_id = ? AND platform = ?", v.ID, platform).First(&post).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			post.VacancyID = v.ID
			post.Platform = platform
			post.Content = RenderSocialPost(v, platform)
			post.Status = models.SocialPostDraft
			post.PostedAt = nil
			if err := tx.Save(&post).Error; err != nil {
				return fmt.Errorf("failed to save %s preview: %w", platform, err)
			}
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListSocialPosts returns the vacancy's posts
func (s *VacancyService) ListSocialPosts(ctx context.Context, tenantID, id uuid.UUID) ([]models.VacancySocialPost, error) {
	db := s.db.WithContext(ctx)
	if _, err := findVacancy(db, "id = ? AND tenant_id = ?", id, tenantID); err != nil {
		return nil, err
	}

	var posts []models.VacancySocialPost
	err := db.Where("vacancy_id = ?", id).Order("platform ASC").Find(&posts).Error
	return posts, err
}

// twitterLimit counts characters, not bytes
const twitterLimit = 280

// RenderSocialPost renders the announcement text of v for platform
func RenderSocialPost(v *models.JobVacancy, platform models.SocialPlatform) string {
	where := v.Location
	if v.IsRemote {
		if where == "" {
			where = "Remote"
		} else {
			where += " / Remote"
		}
	}

	switch platform {
	case models.SocialPlatformTwitter:
		text := fmt.Sprintf("We're hiring: %s", v.Title)
		if where != "" {
			text += " (" + where + ")"
		}
		text += " #hiring #jobs"
		if r := []rune(text); len(r) > twitterLimit {
			text = string(r[:twitterLimit-3]) + "..."
		}
		return text

	case models.SocialPlatformInstagram:
		return fmt.Sprintf("Now hiring: %s\n\n%s\n\nLink in bio. #hiring #careers #jobs", v.Title, firstLine(v.Description))

	case models.SocialPlatformFacebook:
		text := fmt.Sprintf("Join our team as %s!\n\n%s", v.Title, v.Description)
		if where != "" {
			text += "\n\nLocation: " + where
		}
		return text

	default:
		var b strings.Builder
		fmt.Fprintf(&b, "We're hiring a %s\n\n%s\n", v.Title, v.Description)
		if v.Requirements != "" {
			fmt.Fprintf(&b, "\nWhat we're looking for: %s\n", v.Requirements)
		}
		if where != "" {
			fmt.Fprintf(&b, "Location: %s\n", where)
		}
		if v.SalaryMin != nil && v.SalaryMax != nil {
			fmt.Fprintf(&b, "Salary: %.0f - %.0f %s\n", *v.SalaryMin, *v.SalaryMax, v.Currency)
		}
		b.WriteString("\n#hiring #careers")
		return b.String()
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
