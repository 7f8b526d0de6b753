package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"recruitment-platform/internal/ai/tools"
	"recruitment-platform/internal/database"
	"recruitment-platform/internal/export"
	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const defaultScreeningWorkers = 4

// ApplicationService handles candidates applying to vacancies and their
// progress through the pipeline
type ApplicationService struct {
	db         *gorm.DB
	logger     *zap.Logger
	activities *ActivityService
	workers    int
}

// NewApplicationService creates a new application service
func NewApplicationService(db *gorm.DB, logger *zap.Logger, activities *ActivityService, screeningWorkers int) *ApplicationService {
	if screeningWorkers <= 0 {
		screeningWorkers = defaultScreeningWorkers
	}
	return &ApplicationService{db: db, logger: logger, activities: activities, workers: screeningWorkers}
}

type ApplyInput struct {
	FirstName       string                   `json:"first_name" binding:"required"`
	LastName        string                   `json:"last_name" binding:"required"`
	Email           string                   `json:"email" binding:"required,email"`
	Phone           string                   `json:"phone"`
	LinkedInURL     string                   `json:"linkedin_url"`
	ResumeURL       string                   `json:"resume_url"`
	Location        string                   `json:"location"`
	Skills          []string                 `json:"skills"`
	YearsExperience int                      `json:"years_experience"`
	Source          models.ApplicationSource `json:"source"`
	Notes           string                   `json:"notes"`
}

// ScreeningResult is the fit analysis of one application
type ScreeningResult struct {
	ApplicationID uuid.UUID              `json:"application_id"`
	CandidateID   uuid.UUID              `json:"candidate_id"`
	CandidateName string                 `json:"candidate_name"`
	Status        models.CandidateStatus `json:"status"`
	Analysis      tools.FitAnalysis      `json:"analysis"`
}

// Apply registers an application to a published vacancy. The candidate is
// matched by email within the vacancy's tenant and created when unknown;
// an existing candidate's details are refreshed from the input.
func (s *ApplicationService) Apply(ctx context.Context, vacancyID uuid.UUID, in ApplyInput) (*models.Application, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, invalid("first_name", "is required")
	}
	if in.YearsExperience < 0 {
		return nil, invalid("years_experience", "must not be negative")
	}
	source := in.Source
	if source == "" {
		source = models.SourceWebsite
	}
	if !source.IsValid() {
		return nil, invalid("source", "unknown source %q", source)
	}

	var app *models.Application
	var candidate *models.Candidate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vacancy, err := findVacancy(tx, "id = ?", vacancyID)
		if err != nil {
			return err
		}
		if vacancy.Status != models.JobStatusPublished {
			return invalid("vacancy", "is not accepting applications")
		}

		candidate, err = upsertCandidate(tx, vacancy.TenantID, email, in)
		if err != nil {
			return err
		}

		var count int64
		err = tx.Model(&models.Application{}).
			Where("vacancy_id = ? AND candidate_id = ?", vacancy.ID, candidate.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return conflict("%s has already applied to this vacancy", email)
		}

		app = &models.Application{
			TenantID:    vacancy.TenantID,
			VacancyID:   vacancy.ID,
			CandidateID: candidate.ID,
			Status:      models.CandidateStatusNew,
			Source:      source,
			Notes:       strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(app).Error; err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	app.Candidate = candidate
	s.activities.Record(ctx, models.ApplicationActivity(models.ActivityTypeApplicationReceived, app, candidate.FullName()))
	s.logger.Info("Application received",
		zap.String("vacancy_id", vacancyID.String()),
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("source", string(source)),
	)
	return app, nil
}

func upsertCandidate(tx *gorm.DB, tenantID uuid.UUID, email string, in ApplyInput) (*models.Candidate, error) {
	var candidate models.Candidate
	err := tx.Where("tenant_id = ? AND email = ?", tenantID, email).First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		candidate = models.Candidate{
			TenantID:        tenantID,
			FirstName:       strings.TrimSpace(in.FirstName),
			LastName:        strings.TrimSpace(in.LastName),
			Email:           email,
			Phone:           strings.TrimSpace(in.Phone),
			LinkedInURL:     strings.TrimSpace(in.LinkedInURL),
			ResumeURL:       strings.TrimSpace(in.ResumeURL),
			Location:        strings.TrimSpace(in.Location),
			YearsExperience: in.YearsExperience,
			Skills:          cleanSkills(in.Skills),
		}
		if err := tx.Create(&candidate).Error; err != nil {
			return nil, fmt.Errorf("failed to create candidate: %w", err)
		}
		return &candidate, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setIfPresent := func(column, value string) {
		if value = strings.TrimSpace(value); value != "" {
			updates[column] = value
		}
	}
	setIfPresent("first_name", in.FirstName)
	setIfPresent("last_name", in.LastName)
	setIfPresent("phone", in.Phone)
	setIfPresent("linkedin_url", in.LinkedInURL)
	setIfPresent("resume_url", in.ResumeURL)
	setIfPresent("location", in.Location)
	if in.YearsExperience > 0 {
		updates["years_experience"] = in.YearsExperience
	}
	if len(in.Skills) > 0 {
		candidate.Skills = cleanSkills(in.Skills)
		if err := tx.Model(&candidate).Select("skills").Updates(&models.Candidate{Skills: candidate.Skills}).Error; err != nil {
			return nil, err
		}
	}
	if len(updates) > 0 {
		if err := tx.Model(&candidate).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update candidate: %w", err)
		}
	}

	if err := tx.First(&candidate, "id = ?", candidate.ID).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// UpdateStatus moves an application and appends the notes tagged with the
// new status
func (s *ApplicationService) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status models.CandidateStatus, notes string) (*models.Application, error) {
	if !status.IsValid() {
		return nil, invalid("status", "unknown status %q", status)
	}

	db := s.db.WithContext(ctx)
	app, err := findApplication(db, tenantID, id)
	if err != nil {
		return nil, err
	}

	app.Status = status
	app.AppendNote(status, strings.TrimSpace(notes))
	err = db.Model(app).Updates(map[string]interface{}{
		"status": app.Status,
		"notes":  app.Notes,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}

	name := ""
	if app.Candidate != nil {
		name = app.Candidate.FullName()
	}
	s.activities.Record(ctx, models.ApplicationActivity(models.ActivityTypeApplicationStatusChanged, app, name))
	return app, nil
}

// Get returns an application with its candidate and vacancy
func (s *ApplicationService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Application, error) {
	return findApplication(s.db.WithContext(ctx), tenantID, id)
}

func findApplication(tx *gorm.DB, tenantID, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := tx.Preload("Candidate").Preload("Vacancy").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("application")
		}
		return nil, err
	}
	return &app, nil
}

// ListForVacancy returns a vacancy's applications, optionally by status
func (s *ApplicationService) ListForVacancy(ctx context.Context, tenantID, vacancyID uuid.UUID, status models.CandidateStatus) ([]models.Application, error) {
	if status != "" && !status.IsValid() {
		return nil, invalid("status", "unknown status %q", status)
	}

	db := s.db.WithContext(ctx)
	if _, err := findVacancy(db, "id = ? AND tenant_id = ?", vacancyID, tenantID); err != nil {
		return nil, err
	}

	q := db.Preload("Candidate").Where("vacancy_id = ? AND tenant_id = ?", vacancyID, tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var apps []models.Application
	err := q.Order("applied_at ASC").Find(&apps).Error
	return apps, err
}

// ListCandidates returns a page of the tenant's candidates
func (s *ApplicationService) ListCandidates(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]models.Candidate, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Candidate{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var candidates []models.Candidate
	err := q.Order("created_at DESC").Scopes(database.Paginate(page, pageSize)).Find(&candidates).Error
	return candidates, total, err
}

// GetCandidate returns one of the tenant's candidates
func (s *ApplicationService) GetCandidate(ctx context.Context, tenantID, id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("candidate")
		}
		return nil, err
	}
	return &candidate, nil
}

var yearsPattern = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(?:years?|yrs?)`)

// VacancyRequirements turns the free-text requirements of a vacancy into
// skills and a minimum number of years. Entries like "5+ years" set the
// years and are not treated as skills.
func VacancyRequirements(v *models.JobVacancy) tools.JobRequirements {
	var req tools.JobRequirements
	for _, item := range tools.ParseSkills(v.Requirements) {
		if m := yearsPattern.FindStringSubmatch(item); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > req.MinExperienceYears {
				req.MinExperienceYears = n
			}
			continue
		}
		req.RequiredSkills = append(req.RequiredSkills, item)
	}
	return req
}

// Screen analyzes every application of the vacancy against its
// requirements. Analyses run concurrently; scores are then stored in one
// transaction and new applications move to screening.
func (s *ApplicationService) Screen(ctx context.Context, tenantID, vacancyID uuid.UUID) ([]ScreeningResult, error) {
	db := s.db.WithContext(ctx)
	vacancy, err := findVacancy(db, "id = ? AND tenant_id = ?", vacancyID, tenantID)
	if err != nil {
		return nil, err
	}

	var apps []models.Application
	if err := db.Preload("Candidate").Where("vacancy_id = ?", vacancy.ID).Order("applied_at ASC").Find(&apps).Error; err != nil {
		return nil, err
	}

	requirements := VacancyRequirements(vacancy)
	results := make([]ScreeningResult, len(apps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range apps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			app := &apps[i]
			if app.Candidate == nil {
				return fmt.Errorf("application %s has no candidate", app.ID)
			}
			results[i] = ScreeningResult{
				ApplicationID: app.ID,
				CandidateID:   app.CandidateID,
				CandidateName: app.Candidate.FullName(),
				Analysis: tools.AnalyzeCandidateFit(tools.CandidateProfile{
					Skills:          app.Candidate.Skills,
					ExperienceYears: app.Candidate.YearsExperience,
				}, requirements),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("screening failed: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range apps {
			score := results[i].Analysis.MatchScore
			updates := map[string]interface{}{"score": score}
			status := apps[i].Status
			if status == models.CandidateStatusNew {
				status = models.CandidateStatusScreening
				updates["status"] = status
			}
			if err := tx.Model(&apps[i]).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to store screening score: %w", err)
			}
			results[i].Status = status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Vacancy screened",
		zap.String("vacancy_id", vacancy.ID.String()),
		zap.Int("applications", len(apps)),
		zap.Int("workers", s.workers),
	)
	return results, nil
}

// ExportApplications renders the vacancy's applications as an XLSX workbook
func (s *ApplicationService) ExportApplications(ctx context.Context, tenantID, vacancyID uuid.UUID) ([]byte, error) {
	vacancy, err := findVacancy(s.db.WithContext(ctx), "id = ? AND tenant_id = ?", vacancyID, tenantID)
	if err != nil {
		return nil, err
	}
	apps, err := s.ListForVacancy(ctx, tenantID, vacancyID, "")
	if err != nil {
		return nil, err
	}
	return export.Applications(vacancy, apps)
}
