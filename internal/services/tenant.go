package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"recruitment-platform/internal/database"
	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantService manages tenants and their plans
type TenantService struct {
	db         *gorm.DB
	logger     *zap.Logger
	activities *ActivityService
}

// NewTenantService creates a new tenant service
func NewTenantService(db *gorm.DB, logger *zap.Logger, activities *ActivityService) *TenantService {
	return &TenantService{db: db, logger: logger, activities: activities}
}

type CreateTenantInput struct {
	Name     string          `json:"name" binding:"required"`
	Slug     string          `json:"slug"`
	Plan     models.PlanType `json:"plan"`
	MaxUsers int             `json:"max_users"`
}

type UpdateTenantInput struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	MaxUsers *int    `json:"max_users"`
}

// Slugify lowercases name and replaces runs of non-alphanumerics with "-"
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// Create creates a tenant. The slug is derived from the name when empty.
func (s *TenantService) Create(ctx context.Context, in CreateTenantInput) (*models.Tenant, error) {
	tenant, err := s.create(s.db.WithContext(ctx), in)
	if err != nil {
		return nil, err
	}
	s.activities.Record(ctx, models.TenantCreatedActivity(tenant, uuid.Nil))
	return tenant, nil
}

func (s *TenantService) create(tx *gorm.DB, in CreateTenantInput) (*models.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, invalid("slug", "could not be derived from name %q", name)
	}

	plan := in.Plan
	if plan == "" {
		plan = models.PlanBasic
	}
	if !plan.IsValid() {
		return nil, invalid("plan", "unknown plan %q", plan)
	}
	if in.MaxUsers < 0 {
		return nil, invalid("max_users", "must be positive")
	}

	taken, err := slugTaken(tx, slug, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict("slug %q is already in use", slug)
	}

	tenant := &models.Tenant{
		Name:     name,
		Slug:     slug,
		Plan:     plan,
		IsActive: true,
		MaxUsers: in.MaxUsers,
	}
	if err := tx.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.logger.Info("Tenant created", zap.String("tenant_id", tenant.ID.String()), zap.String("slug", slug))
	return tenant, nil
}

func slugTaken(tx *gorm.DB, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	q := tx.Model(&models.Tenant{}).Where("slug = ?", slug)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns a tenant by ID
func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return findTenant(s.db.WithContext(ctx), id)
}

func findTenant(tx *gorm.DB, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := tx.First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("tenant")
		}
		return nil, err
	}
	return &tenant, nil
}

// GetBySlug returns a tenant by its slug
func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("tenant")
		}
		return nil, err
	}
	return &tenant, nil
}

// List returns a page of tenants
func (s *TenantService) List(ctx context.Context, page, pageSize int) ([]models.Tenant, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Tenant{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []models.Tenant
	err := s.db.WithContext(ctx).Order("created_at DESC").Scopes(database.Paginate(page, pageSize)).Find(&tenants).Error
	return tenants, total, err
}

// Update changes a tenant's name, slug or seat limit
func (s *TenantService) Update(ctx context.Context, id uuid.UUID, in UpdateTenantInput) (*models.Tenant, error) {
	db := s.db.WithContext(ctx)
	tenant, err := findTenant(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "cannot be blank")
		}
		updates["name"] = name
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if slug == "" {
			return nil, invalid("slug", "cannot be blank")
		}
		taken, err := slugTaken(db, slug, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflict("slug %q is already in use", slug)
		}
		updates["slug"] = slug
	}
	if in.MaxUsers != nil {
		if err := s.checkMaxUsers(db, id, *in.MaxUsers); err != nil {
			return nil, err
		}
		updates["max_users"] = *in.MaxUsers
	}

	if len(updates) > 0 {
		if err := db.Model(tenant).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update tenant: %w", err)
		}
	}
	return findTenant(db, id)
}

// UpdatePlan switches the plan and optionally the member limit, which may
// not drop below the current number of active members.
func (s *TenantService) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanType, maxUsers *int) (*models.Tenant, error) {
	if !plan.IsValid() {
		return nil, invalid("plan", "unknown plan %q", plan)
	}

	db := s.db.WithContext(ctx)
	tenant, err := findTenant(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"plan": plan}
	if maxUsers != nil {
		if err := s.checkMaxUsers(db, id, *maxUsers); err != nil {
			return nil, err
		}
		updates["max_users"] = *maxUsers
	}

	if err := db.Model(tenant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}

	s.logger.Info("Tenant plan updated", zap.String("tenant_id", id.String()), zap.String("plan", string(plan)))
	return findTenant(db, id)
}

func (s *TenantService) checkMaxUsers(tx *gorm.DB, id uuid.UUID, maxUsers int) error {
	if maxUsers < 1 {
		return invalid("max_users", "must be at least 1")
	}
	active, err := activeMemberCount(tx, id)
	if err != nil {
		return err
	}
	if int64(maxUsers) < active {
		return invalid("max_users", "cannot be lowered to %d, the tenant has %d active members", maxUsers, active)
	}
	return nil
}

func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate soft-deletes a tenant
func (s *TenantService) Deactivate(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.setActive(ctx, id, false)
}

func (s *TenantService) setActive(ctx context.Context, id uuid.UUID, active bool) (*models.Tenant, error) {
	db := s.db.WithContext(ctx)
	tenant, err := findTenant(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(tenant).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	tenant.IsActive = active
	return tenant, nil
}

// UserTenants returns the user's active memberships in active tenants with
// the tenant preloaded.
func (s *TenantService) UserTenants(ctx context.Context, userID uuid.UUID) ([]models.TenantMembership, error) {
	var memberships []models.TenantMembership
	err := s.db.WithContext(ctx).
		Joins("JOIN tenants ON tenants.id = tenant_memberships.tenant_id").
		Where("tenant_memberships.user_id = ? AND tenant_memberships.is_active = ? AND tenants.is_active = ?", userID, true, true).
		Preload("Tenant").
		Order("tenant_memberships.joined_at ASC").
		Find(&memberships).Error
	return memberships, err
}

// MemberCount counts active members
func (s *TenantService) MemberCount(ctx context.Context, id uuid.UUID) (int64, error) {
	return activeMemberCount(s.db.WithContext(ctx), id)
}

// CanAddMember reports whether the tenant has room for one more member
func (s *TenantService) CanAddMember(ctx context.Context, tenant *models.Tenant) (bool, error) {
	active, err := activeMemberCount(s.db.WithContext(ctx), tenant.ID)
	if err != nil {
		return false, err
	}
	return tenant.HasCapacity(active), nil
}

func activeMemberCount(tx *gorm.DB, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.TenantMembership{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&count).Error
	return count, err
}

func ensureCapacity(tx *gorm.DB, tenant *models.Tenant) error {
	active, err := activeMemberCount(tx, tenant.ID)
	if err != nil {
		return err
	}
	if !tenant.HasCapacity(active) {
		return fmt.Errorf("tenant has reached its limit of %d users: %w", tenant.MaxUsers, ErrTenantFull)
	}
	return nil
}
