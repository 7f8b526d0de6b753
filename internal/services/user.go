package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// UserService manages user accounts and invitations
type UserService struct {
	db         *gorm.DB
	logger     *zap.Logger
	activities *ActivityService
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, logger *zap.Logger, activities *ActivityService) *UserService {
	return &UserService{db: db, logger: logger, activities: activities}
}

type RegisterUserInput struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// UpdateProfileInput holds the only user fields editable through the
// profile endpoint
type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

type InviteUserInput struct {
	Email     string            `json:"email" binding:"required,email"`
	Role      models.TenantRole `json:"role"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
}

// InviteResult describes the outcome of InviteUser
type InviteResult struct {
	User       *models.User
	Membership *models.TenantMembership
	Tenant     *models.Tenant
	IsNew      bool
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("password", "must be at least %d characters", minPasswordLength)
	}
	return nil
}

// Register creates a user with a unique username and email
func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*models.User, error) {
	return registerUser(s.db.WithContext(ctx), in)
}

func registerUser(tx *gorm.DB, in RegisterUserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := models.NormalizeEmail(in.Email)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if exists, err := userExists(tx, "username = ?", username); err != nil {
		return nil, err
	} else if exists {
		return nil, conflict("username %q is already taken", username)
	}
	if exists, err := userExists(tx, "email = ?", email); err != nil {
		return nil, err
	} else if exists {
		return nil, conflict("email %q is already registered", email)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func userExists(tx *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := tx.Model(&models.User{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), "id = ?", id)
}

// GetByEmail returns a user by email, ignoring case
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), "email = ?", models.NormalizeEmail(email))
}

func findUser(tx *gorm.DB, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := tx.Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	return &user, nil
}

// ListByTenant returns users with an active membership in the tenant
func (s *UserService) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN tenant_memberships ON tenant_memberships.user_id = users.id").
		Where("tenant_memberships.tenant_id = ? AND tenant_memberships.is_active = ?", tenantID, true).
		Order("users.created_at ASC").
		Find(&users).Error
	return users, err
}

// UpdateProfile changes names, phone and avatar
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := findUser(db, "id = ?", id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return findUser(db, "id = ?", id)
}

// ChangePassword sets a new password after checking the old one
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	db := s.db.WithContext(ctx)
	user, err := findUser(db, "id = ?", id)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return invalid("old_password", "is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user.Password = newPassword
	if err := user.HashPassword(); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return db.Model(user).Update("password", user.Password).Error
}

// UpdateEmail changes the address and marks it unverified
func (s *UserService) UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, invalid("email", "is required")
	}

	db := s.db.WithContext(ctx)
	user, err := findUser(db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if exists, err := userExists(db, "email = ? AND id <> ?", email, id); err != nil {
		return nil, err
	} else if exists {
		return nil, conflict("email %q is already in use", email)
	}

	err = db.Model(user).Updates(map[string]interface{}{
		"email":             email,
		"is_email_verified": false,
		"email_verified_at": nil,
	}).Error
	if err != nil {
		return nil, err
	}
	return findUser(db, "id = ?", id)
}

// VerifyEmail marks the user's email as verified
func (s *UserService) VerifyEmail(ctx context.Context, id uuid.UUID) (*models.User, error) {
	now := time.Now().UTC()
	return s.update(ctx, id, map[string]interface{}{"is_email_verified": true, "email_verified_at": now})
}

func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.update(ctx, id, map[string]interface{}{"is_active": true})
}

func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.update(ctx, id, map[string]interface{}{"is_active": false})
}

func (s *UserService) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := findUser(db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return findUser(db, "id = ?", id)
}

// InviteUser adds the user with the given email to a tenant, creating the
// account with a random password when it does not exist yet.
func (s *UserService) InviteUser(ctx context.Context, tenantID uuid.UUID, in InviteUserInput, invitedBy uuid.UUID) (*InviteResult, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	role := in.Role
	if role == "" {
		role = models.TenantRoleMember
	}
	if !role.IsValid() {
		return nil, invalid("role", "unknown role %q", role)
	}
	if role == models.TenantRoleOwner {
		return nil, invalid("role", "owners cannot be assigned by invitation")
	}

	result := &InviteResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := findTenant(tx, tenantID)
		if err != nil {
			return err
		}
		if err := ensureCapacity(tx, tenant); err != nil {
			return err
		}
		result.Tenant = tenant

		user, err := findUser(tx, "email = ?", email)
		if errors.Is(err, ErrNotFound) {
			user, err = createInvitedUser(tx, email, in.FirstName, in.LastName)
			result.IsNew = true
		}
		if err != nil {
			return err
		}
		result.User = user

		var inviter *uuid.UUID
		if invitedBy != uuid.Nil {
			inviter = &invitedBy
		}
		membership, err := upsertMembership(tx, tenantID, user.ID, role, inviter)
		if err != nil {
			return err
		}
		result.Membership = membership
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.MemberActivity(models.ActivityTypeMemberAdded, result.Membership, invitedBy))
	s.logger.Info("User invited",
		zap.String("tenant_id", tenantID.String()),
		zap.String("email", email),
		zap.Bool("new_user", result.IsNew),
	)
	return result, nil
}

func createInvitedUser(tx *gorm.DB, email, firstName, lastName string) (*models.User, error) {
	username := email
	taken, err := userExists(tx, "username = ?", username)
	if err != nil {
		return nil, err
	}
	if taken {
		username = strings.SplitN(email, "@", 2)[0] + "_" + randomToken(2)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  randomToken(12),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create invited user: %w", err)
	}
	return user, nil
}

// randomToken returns 2*n hex characters
func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:2*n]
	}
	return hex.EncodeToString(buf)
}
