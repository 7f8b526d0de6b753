package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruitment-platform/internal/models"
	"recruitment-platform/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService issues and revokes tokens and registers tenant owners
type AuthService struct {
	db         *gorm.DB
	jwt        *auth.JWTService
	tenants    *TenantService
	activities *ActivityService
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, jwt *auth.JWTService, tenants *TenantService, activities *ActivityService, logger *zap.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, tenants: tenants, activities: activities, logger: logger}
}

type RegisterTenantOwnerInput struct {
	Username        string          `json:"username" binding:"required"`
	Email           string          `json:"email" binding:"required,email"`
	Password        string          `json:"password" binding:"required"`
	PasswordConfirm string          `json:"password_confirm" binding:"required"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Phone           string          `json:"phone"`
	CompanyName     string          `json:"company_name" binding:"required"`
	CompanySlug     string          `json:"company_slug"`
	Plan            models.PlanType `json:"plan"`
}

// AuthResult is returned by login, refresh and owner registration
type AuthResult struct {
	User       *models.User
	Tenant     *models.Tenant
	Membership *models.TenantMembership
	Tokens     *auth.TokenPair
}

// RegisterTenantOwner creates the user, the tenant and the owner membership
// in one transaction and logs the new owner in.
func (s *AuthService) RegisterTenantOwner(ctx context.Context, in RegisterTenantOwnerInput) (*AuthResult, error) {
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Password != in.PasswordConfirm {
		return nil, invalid("password_confirm", "passwords do not match")
	}

	result := &AuthResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := registerUser(tx, RegisterUserInput{
			Username:  in.Username,
			Email:     in.Email,
			Password:  in.Password,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Phone:     in.Phone,
		})
		if err != nil {
			return err
		}

		tenant, err := s.tenants.create(tx, CreateTenantInput{
			Name: in.CompanyName,
			Slug: in.CompanySlug,
			Plan: in.Plan,
		})
		if err != nil {
			return err
		}

		membership := &models.TenantMembership{
			TenantID: tenant.ID,
			UserID:   user.ID,
			Role:     models.TenantRoleOwner,
			IsActive: true,
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("failed to create owner membership: %w", err)
		}

		result.User = user
		result.Tenant = tenant
		result.Membership = membership
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.TenantCreatedActivity(result.Tenant, result.User.ID))

	tokens, err := s.issue(ctx, result.User, result.Membership, result.Tenant)
	if err != nil {
		return nil, err
	}
	result.Tokens = tokens

	s.logger.Info("Tenant owner registered",
		zap.String("user_id", result.User.ID.String()),
		zap.String("tenant", result.Tenant.Slug),
	)
	return result, nil
}

// Login authenticates by username or email
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	db := s.db.WithContext(ctx)

	user, err := findUser(db, "username = ? OR email = ?", login, models.NormalizeEmail(login))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, forbidden("account is deactivated")
	}

	membership, err := s.primaryMembership(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := db.Model(user).Update("last_login_at", now).Error; err != nil {
		s.logger.Warn("Failed to update last login", zap.Error(err))
	}
	user.LastLoginAt = &now

	result := &AuthResult{User: user, Membership: membership}
	if membership != nil {
		result.Tenant = membership.Tenant
	}
	result.Tokens, err = s.issue(ctx, user, membership, result.Tenant)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// primaryMembership returns the user's first active membership in an active
// tenant, or nil when there is none.
func (s *AuthService) primaryMembership(ctx context.Context, userID uuid.UUID) (*models.TenantMembership, error) {
	memberships, err := s.tenants.UserTenants(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	return &memberships[0], nil
}

// Refresh exchanges a refresh token for a new pair. The old token is
// revoked and the tenant claims carry over.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	db := s.db.WithContext(ctx)

	var stored models.RefreshToken
	if err := db.Preload("User").Where("token = ?", refreshToken).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if stored.IsExpired(time.Now().UTC()) {
		return nil, ErrUnauthorized
	}
	if !stored.User.IsActive {
		return nil, forbidden("account is deactivated")
	}

	if err := claimRefreshToken(db, stored.ID); err != nil {
		return nil, err
	}

	claims := auth.TenantClaims{TenantSlug: stored.TenantSlug, Role: stored.Role}
	if stored.TenantID != nil {
		claims.TenantID = stored.TenantID.String()
	}
	tokens, err := s.issueClaims(ctx, &stored.User, claims)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &stored.User, Tokens: tokens}, nil
}

// claimRefreshToken revokes a refresh token that is still live. Only one
// caller can claim a given token; the others get ErrUnauthorized.
func claimRefreshToken(db *gorm.DB, id uuid.UUID) error {
	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND is_revoked = ?", id, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnauthorized
	}
	return nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if err := s.jwt.BlacklistToken(ctx, accessToken); err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
	}
	if refreshToken != "" {
		err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
			Where("token = ?", refreshToken).
			Update("is_revoked", true).Error
		if err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, m *models.TenantMembership, tenant *models.Tenant) (*auth.TokenPair, error) {
	var claims auth.TenantClaims
	if m != nil {
		claims.TenantID = m.TenantID.String()
		claims.Role = m.Role
		if tenant != nil {
			claims.TenantSlug = tenant.Slug
		}
	}
	return s.issueClaims(ctx, user, claims)
}

func (s *AuthService) issueClaims(ctx context.Context, user *models.User, claims auth.TenantClaims) (*auth.TokenPair, error) {
	pair, err := s.jwt.GenerateTokenPair(user, claims)
	if err != nil {
		return nil, err
	}

	stored := &models.RefreshToken{
		UserID:     user.ID,
		Token:      pair.RefreshToken,
		TenantSlug: claims.TenantSlug,
		Role:       claims.Role,
		ExpiresAt:  s.jwt.RefreshTokenExpiry(),
	}
	if id, err := uuid.Parse(claims.TenantID); err == nil {
		stored.TenantID = &id
	}
	if err := s.db.WithContext(ctx).Create(stored).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return pair, nil
}
