package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a person that can log in and belong to one or more tenants
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	FirstName string    `json:"first_name" gorm:""`
	LastName  string    `json:"last_name" gorm:""`
	Phone     string    `json:"phone" gorm:""`
	AvatarURL string    `json:"avatar_url" gorm:""`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`

	IsEmailVerified bool       `json:"is_email_verified" gorm:"not null;default:false"`
	EmailVerifiedAt *time.Time `json:"email_verified_at" gorm:""`
	LastLoginAt     *time.Time `json:"last_login_at" gorm:""`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	Memberships []TenantMembership `json:"memberships,omitempty" gorm:"foreignKey:UserID"`
}

// RefreshToken is an opaque, single-use token exchanged for a new token pair.
// The tenant claims of the login that issued it travel with it.
type RefreshToken struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primary_key"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;index"`
	Token      string     `json:"-" gorm:"not null;uniqueIndex"`
	TenantID   *uuid.UUID `json:"tenant_id" gorm:"type:char(36)"`
	TenantSlug string     `json:"tenant_slug" gorm:""`
	Role       TenantRole `json:"role" gorm:""`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	IsRevoked  bool       `json:"is_revoked" gorm:"not null;default:false"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null"`

	User User `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// UserResponse is the public representation of a user
type UserResponse struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	FullName        string     `json:"full_name"`
	Phone           string     `json:"phone"`
	AvatarURL       string     `json:"avatar_url"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BeforeCreate assigns an id and hashes the plain password
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return u.HashPassword()
}

func (rt *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	return nil
}

// HashPassword replaces Password with its bcrypt hash
func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.Password = string(hashed)
	return nil
}

// CheckPassword compares a plain password with the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ToResponse converts user to response format
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		FullName:        u.FullName(),
		Phone:           u.Phone,
		AvatarURL:       u.AvatarURL,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
	}
}

// IsExpired reports whether the refresh token can no longer be used
func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return rt.IsRevoked || now.After(rt.ExpiresAt)
}
