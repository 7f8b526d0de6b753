package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanType string

const (
	PlanBasic      PlanType = "basic"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

func (p PlanType) IsValid() bool {
	switch p {
	case PlanBasic, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

type TenantRole string

const (
	TenantRoleOwner  TenantRole = "owner"
	TenantRoleAdmin  TenantRole = "admin"
	TenantRoleMember TenantRole = "member"
)

func (r TenantRole) IsValid() bool {
	switch r {
	case TenantRoleOwner, TenantRoleAdmin, TenantRoleMember:
		return true
	}
	return false
}

// IsAdmin reports whether the role grants tenant administration
func (r TenantRole) IsAdmin() bool {
	return r == TenantRoleOwner || r == TenantRoleAdmin
}

// Tenant is a customer company. All recruitment data is scoped to one.
type Tenant struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	Name      string    `json:"name" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	Plan      PlanType  `json:"plan" gorm:"not null;default:'basic'"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	MaxUsers  int       `json:"max_users" gorm:"not null;default:5"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	Memberships []TenantMembership `json:"-" gorm:"foreignKey:TenantID"`
	AIConfig    *TenantAIConfig    `json:"-" gorm:"foreignKey:TenantID"`
}

// TenantMembership links a user to a tenant with a role and optional
// fine-grained permission codes.
type TenantMembership struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primary_key"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:char(36);not null;uniqueIndex:idx_membership_tenant_user"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_membership_tenant_user;index"`
	Role        TenantRole `json:"role" gorm:"not null;default:'member'"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:true"`
	JoinedAt    time.Time  `json:"joined_at" gorm:"not null"`
	InvitedByID *uuid.UUID `json:"invited_by_id" gorm:"type:char(36)"`
	Permissions []string   `json:"permissions" gorm:"serializer:json;type:text"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`

	Tenant    *Tenant `json:"tenant,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	User      *User   `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	InvitedBy *User   `json:"-" gorm:"foreignKey:InvitedByID;constraint:OnDelete:SET NULL;"`
}

type TenantResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Plan        PlanType  `json:"plan"`
	IsActive    bool      `json:"is_active"`
	MaxUsers    int       `json:"max_users"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MembershipResponse struct {
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	Role        TenantRole    `json:"role"`
	IsActive    bool          `json:"is_active"`
	JoinedAt    time.Time     `json:"joined_at"`
	InvitedByID *uuid.UUID    `json:"invited_by_id"`
	Permissions []string      `json:"permissions"`
	User        *UserResponse `json:"user,omitempty"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Plan == "" {
		t.Plan = PlanBasic
	}
	if t.MaxUsers == 0 {
		t.MaxUsers = 5
	}
	return nil
}

func (m *TenantMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Role == "" {
		m.Role = TenantRoleMember
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	if m.Permissions == nil {
		m.Permissions = []string{}
	}
	return nil
}

// HasCapacity reports whether another active member fits in the plan
func (t *Tenant) HasCapacity(activeMembers int64) bool {
	return activeMembers < int64(t.MaxUsers)
}

// ToResponse converts a Tenant; memberCount is supplied by the caller
func (t *Tenant) ToResponse(memberCount int64) TenantResponse {
	return TenantResponse{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Plan:        t.Plan,
		IsActive:    t.IsActive,
		MaxUsers:    t.MaxUsers,
		MemberCount: memberCount,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// HasPermission reports whether the membership grants code. Owners and
// admins hold every permission.
func (m *TenantMembership) HasPermission(code string) bool {
	if !m.IsActive {
		return false
	}
	if m.Role.IsAdmin() {
		return true
	}
	for _, p := range m.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// ToResponse converts the membership to a response
func (m *TenantMembership) ToResponse() MembershipResponse {
	resp := MembershipResponse{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Role:        m.Role,
		IsActive:    m.IsActive,
		JoinedAt:    m.JoinedAt,
		InvitedByID: m.InvitedByID,
		Permissions: m.Permissions,
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if m.User != nil && m.User.ID != uuid.Nil {
		u := m.User.ToResponse()
		resp.User = &u
	}
	return resp
}
