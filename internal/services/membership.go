package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MembershipService manages who belongs to a tenant and with which role
type MembershipService struct {
	db         *gorm.DB
	logger     *zap.Logger
	activities *ActivityService
}

// NewMembershipService creates a new membership service
func NewMembershipService(db *gorm.DB, logger *zap.Logger, activities *ActivityService) *MembershipService {
	return &MembershipService{db: db, logger: logger, activities: activities}
}

// AddMember adds userID to the tenant. An inactive membership is reactivated
// with the new role.
func (s *MembershipService) AddMember(ctx context.Context, tenantID, userID uuid.UUID, role models.TenantRole, invitedBy *uuid.UUID) (*models.TenantMembership, error) {
	if role == "" {
		role = models.TenantRoleMember
	}
	if !role.IsValid() {
		return nil, invalid("role", "unknown role %q", role)
	}

	var membership *models.TenantMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := upsertMembership(tx, tenantID, userID, role, invitedBy)
		membership = m
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.MemberActivity(models.ActivityTypeMemberAdded, membership, derefUUID(invitedBy)))
	s.logger.Info("Member added",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
	)
	return membership, nil
}

// upsertMembership applies the add-member rules inside tx
func upsertMembership(tx *gorm.DB, tenantID, userID uuid.UUID, role models.TenantRole, invitedBy *uuid.UUID) (*models.TenantMembership, error) {
	tenant, err := findTenant(tx, tenantID)
	if err != nil {
		return nil, err
	}

	var existing models.TenantMembership
	err = tx.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if found && existing.IsActive {
		return nil, conflict("user is already a member of this tenant")
	}

	if err := ensureCapacity(tx, tenant); err != nil {
		return nil, err
	}

	if found {
		updates := map[string]interface{}{"role": role, "is_active": true}
		if invitedBy != nil {
			updates["invited_by_id"] = *invitedBy
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to reactivate membership: %w", err)
		}
		existing.Role = role
		existing.IsActive = true
		if invitedBy != nil {
			existing.InvitedByID = invitedBy
		}
		return &existing, nil
	}

	membership := &models.TenantMembership{
		TenantID:    tenantID,
		UserID:      userID,
		Role:        role,
		IsActive:    true,
		InvitedByID: invitedBy,
	}
	if err := tx.Create(membership).Error; err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	return membership, nil
}

// RemoveMember deactivates a membership. The last owner or admin cannot be
// removed.
func (s *MembershipService) RemoveMember(ctx context.Context, tenantID, userID, actorID uuid.UUID) (*models.TenantMembership, error) {
	var membership *models.TenantMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := activeMembership(tx, tenantID, userID)
		if err != nil {
			return err
		}
		if m.Role.IsAdmin() {
			if err := ensureNotLastAdmin(tx, tenantID, "remove"); err != nil {
				return err
			}
		}
		if err := tx.Model(m).Update("is_active", false).Error; err != nil {
			return err
		}
		m.IsActive = false
		membership = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.MemberActivity(models.ActivityTypeMemberRemoved, membership, actorID))
	return membership, nil
}

// UpdateRole changes a member's role. The last owner or admin cannot be
// demoted to member. Only owners grant or revoke the owner role, and only
// owners or admins grant or revoke the admin role.
func (s *MembershipService) UpdateRole(ctx context.Context, tenantID, userID uuid.UUID, role models.TenantRole, actorID uuid.UUID) (*models.TenantMembership, error) {
	if !role.IsValid() {
		return nil, invalid("role", "unknown role %q", role)
	}

	var membership *models.TenantMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := activeMembership(tx, tenantID, userID)
		if err != nil {
			return err
		}
		if err := ensureCanAssignRole(tx, tenantID, actorID, m.Role, role); err != nil {
			return err
		}
		if m.Role.IsAdmin() && !role.IsAdmin() {
			if err := ensureNotLastAdmin(tx, tenantID, "demote"); err != nil {
				return err
			}
		}
		if err := tx.Model(m).Update("role", role).Error; err != nil {
			return err
		}
		m.Role = role
		membership = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, models.MemberActivity(models.ActivityTypeMemberRoleChanged, membership, actorID))
	return membership, nil
}

// ensureCanAssignRole checks that actorID may move a member from one role to
// another
func ensureCanAssignRole(tx *gorm.DB, tenantID, actorID uuid.UUID, from, to models.TenantRole) error {
	if from == to {
		return nil
	}
	actor, err := activeMembership(tx, tenantID, actorID)
	if errors.Is(err, ErrNotFound) {
		return forbidden("only tenant members can change roles")
	}
	if err != nil {
		return err
	}
	if (from == models.TenantRoleOwner || to == models.TenantRoleOwner) && actor.Role != models.TenantRoleOwner {
		return forbidden("only owners can grant or revoke the owner role")
	}
	if (from.IsAdmin() || to.IsAdmin()) && !actor.Role.IsAdmin() {
		return forbidden("only owners or admins can grant or revoke the admin role")
	}
	return nil
}

// UpdatePermissions replaces a member's permission codes
func (s *MembershipService) UpdatePermissions(ctx context.Context, tenantID, userID uuid.UUID, codes []string) (*models.TenantMembership, error) {
	seen := make(map[string]bool, len(codes))
	clean := make([]string, 0, len(codes))
	for _, code := range codes {
		if !models.PermissionExists(code) {
			return nil, invalid("permissions", "unknown permission %q", code)
		}
		if !seen[code] {
			seen[code] = true
			clean = append(clean, code)
		}
	}
	sort.Strings(clean)

	db := s.db.WithContext(ctx)
	m, err := activeMembership(db, tenantID, userID)
	if err != nil {
		return nil, err
	}
	m.Permissions = clean
	if err := db.Model(m).Select("permissions").Updates(m).Error; err != nil {
		return nil, fmt.Errorf("failed to update permissions: %w", err)
	}
	return m, nil
}

// GetMembership returns the active membership of userID in tenantID
func (s *MembershipService) GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantMembership, error) {
	return activeMembership(s.db.WithContext(ctx), tenantID, userID)
}

// ListMembers returns active members with their users
func (s *MembershipService) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]models.TenantMembership, error) {
	var members []models.TenantMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// ListAdmins returns active owners and admins
func (s *MembershipService) ListAdmins(ctx context.Context, tenantID uuid.UUID) ([]models.TenantMembership, error) {
	var members []models.TenantMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ? AND is_active = ? AND role IN ?", tenantID, true, adminRoles()).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// IsMember reports whether userID is an active member of tenantID
func (s *MembershipService) IsMember(ctx context.Context, tenantID, userID uuid.UUID) bool {
	_, err := s.GetMembership(ctx, tenantID, userID)
	return err == nil
}

// IsAdmin reports whether userID is an owner or admin of tenantID
func (s *MembershipService) IsAdmin(ctx context.Context, tenantID, userID uuid.UUID) bool {
	m, err := s.GetMembership(ctx, tenantID, userID)
	return err == nil && m.Role.IsAdmin()
}

func (s *MembershipService) IsOwner(ctx context.Context, tenantID, userID uuid.UUID) bool {
	m, err := s.GetMembership(ctx, tenantID, userID)
	return err == nil && m.Role == models.TenantRoleOwner
}

// HasPermission reports whether the user's membership grants code
func (s *MembershipService) HasPermission(ctx context.Context, tenantID, userID uuid.UUID, code string) bool {
	m, err := s.GetMembership(ctx, tenantID, userID)
	return err == nil && m.HasPermission(code)
}

func activeMembership(tx *gorm.DB, tenantID, userID uuid.UUID) (*models.TenantMembership, error) {
	var m models.TenantMembership
	err := tx.Where("tenant_id = ? AND user_id = ? AND is_active = ?", tenantID, userID, true).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("membership")
		}
		return nil, err
	}
	return &m, nil
}

func ensureNotLastAdmin(tx *gorm.DB, tenantID uuid.UUID, action string) error {
	var admins int64
	err := tx.Model(&models.TenantMembership{}).
		Where("tenant_id = ? AND is_active = ? AND role IN ?", tenantID, true, adminRoles()).
		Count(&admins).Error
	if err != nil {
		return err
	}
	if admins <= 1 {
		return invalid("role", "cannot %s the last administrator of the tenant", action)
	}
	return nil
}

func adminRoles() []models.TenantRole {
	return []models.TenantRole{models.TenantRoleOwner, models.TenantRoleAdmin}
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
