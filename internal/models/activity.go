package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityTypeTenantCreated            ActivityType = "tenant_created"
	ActivityTypeMemberAdded              ActivityType = "member_added"
	ActivityTypeMemberRemoved            ActivityType = "member_removed"
	ActivityTypeMemberRoleChanged        ActivityType = "member_role_changed"
	ActivityTypeVacancyCreated           ActivityType = "vacancy_created"
	ActivityTypeVacancyPublished         ActivityType = "vacancy_published"
	ActivityTypeVacancyClosed            ActivityType = "vacancy_closed"
	ActivityTypeApplicationReceived      ActivityType = "application_received"
	ActivityTypeApplicationStatusChanged ActivityType = "application_status_changed"
	ActivityTypeWorkflowEvent            ActivityType = "workflow_event"
)

// Activity is an audit trail entry scoped to a tenant. Group carries the
// live-update channel name for workflow events.
type Activity struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primary_key"`
	TenantID    *uuid.UUID     `json:"tenant_id" gorm:"type:char(36);index"`
	UserID      *uuid.UUID     `json:"user_id" gorm:"type:char(36);index"`
	VacancyID   *uuid.UUID     `json:"vacancy_id" gorm:"type:char(36);index"`
	Type        ActivityType   `json:"type" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	Group       string         `json:"group" gorm:"column:group_name;index"`
	Metadata    map[string]any `json:"metadata" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;index"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ActivityBuilder provides a fluent interface for creating activities
type ActivityBuilder struct {
	activity *Activity
}

// NewActivityBuilder creates a new activity builder
func NewActivityBuilder(activityType ActivityType) *ActivityBuilder {
	return &ActivityBuilder{
		activity: &Activity{
			ID:   uuid.New(),
			Type: activityType,
		},
	}
}

func (ab *ActivityBuilder) WithTitle(title string) *ActivityBuilder {
	ab.activity.Title = title
	return ab
}

func (ab *ActivityBuilder) WithDescription(description string) *ActivityBuilder {
	ab.activity.Description = description
	return ab
}

func (ab *ActivityBuilder) WithTenant(tenantID uuid.UUID) *ActivityBuilder {
	ab.activity.TenantID = &tenantID
	return ab
}

// WithUser sets the acting user; uuid.Nil leaves it empty
func (ab *ActivityBuilder) WithUser(userID uuid.UUID) *ActivityBuilder {
	if userID != uuid.Nil {
		ab.activity.UserID = &userID
	}
	return ab
}

func (ab *ActivityBuilder) WithVacancy(vacancyID uuid.UUID) *ActivityBuilder {
	ab.activity.VacancyID = &vacancyID
	return ab
}

func (ab *ActivityBuilder) WithGroup(group string) *ActivityBuilder {
	ab.activity.Group = group
	return ab
}

func (ab *ActivityBuilder) WithMetadata(metadata map[string]any) *ActivityBuilder {
	ab.activity.Metadata = metadata
	return ab
}

func (ab *ActivityBuilder) Build() *Activity {
	return ab.activity
}

// Helper constructors for common activities

// TenantCreatedActivity records the creation of a tenant
func TenantCreatedActivity(tenant *Tenant, ownerID uuid.UUID) *Activity {
	return NewActivityBuilder(ActivityTypeTenantCreated).
		WithTitle("Tenant created").
		WithDescription(fmt.Sprintf("Tenant '%s' was created", tenant.Name)).
		WithTenant(tenant.ID).
		WithUser(ownerID).
		WithMetadata(map[string]any{"slug": tenant.Slug, "plan": tenant.Plan}).
		Build()
}

// MemberActivity records a membership change made by actorID
func MemberActivity(activityType ActivityType, m *TenantMembership, actorID uuid.UUID) *Activity {
	title := map[ActivityType]string{
		ActivityTypeMemberAdded:       "Member added",
		ActivityTypeMemberRemoved:     "Member removed",
		ActivityTypeMemberRoleChanged: "Member role changed",
	}[activityType]

	return NewActivityBuilder(activityType).
		WithTitle(title).
		WithTenant(m.TenantID).
		WithUser(actorID).
		WithMetadata(map[string]any{"member_user_id": m.UserID.String(), "role": m.Role}).
		Build()
}

// VacancyStatusActivity records a vacancy status change
func VacancyStatusActivity(activityType ActivityType, v *JobVacancy, actorID uuid.UUID) *Activity {
	return NewActivityBuilder(activityType).
		WithTitle(fmt.Sprintf("Vacancy %s", v.Status)).
		WithDescription(fmt.Sprintf("Vacancy '%s' is now %s", v.Title, v.Status)).
		WithTenant(v.TenantID).
		WithUser(actorID).
		WithVacancy(v.ID).
		Build()
}

// ApplicationActivity records an application event
func ApplicationActivity(activityType ActivityType, a *Application, candidateName string) *Activity {
	return NewActivityBuilder(activityType).
		WithTitle(fmt.Sprintf("Application %s", a.Status)).
		WithDescription(fmt.Sprintf("%s: application is %s", candidateName, a.Status)).
		WithTenant(a.TenantID).
		WithVacancy(a.VacancyID).
		WithMetadata(map[string]any{"application_id": a.ID.String(), "status": a.Status, "source": a.Source}).
		Build()
}
