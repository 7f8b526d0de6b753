package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusPublished JobStatus = "published"
	JobStatusClosed    JobStatus = "closed"
	JobStatusArchived  JobStatus = "archived"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusDraft, JobStatusPublished, JobStatusClosed, JobStatusArchived:
		return true
	}
	return false
}

type InterviewMode string

const (
	InterviewModeAuto   InterviewMode = "auto"
	InterviewModeManual InterviewMode = "manual"
)

type SocialPlatform string

const (
	SocialPlatformLinkedIn  SocialPlatform = "linkedin"
	SocialPlatformTwitter   SocialPlatform = "twitter"
	SocialPlatformFacebook  SocialPlatform = "facebook"
	SocialPlatformInstagram SocialPlatform = "instagram"
)

func (p SocialPlatform) IsValid() bool {
	switch p {
	case SocialPlatformLinkedIn, SocialPlatformTwitter, SocialPlatformFacebook, SocialPlatformInstagram:
		return true
	}
	return false
}

type SocialPostStatus string

const (
	SocialPostDraft     SocialPostStatus = "draft"
	SocialPostPublished SocialPostStatus = "published"
	SocialPostFailed    SocialPostStatus = "failed"
)

// JobVacancy is an open position of a tenant
type JobVacancy struct {
	ID                   uuid.UUID     `json:"id" gorm:"type:char(36);primary_key"`
	TenantID             uuid.UUID     `json:"tenant_id" gorm:"type:char(36);not null;index"`
	Title                string        `json:"title" gorm:"not null"`
	Description          string        `json:"description" gorm:"type:text;not null"`
	Requirements         string        `json:"requirements" gorm:"type:text"`
	Status               JobStatus     `json:"status" gorm:"not null;default:'draft';index"`
	Location             string        `json:"location" gorm:""`
	SalaryMin            *float64      `json:"salary_min" gorm:""`
	SalaryMax            *float64      `json:"salary_max" gorm:""`
	Currency             string        `json:"currency" gorm:"not null;default:'USD'"`
	IsRemote             bool          `json:"is_remote" gorm:"not null;default:false"`
	InterviewMode        InterviewMode `json:"interview_mode" gorm:"not null;default:'auto'"`
	ManualInterviewGuide string        `json:"manual_interview_guide" gorm:"type:text"`
	CreatedByID          *uuid.UUID    `json:"created_by_id" gorm:"type:char(36)"`
	CreatedAt            time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time     `json:"updated_at" gorm:"not null"`
	ClosedAt             *time.Time    `json:"closed_at" gorm:""`

	Tenant       *Tenant             `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedBy    *User               `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL;"`
	SocialPosts  []VacancySocialPost `json:"social_posts,omitempty" gorm:"foreignKey:VacancyID"`
	Applications []Application       `json:"-" gorm:"foreignKey:VacancyID"`
}

// VacancySocialPost is a per-platform announcement of a vacancy
type VacancySocialPost struct {
	ID        uuid.UUID        `json:"id" gorm:"type:char(36);primary_key"`
	VacancyID uuid.UUID        `json:"vacancy_id" gorm:"type:char(36);not null;uniqueIndex:idx_social_post_vacancy_platform"`
	Platform  SocialPlatform   `json:"platform" gorm:"not null;uniqueIndex:idx_social_post_vacancy_platform"`
	Content   string           `json:"content" gorm:"type:text;not null"`
	Status    SocialPostStatus `json:"status" gorm:"not null;default:'draft'"`
	PostedAt  *time.Time       `json:"posted_at" gorm:""`
	CreatedAt time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"not null"`

	Vacancy *JobVacancy `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (v *JobVacancy) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = JobStatusDraft
	}
	if v.Currency == "" {
		v.Currency = "USD"
	}
	if v.InterviewMode == "" {
		v.InterviewMode = InterviewModeAuto
	}
	return nil
}

func (p *VacancySocialPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = SocialPostDraft
	}
	return nil
}

// Publish marks the vacancy as open for applications
func (v *JobVacancy) Publish() {
	v.Status = JobStatusPublished
}

// Close marks the vacancy as closed at the given time
func (v *JobVacancy) Close(at time.Time) {
	v.Status = JobStatusClosed
	v.ClosedAt = &at
}

// IsOpen reports whether the vacancy accepts applications
func (v *JobVacancy) IsOpen() bool {
	return v.Status == JobStatusPublished
}

// SalaryRangeValid reports whether min does not exceed max when both are set
func (v *JobVacancy) SalaryRangeValid() bool {
	if v.SalaryMin == nil || v.SalaryMax == nil {
		return true
	}
	return *v.SalaryMin <= *v.SalaryMax
}
