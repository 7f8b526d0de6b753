package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CandidateStatus string

const (
	CandidateStatusNew       CandidateStatus = "new"
	CandidateStatusScreening CandidateStatus = "screening"
	CandidateStatusInterview CandidateStatus = "interview"
	CandidateStatusOffer     CandidateStatus = "offer"
	CandidateStatusHired     CandidateStatus = "hired"
	CandidateStatusRejected  CandidateStatus = "rejected"
	CandidateStatusWithdrawn CandidateStatus = "withdrawn"
)

func (s CandidateStatus) IsValid() bool {
	switch s {
	case CandidateStatusNew, CandidateStatusScreening, CandidateStatusInterview,
		CandidateStatusOffer, CandidateStatusHired, CandidateStatusRejected, CandidateStatusWithdrawn:
		return true
	}
	return false
}

type ApplicationSource string

const (
	SourceLinkedIn ApplicationSource = "linkedin"
	SourceWebsite  ApplicationSource = "website"
	SourceReferral ApplicationSource = "referral"
	SourceAgency   ApplicationSource = "agency"
	SourceOther    ApplicationSource = "other"
)

func (s ApplicationSource) IsValid() bool {
	switch s {
	case SourceLinkedIn, SourceWebsite, SourceReferral, SourceAgency, SourceOther:
		return true
	}
	return false
}

// Candidate is a person known to a tenant. Email is unique per tenant.
type Candidate struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primary_key"`
	TenantID        uuid.UUID `json:"tenant_id" gorm:"type:char(36);not null;uniqueIndex:idx_candidate_tenant_email"`
	FirstName       string    `json:"first_name" gorm:"not null"`
	LastName        string    `json:"last_name" gorm:"not null"`
	Email           string    `json:"email" gorm:"not null;uniqueIndex:idx_candidate_tenant_email"`
	Phone           string    `json:"phone" gorm:""`
	LinkedInURL     string    `json:"linkedin_url" gorm:"column:linkedin_url"`
	ResumeURL       string    `json:"resume_url" gorm:""`
	Location        string    `json:"location" gorm:""`
	YearsExperience int       `json:"years_experience" gorm:"not null;default:0"`
	Skills          []string  `json:"skills" gorm:"serializer:json;type:text"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`

	Tenant *Tenant `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Application is a candidate's application to one vacancy
type Application struct {
	ID          uuid.UUID         `json:"id" gorm:"type:char(36);primary_key"`
	TenantID    uuid.UUID         `json:"tenant_id" gorm:"type:char(36);not null;index"`
	VacancyID   uuid.UUID         `json:"vacancy_id" gorm:"type:char(36);not null;uniqueIndex:idx_application_vacancy_candidate"`
	CandidateID uuid.UUID         `json:"candidate_id" gorm:"type:char(36);not null;uniqueIndex:idx_application_vacancy_candidate"`
	Status      CandidateStatus   `json:"status" gorm:"not null;default:'new';index"`
	Source      ApplicationSource `json:"source" gorm:"not null;default:'website'"`
	Score       *float64          `json:"score" gorm:""`
	Notes       string            `json:"notes" gorm:"type:text"`
	AppliedAt   time.Time         `json:"applied_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`

	Vacancy   *JobVacancy `json:"vacancy,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Candidate *Candidate  `json:"candidate,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Email = NormalizeEmail(c.Email)
	if c.Skills == nil {
		c.Skills = []string{}
	}
	return nil
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = CandidateStatusNew
	}
	if a.Source == "" {
		a.Source = SourceWebsite
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}
	return nil
}

// BeforeSave keeps the score within 0..100
func (a *Application) BeforeSave(tx *gorm.DB) error {
	if a.Score != nil && (*a.Score < 0 || *a.Score > 100) {
		return fmt.Errorf("score must be between 0 and 100, got %.2f", *a.Score)
	}
	return nil
}

func (c *Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// AppendNote adds a status-tagged note line
func (a *Application) AppendNote(status CandidateStatus, note string) {
	if note == "" {
		return
	}
	a.Notes += fmt.Sprintf("\n[%s]: %s", status, note)
}

// NormalizeEmail lowercases and trims an address for comparisons
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
