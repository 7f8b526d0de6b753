package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// AgentExecutionLog records one node run of an AI workflow together with its
// token usage and cost.
type AgentExecutionLog struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primary_key"`
	TenantID        uuid.UUID       `json:"tenant_id" gorm:"type:char(36);not null;index:idx_execution_logs_tenant_start"`
	VacancyID       *uuid.UUID      `json:"vacancy_id" gorm:"type:char(36);index"`
	WorkflowName    string          `json:"workflow_name" gorm:"not null"`
	NodeName        string          `json:"node_name" gorm:"not null"`
	ModelName       string          `json:"model_name" gorm:""`
	InputData       map[string]any  `json:"input_data" gorm:"serializer:json;type:text"`
	OutputData      map[string]any  `json:"output_data" gorm:"serializer:json;type:text"`
	StartTime       time.Time       `json:"start_time" gorm:"not null;index:idx_execution_logs_tenant_start"`
	EndTime         *time.Time      `json:"end_time" gorm:""`
	DurationSeconds float64         `json:"duration_seconds" gorm:"not null;default:0"`
	TokensInput     int             `json:"tokens_input" gorm:"not null;default:0"`
	TokensOutput    int             `json:"tokens_output" gorm:"not null;default:0"`
	CostUSD         decimal.Decimal `json:"cost_usd" gorm:"type:decimal(10,6);not null"`
	Status          ExecutionStatus `json:"status" gorm:"not null;default:'running'"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`

	Tenant *Tenant `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (l *AgentExecutionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.StartTime.IsZero() {
		l.StartTime = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = ExecutionRunning
	}
	return nil
}

// TotalTokens is the sum of prompt and completion tokens
func (l *AgentExecutionLog) TotalTokens() int {
	return l.TokensInput + l.TokensOutput
}
