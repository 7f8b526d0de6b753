package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AIProvider string

const (
	AIProviderPlatformDefault AIProvider = "platform_default"
	AIProviderOpenAI          AIProvider = "openai"
	AIProviderClaude          AIProvider = "claude"
	AIProviderGemini          AIProvider = "gemini"
	AIProviderLlama           AIProvider = "llama"
)

func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderPlatformDefault, AIProviderOpenAI, AIProviderClaude, AIProviderGemini, AIProviderLlama:
		return true
	}
	return false
}

func (p AIProvider) DisplayName() string {
	switch p {
	case AIProviderPlatformDefault:
		return "Platform default"
	case AIProviderOpenAI:
		return "OpenAI"
	case AIProviderClaude:
		return "Anthropic Claude"
	case AIProviderGemini:
		return "Google Gemini"
	case AIProviderLlama:
		return "Llama (OpenAI compatible)"
	default:
		return string(p)
	}
}

const (
	DefaultAIModel       = "gpt-4"
	DefaultAITemperature = 0.7
	DefaultAIMaxTokens   = 2000
)

// TenantAIConfig is a tenant's bring-your-own-key LLM configuration
type TenantAIConfig struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primary_key"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:char(36);not null;uniqueIndex"`
	Provider    AIProvider `json:"provider" gorm:"not null;default:'openai'"`
	APIKey      string     `json:"-" gorm:"not null"`
	ModelName   string     `json:"model_name" gorm:"not null;default:'gpt-4'"`
	Temperature float64    `json:"temperature" gorm:"not null"`
	MaxTokens   int        `json:"max_tokens" gorm:"not null"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`

	Tenant *Tenant `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

type AIConfigResponse struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Provider        AIProvider `json:"provider"`
	ProviderDisplay string     `json:"provider_display"`
	APIKeySafe      string     `json:"api_key_safe"`
	ModelName       string     `json:"model_name"`
	Temperature     float64    `json:"temperature"`
	MaxTokens       int        `json:"max_tokens"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (c *TenantAIConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SafeAPIKey masks the key for display
func (c *TenantAIConfig) SafeAPIKey() string {
	if len(c.APIKey) <= 10 {
		return "***"
	}
	return c.APIKey[:3] + "***" + c.APIKey[len(c.APIKey)-3:]
}

// IsBYOK reports whether the tenant's own key should be used instead of the
// platform key.
func (c *TenantAIConfig) IsBYOK() bool {
	return c != nil && c.IsActive && c.APIKey != "" && c.Provider != AIProviderPlatformDefault
}

// ToResponse converts the config to a response with a masked key
func (c *TenantAIConfig) ToResponse() AIConfigResponse {
	return AIConfigResponse{
		ID:              c.ID,
		TenantID:        c.TenantID,
		Provider:        c.Provider,
		ProviderDisplay: c.Provider.DisplayName(),
		APIKeySafe:      c.SafeAPIKey(),
		ModelName:       c.ModelName,
		Temperature:     c.Temperature,
		MaxTokens:       c.MaxTokens,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
