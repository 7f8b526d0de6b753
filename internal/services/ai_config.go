package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AIConfigService manages a tenant's bring-your-own-key LLM settings
type AIConfigService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAIConfigService creates a new AI config service
func NewAIConfigService(db *gorm.DB, logger *zap.Logger) *AIConfigService {
	return &AIConfigService{db: db, logger: logger}
}

// ConfigureAIInput is the full configuration set by Configure. Nil numeric
// fields fall back to the defaults.
type ConfigureAIInput struct {
	Provider    models.AIProvider `json:"provider" binding:"required"`
	APIKey      string            `json:"api_key" binding:"required"`
	ModelName   string            `json:"model_name"`
	Temperature *float64          `json:"temperature"`
	MaxTokens   *int              `json:"max_tokens"`
}

type ModelSettingsInput struct {
	ModelName   *string  `json:"model_name"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

func validateTemperature(t float64) error {
	if t < 0 || t > 2 {
		return invalid("temperature", "must be between 0.0 and 2.0")
	}
	return nil
}

func validateMaxTokens(n int) error {
	if n < 1 {
		return invalid("max_tokens", "must be at least 1")
	}
	return nil
}

func cleanAPIKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", invalid("api_key", "cannot be blank")
	}
	return key, nil
}

// Configure creates or replaces the tenant's configuration and activates it
func (s *AIConfigService) Configure(ctx context.Context, tenantID uuid.UUID, in ConfigureAIInput) (*models.TenantAIConfig, error) {
	if !in.Provider.IsValid() {
		return nil, invalid("provider", "unknown provider %q", in.Provider)
	}
	key, err := cleanAPIKey(in.APIKey)
	if err != nil {
		return nil, err
	}

	modelName := strings.TrimSpace(in.ModelName)
	if modelName == "" {
		modelName = models.DefaultAIModel
	}
	temperature := models.DefaultAITemperature
	if in.Temperature != nil {
		temperature = *in.Temperature
	}
	maxTokens := models.DefaultAIMaxTokens
	if in.MaxTokens != nil {
		maxTokens = *in.MaxTokens
	}
	if err := validateTemperature(temperature); err != nil {
		return nil, err
	}
	if err := validateMaxTokens(maxTokens); err != nil {
		return nil, err
	}

	var cfg models.TenantAIConfig
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findTenant(tx, tenantID); err != nil {
			return err
		}

		err := tx.Where("tenant_id = ?", tenantID).First(&cfg).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		cfg.TenantID = tenantID
		cfg.Provider = in.Provider
		cfg.APIKey = key
		cfg.ModelName = modelName
		cfg.Temperature = temperature
		cfg.MaxTokens = maxTokens
		cfg.IsActive = true

		return tx.Save(&cfg).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AI configuration saved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.ModelName),
	)
	return &cfg, nil
}

// Get returns the tenant's configuration or ErrNotFound
func (s *AIConfigService) Get(ctx context.Context, tenantID uuid.UUID) (*models.TenantAIConfig, error) {
	var cfg models.TenantAIConfig
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("ai configuration")
		}
		return nil, err
	}
	return &cfg, nil
}

// Find is Get with a missing configuration reported as nil
func (s *AIConfigService) Find(ctx context.Context, tenantID uuid.UUID) (*models.TenantAIConfig, error) {
	cfg, err := s.Get(ctx, tenantID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return cfg, err
}

// UpdateAPIKey replaces the tenant's API key
func (s *AIConfigService) UpdateAPIKey(ctx context.Context, tenantID uuid.UUID, apiKey string) (*models.TenantAIConfig, error) {
	key, err := cleanAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, tenantID, map[string]interface{}{"api_key": key})
}

// UpdateModelSettings changes the model name, temperature or max tokens
func (s *AIConfigService) UpdateModelSettings(ctx context.Context, tenantID uuid.UUID, in ModelSettingsInput) (*models.TenantAIConfig, error) {
	updates := map[string]interface{}{}
	if in.ModelName != nil {
		name := strings.TrimSpace(*in.ModelName)
		if name == "" {
			return nil, invalid("model_name", "cannot be blank")
		}
		updates["model_name"] = name
	}
	if in.Temperature != nil {
		if err := validateTemperature(*in.Temperature); err != nil {
			return nil, err
		}
		updates["temperature"] = *in.Temperature
	}
	if in.MaxTokens != nil {
		if err := validateMaxTokens(*in.MaxTokens); err != nil {
			return nil, err
		}
		updates["max_tokens"] = *in.MaxTokens
	}
	return s.update(ctx, tenantID, updates)
}

// ChangeProvider switches provider, key and model together
func (s *AIConfigService) ChangeProvider(ctx context.Context, tenantID uuid.UUID, provider models.AIProvider, apiKey, modelName string) (*models.TenantAIConfig, error) {
	if !provider.IsValid() {
		return nil, invalid("provider", "unknown provider %q", provider)
	}
	key, err := cleanAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, invalid("model_name", "cannot be blank")
	}

	return s.update(ctx, tenantID, map[string]interface{}{
		"provider":   provider,
		"api_key":    key,
		"model_name": modelName,
	})
}

// Activate enables the tenant's own AI configuration
func (s *AIConfigService) Activate(ctx context.Context, tenantID uuid.UUID) (*models.TenantAIConfig, error) {
	return s.update(ctx, tenantID, map[string]interface{}{"is_active": true})
}

// Deactivate makes the tenant fall back to the platform provider
func (s *AIConfigService) Deactivate(ctx context.Context, tenantID uuid.UUID) (*models.TenantAIConfig, error) {
	return s.update(ctx, tenantID, map[string]interface{}{"is_active": false})
}

func (s *AIConfigService) update(ctx context.Context, tenantID uuid.UUID, updates map[string]interface{}) (*models.TenantAIConfig, error) {
	cfg, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return cfg, nil
	}

	if err := s.db.WithContext(ctx).Model(cfg).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update ai configuration: %w", err)
	}
	return s.Get(ctx, tenantID)
}
