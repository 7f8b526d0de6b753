package llm

import (
	"context"
	"errors"
	"fmt"

	"recruitment-platform/config"
	"recruitment-platform/internal/models"

	"go.uber.org/zap"
)

var (
	ErrMissingAPIKey       = errors.New("no API key configured")
	ErrUnsupportedProvider = errors.New("unsupported AI provider")
)

const (
	defaultPlatformProvider = models.AIProviderOpenAI
	defaultPlatformModel    = "gemini-1.5-flash"
)

// Selection is the resolved provider, model and key for one tenant
type Selection struct {
	Provider  models.AIProvider
	Model     string
	APIKey    string
	MaxTokens int
	BYOK      bool
}

// Factory builds chat models for tenants. A tenant with an active
// bring-your-own-key configuration gets its own provider; everyone else
// shares the platform key.
type Factory struct {
	cfg    config.AIConfig
	logger *zap.Logger

	// claudeBaseURL and geminiBaseURL point the SDK clients at test servers
	claudeBaseURL string
	geminiBaseURL string
}

// NewFactory creates a model factory backed by the platform AI settings
func NewFactory(cfg config.AIConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Resolve decides which provider serves the tenant without building a client
func (f *Factory) Resolve(tenantCfg *models.TenantAIConfig) (Selection, error) {
	if tenantCfg.IsBYOK() {
		sel := Selection{
			Provider:  tenantCfg.Provider,
			Model:     tenantCfg.ModelName,
			APIKey:    tenantCfg.APIKey,
			MaxTokens: tenantCfg.MaxTokens,
			BYOK:      true,
		}
		if sel.Model == "" {
			sel.Model = models.DefaultAIModel
		}
		if sel.MaxTokens <= 0 {
			sel.MaxTokens = models.DefaultAIMaxTokens
		}
		return sel, nil
	}

	sel := Selection{
		Provider:  models.AIProvider(f.cfg.PlatformProvider),
		Model:     f.cfg.PlatformModel,
		APIKey:    f.cfg.PlatformAPIKey,
		MaxTokens: models.DefaultAIMaxTokens,
	}
	if sel.Provider == "" || sel.Provider == models.AIProviderPlatformDefault {
		sel.Provider = defaultPlatformProvider
	}
	if sel.Model == "" {
		sel.Model = defaultPlatformModel
	}
	if sel.APIKey == "" {
		return Selection{}, fmt.Errorf("%w for platform provider %s", ErrMissingAPIKey, sel.Provider)
	}
	return sel, nil
}

// ForTenant returns the chat model for the tenant. Workflow calls run at
// temperature 0.
func (f *Factory) ForTenant(ctx context.Context, tenantCfg *models.TenantAIConfig) (ChatModel, error) {
	sel, err := f.Resolve(tenantCfg)
	if err != nil {
		return nil, err
	}

	model, err := f.New(ctx, sel)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Chat model selected",
		zap.String("provider", string(sel.Provider)),
		zap.String("model", sel.Model),
		zap.Bool("byok", sel.BYOK),
	)
	return model, nil
}

// New builds the client for an already resolved selection
func (f *Factory) New(ctx context.Context, sel Selection) (ChatModel, error) {
	opts := Options{Model: sel.Model, Temperature: 0, MaxTokens: sel.MaxTokens}
	timeout := f.cfg.RequestTimeout

	switch sel.Provider {
	case models.AIProviderOpenAI:
		if sel.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewOpenAIClient(string(sel.Provider), f.cfg.OpenAIBaseURL, sel.APIKey, opts, timeout), nil
	case models.AIProviderLlama:
		return NewOpenAIClient(string(sel.Provider), f.cfg.LlamaBaseURL, sel.APIKey, opts, timeout), nil
	case models.AIProviderClaude:
		if sel.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewClaudeClient(sel.APIKey, f.claudeBaseURL, opts, timeout), nil
	case models.AIProviderGemini:
		if sel.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		client, err := NewGeminiClient(ctx, sel.APIKey, f.geminiBaseURL, opts, timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, sel.Provider)
}
