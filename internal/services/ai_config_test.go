package services

import (
	"context"
	"testing"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIConfigService_Configure(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tenant := testutil.CreateTestTenant(t, s.tc.DB, 5)

	cfg, err := s.aiConfigs.Configure(ctx, tenant.ID, ConfigureAIInput{
		Provider: models.AIProviderOpenAI,
		APIKey:   "  sk-test-1234567890  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890", cfg.APIKey)
	assert.Equal(t, models.DefaultAIModel, cfg.ModelName)
	assert.Equal(t, models.DefaultAITemperature, cfg.Temperature)
	assert.Equal(t, models.DefaultAIMaxTokens, cfg.MaxTokens)
	assert.True(t, cfg.IsBYOK())
	assert.Equal(t, "sk-***890", cfg.SafeAPIKey())

	temp := 0.2
	replaced, err := s.aiConfigs.Configure(ctx, tenant.ID, ConfigureAIInput{
		Provider:    models.AIProviderGemini,
		APIKey:      "gemini-key-abcdef",
		ModelName:   "gemini-1.5-pro",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, replaced.ID)
	assert.Equal(t, models.AIProviderGemini, replaced.Provider)
	testutil.AssertRecordCount(t, s.tc.DB, &models.TenantAIConfig{}, 1)

	hot, zero := 2.5, 0
	tests := []ConfigureAIInput{
		{Provider: "mistral", APIKey: "k"},
		{Provider: models.AIProviderClaude, APIKey: "   "},
		{Provider: models.AIProviderClaude, APIKey: "k", Temperature: &hot},
		{Provider: models.AIProviderClaude, APIKey: "k", MaxTokens: &zero},
	}
	for _, in := range tests {
		_, err := s.aiConfigs.Configure(ctx, tenant.ID, in)
		assert.True(t, IsValidation(err), "%+v", in)
	}

	_, err = s.aiConfigs.Configure(ctx, uuid.New(), ConfigureAIInput{Provider: models.AIProviderClaude, APIKey: "k"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAIConfigService_Updates(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tenant := testutil.CreateTestTenant(t, s.tc.DB, 5)

	missing, err := s.aiConfigs.Find(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
	_, err = s.aiConfigs.Get(ctx, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.aiConfigs.Deactivate(ctx, tenant.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.aiConfigs.Configure(ctx, tenant.ID, ConfigureAIInput{Provider: models.AIProviderOpenAI, APIKey: "sk-original-key"})
	require.NoError(t, err)

	cfg, err := s.aiConfigs.UpdateAPIKey(ctx, tenant.ID, "sk-rotated-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-rotated-key", cfg.APIKey)

	model, temp, tokens := "gpt-4o", 0.0, 512
	cfg, err = s.aiConfigs.UpdateModelSettings(ctx, tenant.ID, ModelSettingsInput{ModelName: &model, Temperature: &temp, MaxTokens: &tokens})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.ModelName)
	assert.Zero(t, cfg.Temperature)
	assert.Equal(t, 512, cfg.MaxTokens)

	cfg, err = s.aiConfigs.ChangeProvider(ctx, tenant.ID, models.AIProviderClaude, "sk-ant-key", "claude-3-opus")
	require.NoError(t, err)
	assert.Equal(t, models.AIProviderClaude, cfg.Provider)

	_, err = s.aiConfigs.ChangeProvider(ctx, tenant.ID, models.AIProviderClaude, "sk-ant-key", " ")
	assert.True(t, IsValidation(err))

	cfg, err = s.aiConfigs.Deactivate(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)
	assert.False(t, cfg.IsBYOK())

	cfg, err = s.aiConfigs.Activate(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, cfg.IsBYOK())
}
