package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIClient_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-2024-08-06",
			"choices": [{"message": {"role": "assistant", "content": "Looking for Go engineers"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30}
		}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("openai", srv.URL, "sk-test", Options{Model: "gpt-4o", MaxTokens: 500}, 5*time.Second)
	resp, err := client.Generate(context.Background(), []Message{
		SystemMessage("You are a recruiter"),
		UserMessage("Analyze the vacancy"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Looking for Go engineers", resp.Content)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, Usage{PromptTokens: 120, CompletionTokens: 30}, resp.Usage)
	assert.Equal(t, 150, resp.Usage.Total())

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.Equal(t, 0.0, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestOpenAIClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
			return
		}
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	bad := NewOpenAIClient("openai", srv.URL, "bad-key", Options{Model: "gpt-4o"}, time.Second)
	_, err := bad.Generate(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Incorrect API key provided")

	empty := NewOpenAIClient("llama", srv.URL, "", Options{Model: "llama3"}, time.Second)
	_, err = empty.Generate(context.Background(), []Message{UserMessage("hi")})
	assert.EqualError(t, err, "no choices in completion response")
}

func TestClaudeClient_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-opus-20240229",
			"content": [{"type": "text", "text": "Three strong profiles"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 42, "output_tokens": 7}
		}`))
	}))
	defer srv.Close()

	client := NewClaudeClient("sk-ant-test", srv.URL, Options{Model: "claude-3-opus-20240229", MaxTokens: 1024}, 5*time.Second)
	resp, err := client.Generate(context.Background(), []Message{
		SystemMessage("You are a sourcer"),
		UserMessage("Find candidates"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Three strong profiles", resp.Content)
	assert.Equal(t, "claude-3-opus-20240229", resp.Model)
	assert.Equal(t, Usage{PromptTokens: 42, CompletionTokens: 7}, resp.Usage)

	assert.Equal(t, float64(1024), body["max_tokens"])
	assert.Equal(t, float64(0), body["temperature"])
	assert.NotNil(t, body["system"])
	assert.Len(t, body["messages"], 1)
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-1.5-flash:generateContent"), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Analysis done"}]}}],
			"usageMetadata": {"promptTokenCount": 11, "candidatesTokenCount": 4}
		}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(context.Background(), "gm-test", srv.URL, Options{Model: "gemini-1.5-flash", MaxTokens: 256}, 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), []Message{UserMessage("Analyze")})
	require.NoError(t, err)
	assert.Equal(t, "Analysis done", resp.Content)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
	assert.Equal(t, Usage{PromptTokens: 11, CompletionTokens: 4}, resp.Usage)
}

func testFactory(platformKey string) *Factory {
	return NewFactory(config.AIConfig{
		PlatformProvider: "openai",
		PlatformAPIKey:   platformKey,
		PlatformModel:    "gemini-1.5-flash",
		OpenAIBaseURL:    "http://localhost:1/v1",
		LlamaBaseURL:     "http://localhost:2/v1",
		RequestTimeout:   time.Second,
	}, zap.NewNop())
}

func TestFactory_Resolve(t *testing.T) {
	f := testFactory("platform-key")

	tests := []struct {
		name     string
		cfg      *models.TenantAIConfig
		provider models.AIProvider
		model    string
		key      string
		byok     bool
	}{
		{
			name:     "no tenant config uses platform",
			cfg:      nil,
			provider: models.AIProviderOpenAI,
			model:    "gemini-1.5-flash",
			key:      "platform-key",
		},
		{
			name:     "active byok config",
			cfg:      &models.TenantAIConfig{Provider: models.AIProviderClaude, APIKey: "sk-ant-123", ModelName: "claude-3-opus", MaxTokens: 900, IsActive: true},
			provider: models.AIProviderClaude,
			model:    "claude-3-opus",
			key:      "sk-ant-123",
			byok:     true,
		},
		{
			name:     "inactive config falls back",
			cfg:      &models.TenantAIConfig{Provider: models.AIProviderClaude, APIKey: "sk-ant-123", ModelName: "claude-3-opus", IsActive: false},
			provider: models.AIProviderOpenAI,
			model:    "gemini-1.5-flash",
			key:      "platform-key",
		},
		{
			name:     "platform_default provider falls back",
			cfg:      &models.TenantAIConfig{Provider: models.AIProviderPlatformDefault, APIKey: "own-key", IsActive: true},
			provider: models.AIProviderOpenAI,
			model:    "gemini-1.5-flash",
			key:      "platform-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := f.Resolve(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, sel.Provider)
			assert.Equal(t, tt.model, sel.Model)
			assert.Equal(t, tt.key, sel.APIKey)
			assert.Equal(t, tt.byok, sel.BYOK)
		})
	}
}

func TestFactory_MissingPlatformKey(t *testing.T) {
	f := testFactory("")

	_, err := f.ForTenant(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	model, err := f.ForTenant(context.Background(), &models.TenantAIConfig{
		Provider:  models.AIProviderGemini,
		APIKey:    "gm-key",
		ModelName: "gemini-1.5-pro",
		IsActive:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", model.Provider())
	assert.Equal(t, "gemini-1.5-pro", model.ModelName())
}

func TestFactory_New(t *testing.T) {
	f := testFactory("platform-key")
	ctx := context.Background()

	for _, p := range []models.AIProvider{models.AIProviderOpenAI, models.AIProviderClaude, models.AIProviderLlama} {
		model, err := f.New(ctx, Selection{Provider: p, Model: "m", APIKey: "k"})
		require.NoError(t, err, p)
		assert.Equal(t, string(p), model.Provider())
		assert.Equal(t, "m", model.ModelName())
	}

	_, err := f.New(ctx, Selection{Provider: "mistral", Model: "m", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = f.New(ctx, Selection{Provider: models.AIProviderClaude, Model: "m"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	llama, err := f.New(ctx, Selection{Provider: models.AIProviderLlama, Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "llama3", llama.ModelName())
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		SystemMessage("a"),
		UserMessage("q"),
		SystemMessage("b"),
		AssistantMessage("r"),
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{UserMessage("q"), AssistantMessage("r")}, rest)
}
