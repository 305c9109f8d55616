package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DOC_INTEL_ENDPOINT", "https://docs.example.com")
	t.Setenv("DOC_INTEL_API_KEY", "doc-key")
	t.Setenv("OPENAI_ENDPOINT", "https://llm.example.com/chat")
	t.Setenv("OPENAI_API_KEY", "llm-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "prebuilt-read", cfg.DocIntelModel)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 0, cfg.MaxPollAttempts)
	assert.Equal(t, 150, cfg.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, ProviderAzure, cfg.LLMProvider)
	assert.Equal(t, StorageLocal, cfg.StorageType)
	assert.False(t, cfg.DatabaseEnabled())
}

func TestLoadParsesBasicAuthUsers(t *testing.T) {
	setRequired(t)
	t.Setenv("BASIC_AUTH_USERS", "ana:$2a$10$abc,bruno:$2a$10$def")
	t.Setenv("PUBLIC_BASE_URL", "https://estimates.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$abc", cfg.BasicAuthUsers["ana"])
	assert.Equal(t, "$2a$10$def", cfg.BasicAuthUsers["bruno"])
	assert.Equal(t, "https://estimates.example.com", cfg.PublicBaseURL)
}

func TestValidateMissingKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("DOC_INTEL_API_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestValidateGeminiProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("OPENAI_ENDPOINT", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingKey)

	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
}

func TestValidateS3RequiresBucket(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_TYPE", "s3")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestIntegrationsConfigured(t *testing.T) {
	cfg := &Config{LLMProvider: ProviderAzure}
	assert.False(t, cfg.DocIntelConfigured())
	assert.False(t, cfg.CompletionConfigured())

	cfg.DocIntelEndpoint = "https://docs.example.com"
	assert.False(t, cfg.DocIntelConfigured(), "endpoint without key")
	cfg.DocIntelAPIKey = "doc-key"
	assert.True(t, cfg.DocIntelConfigured())

	cfg.OpenAIEndpoint = "https://llm.example.com/chat"
	assert.False(t, cfg.CompletionConfigured(), "endpoint without key")
	cfg.OpenAIAPIKey = "llm-key"
	assert.True(t, cfg.CompletionConfigured())

	cfg.LLMProvider = ProviderGemini
	assert.False(t, cfg.CompletionConfigured(), "azure keys do not serve gemini")
	cfg.GeminiAPIKey = "gem-key"
	assert.True(t, cfg.CompletionConfigured())

	cfg.LLMProvider = "other"
	assert.False(t, cfg.CompletionConfigured())
}

func TestSearchSettings(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.SearchEnabled())
	assert.Equal(t, 5, cfg.SearchTop)

	t.Setenv("SEARCH_ENDPOINT", "https://kb.search.windows.net")
	_, err = Load()
	assert.ErrorIs(t, err, ErrMissingKey)

	t.Setenv("SEARCH_API_KEY", "search-key")
	t.Setenv("SEARCH_INDEX", "tasks")
	t.Setenv("SEARCH_TOP", "3")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.SearchEnabled())
	assert.Equal(t, 3, cfg.SearchTop)

	t.Setenv("SEARCH_TOP", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "SEARCH_TOP")
}
