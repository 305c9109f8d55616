package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/client"
	"github.com/cleberrangel/task-estimation-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleterByProvider(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:    config.ProviderAzure,
		OpenAIEndpoint: "https://example.openai.azure.com/chat",
		OpenAIAPIKey:   "key",
		MaxTokens:      150,
		Temperature:    0.7,
	}

	completer, err := NewCompleter(t.Context(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &client.CompletionClient{}, completer)

	cfg.LLMProvider = config.ProviderGemini
	_, err = NewCompleter(t.Context(), cfg)
	assert.Error(t, err, "gemini without API key")

	cfg.LLMProvider = "other"
	_, err = NewCompleter(t.Context(), cfg)
	assert.ErrorContains(t, err, "LLM_PROVIDER")
}

func TestLoadPrompts(t *testing.T) {
	set, err := LoadPrompts(&config.Config{})
	require.NoError(t, err)
	assert.NotEmpty(t, set.ProjectSummary)

	_, err = LoadPrompts(&config.Config{PromptsFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenCatalogDisabled(t *testing.T) {
	catalog, err := OpenCatalog(t.Context(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, catalog)
}

func TestNewSearch(t *testing.T) {
	assert.Nil(t, NewSearch(&config.Config{SearchEndpoint: "https://kb.search.windows.net"}))

	search := NewSearch(&config.Config{
		SearchEndpoint: "https://kb.search.windows.net",
		SearchAPIKey:   "key",
		SearchIndex:    "tasks",
		SearchTop:      5,
	})
	assert.NotNil(t, search)
}

func TestNewServicesWithoutDatabase(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:        config.ProviderAzure,
		OpenAIEndpoint:     "https://example.openai.azure.com/chat",
		OpenAIAPIKey:       "key",
		DocIntelEndpoint:   "https://docs.example.com",
		DocIntelAPIKey:     "doc-key",
		PollInterval:       time.Second,
		ExtractionCacheTTL: time.Minute,
	}

	services, err := NewServices(t.Context(), cfg, nil)
	require.NoError(t, err)
	defer services.Close()

	assert.Nil(t, services.DB)
	assert.Nil(t, services.Search)
	assert.NotNil(t, services.Analysis)
	assert.False(t, services.Staffing.Enabled())
}
