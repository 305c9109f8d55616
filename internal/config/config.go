package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provedores de completion suportados
const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// Tipos de storage para staging de uploads
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	GinMode  string `envconfig:"GIN_MODE" default:"debug"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	// TokenAPI protege /api/v1 com Bearer quando preenchido
	TokenAPI string `envconfig:"TOKEN_API"`
	// BasicAuthUsers no formato usuario:hash_bcrypt,usuario2:hash2
	BasicAuthUsers map[string]string `envconfig:"BASIC_AUTH_USERS"`

	DocIntelEndpoint    string        `envconfig:"DOC_INTEL_ENDPOINT"`
	DocIntelAPIKey      string        `envconfig:"DOC_INTEL_API_KEY"`
	DocIntelModel       string        `envconfig:"DOC_INTEL_MODEL" default:"prebuilt-read"`
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	MaxPollAttempts     int           `envconfig:"MAX_POLL_ATTEMPTS" default:"0"`
	ExtractionCacheTTL  time.Duration `envconfig:"EXTRACTION_CACHE_TTL" default:"30m"`

	LLMProvider    string  `envconfig:"LLM_PROVIDER" default:"azure"`
	OpenAIEndpoint string  `envconfig:"OPENAI_ENDPOINT"`
	OpenAIAPIKey   string  `envconfig:"OPENAI_API_KEY"`
	MaxTokens      int     `envconfig:"OPENAI_MAX_TOKENS" default:"150"`
	Temperature    float64 `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`
	GeminiAPIKey   string  `envconfig:"GEMINI_API_KEY"`
	GeminiModel    string  `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Base de conhecimento de tasks (Azure AI Search); opcional
	SearchEndpoint string `envconfig:"SEARCH_ENDPOINT"`
	SearchAPIKey   string `envconfig:"SEARCH_API_KEY"`
	SearchIndex    string `envconfig:"SEARCH_INDEX"`
	SearchTop      int    `envconfig:"SEARCH_TOP" default:"5"`

	StorageType    string        `envconfig:"STORAGE_TYPE" default:"local"`
	StorageBaseDir string        `envconfig:"STORAGE_BASE_DIR" default:"./data"`
	PublicBaseURL  string        `envconfig:"PUBLIC_BASE_URL"`
	S3Bucket       string        `envconfig:"S3_BUCKET"`
	S3Prefix       string        `envconfig:"S3_PREFIX"`
	S3Region       string        `envconfig:"S3_REGION" default:"us-east-1"`
	PresignExpiry  time.Duration `envconfig:"S3_PRESIGN_EXPIRY" default:"15m"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	AnswerPath  string `envconfig:"ANSWER_PATH" default:"answer.json"`
	// PromptsFile substitui os templates embutidos quando preenchido
	PromptsFile string `envconfig:"PROMPTS_FILE"`
}

// ErrMissingKey indica que uma chave obrigatória não foi configurada
var ErrMissingKey = errors.New("configuração obrigatória ausente")

// Load carrega as configurações do ambiente e valida as chaves do servidor
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv carrega .env e variáveis de ambiente sem validar chaves de integração
func LoadEnv() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processar variáveis de ambiente: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &cfg, nil
}

// Validate verifica as chaves obrigatórias para o servidor
func (c *Config) Validate() error {
	if c.DocIntelEndpoint == "" {
		return fmt.Errorf("%w: DOC_INTEL_ENDPOINT não configurado", ErrMissingKey)
	}
	if c.DocIntelAPIKey == "" {
		return fmt.Errorf("%w: DOC_INTEL_API_KEY não configurado", ErrMissingKey)
	}

	switch c.LLMProvider {
	case ProviderAzure:
		if c.OpenAIEndpoint == "" {
			return fmt.Errorf("%w: OPENAI_ENDPOINT não configurado", ErrMissingKey)
		}
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY não configurado", ErrMissingKey)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY não configurado", ErrMissingKey)
		}
	default:
		return fmt.Errorf("LLM_PROVIDER inválido: %q", c.LLMProvider)
	}

	switch c.StorageType {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("%w: S3_BUCKET não configurado", ErrMissingKey)
		}
	default:
		return fmt.Errorf("STORAGE_TYPE inválido: %q", c.StorageType)
	}

	if c.SearchEndpoint != "" && (c.SearchAPIKey == "" || c.SearchIndex == "") {
		return fmt.Errorf("%w: SEARCH_API_KEY e SEARCH_INDEX são obrigatórios com SEARCH_ENDPOINT", ErrMissingKey)
	}
	if c.SearchTop <= 0 {
		return fmt.Errorf("SEARCH_TOP deve ser positivo")
	}

	if c.MaxPollAttempts < 0 {
		return fmt.Errorf("MAX_POLL_ATTEMPTS não pode ser negativo")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL deve ser positivo")
	}
	return nil
}

// DatabaseEnabled indica se o catálogo de perfis deve ser carregado do PostgreSQL
func (c *Config) DatabaseEnabled() bool {
	return c.DatabaseURL != ""
}

// DocIntelConfigured indica se o Document Intelligence tem endpoint e chave
func (c *Config) DocIntelConfigured() bool {
	return c.DocIntelEndpoint != "" && c.DocIntelAPIKey != ""
}

// CompletionConfigured indica se o provedor escolhido tem as chaves necessárias
func (c *Config) CompletionConfigured() bool {
	switch c.LLMProvider {
	case ProviderAzure:
		return c.OpenAIEndpoint != "" && c.OpenAIAPIKey != ""
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return false
	}
}

// SearchEnabled indica se as estimativas usam tasks de referência da base de conhecimento
func (c *Config) SearchEnabled() bool {
	return c.SearchEndpoint != "" && c.SearchAPIKey != "" && c.SearchIndex != ""
}
