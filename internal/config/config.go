package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Feeds     []FeedConfig    `mapstructure:"feeds"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Export    ExportConfig    `mapstructure:"export"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Supported LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
)

// LLMConfig holds the chat-completion settings shared by every model call
type LLMConfig struct {
	Provider          string  `mapstructure:"provider"` // anthropic, groq or openai
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"` // Override for OpenAI-compatible endpoints
	Model             string  `mapstructure:"model"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"` // 0 disables throttling
	Burst             int     `mapstructure:"burst"`
}

// CorpusConfig holds the locations of the raw and enriched corpus files
type CorpusConfig struct {
	RawPath       string `mapstructure:"raw_path"`
	ProcessedPath string `mapstructure:"processed_path"`
}

// EnrichConfig holds enrichment pipeline settings
type EnrichConfig struct {
	Workers int `mapstructure:"workers"` // 1 keeps extraction sequential
}

// DatabaseConfig holds history store settings
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// FeedConfig represents a single RSS/Atom feed used to build the raw corpus
type FeedConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	EnrichCron string `mapstructure:"enrich_cron"`
	IngestFeed bool   `mapstructure:"ingest_feeds"` // Refresh the raw corpus before each run
}

// ExportConfig holds Google Sheets export settings
type ExportConfig struct {
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	ServiceAccountJSON string `mapstructure:"service_account_json"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".postpilot"))
		}
	}

	v.SetEnvPrefix("POSTPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper doesn't auto-bind nested keys for Unmarshal, so bind the ones people set from the shell.
	v.BindEnv("llm.api_key", "POSTPILOT_LLM_API_KEY")
	v.BindEnv("llm.provider", "POSTPILOT_LLM_PROVIDER")
	v.BindEnv("llm.model", "POSTPILOT_LLM_MODEL")
	v.BindEnv("llm.base_url", "POSTPILOT_LLM_BASE_URL")
	v.BindEnv("llm.temperature", "POSTPILOT_LLM_TEMPERATURE")
	v.BindEnv("corpus.raw_path", "POSTPILOT_CORPUS_RAW_PATH")
	v.BindEnv("corpus.processed_path", "POSTPILOT_CORPUS_PROCESSED_PATH")
	v.BindEnv("enrich.workers", "POSTPILOT_ENRICH_WORKERS")
	v.BindEnv("database.enabled", "POSTPILOT_DATABASE_ENABLED")
	v.BindEnv("database.dsn", "POSTPILOT_DATABASE_DSN")
	v.BindEnv("export.spreadsheet_id", "POSTPILOT_EXPORT_SPREADSHEET_ID")
	v.BindEnv("export.credentials_file", "POSTPILOT_EXPORT_CREDENTIALS_FILE")
	v.BindEnv("export.service_account_json", "POSTPILOT_EXPORT_SERVICE_ACCOUNT_JSON")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.LLM.Provider = strings.ToLower(strings.TrimSpace(config.LLM.Provider))
	if config.LLM.APIKey == "" {
		// Fall back to the provider's own variable, never another provider's.
		if name := ProviderKeyEnv(config.LLM.Provider); name != "" {
			config.LLM.APIKey = os.Getenv(name)
		}
	}
	if config.LLM.Model == "" {
		config.LLM.Model = DefaultModel(config.LLM.Provider)
	}

	return &config, nil
}

// ProviderKeyEnv returns the provider-native API key variable, or "" for an unknown provider
func ProviderKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// MaxTemperature returns the highest sampling temperature a provider accepts
func MaxTemperature(provider string) float64 {
	if provider == ProviderAnthropic {
		return 1
	}
	return 2
}

// DefaultModel returns the model used when none is configured for a provider
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return "llama-3.1-8b-instant"
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// LLM defaults - Groq-hosted Llama at a low temperature for stable metadata
	v.SetDefault("llm.provider", ProviderGroq)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.requests_per_minute", 30)
	v.SetDefault("llm.burst", 2)

	// Corpus defaults
	v.SetDefault("corpus.raw_path", "data/raw_posts.json")
	v.SetDefault("corpus.processed_path", "data/processed_posts.json")

	// Enrichment defaults
	v.SetDefault("enrich.workers", 1)

	// History store defaults
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.dsn", "./data/postpilot.db")

	// Scheduler defaults
	v.SetDefault("scheduler.enrich_cron", "0 3 * * *") // 3am daily
	v.SetDefault("scheduler.ingest_feeds", true)

	// Export defaults
	v.SetDefault("export.sheet_name", "Corpus")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderGroq, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be one of anthropic, groq, openai (got %q)", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if maxTemp := MaxTemperature(c.LLM.Provider); c.LLM.Temperature < 0 || c.LLM.Temperature > maxTemp {
		return fmt.Errorf("llm.temperature must be between 0 and %g for %s", maxTemp, c.LLM.Provider)
	}
	if c.Enrich.Workers < 1 {
		return fmt.Errorf("enrich.workers must be at least 1")
	}
	return nil
}

// ValidateExport validates the settings needed by the Sheets exporter
func (c *Config) ValidateExport() error {
	if c.Export.SpreadsheetID == "" {
		return fmt.Errorf("export.spreadsheet_id is required")
	}
	if c.Export.ServiceAccountJSON == "" && c.Export.CredentialsFile == "" {
		return fmt.Errorf("export.service_account_json or export.credentials_file is required")
	}
	return nil
}
