package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"POSTPILOT_LLM_API_KEY", "GROQ_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"POSTPILOT_LLM_PROVIDER", "POSTPILOT_LLM_MODEL", "POSTPILOT_ENRICH_WORKERS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderGroq {
		t.Fatalf("expected groq provider, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != DefaultModel(ProviderGroq) {
		t.Fatalf("unexpected default model %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", cfg.LLM.Temperature)
	}
	if cfg.Corpus.RawPath != "data/raw_posts.json" || cfg.Corpus.ProcessedPath != "data/processed_posts.json" {
		t.Fatalf("unexpected corpus paths %+v", cfg.Corpus)
	}
	if cfg.Enrich.Workers != 1 {
		t.Fatalf("expected sequential default, got %d workers", cfg.Enrich.Workers)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without api key")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "postpilot.yaml")
	content := []byte(`
llm:
  provider: Anthropic
  temperature: 0.5
enrich:
  workers: 4
feeds:
  - name: blog
    url: https://example.com/feed.xml
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderAnthropic {
		t.Fatalf("expected provider to be normalised, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != DefaultModel(ProviderAnthropic) {
		t.Fatalf("unexpected model %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected api key from ANTHROPIC_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Enrich.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Enrich.Workers)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Name != "blog" {
		t.Fatalf("unexpected feeds %+v", cfg.Feeds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadAPIKeyFollowsProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{ProviderAnthropic, "anthropic-key"},
		{ProviderGroq, "groq-key"},
		{ProviderOpenAI, "openai-key"},
	}
	for _, tc := range cases {
		clearEnv(t)
		chdir(t, t.TempDir())
		t.Setenv("GROQ_API_KEY", "groq-key")
		t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
		t.Setenv("OPENAI_API_KEY", "openai-key")
		t.Setenv("POSTPILOT_LLM_PROVIDER", tc.provider)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("%s: Load: %v", tc.provider, err)
		}
		if cfg.LLM.APIKey != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.provider, tc.want, cfg.LLM.APIKey)
		}
	}
}

func TestLoadExplicitAPIKeyWins(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("POSTPILOT_LLM_PROVIDER", ProviderAnthropic)
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("POSTPILOT_LLM_API_KEY", "explicit-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "explicit-key" {
		t.Fatalf("expected POSTPILOT_LLM_API_KEY to win, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadIgnoresOtherProviderKey(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("POSTPILOT_LLM_PROVIDER", ProviderAnthropic)
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Fatalf("a groq key must not be used for anthropic, got %q", cfg.LLM.APIKey)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing api key to fail validation")
	}
}

func TestValidateTemperaturePerProvider(t *testing.T) {
	cfg := Config{
		LLM:    LLMConfig{Provider: ProviderGroq, APIKey: "k", MaxTokens: 10, Temperature: 1.5},
		Enrich: EnrichConfig{Workers: 1},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("groq accepts 1.5: %v", err)
	}

	cfg.LLM.Provider = ProviderAnthropic
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected anthropic to reject temperature 1.5")
	}
	cfg.LLM.Temperature = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("anthropic accepts 1: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		LLM:    LLMConfig{Provider: ProviderGroq, APIKey: "k", MaxTokens: 10, Temperature: 0.3},
		Enrich: EnrichConfig{Workers: 1},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := map[string]func(c *Config){
		"provider":    func(c *Config) { c.LLM.Provider = "cohere" },
		"max tokens":  func(c *Config) { c.LLM.MaxTokens = 0 },
		"temperature": func(c *Config) { c.LLM.Temperature = 3 },
		"workers":     func(c *Config) { c.Enrich.Workers = 0 },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateExport(t *testing.T) {
	cfg := Config{}
	if err := cfg.ValidateExport(); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	cfg.Export.SpreadsheetID = "sheet"
	if err := cfg.ValidateExport(); err == nil {
		t.Fatal("expected error without credentials")
	}
	cfg.Export.CredentialsFile = "creds.json"
	if err := cfg.ValidateExport(); err != nil {
		t.Fatalf("ValidateExport: %v", err)
	}
}
