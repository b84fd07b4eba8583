package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cueforge/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "cueforge", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Transcription.APIKey != "sk-test" {
		t.Fatalf("expected API key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Transcription.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected provider %q", cfg.Transcription.Provider)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelayMS != 1000 || cfg.Retry.MaxDelayMS != 30000 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Chunking.NoiseDB != -30 || cfg.Chunking.MinSilenceSeconds != 2 {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Quality.Threshold != 70 {
		t.Fatalf("unexpected quality threshold %v", cfg.Quality.Threshold)
	}
	if cfg.MaxChunkBytes() != 25*1024*1024 {
		t.Fatalf("unexpected max chunk bytes %d", cfg.MaxChunkBytes())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
staging_dir = "~/staging"
log_dir = "~/logs"

[transcription]
provider = "WhisperX"
language = "EN"
whisperx_vad_method = "pyannote"

[quality]
threshold = 85.0

[logging]
format = "json"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.StagingDir != filepath.Join(tempHome, "staging") {
		t.Fatalf("unexpected staging dir %q", cfg.Paths.StagingDir)
	}
	if cfg.Transcription.Provider != config.ProviderWhisperX {
		t.Fatalf("expected provider lowercased, got %q", cfg.Transcription.Provider)
	}
	if cfg.Transcription.Language != "en" {
		t.Fatalf("expected language lowercased, got %q", cfg.Transcription.Language)
	}
	if cfg.Quality.Threshold != 85 {
		t.Fatalf("unexpected threshold %v", cfg.Quality.Threshold)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[transcription]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"provider", func(c *config.Config) { c.Transcription.Provider = "acme" }, "transcription.provider"},
		{"threshold", func(c *config.Config) { c.Quality.Threshold = 120 }, "quality.threshold"},
		{"noise", func(c *config.Config) { c.Chunking.NoiseDB = 5 }, "chunking.noise_db"},
		{"retry", func(c *config.Config) { c.Retry.BaseDelayMS = 60000 }, "retry.base_delay_ms"},
		{"logprob order", func(c *config.Config) { c.Quality.VeryLowLogprob = 0 }, "very_low_logprob"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"workers", func(c *config.Config) { c.Workers.MaxWorkers = -1 }, "workers.max_workers"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "transcription", "retry", "chunking", "optimizer", "quality", "workers", "logging"} {
		if _, ok := decoded[section]; !ok {
			t.Fatalf("sample missing [%s]", section)
		}
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.JobDB = filepath.Join(base, "db", "jobs.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir, filepath.Join(base, "db")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
