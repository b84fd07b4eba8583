package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	JobDB      string `toml:"job_db"`
}

// Transcription selects and configures the transcription backend.
type Transcription struct {
	Provider            string `toml:"provider"`
	Model               string `toml:"model"`
	Language            string `toml:"language"`
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	MaxChunkMB          int    `toml:"max_chunk_mb"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHFToken     string `toml:"whisperx_hf_token"`
}

// Retry configures backoff for retryable provider failures.
type Retry struct {
	MaxRetries  int  `toml:"max_retries"`
	BaseDelayMS int  `toml:"base_delay_ms"`
	MaxDelayMS  int  `toml:"max_delay_ms"`
	Jitter      bool `toml:"jitter"`
}

// Chunking configures silence-aware audio splitting.
type Chunking struct {
	NoiseDB                float64 `toml:"noise_db"`
	MinSilenceSeconds      float64 `toml:"min_silence_seconds"`
	TrailingSilenceSeconds float64 `toml:"trailing_silence_seconds"`
	MinFreeGiB             float64 `toml:"min_free_gib"`
}

// Optimizer configures cue shaping after alignment.
type Optimizer struct {
	TrustNativeTiming    bool `toml:"trust_native_timing"`
	FilterHallucinations bool `toml:"filter_hallucinations"`
}

// Quality configures the scorer and gate.
type Quality struct {
	Threshold           float64 `toml:"threshold"`
	HallucinationStreak int     `toml:"hallucination_streak"`
	LowLogprob          float64 `toml:"low_logprob"`
	VeryLowLogprob      float64 `toml:"very_low_logprob"`
}

// Workers bounds concurrent jobs.
type Workers struct {
	MaxWorkers int `toml:"max_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cueforge.
//
// Configuration sections by subsystem:
//   - Paths: staging, log, and job database locations
//   - Transcription: backend selection (openai, whisperx) and credentials
//   - Retry: exponential backoff for provider calls
//   - Chunking: silence detection parameters for oversized audio
//   - Optimizer: cue shaping policy
//   - Quality: scoring thresholds and gate pass mark
//   - Workers: concurrent job limit
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Retry         Retry         `toml:"retry"`
	Chunking      Chunking      `toml:"chunking"`
	Optimizer     Optimizer     `toml:"optimizer"`
	Quality       Quality       `toml:"quality"`
	Workers       Workers       `toml:"workers"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cueforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the staging and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if db := strings.TrimSpace(c.Paths.JobDB); db != "" {
		if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
			return fmt.Errorf("create job database directory: %w", err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for chunking.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// MaxChunkBytes returns the provider upload limit in bytes.
func (c *Config) MaxChunkBytes() int64 {
	return int64(c.Transcription.MaxChunkMB) * 1024 * 1024
}

// ProviderTimeout returns the per-request timeout for remote providers.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// RetryDelays returns the configured base and max backoff delays.
func (c *Config) RetryDelays() (time.Duration, time.Duration) {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond, time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
