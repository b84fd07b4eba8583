package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.JobDB, err = expandPath(strings.TrimSpace(c.Paths.JobDB)); err != nil {
		return fmt.Errorf("paths.job_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	t := &c.Transcription
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Provider == "" {
		t.Provider = defaultProvider
	}
	t.Model = strings.TrimSpace(t.Model)
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	t.APIKey = strings.TrimSpace(t.APIKey)
	if t.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			t.APIKey = strings.TrimSpace(value)
		}
	}
	if t.Model == "" && t.Provider == ProviderOpenAI {
		t.Model = defaultOpenAIModel
	}
	if t.WhisperXModel = strings.TrimSpace(t.WhisperXModel); t.WhisperXModel == "" {
		t.WhisperXModel = defaultWhisperXModel
	}
	t.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(t.WhisperXVADMethod))
	if t.WhisperXVADMethod == "" {
		t.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	if t.WhisperXHFToken == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			t.WhisperXHFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
