package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if c.Workers.MaxWorkers < 0 {
		return errors.New("workers.max_workers must be >= 0 (0 means unbounded)")
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	switch t.Provider {
	case ProviderOpenAI, ProviderWhisperX:
	default:
		return fmt.Errorf("transcription.provider must be %q or %q (got %q)", ProviderOpenAI, ProviderWhisperX, t.Provider)
	}
	if t.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	if t.MaxChunkMB <= 0 {
		return errors.New("transcription.max_chunk_mb must be positive")
	}
	switch t.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.whisperx_vad_method must be silero or pyannote (got %q)", t.WhisperXVADMethod)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must be >= 0")
	}
	if c.Retry.BaseDelayMS < 0 || c.Retry.MaxDelayMS < 0 {
		return errors.New("retry delays must be >= 0")
	}
	if c.Retry.MaxDelayMS > 0 && c.Retry.BaseDelayMS > c.Retry.MaxDelayMS {
		return errors.New("retry.base_delay_ms must not exceed retry.max_delay_ms")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.NoiseDB >= 0 {
		return errors.New("chunking.noise_db must be negative")
	}
	if c.Chunking.MinSilenceSeconds <= 0 {
		return errors.New("chunking.min_silence_seconds must be positive")
	}
	if c.Chunking.TrailingSilenceSeconds < 0 {
		return errors.New("chunking.trailing_silence_seconds must be >= 0")
	}
	if c.Chunking.MinFreeGiB < 0 {
		return errors.New("chunking.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 100 {
		return errors.New("quality.threshold must be between 0 and 100")
	}
	if c.Quality.HallucinationStreak < 1 {
		return errors.New("quality.hallucination_streak must be >= 1")
	}
	if c.Quality.VeryLowLogprob > c.Quality.LowLogprob {
		return errors.New("quality.very_low_logprob must not exceed quality.low_logprob")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
