package pipeline

import (
	"fmt"
	"log/slog"

	"cueforge/internal/config"
	"cueforge/internal/services"
	"cueforge/internal/transcription"
	"cueforge/internal/transcription/openai"
	"cueforge/internal/transcription/whisperx"
)

// NewProvider builds the configured transcription backend wrapped with the
// configured retry policy.
func NewProvider(cfg *config.Config, logger *slog.Logger) (transcription.Provider, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "provider", "config is nil", nil)
	}
	var provider transcription.Provider
	switch cfg.Transcription.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{}
		if cfg.Transcription.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Transcription.BaseURL))
		}
		if timeout := cfg.ProviderTimeout(); timeout > 0 {
			opts = append(opts, openai.WithTimeout(timeout))
		}
		p, err := openai.New(cfg.Transcription.APIKey, cfg.Transcription.Model, opts...)
		if err != nil {
			return nil, err
		}
		provider = p
	case config.ProviderWhisperX:
		provider = whisperx.New(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
			VADMethod:   cfg.Transcription.WhisperXVADMethod,
			HFToken:     cfg.Transcription.WhisperXHFToken,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "provider",
			fmt.Sprintf("unknown transcription provider %q", cfg.Transcription.Provider), nil)
	}
	return transcription.WithRetry(provider, RetryPolicy(cfg), logger), nil
}

// RetryPolicy converts the [retry] section into a services.RetryPolicy.
func RetryPolicy(cfg *config.Config) services.RetryPolicy {
	base, maxDelay := cfg.RetryDelays()
	return services.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  base,
		MaxDelay:   maxDelay,
		Jitter:     cfg.Retry.Jitter,
	}
}
