package config

const (
	defaultConfigPath             = "~/.config/cueforge/config.toml"
	defaultStagingDir             = "~/.local/share/cueforge/staging"
	defaultLogDir                 = "~/.local/share/cueforge/logs"
	defaultJobDB                  = "~/.local/share/cueforge/jobs.db"
	defaultProvider               = ProviderOpenAI
	defaultOpenAIModel            = "whisper-1"
	defaultTimeoutSeconds         = 300
	defaultMaxChunkMB             = 25
	defaultWhisperXModel          = "large-v3"
	defaultWhisperXVADMethod      = "silero"
	defaultRetryMaxRetries        = 3
	defaultRetryBaseDelayMS       = 1000
	defaultRetryMaxDelayMS        = 30000
	defaultNoiseDB                = -30.0
	defaultMinSilenceSeconds      = 2.0
	defaultTrailingSilenceSeconds = 2.0
	defaultQualityThreshold       = 70.0
	defaultHallucinationStreak    = 3
	defaultLowLogprob             = -0.5
	defaultVeryLowLogprob         = -2.0
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Provider names accepted in transcription.provider.
const (
	ProviderOpenAI   = "openai"
	ProviderWhisperX = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			JobDB:      defaultJobDB,
		},
		Transcription: Transcription{
			Provider:          defaultProvider,
			Model:             defaultOpenAIModel,
			TimeoutSeconds:    defaultTimeoutSeconds,
			MaxChunkMB:        defaultMaxChunkMB,
			WhisperXModel:     defaultWhisperXModel,
			WhisperXVADMethod: defaultWhisperXVADMethod,
		},
		Retry: Retry{
			MaxRetries:  defaultRetryMaxRetries,
			BaseDelayMS: defaultRetryBaseDelayMS,
			MaxDelayMS:  defaultRetryMaxDelayMS,
		},
		Chunking: Chunking{
			NoiseDB:                defaultNoiseDB,
			MinSilenceSeconds:      defaultMinSilenceSeconds,
			TrailingSilenceSeconds: defaultTrailingSilenceSeconds,
		},
		Optimizer: Optimizer{
			FilterHallucinations: true,
		},
		Quality: Quality{
			Threshold:           defaultQualityThreshold,
			HallucinationStreak: defaultHallucinationStreak,
			LowLogprob:          defaultLowLogprob,
			VeryLowLogprob:      defaultVeryLowLogprob,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
