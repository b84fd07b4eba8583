package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"cueforge/internal/config"
	"cueforge/internal/deps"
	"cueforge/internal/services"
	"cueforge/internal/transcription/openai"
	"cueforge/internal/transcription/whisperx"
)

const providerCheckTimeout = 30 * time.Second

// CheckProvider verifies that the configured transcription backend is usable.
// The OpenAI check lists models with a single attempt and a 30-second timeout.
func CheckProvider(ctx context.Context, cfg *config.Config) Result {
	const name = "Transcription provider"

	switch strings.ToLower(strings.TrimSpace(cfg.Transcription.Provider)) {
	case config.ProviderOpenAI:
		if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
			return Result{Name: name, Detail: "openai: API key missing"}
		}
		opts := []openai.Option{openai.WithTimeout(providerCheckTimeout)}
		if cfg.Transcription.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Transcription.BaseURL))
		}
		provider, err := openai.New(cfg.Transcription.APIKey, cfg.Transcription.Model, opts...)
		if err != nil {
			return Result{Name: name, Detail: "openai: " + summarizeError(err)}
		}

		checkCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
		defer cancel()
		if err := provider.HealthCheck(checkCtx); err != nil {
			return Result{Name: name, Detail: "openai: " + summarizeError(err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("openai (%s) API reachable", provider.Model())}
	case config.ProviderWhisperX:
		statuses := deps.CheckBinaries([]deps.Requirement{{Name: "uvx", Command: whisperx.UVXCommand}})
		if !statuses[0].Available {
			return Result{Name: name, Detail: "whisperx: " + statuses[0].Detail}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("whisperx via %s", statuses[0].Path)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown provider %q", cfg.Transcription.Provider)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB available.
func CheckFreeSpace(path string, minGiB float64) Result {
	const name = "Staging free space"

	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	avail := float64(st.Bavail) * float64(st.Bsize) / (1 << 30)
	detail := fmt.Sprintf("%.1f GiB available (minimum %.1f GiB)", avail, minGiB)
	return Result{Name: name, Passed: avail >= minGiB, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries required by the given
// config. Both the generate path and the status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio conversion and chunking",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for duration probing",
		},
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "uvx",
		Command:     whisperx.UVXCommand,
		Description: "Required for WhisperX-driven transcription",
		Optional:    !strings.EqualFold(strings.TrimSpace(cfg.Transcription.Provider), config.ProviderWhisperX),
	})
	return deps.CheckBinaries(requirements)
}

// summarizeError produces a human-readable summary for provider check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return "authentication failed (check api_key)"
	case errors.Is(err, services.ErrRateLimited):
		return "rate limited"
	}
	return err.Error()
}
