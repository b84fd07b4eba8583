package transcription

import (
	"context"
	"log/slog"
	"time"

	"cueforge/internal/logging"
	"cueforge/internal/services"
)

type retrying struct {
	inner  Provider
	policy services.RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps p so retryable failures (rate limits, transient provider
// errors, timeouts, connection resets) are retried with exponential backoff.
// Invalid-request and unauthorized failures surface on the first attempt.
func WithRetry(p Provider, policy services.RetryPolicy, logger *slog.Logger) Provider {
	if p == nil {
		return nil
	}
	return &retrying{inner: p, policy: policy, logger: logging.NewComponentLogger(logger, "transcription")}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Capabilities() Capabilities { return r.inner.Capabilities() }

func (r *retrying) Transcribe(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, r.logger)
	policy := r.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.WarnWithContext(logger, "transcription attempt failed; retrying",
			"transcription_retry",
			logging.String("provider", r.inner.Name()),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.String("error_code", services.Code(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "provider may be rate limiting or degraded"),
			logging.String(logging.FieldImpact, "job delayed"),
		)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, delay, err)
		}
	}

	var result Result
	err := services.Retry(ctx, policy, func(ctx context.Context) error {
		res, err := r.inner.Transcribe(ctx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	}, services.IsRetryable)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
