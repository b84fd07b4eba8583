package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
	ErrTimeout             = errors.New("timeout")
	ErrTransient           = errors.New("transient failure")
)

// Error codes persisted with failed jobs.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeTranscriptionFailed = "TRANSCRIPTION_FAILED"
	CodeChunkingFailed      = "CHUNKING_FAILED"
	CodeInternal            = "INTERNAL"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FromHTTPStatus classifies a provider HTTP status into the error taxonomy.
// Only 400 and 401 are permanent; any other failure status is retried.
func FromHTTPStatus(status int, stage, operation, message string, err error) error {
	switch status {
	case http.StatusBadRequest:
		return Wrap(ErrInvalidRequest, stage, operation, message, err)
	case http.StatusUnauthorized:
		return Wrap(ErrUnauthorized, stage, operation, message, err)
	case http.StatusTooManyRequests:
		return Wrap(ErrRateLimited, stage, operation, message, err)
	default:
		return Wrap(ErrTranscriptionFailed, stage, operation, fmt.Sprintf("%s (http %d)", message, status), err)
	}
}

// Code maps an error to the code string recorded with a failed job.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrValidation):
		return CodeInvalidRequest
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrExternalTool):
		return CodeChunkingFailed
	case errors.Is(err, ErrTranscriptionFailed), errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return CodeTranscriptionFailed
	default:
		return CodeInternal
	}
}

// IsRetryable reports whether a failed provider call may succeed when repeated.
// Rate limits, server-side transcription failures, timeouts and dropped
// connections qualify; malformed requests, bad credentials and local tool
// failures never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrExternalTool),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration):
		return false
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrTranscriptionFailed),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTransient):
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
