// Package mock provides a scripted transcription.Provider for tests.
//
// Each Transcribe call consumes the next entry of Script. When the script is
// exhausted the last entry repeats, so a single-entry script answers every
// call the same way.
//
//	p := &mock.Provider{Script: []mock.Step{{Result: transcription.Result{Text: "hello"}}}}
package mock

import (
	"context"
	"errors"
	"sync"

	"cueforge/internal/transcription"
)

// Step is one scripted response.
type Step struct {
	Result transcription.Result
	Err    error
}

// Provider is a mock implementation of transcription.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name; defaults to "mock".
	ProviderName string
	// Caps is returned by Capabilities.
	Caps transcription.Capabilities
	// Script holds the responses in call order.
	Script []Step
	// Calls records every request received.
	Calls []transcription.Request
	// OnCall, when set, runs before the scripted response is returned.
	OnCall func(req transcription.Request)
}

// Ensure Provider implements transcription.Provider at compile time.
var _ transcription.Provider = (*Provider)(nil)

// Name implements transcription.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Capabilities implements transcription.Provider.
func (p *Provider) Capabilities() transcription.Capabilities {
	return p.Caps
}

// Transcribe implements transcription.Provider.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	p.mu.Lock()
	idx := len(p.Calls)
	p.Calls = append(p.Calls, req)
	hook := p.OnCall
	var step Step
	switch {
	case len(p.Script) == 0:
		step = Step{Err: errors.New("mock: no scripted response")}
	case idx < len(p.Script):
		step = p.Script[idx]
	default:
		step = p.Script[len(p.Script)-1]
	}
	p.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err := ctx.Err(); err != nil {
		return transcription.Result{}, err
	}
	return step.Result, step.Err
}

// CallCount returns how many times Transcribe ran. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Requests returns a copy of the recorded requests. Thread-safe.
func (p *Provider) Requests() []transcription.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]transcription.Request(nil), p.Calls...)
}
