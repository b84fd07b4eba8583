// Package openai provides a transcription backend on the OpenAI audio API.
//
// Whisper models are asked for verbose_json with word and segment timestamps;
// the returned segments are rendered to WebVTT cue text so they flow through
// the aligner like any other timed backend. The gpt-4o transcribe models only
// return plain text (optionally with token logprobs) and are reported as
// having no native timing.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"cueforge/internal/language"
	"cueforge/internal/services"
	"cueforge/internal/subtitles"
	"cueforge/internal/transcription"
)

// DefaultModel is the timed Whisper model.
const DefaultModel = oai.AudioModelWhisper1

// MaxFileBytes is the API's upload limit.
const MaxFileBytes = 25 * 1024 * 1024

const stageName = "transcription"

// Ensure Provider implements the transcription.Provider interface.
var _ transcription.Provider = (*Provider)(nil)

// Provider implements transcription.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a Provider. If model is empty, DefaultModel is used.
// The client's own retries are disabled; callers wrap the provider with
// transcription.WithRetry instead.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "openai", "api key must not be empty", nil)
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Name implements transcription.Provider.
func (p *Provider) Name() string { return "openai" }

// Model returns the configured model.
func (p *Provider) Model() string { return p.model }

// Capabilities implements transcription.Provider.
func (p *Provider) Capabilities() transcription.Capabilities {
	if isTimedModel(p.model) {
		return transcription.Capabilities{
			NativeTiming:   true,
			WordTimestamps: true,
			Logprobs:       true,
			Prompt:         true,
			MaxFileBytes:   MaxFileBytes,
		}
	}
	return transcription.Capabilities{
		Logprobs:     true,
		Prompt:       true,
		MaxFileBytes: MaxFileBytes,
	}
}

func isTimedModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "whisper")
}

// Transcribe implements transcription.Provider.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return transcription.Result{}, services.Wrap(services.ErrValidation, stageName, "open audio", req.FilePath, err)
	}
	defer f.Close()

	model := p.model
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}
	params := oai.AudioTranscriptionNewParams{
		File:  f,
		Model: model,
	}
	if lang := language.ToISO2(req.Language); lang != "" {
		params.Language = oai.String(lang)
	}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		params.Prompt = oai.String(prompt)
	}
	timed := isTimedModel(model)
	if timed {
		params.ResponseFormat = oai.AudioResponseFormatVerboseJSON
		params.TimestampGranularities = []string{"word", "segment"}
	} else {
		params.ResponseFormat = oai.AudioResponseFormatJSON
		params.Include = []oai.TranscriptionInclude{oai.TranscriptionIncludeLogprobs}
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return transcription.Result{}, classify(err)
	}

	if !timed {
		result := transcription.Result{Text: strings.TrimSpace(resp.Text)}
		for _, lp := range resp.Logprobs {
			result.Logprobs = append(result.Logprobs, lp.Logprob)
		}
		return result, nil
	}
	return decodeVerbose(resp.RawJSON())
}

// HealthCheck lists models to confirm the key and endpoint work.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return classify(err)
	}
	return nil
}

type verboseSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	AvgLogprob float64 `json:"avg_logprob"`
}

type verboseWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type verbosePayload struct {
	Text     string           `json:"text"`
	Duration float64          `json:"duration"`
	Segments []verboseSegment `json:"segments"`
	Words    []verboseWord    `json:"words"`
}

// decodeVerbose turns a verbose_json body into cue text plus words. Segment
// average logprobs are reported once per segment.
func decodeVerbose(raw string) (transcription.Result, error) {
	var payload verbosePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return transcription.Result{}, services.Wrap(services.ErrTranscriptionFailed, stageName, "decode", "malformed verbose_json response", err)
	}

	cues := make([]subtitles.Segment, 0, len(payload.Segments))
	averages := make([]transcription.SpanLogprob, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cues = append(cues, subtitles.Segment{Start: seg.Start, End: seg.End, Text: text})
		averages = append(averages, transcription.SpanLogprob{Start: seg.Start, End: seg.End, Logprob: seg.AvgLogprob})
	}

	words := make([]subtitles.Word, 0, len(payload.Words))
	for _, w := range payload.Words {
		words = append(words, subtitles.Word{Word: strings.TrimSpace(w.Word), Start: w.Start, End: w.End})
	}

	return transcription.Result{
		CueText:  subtitles.FormatVTT(cues),
		Words:    words,
		Averages: averages,
		Text:     strings.TrimSpace(payload.Text),
		Duration: payload.Duration,
	}, nil
}

// classify maps API failures onto the error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return services.FromHTTPStatus(apiErr.StatusCode, stageName, "openai", msg, err)
	}
	return services.Wrap(services.ErrTranscriptionFailed, stageName, "openai", fmt.Sprintf("request failed: %v", err), err)
}
