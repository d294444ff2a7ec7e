// Package openai provides a recognition engine backed by the OpenAI audio
// transcription API.
//
// The API is batch-only, so the session simulates streaming behaviour the
// same way the whisper engine does: incoming PCM audio is buffered, an
// energy-based silence detector segments utterances, and each completed
// utterance is encoded as WAV and submitted as one transcription request.
// The session emits only final batches; there is no partial hypothesis to
// revise, so consumers get the whole utterance at once.
//
// Unlike the streaming engines, keyword hints can change mid-session: each
// request is independent, and the current keyword list is folded into the
// request prompt.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/davfehr/typestream/pkg/asr"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = string(oai.AudioModelWhisper1)

const (
	bitsPerSample = 16

	// defaultRMSThreshold mirrors the whisper engine's silence floor for
	// 16-bit PCM.
	defaultRMSThreshold = 300.0

	defaultLanguage            = "en"
	defaultSampleRate          = 16000
	defaultSilenceThresholdMs  = 500
	defaultMaxBufferDurationMs = 10_000
)

var _ asr.Engine = (*Engine)(nil)

// Engine implements asr.Engine using the OpenAI transcription API. Multiple
// sessions may be open simultaneously; each session maintains its own audio
// buffer and goroutine.
type Engine struct {
	client              oai.Client
	model               string
	language            string
	sampleRate          int
	silenceThresholdMs  int
	maxBufferDurationMs int
}

// config holds optional configuration for the engine.
type config struct {
	baseURL             string
	timeout             time.Duration
	model               string
	language            string
	sampleRate          int
	silenceThresholdMs  int
	maxBufferDurationMs int
}

// Option is a functional option for Engine.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// API-compatible local servers.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithModel sets the transcription model (e.g., "whisper-1",
// "gpt-4o-mini-transcribe"). Defaults to whisper-1.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithLanguage sets the ISO-639-1 language code sent with each request.
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(c *config) { c.sampleRate = rate }
}

// WithSilenceThresholdMs sets the consecutive-silence duration (ms) that
// ends the current utterance. Defaults to 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(c *config) { c.silenceThresholdMs = ms }
}

// WithMaxBufferDurationMs sets the maximum buffered audio duration (ms)
// before a forced flush. Defaults to 10 000 ms.
func WithMaxBufferDurationMs(ms int) Option {
	return func(c *config) { c.maxBufferDurationMs = ms }
}

// New constructs a new OpenAI transcription Engine. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}

	cfg := &config{
		model:               DefaultModel,
		language:            defaultLanguage,
		sampleRate:          defaultSampleRate,
		silenceThresholdMs:  defaultSilenceThresholdMs,
		maxBufferDurationMs: defaultMaxBufferDurationMs,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Engine{
		client:              oai.NewClient(reqOpts...),
		model:               cfg.model,
		language:            cfg.language,
		sampleRate:          cfg.sampleRate,
		silenceThresholdMs:  cfg.silenceThresholdMs,
		maxBufferDurationMs: cfg.maxBufferDurationMs,
	}, nil
}

// StartStream opens a new transcription session. It respects cfg.SampleRate,
// cfg.Channels, cfg.Language, and cfg.Keywords; zero/empty values fall back
// to the engine-level defaults.
//
// Returns an error only if the context is already cancelled; no network
// request is made until the first flush.
func (e *Engine) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("openai: context already cancelled: %w", err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = e.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = e.sampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	s := &session{
		client:              e.client,
		model:               e.model,
		language:            lang,
		sampleRate:          sr,
		channels:            ch,
		silenceThresholdMs:  e.silenceThresholdMs,
		maxBufferDurationMs: e.maxBufferDurationMs,
		keywords:            cfg.Keywords,

		audioCh: make(chan []byte, 256),
		batches: make(chan asr.Batch, 64),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.processLoop(ctx)

	return s, nil
}

// ---- session ----------------------------------------------------------------

// session is a live OpenAI transcription session. It implements
// asr.SessionHandle. All mutable buffer state is confined to the processLoop
// goroutine.
type session struct {
	// immutable configuration (set once in StartStream)
	client              oai.Client
	model               string
	language            string
	sampleRate          int
	channels            int
	silenceThresholdMs  int
	maxBufferDurationMs int

	audioCh chan []byte
	batches chan asr.Batch

	kwMu     sync.RWMutex
	keywords []asr.KeywordBoost

	// lifecycle
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

var _ asr.SessionHandle = (*session)(nil)

// SendAudio queues a chunk of raw 16-bit little-endian signed PCM audio for
// silence analysis and buffering. Calling SendAudio after Close returns an
// error.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("openai: session is closed")
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return errors.New("openai: session is closed")
	}
}

// Batches returns a read-only channel that emits one final batch per
// segmented utterance. The channel is closed when the session ends.
func (s *session) Batches() <-chan asr.Batch { return s.batches }

// SetKeywords replaces the active keyword list. The new hints take effect
// from the next transcription request.
func (s *session) SetKeywords(keywords []asr.KeywordBoost) error {
	s.kwMu.Lock()
	s.keywords = keywords
	s.kwMu.Unlock()
	return nil
}

// Close terminates the session, flushes any pending speech audio for a final
// transcription, closes the Batches channel, and releases all associated
// resources. Calling Close more than once is safe and returns nil.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// processLoop is the single goroutine responsible for silence detection,
// audio buffering, and transcription dispatch.
func (s *session) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.batches)

	var (
		buffer    []byte
		hadSpeech bool
		silenceMs int
	)

	bytesPerMs := s.sampleRate * s.channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := s.maxBufferDurationMs * bytesPerMs

	doFlush := func(flushCtx context.Context) {
		if len(buffer) == 0 || !hadSpeech {
			buffer = nil
			hadSpeech = false
			silenceMs = 0
			return
		}

		pcm := buffer
		buffer = nil
		hadSpeech = false
		silenceMs = 0

		text, err := s.transcribe(flushCtx, pcm)
		if err != nil {
			slog.Error("openai transcription failed", "error", err)
			return
		}
		if text == "" {
			return
		}

		select {
		case s.batches <- asr.BatchFromText(text, true):
		default:
		}
	}

	// flushWithTimeout performs a final flush using a fresh background
	// context, independent of the caller-supplied ctx which may already be
	// cancelled.
	flushWithTimeout := func() {
		fc, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		doFlush(fc)
	}

	for {
		select {
		case <-ctx.Done():
			flushWithTimeout()
			return

		case <-s.done:
			flushWithTimeout()
			return

		case chunk, ok := <-s.audioCh:
			if !ok {
				flushWithTimeout()
				return
			}

			rms := computeRMS(chunk)
			chunkMs := chunkDurationMs(chunk, s.sampleRate, s.channels)

			if rms < defaultRMSThreshold {
				// Leading silence before any speech is discarded.
				if hadSpeech {
					silenceMs += chunkMs
					buffer = append(buffer, chunk...)
					if silenceMs >= s.silenceThresholdMs {
						doFlush(ctx)
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				buffer = append(buffer, chunk...)
				if maxBufferBytes > 0 && len(buffer) >= maxBufferBytes {
					doFlush(ctx)
				}
			}
		}
	}
}

// transcribe encodes pcm as WAV and submits one transcription request.
func (s *session) transcribe(ctx context.Context, pcm []byte) (string, error) {
	wav := encodeWAV(pcm, s.sampleRate, s.channels)

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: oai.AudioModel(s.model),
	}
	if s.language != "" {
		params.Language = param.NewOpt(s.language)
	}
	if prompt := s.keywordPrompt(); prompt != "" {
		params.Prompt = param.NewOpt(prompt)
	}

	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// keywordPrompt renders the current keyword list as a vocabulary hint. The
// transcription API has no boosting parameter; listing terms in the prompt
// biases the decoder towards them.
func (s *session) keywordPrompt() string {
	s.kwMu.RLock()
	defer s.kwMu.RUnlock()
	if len(s.keywords) == 0 {
		return ""
	}
	terms := make([]string, len(s.keywords))
	for i, kw := range s.keywords {
		terms[i] = kw.Keyword
	}
	return "Vocabulary: " + strings.Join(terms, ", ")
}
