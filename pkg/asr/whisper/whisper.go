// Package whisper provides a local recognition engine backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.
//
// whisper.cpp is a batch (non-streaming) transcription engine, so the session
// simulates streaming behaviour: incoming PCM audio is buffered, an
// energy-based silence detector segments utterances, and while speech is
// ongoing the accumulated buffer is periodically re-transcribed to produce a
// growing partial hypothesis. Once silence ends the utterance, a last
// inference over the full buffer yields the final batch. Because each partial
// is a fresh decode of a longer prefix, earlier words can be revised between
// partials; downstream consumers must not treat partial text as stable.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/davfehr/typestream/pkg/asr"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which audio is considered silent. The maximum possible
	// value for 16-bit audio is 32 767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage            = "en"
	defaultSampleRate          = 16000
	defaultSilenceThresholdMs  = 500
	defaultMaxBufferDurationMs = 10_000
	defaultPartialIntervalMs   = 750
)

var _ asr.Engine = (*Engine)(nil)

// Engine implements asr.Engine using whisper.cpp Go bindings (CGO),
// eliminating HTTP overhead entirely. The model is loaded once at startup and
// shared across all sessions.
type Engine struct {
	model    whisperlib.Model
	language string

	sampleRate          int
	silenceThresholdMs  int
	maxBufferDurationMs int
	partialIntervalMs   int
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. This must match the
// actual sample rate of PCM data delivered via SendAudio. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(e *Engine) { e.sampleRate = rate }
}

// WithSilenceThresholdMs sets the consecutive-silence duration (ms) that
// ends the current utterance and triggers the final inference. Defaults to
// 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(e *Engine) { e.silenceThresholdMs = ms }
}

// WithMaxBufferDurationMs sets the maximum buffered audio duration (ms)
// before a forced flush. Defaults to 10 000 ms (10 s).
func WithMaxBufferDurationMs(ms int) Option {
	return func(e *Engine) { e.maxBufferDurationMs = ms }
}

// WithPartialIntervalMs sets how often (ms) the accumulated speech buffer is
// re-transcribed into a partial hypothesis while speech is ongoing. Defaults
// to 750 ms. Smaller values lower latency but cost more inference passes.
func WithPartialIntervalMs(ms int) Option {
	return func(e *Engine) { e.partialIntervalMs = ms }
}

// New creates an Engine that loads the whisper.cpp model from the given file
// path. The model is loaded once and shared across all concurrent sessions.
// The caller must call Close when the engine is no longer needed.
func New(modelPath string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	e := &Engine{
		model:               model,
		language:            defaultLanguage,
		sampleRate:          defaultSampleRate,
		silenceThresholdMs:  defaultSilenceThresholdMs,
		maxBufferDurationMs: defaultMaxBufferDurationMs,
		partialIntervalMs:   defaultPartialIntervalMs,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Close releases the whisper model. Must be called when the engine is no
// longer needed.
func (e *Engine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// StartStream opens a new transcription session. The returned SessionHandle
// is ready to accept audio immediately. It respects cfg.SampleRate,
// cfg.Channels, and cfg.Language; if those are zero/empty the engine-level
// defaults apply.
//
// Each session creates its own whisper.cpp context from the shared model, so
// multiple sessions can run concurrently without interference.
func (e *Engine) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
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
		model:               e.model,
		language:            lang,
		sampleRate:          sr,
		channels:            ch,
		silenceThresholdMs:  e.silenceThresholdMs,
		maxBufferDurationMs: e.maxBufferDurationMs,
		partialIntervalMs:   e.partialIntervalMs,

		audioCh: make(chan []byte, 256),
		batches: make(chan asr.Batch, 64),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.processLoop(ctx)

	return s, nil
}

// ---- session ----------------------------------------------------------------

// session is a live whisper transcription session. It implements
// asr.SessionHandle. All mutable state that drives silence detection and
// buffering is confined to the processLoop goroutine.
type session struct {
	// immutable configuration (set once in StartStream)
	model               whisperlib.Model
	language            string
	sampleRate          int
	channels            int
	silenceThresholdMs  int
	maxBufferDurationMs int
	partialIntervalMs   int

	audioCh chan []byte
	batches chan asr.Batch

	// lifecycle
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

var _ asr.SessionHandle = (*session)(nil)

// SendAudio queues a chunk of raw 16-bit little-endian signed PCM audio for
// silence analysis and buffering.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("whisper: session is closed")
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return errors.New("whisper: session is closed")
	}
}

// Batches returns a read-only channel that emits transcript batches: growing
// partials while speech is ongoing, then a final once silence ends the
// utterance. The channel is closed when the session ends.
func (s *session) Batches() <-chan asr.Batch { return s.batches }

// SetKeywords always returns an error because whisper.cpp does not expose a
// keyword-boosting API.
func (s *session) SetKeywords(_ []asr.KeywordBoost) error {
	return fmt.Errorf("whisper: %w", asr.ErrNotSupported)
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
// audio buffering, and native inference dispatch.
func (s *session) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.batches)

	var (
		buffer         []byte
		hadSpeech      bool
		silenceMs      int
		sinceInferMs   int
		lastHypothesis string
	)

	bytesPerMs := s.sampleRate * s.channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := s.maxBufferDurationMs * bytesPerMs

	emit := func(b asr.Batch) {
		select {
		case s.batches <- b:
		default:
			// Buffered channel full during shutdown; drop rather than block.
		}
	}

	// emitPartial re-transcribes the whole buffer and, if the hypothesis
	// changed, emits it as a partial batch.
	emitPartial := func() {
		sinceInferMs = 0
		text, err := s.infer(buffer)
		if err != nil {
			slog.Error("whisper partial inference failed", "error", err)
			return
		}
		if text == "" || text == lastHypothesis {
			return
		}
		lastHypothesis = text
		emit(asr.BatchFromText(text, false))
	}

	// doFlush runs the final inference over the utterance and resets all
	// buffer state regardless of outcome.
	doFlush := func() {
		pcm := buffer
		spoke := hadSpeech
		buffer = nil
		hadSpeech = false
		silenceMs = 0
		sinceInferMs = 0
		lastHypothesis = ""

		if len(pcm) == 0 || !spoke {
			return
		}

		text, err := s.infer(pcm)
		if err != nil {
			slog.Error("whisper final inference failed", "error", err)
			return
		}
		if text == "" {
			return
		}
		emit(asr.BatchFromText(text, true))
	}

	for {
		select {
		case <-ctx.Done():
			doFlush()
			return

		case <-s.done:
			doFlush()
			return

		case chunk, ok := <-s.audioCh:
			if !ok {
				doFlush()
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
						doFlush()
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				buffer = append(buffer, chunk...)
				sinceInferMs += chunkMs

				if maxBufferBytes > 0 && len(buffer) >= maxBufferBytes {
					doFlush()
				} else if sinceInferMs >= s.partialIntervalMs {
					emitPartial()
				}
			}
		}
	}
}

// infer converts the buffered PCM audio to float32, runs whisper.cpp
// inference using a fresh context, and returns the concatenated text.
func (s *session) infer(pcm []byte) (string, error) {
	samples := pcmToFloat32Mono(pcm, s.channels)

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines.
	wctx, err := s.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(s.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", s.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// SilenceThreshold returns the configured silence window as a duration.
func (e *Engine) SilenceThreshold() time.Duration {
	return time.Duration(e.silenceThresholdMs) * time.Millisecond
}
