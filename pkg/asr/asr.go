// Package asr defines the contracts between typestream and speech-recognition
// engines.
//
// An engine wraps a real-time recognizer (a streaming cloud decoder, a local
// whisper.cpp model, or an HTTP re-transcription service) and exposes a
// uniform streaming interface. The central abstraction is SessionHandle: once
// opened, a session accepts raw PCM audio chunks and emits an ordered stream
// of Batch values — low-latency partials while the hypothesis is still being
// revised, and finals once the engine has committed to a result.
//
// Implementations must be safe for concurrent use. Audio input and batch
// output channels are goroutine-safe by construction.
package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotSupported is returned by optional SessionHandle operations that the
// underlying engine cannot perform (e.g., mid-session keyword updates).
var ErrNotSupported = errors.New("operation not supported by this engine")

// Batch is one incremental transcript update from an engine. It is the unit
// of work fed into the stabilizer.
type Batch struct {
	// Words is the engine's current hypothesis, in spoken order. For a
	// partial batch this is the full hypothesis so far, not a delta.
	Words []string

	// IsFinal indicates whether the engine has committed to this result.
	// A final batch ends the current sentence; the next partial starts from
	// an empty hypothesis.
	IsFinal bool

	// Confidences holds per-word confidence scores in [0, 1] when the engine
	// exposes them. When non-nil it must have the same length as Words.
	Confidences []float64
}

// Validate reports whether the batch satisfies the Batch invariants.
func (b Batch) Validate() error {
	if b.Confidences != nil && len(b.Confidences) != len(b.Words) {
		return fmt.Errorf("asr: batch has %d words but %d confidences", len(b.Words), len(b.Confidences))
	}
	return nil
}

// BatchFromText builds a Batch by splitting text on whitespace. Used by
// engines that only report hypothesis text without word-level detail.
func BatchFromText(text string, final bool) Batch {
	return Batch{Words: strings.Fields(text), IsFinal: final}
}

// KeywordBoost is a vocabulary hint that increases recognition probability
// for uncommon words (protected dictionary terms, project jargon).
type KeywordBoost struct {
	// Keyword is the text to boost (e.g., "Kubernetes").
	Keyword string

	// Boost is the intensity of the boost (engine-specific scale).
	Boost float64
}

// StreamConfig describes the audio format and recognition hints for a new
// session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Typestream feeds 16-bit
	// little-endian signed mono PCM; 16000 is the usual rate.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// engines). Implementors may downmix internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en").
	// Empty lets the engine auto-detect, if supported.
	Language string

	// Keywords is a list of vocabulary hints. Engines without a boosting API
	// ignore it.
	Keywords []KeywordBoost
}

// SessionHandle represents an open recognition session. It is an interface so
// that test code can provide scripted implementations without a live engine.
//
// Callers must call Close when the session is no longer needed; failing to do
// so may leak goroutines and connections inside the engine implementation.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for recognition. The
	// chunk must match the SampleRate and Channels agreed in StreamConfig.
	// Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Batches returns a read-only channel that emits transcript batches in
	// arrival order — partials and finals interleaved exactly as the engine
	// produced them. The channel is closed when the session ends.
	Batches() <-chan Batch

	// SetKeywords replaces the active keyword boost list without restarting
	// the session. Engines without mid-session updates return ErrNotSupported.
	SetKeywords(keywords []KeywordBoost) error

	// Close terminates the session, flushes pending audio, and releases all
	// associated resources. After Close returns, the Batches channel is
	// closed. Calling Close more than once is safe and returns nil.
	Close() error
}

// Engine is the abstraction over any recognition backend.
//
// Implementations must be safe for concurrent use.
type Engine interface {
	// StartStream opens a new recognition session with the given audio format
	// and hints. The returned SessionHandle is ready to accept audio
	// immediately. The caller owns the handle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
