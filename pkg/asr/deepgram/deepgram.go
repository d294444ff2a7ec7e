// Package deepgram provides a Deepgram-backed recognition engine using the
// Deepgram streaming WebSocket API. It implements the asr.Engine interface.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"
	"github.com/davfehr/typestream/pkg/asr"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Engine.
type Option func(*Engine)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(e *Engine) {
		e.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(e *Engine) {
		e.language = language
	}
}

// WithSampleRate sets the audio sample rate in Hz for the engine-level default.
func WithSampleRate(rate int) Option {
	return func(e *Engine) {
		e.sampleRate = rate
	}
}

// WithEndpoint overrides the streaming endpoint URL. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(e *Engine) {
		e.endpoint = endpoint
	}
}

// Engine implements asr.Engine backed by the Deepgram streaming API.
type Engine struct {
	apiKey     string
	endpoint   string
	model      string
	language   string
	sampleRate int
}

var _ asr.Engine = (*Engine)(nil)

// New creates a new Deepgram Engine. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	e := &Engine{
		apiKey:     apiKey,
		endpoint:   deepgramEndpoint,
		model:      defaultModel,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// StartStream opens a streaming transcription session with Deepgram.
// It respects cfg.SampleRate, cfg.Language, and cfg.Keywords.
func (e *Engine) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	wsURL, err := e.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	sess := &session{
		conn:    conn,
		batches: make(chan asr.Batch, 64),
		audio:   make(chan []byte, 256),
		done:    make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given config.
func (e *Engine) buildURL(cfg asr.StreamConfig) (string, error) {
	u, err := url.Parse(e.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = e.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = e.sampleRate
	}

	q := u.Query()
	q.Set("model", e.model)
	q.Set("language", lang)
	q.Set("punctuate", "false")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("encoding", "linear16")
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}

	for _, kw := range cfg.Keywords {
		// Deepgram keyword format: word:boost (e.g., "Kubernetes:5")
		val := fmt.Sprintf("%s:%g", kw.Keyword, kw.Boost)
		q.Add("keywords", val)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram streaming session. It implements asr.SessionHandle.
type session struct {
	conn    *websocket.Conn
	batches chan asr.Batch
	audio   chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// SendAudio queues a PCM audio chunk for delivery to Deepgram.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: session is closed")
	}
}

// Batches returns the channel of transcript batches.
func (s *session) Batches() <-chan asr.Batch { return s.batches }

// SetKeywords returns asr.ErrNotSupported: Deepgram keyword boosts are fixed
// in the stream URL at connect time and cannot change mid-stream. Callers
// that need new keywords must open a new stream.
func (s *session) SetKeywords([]asr.KeywordBoost) error {
	return fmt.Errorf("deepgram: %w", asr.ErrNotSupported)
}

// Close terminates the session cleanly.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Send a close message to Deepgram to flush pending audio.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to Deepgram.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain the audio channel before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from Deepgram and dispatches them to the
// batches channel.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.batches)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation; exit gracefully.
			return
		}

		b, ok := parseDeepgramResponse(msg)
		if !ok {
			continue
		}

		select {
		case s.batches <- b:
		case <-s.done:
		}
	}
}

// parseDeepgramResponse parses a raw Deepgram WebSocket message into a Batch.
// Returns (Batch, true) on success, or (zero, false) if the message should be
// ignored.
func parseDeepgramResponse(data []byte) (asr.Batch, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return asr.Batch{}, false
	}
	if resp.Type != "Results" {
		return asr.Batch{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return asr.Batch{}, false
	}

	alt := resp.Channel.Alternatives[0]
	if alt.Transcript == "" && !resp.IsFinal {
		return asr.Batch{}, false
	}

	words := make([]string, 0, len(alt.Words))
	confs := make([]float64, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, w.Word)
		confs = append(confs, w.Confidence)
	}

	b := asr.Batch{Words: words, IsFinal: resp.IsFinal}
	if len(confs) > 0 {
		b.Confidences = confs
	}
	return b, true
}
