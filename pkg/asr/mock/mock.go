// Package mock provides test doubles for the asr package interfaces.
//
// Use Engine to verify that the caller starts sessions with the expected
// StreamConfig. Use Session to feed scripted Batch values and inspect which
// audio chunks were delivered.
//
// Example:
//
//	sess := &mock.Session{BatchesCh: make(chan asr.Batch, 4)}
//	e := &mock.Engine{Session: sess}
//	handle, _ := e.StartStream(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/davfehr/typestream/pkg/asr"
)

// StartStreamCall records a single invocation of Engine.StartStream.
type StartStreamCall struct {
	// Ctx is the context passed to StartStream.
	Ctx context.Context
	// Cfg is the StreamConfig passed to StartStream.
	Cfg asr.StreamConfig
}

// Engine is a mock implementation of asr.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by StartStream. If nil,
	// StartStream returns a new default Session with a buffered channel.
	Session asr.SessionHandle

	// StartStreamErr, if non-nil, is returned as the error from StartStream.
	StartStreamErr error

	// StartStreamCalls records every call to StartStream.
	StartStreamCalls []StartStreamCall
}

// StartStream records the call and returns Session, StartStreamErr.
func (e *Engine) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StartStreamCalls = append(e.StartStreamCalls, StartStreamCall{Ctx: ctx, Cfg: cfg})
	if e.StartStreamErr != nil {
		return nil, e.StartStreamErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{BatchesCh: make(chan asr.Batch, 16)}, nil
}

// Ensure Engine implements asr.Engine at compile time.
var _ asr.Engine = (*Engine)(nil)

// SendAudioCall records a single invocation of Session.SendAudio.
type SendAudioCall struct {
	// Chunk is a copy of the audio bytes that were passed to SendAudio.
	Chunk []byte
}

// Session is a mock implementation of asr.SessionHandle.
// Callers should pre-populate BatchesCh with the Batch values they want the
// consumer to receive, then close it when done.
type Session struct {
	mu sync.Mutex

	// BatchesCh is the channel returned by Batches(). Callers own this
	// channel and are responsible for sending to and closing it in tests.
	BatchesCh chan asr.Batch

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// SetKeywordsErr, if non-nil, is returned by every SetKeywords call.
	// Leave nil to accept keyword updates silently.
	SetKeywordsErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// SendAudioCalls records every call to SendAudio in order.
	SendAudioCalls []SendAudioCall

	// SetKeywordsCalls records the keyword lists passed to SetKeywords.
	SetKeywordsCalls [][]asr.KeywordBoost

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// SendAudio records the call and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SendAudioCalls = append(s.SendAudioCalls, SendAudioCall{Chunk: cp})
	return s.SendAudioErr
}

// Batches returns BatchesCh. The caller must have initialised BatchesCh
// before calling this method.
func (s *Session) Batches() <-chan asr.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.BatchesCh
}

// SetKeywords records the call and returns SetKeywordsErr.
func (s *Session) SetKeywords(keywords []asr.KeywordBoost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kw := make([]asr.KeywordBoost, len(keywords))
	copy(kw, keywords)
	s.SetKeywordsCalls = append(s.SetKeywordsCalls, kw)
	return s.SetKeywordsErr
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Ensure Session implements asr.SessionHandle at compile time.
var _ asr.SessionHandle = (*Session)(nil)
