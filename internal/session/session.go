// Package session wires the dictation core together: stabilized words from
// the recognition engine flow through the correction pipeline, the result
// is diffed against what is already on screen, and the difference is typed
// at the cursor.
//
// A Session is the unit of one dictation run. Within it, each final batch
// ends a sentence; a silence timeout or an explicit Finalize ends the
// current utterance, flushing any pending carry state. Batches must arrive
// serialized; a Session performs no internal locking.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/davfehr/typestream/internal/correct"
	"github.com/davfehr/typestream/internal/inject"
	"github.com/davfehr/typestream/internal/observe"
	"github.com/davfehr/typestream/internal/stabilize"
	"github.com/davfehr/typestream/pkg/asr"
)

// Session drives one dictation run against a single cursor.
type Session struct {
	stab     *stabilize.Stabilizer
	pipeline *correct.Pipeline
	state    *correct.State
	differ   *inject.Differ
	injector inject.Injector
	metrics  *observe.Metrics
	log      *slog.Logger

	// screen is the corrected text of the current sentence, the text the
	// differ reconciles against.
	screen string
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics attaches metric instruments. Without it the session records
// against the package default.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger attaches a logger. Without it the session uses slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// New creates a Session. The stabilization policy is fixed for the life of
// the session; switching engines requires a new Session.
func New(policy stabilize.Policy, pipeline *correct.Pipeline, injector inject.Injector, opts ...Option) (*Session, error) {
	stab, err := stabilize.New(policy)
	if err != nil {
		return nil, err
	}
	s := &Session{
		stab:     stab,
		pipeline: pipeline,
		state:    correct.NewState(),
		differ:   inject.NewDiffer(),
		injector: injector,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s, nil
}

// Feed consumes one transcript batch, injecting whatever text it makes
// stable. A final batch flushes pending carries and ends the sentence.
func (s *Session) Feed(ctx context.Context, b asr.Batch) error {
	start := time.Now()
	kind := "partial"
	if b.IsFinal {
		kind = "final"
	}
	s.metrics.RecordBatch(ctx, kind)

	stabStart := time.Now()
	fresh, err := s.stab.Feed(b)
	s.metrics.RecordStage(ctx, "stabilize", time.Since(stabStart))
	if err != nil {
		return fmt.Errorf("session: stabilize: %w", err)
	}
	if len(fresh) == 0 && !b.IsFinal {
		return nil
	}
	s.metrics.WordsCommitted.Add(ctx, int64(len(fresh)))

	correctStart := time.Now()
	corrected := s.pipeline.Process(s.state, fresh, b.IsFinal)
	s.metrics.RecordStage(ctx, "correct", time.Since(correctStart))
	s.screen = appendText(s.screen, corrected)

	if err := s.reconcile(ctx, b.IsFinal); err != nil {
		return err
	}
	if b.IsFinal {
		s.screen = ""
	}
	s.metrics.BatchDuration.Record(ctx, time.Since(start).Seconds())
	return nil
}

// Finalize ends the current utterance: pending carry state is flushed to
// the screen and all per-utterance state resets. Safe to call when nothing
// is pending.
func (s *Session) Finalize(ctx context.Context) error {
	s.screen = appendText(s.screen, s.pipeline.Flush(s.state))
	err := s.reconcile(ctx, true)

	s.stab.Reset()
	s.state.Reset()
	s.differ.Reset()
	s.screen = ""
	return err
}

// Screen returns the corrected text of the current sentence.
func (s *Session) Screen() string {
	return s.screen
}

func (s *Session) reconcile(ctx context.Context, final bool) error {
	in := s.differ.Apply(s.screen, final)
	if in.IsNoop() {
		return nil
	}
	s.log.Debug("injecting", "delete", in.DeleteCount, "text", in.Text)
	injectStart := time.Now()
	err := s.injector.Inject(ctx, in)
	s.metrics.RecordStage(ctx, "inject", time.Since(injectStart))
	if err != nil {
		return fmt.Errorf("session: inject: %w", err)
	}
	s.metrics.RecordInstruction(ctx, in.DeleteCount, len([]rune(in.Text)))
	return nil
}

// Run consumes batches until the channel closes, the context is cancelled,
// or recognition stays silent past the given timeout — silence finalizes
// the current utterance but keeps the session alive for the next one.
func (s *Session) Run(ctx context.Context, batches <-chan asr.Batch, silence time.Duration) error {
	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(ctx, -1)

	timer := time.NewTimer(silence)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Finalize(context.WithoutCancel(ctx))
		case <-timer.C:
			if err := s.Finalize(ctx); err != nil {
				s.log.Error("finalize on silence failed", "error", err)
			}
			timer.Reset(silence)
		case b, ok := <-batches:
			if !ok {
				return s.Finalize(ctx)
			}
			if err := s.Feed(ctx, b); err != nil {
				return err
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(silence)
		}
	}
}

// appendText joins a new corrected segment onto the sentence so far.
// Segments that begin with attaching punctuation or a line break bind
// directly; everything else gets a separating space.
func appendText(screen, segment string) string {
	if segment == "" {
		return screen
	}
	if screen == "" {
		return segment
	}
	if strings.HasPrefix(segment, "\n") || attachesLeft(segment) {
		return screen + segment
	}
	return screen + " " + segment
}

// attachesLeft reports whether the segment starts with a punctuation
// symbol that binds to the previous word.
func attachesLeft(segment string) bool {
	switch segment[0] {
	case '.', ',', '?', '!', ':', ';', ')', ']':
		return true
	}
	return false
}
