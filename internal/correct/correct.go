// Package correct rewrites stabilized transcript words into clean,
// punctuated, capitalized text.
//
// The pipeline runs a fixed stage order per batch: artifact substitution,
// protected-word true-casing, fuzzy spell correction, homophone resolution,
// number conversion, voice punctuation commands, capitalization. Later
// stages only ever see the output of earlier stages.
//
// A [Pipeline] is read-only after construction and may be shared across
// sessions. All cross-batch carry state (a number phrase or a two-word
// punctuation command can straddle a batch boundary) lives in [State], one
// per utterance.
package correct

import (
	"strings"
	"unicode"

	"github.com/davfehr/typestream/internal/dictionary"
	"github.com/davfehr/typestream/internal/freqdict"
)

// Hook is invoked once per applied correction, identifying the stage that
// made it. Used for metrics; must be fast and must not retain the arguments.
type Hook func(stage, from, to string)

// PhoneticMatcher finds the protected term a spoken phrase was most likely
// misrecognized as. Implemented by [phonetic.Matcher].
type PhoneticMatcher interface {
	Match(phrase string) (corrected string, confidence float64, matched bool)
}

// Pipeline is the correction engine. Construct with [NewPipeline]; safe for
// concurrent use as long as each State is confined to one goroutine.
type Pipeline struct {
	dict       *dictionary.Snapshot
	freq       *freqdict.Dict
	phonetic   PhoneticMatcher
	homophones []HomophoneRule
	minFreq    int64
	hook       Hook
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDictionary supplies the protected-word dictionary used for compound
// corrections and true-casing. Without it those stages pass tokens through.
func WithDictionary(snap *dictionary.Snapshot) Option {
	return func(p *Pipeline) { p.dict = snap }
}

// WithFuzzy supplies the frequency dictionary backing fuzzy spell
// correction. Without it the fuzzy stage passes tokens through.
func WithFuzzy(d *freqdict.Dict) Option {
	return func(p *Pipeline) { p.freq = d }
}

// WithPhoneticMatcher supplies a sounds-like matcher consulted when a word
// window has no compound-map entry. Without it the compound stage relies on
// the dictionary snapshot alone.
func WithPhoneticMatcher(m PhoneticMatcher) Option {
	return func(p *Pipeline) { p.phonetic = m }
}

// WithMinCandidateFrequency overrides the corpus-frequency floor a fuzzy
// candidate must exceed to be accepted.
func WithMinCandidateFrequency(n int64) Option {
	return func(p *Pipeline) { p.minFreq = n }
}

// WithHomophoneRules replaces the default homophone rule list.
func WithHomophoneRules(rules []HomophoneRule) Option {
	return func(p *Pipeline) { p.homophones = rules }
}

// WithHook registers a per-correction callback.
func WithHook(h Hook) Option {
	return func(p *Pipeline) { p.hook = h }
}

// NewPipeline builds a pipeline. A pipeline with no options still produces
// correct output: stages without a backing resource degrade to pass-through.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		homophones: DefaultHomophoneRules(),
		minFreq:    100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State is the per-utterance carry state. A fresh utterance starts with
// capitalization pending. Not safe for concurrent use.
type State struct {
	num          numberState
	pendingPunct string
	capNext      bool
}

// NewState returns carry state for a fresh utterance.
func NewState() *State {
	return &State{capNext: true}
}

// Reset returns the state to its fresh-utterance condition, discarding any
// pending carries.
func (s *State) Reset() {
	*s = State{capNext: true}
}

// Process runs the full stage order over words, consuming and updating the
// carry state in st. When boundary is true, any pending carry (an
// unfinished number phrase, a held punctuation-command word) is flushed
// into the output even if incomplete.
//
// The returned text has punctuation symbols attached to the preceding word
// and no trailing separator; empty input with no pending carry returns "".
func (p *Pipeline) Process(st *State, words []string, boundary bool) string {
	tokens := make([]token, 0, len(words))
	for _, w := range words {
		if w != "" {
			tokens = append(tokens, token{text: w})
		}
	}

	tokens = p.applyCompounds(tokens)
	tokens = p.applyArtifacts(tokens)
	tokens = p.applyTrueCasing(tokens)
	tokens = p.applyFuzzy(tokens)

	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.text
	}

	texts = p.applyHomophones(texts)
	texts = p.applyNumbers(st, texts, boundary)
	texts = p.applyPunctuation(st, texts, boundary)
	texts = p.applyCapitalization(st, texts)

	return joinTokens(texts)
}

// Flush forces all pending carry state out as text, as at an utterance
// boundary with no new words.
func (p *Pipeline) Flush(st *State) string {
	return p.Process(st, nil, true)
}

func (p *Pipeline) corrected(stage, from, to string) {
	if p.hook != nil && from != to {
		p.hook(stage, from, to)
	}
}

// token carries a word through the token-level stages. locked marks a
// protected-dictionary hit that fuzzy correction must not touch.
type token struct {
	text   string
	locked bool
}

// joinTokens renders the final token sequence. Punctuation symbols attach
// to the preceding word; line breaks are emitted verbatim with no
// surrounding spaces.
func joinTokens(texts []string) string {
	var b strings.Builder
	for _, t := range texts {
		if t == "" {
			continue
		}
		switch {
		case isAttachingPunct(t):
			b.WriteString(t)
		case t == "\n" || t == "\n\n":
			b.WriteString(t)
		default:
			if n := b.Len(); n > 0 {
				last := b.String()[n-1]
				if last != '\n' {
					b.WriteByte(' ')
				}
			}
			b.WriteString(t)
		}
	}
	return b.String()
}

// isAttachingPunct reports whether t is a punctuation symbol that binds to
// the preceding word without a space.
func isAttachingPunct(t string) bool {
	switch t {
	case ".", ",", "?", "!", ":", ";", ")", "]", "...":
		return true
	}
	return false
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func firstRuneUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		return s[:i] + string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
