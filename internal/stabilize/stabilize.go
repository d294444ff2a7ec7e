// Package stabilize decides which prefix of a rewriting recognition
// hypothesis is final enough to commit.
//
// Streaming engines revise the tail of their hypothesis as more audio
// arrives. The Stabilizer absorbs those revisions by holding back the last
// Policy.Lag words of every partial; a word is committed once the hypothesis
// has grown past it by the lag distance. Final batches bypass the lag (the
// engine has already committed), are filtered by per-word confidence when
// available, and end the current sentence.
//
// Commitment is append-only: once a word has been emitted it is never
// retracted, even if a later partial disagrees with the committed prefix.
// Engines that rewrite already-agreed words therefore produce appended text
// rather than corrections — a deliberate trade of fidelity for never
// "unsaying" injected text.
package stabilize

import (
	"fmt"

	"github.com/davfehr/typestream/pkg/asr"
)

// Policy is the per-engine stabilization configuration. It is fixed for the
// lifetime of a recognition session; switching engines requires a fresh
// Stabilizer.
type Policy struct {
	// Lag is the number of trailing words of a partial hypothesis withheld
	// from commitment, absorbing late rewrites. Word-synchronous decoders
	// work well with 1 (0 in fast mode); rolling re-transcribers need 2
	// because their tail fluctuates more.
	Lag int

	// ConfidenceThreshold drops words below this confidence from final
	// results. Applied only when the batch carries per-word confidences.
	ConfidenceThreshold float64
}

// Validate reports whether the policy is well-formed. A malformed policy is
// a configuration error, not a runtime condition.
func (p Policy) Validate() error {
	if p.Lag < 0 {
		return fmt.Errorf("stabilize: lag must be non-negative, got %d", p.Lag)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("stabilize: confidence threshold must be in [0, 1], got %g", p.ConfidenceThreshold)
	}
	return nil
}

// Stabilizer tracks the committed-word state for a single utterance.
// It is not safe for concurrent use; batches must arrive serialized.
type Stabilizer struct {
	policy    Policy
	committed []string

	// lastPartialCount short-circuits partials whose word count has not
	// changed since the previous call. Purely a work-avoidance measure: the
	// lag rule would emit nothing for such a partial anyway.
	lastPartialCount int
}

// New creates a Stabilizer for the given policy.
func New(policy Policy) (*Stabilizer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Stabilizer{policy: policy}, nil
}

// Feed consumes one transcript batch and returns the words newly promoted to
// stable, in spoken order, not yet corrected. The returned slice is empty
// when nothing new became stable.
//
// For a final batch, low-confidence words are dropped (when confidences are
// present), the suffix beyond the already-committed words is emitted, and
// the committed state resets — the utterance continues with a fresh
// sentence. For a partial, the lag rule applies; a hypothesis that shrank
// emits nothing (shrinkage does not un-commit).
func (s *Stabilizer) Feed(b asr.Batch) ([]string, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if b.IsFinal {
		words := b.Words
		if b.Confidences != nil {
			words = make([]string, 0, len(b.Words))
			for i, w := range b.Words {
				if b.Confidences[i] >= s.policy.ConfidenceThreshold {
					words = append(words, w)
				}
			}
		}
		var fresh []string
		if len(words) > len(s.committed) {
			fresh = append(fresh, words[len(s.committed):]...)
		}
		s.committed = s.committed[:0]
		s.lastPartialCount = 0
		return fresh, nil
	}

	if len(b.Words) == s.lastPartialCount {
		return nil, nil
	}
	s.lastPartialCount = len(b.Words)

	stableLen := len(b.Words) - s.policy.Lag
	if stableLen <= len(s.committed) {
		return nil, nil
	}
	fresh := append([]string(nil), b.Words[len(s.committed):stableLen]...)
	s.committed = append(s.committed, fresh...)
	return fresh, nil
}

// Committed returns a copy of the words committed so far in the current
// sentence.
func (s *Stabilizer) Committed() []string {
	return append([]string(nil), s.committed...)
}

// Reset discards all committed state. Called when an utterance ends.
func (s *Stabilizer) Reset() {
	s.committed = s.committed[:0]
	s.lastPartialCount = 0
}
