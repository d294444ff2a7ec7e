// Package phonetic finds the protected dictionary term a misrecognized word
// or phrase was most likely meant to be, using Double Metaphone phonetic
// encoding combined with Jaro-Winkler string similarity.
//
// Recognition engines shred technical vocabulary into common words:
// "kubernetes" comes out as "cooper netties", "nginx" as "engine x". The
// static compound map catches the frequent shreds; this matcher catches the
// long tail by sound. Matching proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each token of the input phrase and for each protected term. Terms that
//     share at least one code with the input become candidates.
//
//  2. Jaro-Winkler ranking: among candidates, the term with the highest
//     Jaro-Winkler similarity (case-insensitive, best of full-string,
//     space-stripped, and single-word-to-term-token comparison) wins,
//     provided its score clears the phonetic threshold.
//
// When no candidate overlaps phonetically, a secondary pass tests pure
// Jaro-Winkler similarity against all terms using a stricter threshold.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher ranks protected terms against spoken phrases. It is read-only
// after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64

	terms []term
}

// term is a protected word with its precomputed phonetic codes.
type term struct {
	display string
	lower   string
	tokens  []string
	codes   map[string]struct{}
}

// New returns a [Matcher] over the given protected terms. Codes for the
// terms are computed once here, so per-phrase matching only encodes the
// input.
func New(terms []string, opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}

	for _, t := range terms {
		lower := strings.ToLower(strings.TrimSpace(t))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		m.terms = append(m.terms, term{
			display: strings.TrimSpace(t),
			lower:   lower,
			tokens:  tokens,
			codes:   codesForTokens(tokens),
		})
	}
	return m
}

// Match attempts to find the protected term most phonetically similar to
// phrase. phrase may be a single word or a space-separated n-gram from the
// compound window.
//
// When matched is false, corrected equals phrase unchanged and confidence
// is 0.
func (m *Matcher) Match(phrase string) (corrected string, confidence float64, matched bool) {
	if len(m.terms) == 0 || strings.TrimSpace(phrase) == "" {
		return phrase, 0, false
	}

	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	phraseTokens := strings.Fields(phraseLower)
	inputCodes := codesForTokens(phraseTokens)

	type candidate struct {
		display  string
		score    float64
		phonetic bool
	}

	var best candidate

	for _, t := range m.terms {
		// The exact term spoken correctly needs no correction.
		if t.lower == phraseLower {
			return phrase, 0, false
		}

		phoneticMatch := codesOverlap(inputCodes, t.codes)
		jwScore := bestJWScore(phraseTokens, t.tokens, phraseLower, t.lower)

		if phoneticMatch {
			if jwScore >= m.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{display: t.display, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= m.fuzzyThreshold && jwScore > best.score {
				best = candidate{display: t.display, score: jwScore, phonetic: false}
			}
		}
	}

	if best.display != "" {
		return best.display, best.score, true
	}
	return phrase, 0, false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or
// contains no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the
// phrase and the term using three strategies:
//
//  1. Full-string comparison (e.g., "cooper netties" vs "kubernetes").
//  2. Space-stripped comparison (e.g., "coopernetties" vs "kubernetes").
//  3. Per-term-token comparison for single-word phrases, so one spoken word
//     can match one word of a multi-word term. Multi-word phrases skip this
//     strategy: a high score on one token of a phrase says nothing about
//     the rest of it.
func bestJWScore(phraseTokens, termTokens []string, phraseFull, termFull string) float64 {
	score := matchr.JaroWinkler(phraseFull, termFull, false)

	if len(phraseTokens) > 1 || len(termTokens) > 1 {
		concat1 := strings.Join(phraseTokens, "")
		concat2 := strings.Join(termTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	if len(phraseTokens) == 1 {
		for _, tt := range termTokens {
			if s := matchr.JaroWinkler(phraseTokens[0], tt, false); s > score {
				score = s
			}
		}
	}

	return score
}
