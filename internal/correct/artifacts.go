package correct

import "strings"

// asrArtifacts are context-free substitutions for contracted informal forms
// the recognizer emits verbatim. Highest priority, always applied.
var asrArtifacts = map[string]string{
	"gonna":   "going to",
	"wanna":   "want to",
	"gotta":   "got to",
	"kinda":   "kind of",
	"sorta":   "sort of",
	"lotta":   "lot of",
	"outta":   "out of",
	"shoulda": "should have",
	"coulda":  "could have",
	"woulda":  "would have",
}

// applyCompounds replaces multi-word misrecognitions with the registered
// term, trying a three-word window before a two-word window at each
// position. Recognizers split unknown technical terms into phonetically
// similar fragments that single-word correction can never reach (the edit
// distance between "cooper netty's" and "kubernetes" is far beyond 2), so
// this runs before everything else and the replacement can then be
// true-cased like any other token. When the static compound map misses and
// a phonetic matcher is configured, the same window is scored by sound
// against the protected terms; a phonetic replacement arrives in canonical
// casing and is locked immediately.
func (p *Pipeline) applyCompounds(tokens []token) []token {
	if (p.dict == nil && p.phonetic == nil) || len(tokens) < 2 {
		return tokens
	}
	out := make([]token, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		matched := false
		if p.dict != nil {
			// Exact map lookups are risk-free, so the widest window wins.
			for _, window := range []int{3, 2} {
				if i+window > len(tokens) {
					continue
				}
				span := spanTexts(tokens, i, window)
				if replacement, ok := p.dict.CompoundFor(span); ok {
					p.corrected("compound", strings.Join(span, " "), replacement)
					out = append(out, token{text: replacement})
					i += window
					matched = true
					break
				}
			}
		}
		if !matched && p.phonetic != nil {
			// Similarity matching tries the narrow window first. A wide
			// window that clears the threshold often does so on the
			// strength of two of its words and would swallow the third
			// ("post gress is" scores almost as close to "postgresql" as
			// "post gress" does).
			for _, window := range []int{2, 3} {
				if i+window > len(tokens) {
					continue
				}
				span := spanTexts(tokens, i, window)
				if p.spanHasProtectedWord(span) {
					continue
				}
				phrase := strings.Join(span, " ")
				if replacement, _, ok := p.phonetic.Match(phrase); ok {
					p.corrected("compound", phrase, replacement)
					for _, w := range strings.Fields(replacement) {
						out = append(out, token{text: w, locked: true})
					}
					i += window
					matched = true
					break
				}
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out
}

func spanTexts(tokens []token, start, n int) []string {
	span := make([]string, n)
	for j := range span {
		span[j] = tokens[start+j].text
	}
	return span
}

// spanHasProtectedWord reports whether any word in span is already a
// correctly-spelled dictionary term. Such a window must not be handed to
// the phonetic matcher: "the docker" sounds close enough to "docker" to
// clear the threshold, and the match would swallow the article.
func (p *Pipeline) spanHasProtectedWord(span []string) bool {
	if p.dict == nil {
		return false
	}
	for _, w := range span {
		if _, ok := p.dict.CanonicalCasing(w); ok {
			return true
		}
	}
	return false
}

// applyArtifacts expands contracted forms. A replacement may span several
// words.
func (p *Pipeline) applyArtifacts(tokens []token) []token {
	out := make([]token, 0, len(tokens))
	for _, t := range tokens {
		replacement, ok := asrArtifacts[strings.ToLower(t.text)]
		if !ok {
			out = append(out, t)
			continue
		}
		p.corrected("artifact", t.text, replacement)
		for _, w := range strings.Fields(replacement) {
			out = append(out, token{text: w})
		}
	}
	return out
}

// applyTrueCasing replaces tokens that match a protected word with the
// dictionary's canonical casing and locks them against fuzzy correction.
func (p *Pipeline) applyTrueCasing(tokens []token) []token {
	if p.dict == nil {
		return tokens
	}
	for i, t := range tokens {
		if canonical, ok := p.dict.CanonicalCasing(t.text); ok {
			p.corrected("truecase", t.text, canonical)
			tokens[i] = token{text: canonical, locked: true}
		}
	}
	return tokens
}
