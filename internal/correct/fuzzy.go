package correct

import "strings"

// protectedAbbrevs are short forms that are valid despite looking like
// near-misses of common words ("mr" is one edit from "me"). Number scale
// words are included because a number phrase must reach the conversion
// stage intact.
var protectedAbbrevs = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "sr": true, "jr": true,
	"vs": true, "st": true, "ft": true, "mt": true, "id": true, "ok": true,
	"pm": true, "am": true, "tv": true, "uk": true, "us": true,
	"hundred": true, "thousand": true, "million": true, "billion": true, "trillion": true,
}

const maxEditDistance = 2

// applyFuzzy replaces likely misrecognitions with the closest frequency
// dictionary candidate. Only plain lowercase alphabetic tokens are
// considered: capitalized or all-caps tokens are presumed proper nouns or
// acronyms, locked tokens are protected vocabulary.
func (p *Pipeline) applyFuzzy(tokens []token) []token {
	if p.freq == nil {
		return tokens
	}
	for i, t := range tokens {
		if t.locked || !isAlpha(t.text) || firstRuneUpper(t.text) || isAllUpper(t.text) {
			continue
		}
		lower := strings.ToLower(t.text)
		if protectedAbbrevs[lower] {
			continue
		}
		best, ok := p.freq.Best(lower, maxEditDistance, p.minFreq)
		if !ok || best.Term == lower {
			continue
		}
		// Short words that are themselves dictionary hits stay put: "is"
		// and "to" are one edit from half the dictionary.
		if len(lower) <= 3 && p.freq.Contains(lower) {
			continue
		}
		p.corrected("fuzzy", t.text, best.Term)
		tokens[i] = token{text: best.Term}
	}
	return tokens
}
