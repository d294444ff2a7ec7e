package correct

import (
	"strings"
	"unicode"
)

// sentenceTerminal are symbols after which the next word starts a sentence.
var sentenceTerminal = map[string]bool{
	".": true, "?": true, "!": true, "\n": true, "\n\n": true,
}

// firstPerson covers the pronoun "I" and its contractions, which are
// capitalized unconditionally.
var firstPerson = map[string]bool{
	"i": true, "i'm": true, "i've": true, "i'll": true, "i'd": true,
}

// applyCapitalization uppercases the first letter of the word that follows
// a sentence-terminal symbol, tracked across batches in st. Tokens that do
// not start with a letter (digits, symbols other than terminals) leave the
// pending capitalization for the next word that does.
func (p *Pipeline) applyCapitalization(st *State, texts []string) []string {
	for i, t := range texts {
		if sentenceTerminal[t] {
			st.capNext = true
			continue
		}
		if firstPerson[strings.ToLower(t)] {
			texts[i] = capitalizeFirst(strings.ToLower(t))
			st.capNext = false
			continue
		}
		if st.capNext && startsWithLetter(t) {
			if c := capitalizeFirst(t); c != t {
				p.corrected("capitalize", t, c)
				texts[i] = c
			}
			st.capNext = false
		}
	}
	return texts
}

func startsWithLetter(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r)
	}
	return false
}
