package correct

import "strings"

// punctCommand maps a spoken phrase to its literal symbol. Phrases are one
// or two words; two-word phrases are tried first at each position so
// "question mark" wins over a bare "mark".
type punctCommand struct {
	phrase []string
	symbol string
}

var punctCommands = []punctCommand{
	{[]string{"new", "paragraph"}, "\n\n"},
	{[]string{"new", "line"}, "\n"},
	{[]string{"open", "parenthesis"}, "("},
	{[]string{"close", "parenthesis"}, ")"},
	{[]string{"open", "paren"}, "("},
	{[]string{"close", "paren"}, ")"},
	{[]string{"open", "bracket"}, "["},
	{[]string{"close", "bracket"}, "]"},
	{[]string{"question", "mark"}, "?"},
	{[]string{"exclamation", "mark"}, "!"},
	{[]string{"exclamation", "point"}, "!"},
	{[]string{"full", "stop"}, "."},
	{[]string{"semicolon"}, ";"},
	{[]string{"colon"}, ":"},
	{[]string{"comma"}, ","},
	{[]string{"period"}, "."},
	{[]string{"hyphen"}, "-"},
	{[]string{"dash"}, "-"},
	{[]string{"ellipsis"}, "..."},
}

// punctOpeners are words that begin a two-word command. A batch ending in
// one of these is held back a batch, since the completing word may arrive
// in the next batch.
var punctOpeners = buildPunctOpeners()

func buildPunctOpeners() map[string]bool {
	m := make(map[string]bool)
	for _, c := range punctCommands {
		if len(c.phrase) == 2 {
			m[c.phrase[0]] = true
		}
	}
	return m
}

// applyPunctuation replaces spoken punctuation commands with their symbols.
// The carried word from the previous batch, if any, is consumed ahead of
// the new tokens. At a boundary a held word that never completed a command
// is flushed as a literal word.
func (p *Pipeline) applyPunctuation(st *State, texts []string, boundary bool) []string {
	if st.pendingPunct != "" {
		texts = append([]string{st.pendingPunct}, texts...)
		st.pendingPunct = ""
	}

	output := make([]string, 0, len(texts))
	for i := 0; i < len(texts); i++ {
		lower := strings.ToLower(texts[i])

		// Hold a possible two-word-command opener at the batch tail.
		if i == len(texts)-1 && !boundary && punctOpeners[lower] {
			st.pendingPunct = texts[i]
			return output
		}

		matched := false
		for _, c := range punctCommands {
			if len(c.phrase) == 2 {
				if i+1 < len(texts) && lower == c.phrase[0] &&
					strings.ToLower(texts[i+1]) == c.phrase[1] {
					p.corrected("punct", texts[i]+" "+texts[i+1], c.symbol)
					output = append(output, c.symbol)
					i++
					matched = true
					break
				}
			} else if lower == c.phrase[0] {
				p.corrected("punct", texts[i], c.symbol)
				output = append(output, c.symbol)
				matched = true
				break
			}
		}
		if !matched {
			output = append(output, texts[i])
		}
	}
	return output
}
