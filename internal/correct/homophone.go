package correct

import "strings"

// HomophoneRule rewrites a token based on its neighbors. Trigger matches
// the lowercased token at the current position; Prev and Next, when
// non-nil, must also match for the rule to fire. Next2 extends the
// lookahead one more token for rules that need it.
//
// Rules are evaluated in list order at each position; the first match wins
// and the scan resumes after the rewritten token, so a rule never re-reads
// text another rule produced in the same pass. This ordering is a contract:
// rules deliberately overlap (a broad "their/there/they're" default against
// a narrower directional "over there" rule) and reordering changes output.
type HomophoneRule struct {
	Name        string
	Trigger     map[string]bool
	Prev        map[string]bool
	Next        map[string]bool
	Next2       map[string]bool
	Replacement string
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// DefaultHomophoneRules is the built-in rule list for the homophone pairs
// recognizers most often confuse. Ordering matters; see [HomophoneRule].
func DefaultHomophoneRules() []HomophoneRule {
	contractionFollowers := set(
		"going", "coming", "running", "walking", "doing", "making", "trying",
		"getting", "having", "being", "not", "always", "never", "still",
		"already", "just", "also", "probably", "really", "actually",
	)
	possessedNouns := set(
		"house", "car", "thing", "things", "stuff", "way", "place", "name",
		"family", "friend", "home", "work", "own", "new", "old", "big",
		"little", "first", "last",
	)
	return []HomophoneRule{
		{
			Name:        "they're",
			Trigger:     set("their", "there", "they're"),
			Next:        contractionFollowers,
			Replacement: "they're",
		},
		{
			Name:    "there",
			Trigger: set("their", "they're"),
			Prev: set(
				"over", "go", "went", "going", "right", "out", "up", "down", "get",
			),
			Replacement: "there",
		},
		{
			Name:        "their",
			Trigger:     set("there", "they're"),
			Next:        possessedNouns,
			Replacement: "their",
		},
		{
			Name:    "two",
			Trigger: set("to"),
			Next: set(
				"robot", "robots", "database", "databases", "server", "servers",
				"hundred", "thousand", "million", "billion", "trillion",
				"people", "thing", "things", "time", "times", "way", "ways",
				"day", "days", "year", "years", "hour", "hours", "minute",
				"minutes", "second", "seconds", "month", "months", "week",
				"weeks", "item", "items", "file", "files", "page", "pages",
				"line", "lines", "word", "words", "part", "parts", "step",
				"steps", "point", "points", "type", "types", "node", "nodes",
				"set", "sets", "pair", "pairs", "more",
			),
			Replacement: "two",
		},
		{
			Name:        "two or",
			Trigger:     set("to"),
			Next:        set("or"),
			Next2:       set("three", "more"),
			Replacement: "two",
		},
		{
			Name:        "two of them",
			Trigger:     set("to"),
			Next:        set("of"),
			Next2:       set("them"),
			Replacement: "two",
		},
		{
			Name:    "too",
			Trigger: set("to"),
			Next: set(
				"much", "many", "late", "early", "fast", "slow", "long",
				"short", "big", "small", "hard", "easy", "hot", "cold", "far",
				"close", "bad", "good", "often", "little",
			),
			Replacement: "too",
		},
		{
			Name:        "me too",
			Trigger:     set("too", "two"),
			Prev:        set("me"),
			Replacement: "too",
		},
		{
			Name:    "it's",
			Trigger: set("its"),
			Next: set(
				"a", "an", "the", "not", "been", "going", "coming", "just",
				"really", "very", "about", "always", "never", "still",
			),
			Replacement: "it's",
		},
		{
			Name:    "its",
			Trigger: set("it's"),
			Next: set(
				"own", "way", "name", "place", "color", "size", "weight",
				"length", "shape",
			),
			Replacement: "its",
		},
		{
			Name:    "you're",
			Trigger: set("your"),
			Next: set(
				"going", "coming", "doing", "making", "trying", "getting",
				"not", "right", "wrong", "welcome", "sure", "done", "ready",
				"here", "there",
			),
			Replacement: "you're",
		},
		{
			Name:    "your",
			Trigger: set("you're"),
			Next: set(
				"house", "car", "thing", "things", "name", "family", "friend",
				"home", "work", "own", "new", "old",
			),
			Replacement: "your",
		},
		{
			Name:    "than",
			Trigger: set("then"),
			Prev: set(
				"bigger", "smaller", "faster", "slower", "better", "worse",
				"more", "less", "older", "younger", "higher", "lower",
				"longer", "shorter", "rather", "other",
			),
			Replacement: "than",
		},
		{
			Name:        "effect",
			Trigger:     set("affect"),
			Prev:        set("the", "no"),
			Replacement: "effect",
		},
		{
			Name:    "accept",
			Trigger: set("except"),
			Next: set(
				"the", "this", "that", "my", "your", "our", "his", "her", "it",
			),
			Replacement: "accept",
		},
	}
}

// applyHomophones runs the rule list over the token sequence, first match
// per position wins, no rescanning of rewritten tokens. A replacement keeps
// the leading capitalization of the token it replaces.
func (p *Pipeline) applyHomophones(texts []string) []string {
	for i := 0; i < len(texts); i++ {
		lower := strings.ToLower(texts[i])
		for _, rule := range p.homophones {
			if !rule.Trigger[lower] {
				continue
			}
			if rule.Prev != nil {
				if i == 0 || !rule.Prev[strings.ToLower(texts[i-1])] {
					continue
				}
			}
			if rule.Next != nil {
				if i+1 >= len(texts) || !rule.Next[strings.ToLower(texts[i+1])] {
					continue
				}
			}
			if rule.Next2 != nil {
				if i+2 >= len(texts) || !rule.Next2[strings.ToLower(texts[i+2])] {
					continue
				}
			}
			replacement := rule.Replacement
			if firstRuneUpper(texts[i]) {
				replacement = capitalizeFirst(replacement)
			}
			p.corrected("homophone", texts[i], replacement)
			texts[i] = replacement
			break
		}
	}
	return texts
}
