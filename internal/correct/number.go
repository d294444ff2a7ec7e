package correct

import (
	"strconv"
	"strings"
)

// numValue describes a number word: scale multiplies the running value
// ("hundred", "thousand"), increment adds to it ("seven", "forty").
type numValue struct {
	scale     int64
	increment int64
}

// ordValue describes an ordinal word by its numeric value; the suffix is
// recomputed from the final total ("twenty first" is 21st, not 20th 1st).
type ordValue struct {
	value int64
}

var numWords = buildNumWords()

func buildNumWords() map[string]numValue {
	units := []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven",
		"eight", "nine", "ten", "eleven", "twelve", "thirteen", "fourteen",
		"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	}
	tens := []string{
		"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
		"eighty", "ninety",
	}
	m := make(map[string]numValue)
	for i, w := range units {
		m[w] = numValue{scale: 1, increment: int64(i)}
	}
	for i, w := range tens {
		if w != "" {
			m[w] = numValue{scale: 1, increment: int64(i) * 10}
		}
	}
	m["hundred"] = numValue{scale: 100}
	m["thousand"] = numValue{scale: 1_000}
	m["million"] = numValue{scale: 1_000_000}
	m["billion"] = numValue{scale: 1_000_000_000}
	m["trillion"] = numValue{scale: 1_000_000_000_000}
	return m
}

var ordinalWords = map[string]ordValue{
	"first": {1}, "second": {2}, "third": {3}, "fourth": {4}, "fifth": {5},
	"sixth": {6}, "seventh": {7}, "eighth": {8}, "ninth": {9}, "tenth": {10},
	"eleventh": {11}, "twelfth": {12}, "thirteenth": {13}, "fourteenth": {14},
	"fifteenth": {15}, "sixteenth": {16}, "seventeenth": {17},
	"eighteenth": {18}, "nineteenth": {19}, "twentieth": {20},
	"thirtieth": {30}, "fortieth": {40}, "fiftieth": {50}, "sixtieth": {60},
	"seventieth": {70}, "eightieth": {80}, "ninetieth": {90},
	"hundredth": {100}, "thousandth": {1000},
}

// ordinalTriggers are nouns that signal the following small number is a
// label, not a quantity: "chapter two" converts, "two apples" does not.
var ordinalTriggers = map[string]bool{
	"chapter": true, "section": true, "item": true, "page": true,
	"step": true, "number": true, "no": true, "version": true,
	"level": true, "grade": true, "type": true, "phase": true,
	"part": true, "option": true, "rule": true,
}

func ordinalSuffix(n int64) string {
	if rem := n % 100; rem >= 11 && rem <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// numberState is the cross-batch accumulator for a number phrase split over
// a batch boundary ("one hundred" | "and five"). result holds completed
// scale groups, current the group still being built.
type numberState struct {
	result  int64
	current int64
	pending bool
}

// applyNumbers converts spoken cardinal and ordinal phrases to digits. A
// phrase still open at the end of the batch is buffered rather than
// emitted; the boundary flag forces it out.
func (p *Pipeline) applyNumbers(st *State, texts []string, boundary bool) []string {
	result := st.num.result
	current := st.num.current
	inNumber := st.num.pending

	output := make([]string, 0, len(texts))
	flush := func() {
		output = append(output, strconv.FormatInt(result+current, 10))
		result, current = 0, 0
		inNumber = false
	}

	for i := 0; i < len(texts); i++ {
		word := strings.ToLower(texts[i])
		nv, isNum := numWords[word]
		ov, isOrdinal := ordinalWords[word]

		// "and" joins groups only inside a phrase with a number word
		// following ("one hundred and five").
		validAnd := false
		if word == "and" && inNumber && i+1 < len(texts) {
			next := strings.ToLower(texts[i+1])
			_, nextNum := numWords[next]
			_, nextOrd := ordinalWords[next]
			validAnd = nextNum || nextOrd
		}

		// A lone small number before an ordinary word is a quantity
		// adjective and stays spelled out ("two apples"), unless a label
		// noun precedes it ("chapter two") or a number word follows
		// ("one hundred").
		if isNum && !inNumber && nv.scale == 1 && nv.increment <= 19 {
			next := ""
			if i+1 < len(texts) {
				next = strings.ToLower(texts[i+1])
			}
			prev := ""
			if len(output) > 0 {
				prev = strings.ToLower(output[len(output)-1])
			}
			_, nextNum := numWords[next]
			_, nextOrd := ordinalWords[next]
			nextIsNumber := nextNum || nextOrd || next == "and"
			if i+1 < len(texts) && !nextIsNumber && !ordinalTriggers[prev] {
				output = append(output, texts[i])
				continue
			}
		}

		switch {
		case !isNum && !isOrdinal && !validAnd:
			if inNumber {
				flush()
			}
			output = append(output, texts[i])
		case isOrdinal:
			total := result + current + ov.value
			output = append(output, strconv.FormatInt(total, 10)+ordinalSuffix(total))
			result, current = 0, 0
			inNumber = false
		default:
			inNumber = true
			if validAnd {
				continue
			}
			switch {
			case nv.scale == 1 && current > 0 && current < 100 && nv.increment < 100:
				switch {
				case current >= 10 && nv.increment >= 10:
					// Year style: "nineteen ninety nine" pairs into 1999.
					current = current*100 + nv.increment
				case current < 10 && nv.increment < 10:
					// Digit string: "one two three" stays 1 2 3.
					output = append(output, strconv.FormatInt(result+current, 10))
					result = 0
					current = nv.increment
				case current < 10 && nv.increment >= 20:
					// "three forty" is two separate numbers (a time),
					// not 43.
					output = append(output, strconv.FormatInt(result+current, 10))
					result = 0
					current = nv.increment
				default:
					current += nv.increment
				}
			case nv.scale == 100:
				current = max64(1, current) * nv.scale
			case nv.scale > 100:
				result += max64(1, current) * nv.scale
				current = 0
			default:
				current += nv.increment
			}
		}
	}

	if inNumber {
		if boundary {
			flush()
		} else {
			st.num = numberState{result: result, current: current, pending: true}
			return output
		}
	}
	st.num = numberState{}
	return output
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
