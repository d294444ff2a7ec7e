package correct

import (
	"strings"
	"testing"

	"github.com/davfehr/typestream/internal/dictionary"
	"github.com/davfehr/typestream/internal/dictionary/phonetic"
	"github.com/davfehr/typestream/internal/freqdict"
)

func testDict(t *testing.T) *dictionary.Snapshot {
	t.Helper()
	return dictionary.NewSnapshot(
		[]dictionary.Word{
			{Text: "Docker"},
			{Text: "kubernetes"},
			{Text: "PostgreSQL"},
		},
		dictionary.DefaultCompounds(),
	)
}

func testFreq(t *testing.T) *freqdict.Dict {
	t.Helper()
	d, err := freqdict.LoadFromReader(strings.NewReader(
		"hello 10000\nworld 10000\nis 5000\nit 20000\nfine 5000\ncontainer 8000\nrare 50\n",
	))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return d
}

func process(t *testing.T, p *Pipeline, batches [][]string) string {
	t.Helper()
	st := NewState()
	var parts []string
	for _, b := range batches {
		if out := p.Process(st, b, false); out != "" {
			parts = append(parts, out)
		}
	}
	if out := p.Flush(st); out != "" {
		parts = append(parts, out)
	}
	return strings.Join(parts, " ")
}

func TestArtifactSubstitution(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	got := p.Process(NewState(), []string{"i'm", "gonna", "fix", "it"}, true)
	if got != "I'm going to fix it" {
		t.Errorf("Process() = %q", got)
	}
}

func TestCompoundCorrection(t *testing.T) {
	t.Parallel()
	p := NewPipeline(WithDictionary(testDict(t)))
	got := p.Process(NewState(), []string{"deploy", "to", "cooper", "netty's", "now"}, true)
	if !strings.Contains(got, "kubernetes") {
		t.Errorf("Process() = %q, want kubernetes substitution", got)
	}
	if strings.Contains(strings.ToLower(got), "cooper") {
		t.Errorf("Process() = %q, misheard fragments survived", got)
	}
}

func TestTrueCasingLocksToken(t *testing.T) {
	t.Parallel()
	p := NewPipeline(WithDictionary(testDict(t)), WithFuzzy(testFreq(t)))
	got := p.Process(NewState(), []string{"the", "docker", "container"}, true)
	if !strings.Contains(got, "Docker") {
		t.Errorf("Process() = %q, want canonical casing Docker", got)
	}
}

func TestFuzzyCorrection(t *testing.T) {
	t.Parallel()
	p := NewPipeline(WithFuzzy(testFreq(t)))
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"typo corrected", []string{"say", "helo", "there"}, "hello"},
		{"short dictionary word kept", []string{"it", "is", "fine"}, "is"},
		{"capitalized passes through", []string{"visit", "Helo", "today"}, "Helo"},
		{"acronym passes through", []string{"the", "HELO", "command"}, "HELO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := NewState()
			st.capNext = false
			got := p.Process(st, tt.in, true)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Process(%v) = %q, want %q present", tt.in, got, tt.want)
			}
		})
	}
}

func TestFuzzyFrequencyFloor(t *testing.T) {
	t.Parallel()
	p := NewPipeline(WithFuzzy(testFreq(t)))
	st := NewState()
	st.capNext = false
	got := p.Process(st, []string{"rere", "stuff"}, true)
	if strings.Contains(got, "rare") {
		t.Errorf("Process() = %q, low-frequency candidate applied", got)
	}
}

func TestHomophoneResolution(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"went", "over", "their", "to", "look"}, "over there"},
		{[]string{"it", "was", "to", "late"}, "too late"},
		{[]string{"its", "a", "good", "day"}, "it's a"},
		{[]string{"better", "then", "before"}, "better than"},
		{[]string{"the", "affect", "was", "small"}, "the effect"},
	}
	for _, tt := range tests {
		st := NewState()
		st.capNext = false
		got := p.Process(st, tt.in, true)
		if !strings.Contains(strings.ToLower(got), tt.want) {
			t.Errorf("Process(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumberQuantityAdjectiveStaysSpelled(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	got := p.Process(NewState(), []string{"two", "apples"}, true)
	if !strings.Contains(strings.ToLower(got), "two") {
		t.Errorf("Process() = %q, quantity adjective converted", got)
	}
}

func TestNumberLabelConverts(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	got := p.Process(NewState(), []string{"chapter", "two"}, true)
	if !strings.Contains(got, "2") {
		t.Errorf("Process() = %q, want chapter label as digits", got)
	}
}

func TestOrdinalConversion(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	got := p.Process(NewState(), []string{"twenty", "first"}, true)
	if !strings.Contains(got, "21st") {
		t.Errorf("Process() = %q, want 21st", got)
	}
}

func TestNumberConversionTable(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"forty", "seven"}, "47"},
		{[]string{"one", "hundred", "and", "five"}, "105"},
		{[]string{"nineteen", "ninety", "nine"}, "1999"},
		{[]string{"one", "two", "three"}, "1 2 3"},
		{[]string{"three", "forty"}, "3 40"},
		{[]string{"two", "thousand"}, "2000"},
	}
	for _, tt := range tests {
		got := p.Process(NewState(), tt.in, true)
		if !strings.Contains(got, tt.want) {
			t.Errorf("Process(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCrossBatchNumberCarry(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	st := NewState()
	first := p.Process(st, []string{"one", "hundred"}, false)
	if strings.Contains(first, "100") {
		t.Errorf("open number phrase emitted early: %q", first)
	}
	second := p.Process(st, []string{"and", "five"}, false)
	flushed := p.Flush(st)
	combined := first + second + flushed
	if !strings.Contains(combined, "105") {
		t.Errorf("cross-batch number = %q, want 105", combined)
	}
}

func TestCrossBatchPunctuationCarry(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	st := NewState()
	first := p.Process(st, []string{"are", "you", "there", "question"}, false)
	if strings.Contains(strings.ToLower(first), "question") {
		t.Errorf("command opener emitted early: %q", first)
	}
	second := p.Process(st, []string{"mark", "thank", "you"}, false)
	if !strings.Contains(second, "?") {
		t.Errorf("second batch = %q, want ?", second)
	}
}

func TestPunctuationCarryFlushesAsLiteral(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	st := NewState()
	first := p.Process(st, []string{"the", "last", "question"}, false)
	if strings.Contains(strings.ToLower(first), "question") {
		t.Errorf("opener emitted early: %q", first)
	}
	flushed := p.Flush(st)
	if !strings.Contains(strings.ToLower(flushed), "question") {
		t.Errorf("Flush() = %q, held word lost", flushed)
	}
}

func TestVoicePunctuationCommands(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"hello", "comma", "world"}, "hello, world"},
		{[]string{"done", "period"}, "done."},
		{[]string{"wait", "new", "line", "go"}, "wait\nGo"},
		{[]string{"one", "exclamation", "point"}, "one!"},
	}
	for _, tt := range tests {
		st := NewState()
		st.capNext = false
		got := p.Process(st, tt.in, true)
		if !strings.Contains(got, tt.want) {
			t.Errorf("Process(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCapitalization(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	got := p.Process(NewState(), []string{"hello", "period", "the", "end"}, true)
	if got != "Hello. The end" {
		t.Errorf("Process() = %q, want %q", got, "Hello. The end")
	}
}

func TestFirstPersonAlwaysCapitalized(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	st := NewState()
	st.capNext = false
	got := p.Process(st, []string{"i", "think", "i'm", "right"}, true)
	if !strings.Contains(got, "I think") || !strings.Contains(got, "I'm right") {
		t.Errorf("Process() = %q", got)
	}
}

func TestCapitalizationCarriesAcrossBatches(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	st := NewState()
	p.Process(st, []string{"done", "period"}, false)
	got := p.Process(st, []string{"next", "sentence"}, false)
	if !strings.Contains(got, "Next") {
		t.Errorf("Process() = %q, capitalization not carried", got)
	}
}

func TestStateResetClearsCarries(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	st := NewState()
	p.Process(st, []string{"one", "hundred"}, false)
	st.Reset()
	if got := p.Flush(st); got != "" {
		t.Errorf("Flush() after Reset = %q, want empty", got)
	}
	got := p.Process(st, []string{"fresh", "start"}, true)
	if !strings.Contains(got, "Fresh") {
		t.Errorf("Process() = %q, capitalization not reset", got)
	}
}

func TestDegradedWithoutResources(t *testing.T) {
	t.Parallel()
	p := NewPipeline()
	got := p.Process(NewState(), []string{"the", "docker", "helo"}, true)
	if got != "The docker helo" {
		t.Errorf("Process() = %q, pass-through expected without dictionaries", got)
	}
}

func TestNightmareParagraph(t *testing.T) {
	t.Parallel()
	p := NewPipeline(WithDictionary(testDict(t)))
	got := process(t, p, [][]string{
		{"it", "was", "too", "late", "to", "buy", "two", "apples"},
		{"comma", "so", "they", "are", "going", "over", "there", "to", "grab", "their", "pears", "instead"},
		{"period", "he", "ate", "eight", "pieces", "of", "meat"},
	})
	lower := strings.ToLower(got)
	if !strings.Contains(lower, "two apples") {
		t.Errorf("result %q converted a quantity adjective", got)
	}
	if !strings.Contains(got, ",") || !strings.Contains(got, ".") {
		t.Errorf("result %q missing voice punctuation", got)
	}
	if !strings.Contains(lower, "eight pieces") {
		t.Errorf("result %q converted a small quantity", got)
	}
}

func TestHookReportsCorrections(t *testing.T) {
	t.Parallel()
	var stages []string
	p := NewPipeline(
		WithDictionary(testDict(t)),
		WithHook(func(stage, from, to string) { stages = append(stages, stage) }),
	)
	p.Process(NewState(), []string{"gonna", "use", "docker", "period"}, true)
	want := map[string]bool{"artifact": false, "truecase": false, "punct": false}
	for _, s := range stages {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for stage, seen := range want {
		if !seen {
			t.Errorf("hook never saw stage %q (got %v)", stage, stages)
		}
	}
}

func TestPhoneticCompoundFallback(t *testing.T) {
	t.Parallel()
	snap := dictionary.NewSnapshot(
		[]dictionary.Word{{Text: "Docker"}, {Text: "PostgreSQL"}},
		nil,
	)
	p := NewPipeline(
		WithDictionary(snap),
		WithPhoneticMatcher(phonetic.New([]string{"Docker", "PostgreSQL"})),
	)
	got := p.Process(NewState(), []string{"the", "post", "gress", "restarted"}, true)
	if got != "The PostgreSQL restarted" {
		t.Errorf("Process() = %q, want phonetic correction to PostgreSQL", got)
	}
}

func TestPhoneticSkipsProtectedWindow(t *testing.T) {
	t.Parallel()
	snap := dictionary.NewSnapshot([]dictionary.Word{{Text: "Docker"}}, nil)
	p := NewPipeline(
		WithDictionary(snap),
		WithPhoneticMatcher(phonetic.New([]string{"Docker"})),
	)
	got := p.Process(NewState(), []string{"the", "docker", "restarted"}, true)
	if got != "The Docker restarted" {
		t.Errorf("Process() = %q, window with a correct term must not be rewritten", got)
	}
}

func TestPhoneticLocksReplacement(t *testing.T) {
	t.Parallel()
	snap := dictionary.NewSnapshot([]dictionary.Word{{Text: "PostgreSQL"}}, nil)
	p := NewPipeline(
		WithDictionary(snap),
		WithPhoneticMatcher(phonetic.New([]string{"PostgreSQL"})),
		WithFuzzy(testFreq(t)),
	)
	got := p.Process(NewState(), []string{"post", "gress", "is", "fine"}, true)
	if !strings.Contains(got, "PostgreSQL") {
		t.Errorf("Process() = %q, phonetic replacement lost its casing", got)
	}
}
