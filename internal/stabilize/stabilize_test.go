package stabilize

import (
	"reflect"
	"testing"

	"github.com/davfehr/typestream/pkg/asr"
)

func TestPolicyValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", Policy{Lag: 2, ConfidenceThreshold: 0.3}, false},
		{"zero lag", Policy{Lag: 0, ConfidenceThreshold: 0}, false},
		{"negative lag", Policy{Lag: -1}, true},
		{"threshold too high", Policy{Lag: 1, ConfidenceThreshold: 1.5}, true},
		{"threshold negative", Policy{Lag: 1, ConfidenceThreshold: -0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeedPartialLag(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := s.Feed(asr.Batch{Words: []string{"one", "two", "three", "four", "five"}})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %v, want %v", got, want)
	}
}

func TestFeedPartialGrowth(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	feeds := []struct {
		words []string
		want  []string
	}{
		{[]string{"hello"}, nil},
		{[]string{"hello", "world"}, []string{"hello"}},
		{[]string{"hello", "world"}, nil}, // same count, short-circuit
		{[]string{"hello", "world", "today"}, []string{"world"}},
	}
	for i, f := range feeds {
		got, err := s.Feed(asr.Batch{Words: f.words})
		if err != nil {
			t.Fatalf("Feed %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, f.want) {
			t.Errorf("Feed %d = %v, want %v", i, got, f.want)
		}
	}
}

func TestFeedShrunkHypothesis(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Feed(asr.Batch{Words: []string{"a", "b", "c", "d"}}); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	got, err := s.Feed(asr.Batch{Words: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("shrunk hypothesis emitted %v, want nothing", got)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(s.Committed(), want) {
		t.Errorf("Committed() = %v, want %v", s.Committed(), want)
	}
}

func TestFeedFinalEmitsSuffixAndResets(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Feed(asr.Batch{Words: []string{"the", "quick", "brown", "fox"}}); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	// committed: ["the", "quick"]
	got, err := s.Feed(asr.Batch{Words: []string{"the", "quick", "brown", "fox"}, IsFinal: true})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if want := []string{"brown", "fox"}; !reflect.DeepEqual(got, want) {
		t.Errorf("final Feed() = %v, want %v", got, want)
	}
	if len(s.Committed()) != 0 {
		t.Errorf("committed not reset after final: %v", s.Committed())
	}

	// Next sentence starts from scratch.
	got, err = s.Feed(asr.Batch{Words: []string{"new", "sentence", "here"}})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if want := []string{"new"}; !reflect.DeepEqual(got, want) {
		t.Errorf("post-final Feed() = %v, want %v", got, want)
	}
}

func TestFeedFinalConfidenceFilter(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 1, ConfidenceThreshold: 0.3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := s.Feed(asr.Batch{
		Words:       []string{"keep", "drop", "keep"},
		Confidences: []float64{0.9, 0.1, 0.5},
		IsFinal:     true,
	})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if want := []string{"keep", "keep"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %v, want %v", got, want)
	}
}

func TestFeedFinalNoConfidencesKeepsAll(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 1, ConfidenceThreshold: 0.3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := s.Feed(asr.Batch{Words: []string{"all", "kept"}, IsFinal: true})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if want := []string{"all", "kept"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %v, want %v", got, want)
	}
}

func TestFeedFinalShorterThanCommitted(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Feed(asr.Batch{Words: []string{"a", "b", "c"}}); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	got, err := s.Feed(asr.Batch{Words: []string{"a", "b"}, IsFinal: true})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("final shorter than committed emitted %v, want nothing", got)
	}
	if len(s.Committed()) != 0 {
		t.Errorf("committed not reset after final: %v", s.Committed())
	}
}

func TestFeedInvalidBatch(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.Feed(asr.Batch{Words: []string{"a", "b"}, Confidences: []float64{0.5}})
	if err == nil {
		t.Error("Feed() with mismatched confidences should error")
	}
}

func TestZeroLagFastMode(t *testing.T) {
	t.Parallel()
	s, err := New(Policy{Lag: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := s.Feed(asr.Batch{Words: []string{"instant", "commit"}})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if want := []string{"instant", "commit"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Feed() = %v, want %v", got, want)
	}
}
