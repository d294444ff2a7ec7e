// Package freqdict holds a word-frequency dictionary and answers fuzzy
// lookups against it.
//
// The on-disk format is the common SymSpell one: one entry per line,
// "word frequency", whitespace separated. Lines that do not parse are
// skipped rather than failing the whole load, since published frequency
// lists routinely carry a few malformed rows.
package freqdict

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/edsrzf/mmap-go"
)

// Candidate is a dictionary word considered as a replacement for a
// misrecognized token.
type Candidate struct {
	Term      string
	Frequency int64
	Distance  int
}

// Dict is an in-memory frequency dictionary. Lookups are read-only after
// load; Add may be called during setup to seed extra vocabulary. Not safe
// for concurrent mutation.
type Dict struct {
	freqs map[string]int64

	// byLength buckets terms by rune count so a fuzzy scan only visits
	// words whose length is within the edit-distance bound.
	byLength map[int][]string

	maxLen int
}

// New returns an empty dictionary.
func New() *Dict {
	return &Dict{
		freqs:    make(map[string]int64),
		byLength: make(map[int][]string),
	}
}

// Load reads a frequency list from path.
func Load(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("freqdict: open %s: %w", path, err)
	}
	defer f.Close()
	d, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("freqdict: load %s: %w", path, err)
	}
	return d, nil
}

// LoadMapped memory-maps the frequency list instead of streaming it. The
// mapping is released before returning; it only avoids double-buffering the
// file during the parse, which matters for the multi-hundred-megabyte lists
// shipped with some models.
func LoadMapped(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("freqdict: open %s: %w", path, err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("freqdict: mmap %s: %w", path, err)
	}
	defer m.Unmap()
	d, err := LoadFromReader(bytes.NewReader(m))
	if err != nil {
		return nil, fmt.Errorf("freqdict: load %s: %w", path, err)
	}
	return d, nil
}

// LoadFromReader parses a frequency list from r.
func LoadFromReader(r io.Reader) (*Dict, error) {
	d := New()
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		count, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		d.Add(strings.ToLower(parts[0]), count)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("freqdict: scan: %w", err)
	}
	return d, nil
}

// Add inserts or updates a term. The higher frequency wins when the term is
// already present, so seeding protected vocabulary cannot demote a common
// word.
func (d *Dict) Add(term string, frequency int64) {
	term = strings.ToLower(term)
	if prev, ok := d.freqs[term]; ok {
		if frequency > prev {
			d.freqs[term] = frequency
		}
		return
	}
	d.freqs[term] = frequency
	n := len([]rune(term))
	d.byLength[n] = append(d.byLength[n], term)
	if n > d.maxLen {
		d.maxLen = n
	}
}

// Len reports the number of distinct terms.
func (d *Dict) Len() int {
	return len(d.freqs)
}

// Frequency returns the stored frequency for term (lowercased exact match).
func (d *Dict) Frequency(term string) (int64, bool) {
	f, ok := d.freqs[strings.ToLower(term)]
	return f, ok
}

// Contains reports whether term is in the dictionary.
func (d *Dict) Contains(term string) bool {
	_, ok := d.freqs[strings.ToLower(term)]
	return ok
}

// Lookup returns every dictionary candidate for term within maxDist
// Damerau-Levenshtein edits and above minFreq frequency, ordered by
// distance, then by descending frequency, then alphabetically. The scan is
// restricted to length buckets reachable within maxDist edits.
func (d *Dict) Lookup(term string, maxDist int, minFreq int64) []Candidate {
	term = strings.ToLower(term)
	n := len([]rune(term))

	var out []Candidate
	lo := n - maxDist
	if lo < 1 {
		lo = 1
	}
	hi := n + maxDist
	if hi > d.maxLen {
		hi = d.maxLen
	}
	for l := lo; l <= hi; l++ {
		for _, cand := range d.byLength[l] {
			freq := d.freqs[cand]
			if freq <= minFreq {
				continue
			}
			dist := matchr.DamerauLevenshtein(term, cand)
			if dist > maxDist {
				continue
			}
			out = append(out, Candidate{Term: cand, Frequency: freq, Distance: dist})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// Best returns the top-ranked candidate from [Dict.Lookup].
func (d *Dict) Best(term string, maxDist int, minFreq int64) (Candidate, bool) {
	cands := d.Lookup(term, maxDist, minFreq)
	if len(cands) == 0 {
		return Candidate{}, false
	}
	return cands[0], true
}
