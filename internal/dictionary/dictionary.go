// Package dictionary manages the user's protected vocabulary and compound
// corrections.
//
// Protected words are terms the corrector must never alter, stored with
// their canonical casing ("PostgreSQL", "OAuth"). Compound corrections map
// multi-word misrecognitions to a single replacement ("cooper netty's" to
// "kubernetes").
//
// Persistence goes through [Store]; dictation-time lookups never touch the
// store. A [Snapshot] is an immutable in-memory view taken from a store, and
// [Provider] swaps snapshots atomically so a reload cannot race a lookup.
package dictionary

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Word is a protected vocabulary entry. Text carries the canonical casing.
type Word struct {
	Text     string
	Category string
}

// Compound maps a multi-word misrecognition to its replacement. Misheard is
// matched case-insensitively on whole words.
type Compound struct {
	Misheard string
	Correct  string
}

// Store persists protected words and compound corrections. Implementations
// must treat word and misheard keys case-insensitively.
type Store interface {
	Words(ctx context.Context) ([]Word, error)
	Compounds(ctx context.Context) ([]Compound, error)

	// AddWord inserts a word, reporting false when it already exists.
	AddWord(ctx context.Context, w Word) (bool, error)
	RemoveWord(ctx context.Context, word string) (bool, error)

	AddCompound(ctx context.Context, c Compound) (bool, error)
	RemoveCompound(ctx context.Context, misheard string) (bool, error)

	Close() error
}

// Snapshot is an immutable point-in-time view of a store, built for O(1)
// dictation-time lookups. Safe for concurrent readers.
type Snapshot struct {
	casing    map[string]string
	compounds map[string]string
}

// NewSnapshot builds a snapshot from explicit entries, mainly for tests and
// for running without a backing store.
func NewSnapshot(words []Word, compounds []Compound) *Snapshot {
	s := &Snapshot{
		casing:    make(map[string]string, len(words)),
		compounds: make(map[string]string, len(compounds)),
	}
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		s.casing[strings.ToLower(text)] = text
	}
	for _, c := range compounds {
		key := strings.Join(strings.Fields(strings.ToLower(c.Misheard)), " ")
		if key == "" || c.Correct == "" {
			continue
		}
		s.compounds[key] = c.Correct
	}
	return s
}

// Load reads the store's full contents into a fresh snapshot.
func Load(ctx context.Context, store Store) (*Snapshot, error) {
	words, err := store.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("dictionary: load words: %w", err)
	}
	compounds, err := store.Compounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("dictionary: load compounds: %w", err)
	}
	return NewSnapshot(words, compounds), nil
}

// CanonicalCasing returns the stored casing for word, matched
// case-insensitively.
func (s *Snapshot) CanonicalCasing(word string) (string, bool) {
	c, ok := s.casing[strings.ToLower(word)]
	return c, ok
}

// IsProtected reports whether word is in the protected vocabulary.
func (s *Snapshot) IsProtected(word string) bool {
	_, ok := s.casing[strings.ToLower(word)]
	return ok
}

// CompoundFor returns the replacement for the given token window, if the
// lowercased space-joined window is a registered misrecognition.
func (s *Snapshot) CompoundFor(tokens []string) (string, bool) {
	if len(tokens) == 0 {
		return "", false
	}
	c, ok := s.compounds[strings.ToLower(strings.Join(tokens, " "))]
	return c, ok
}

// WordCount reports the number of protected words.
func (s *Snapshot) WordCount() int { return len(s.casing) }

// CompoundCount reports the number of compound corrections.
func (s *Snapshot) CompoundCount() int { return len(s.compounds) }

// Words returns the protected words in canonical casing, unordered.
func (s *Snapshot) Words() []string {
	out := make([]string, 0, len(s.casing))
	for _, w := range s.casing {
		out = append(out, w)
	}
	return out
}

// Provider hands out the current snapshot and supports hot reload from the
// backing store. The zero Provider is not usable; construct with
// [NewProvider].
type Provider struct {
	store Store
	snap  atomic.Pointer[Snapshot]
}

// NewProvider loads an initial snapshot from store.
func NewProvider(ctx context.Context, store Store) (*Provider, error) {
	p := &Provider{store: store}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the latest snapshot.
func (p *Provider) Current() *Snapshot {
	return p.snap.Load()
}

// Reload rebuilds the snapshot from the store and swaps it in. Readers keep
// the old snapshot until their next Current call.
func (p *Provider) Reload(ctx context.Context) error {
	snap, err := Load(ctx, p.store)
	if err != nil {
		return err
	}
	p.snap.Store(snap)
	return nil
}

// Close releases the backing store.
func (p *Provider) Close() error {
	return p.store.Close()
}
