package dictionary

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory [Store] for tests and for running without
// persistence. Safe for concurrent use.
type MemStore struct {
	mu        sync.RWMutex
	words     map[string]Word   // keyed by lowercase text
	compounds map[string]Compound // keyed by normalized misheard
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		words:     make(map[string]Word),
		compounds: make(map[string]Compound),
	}
}

func (m *MemStore) Words(_ context.Context) ([]Word, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Word, 0, len(m.words))
	for _, w := range m.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out, nil
}

func (m *MemStore) Compounds(_ context.Context) ([]Compound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Compound, 0, len(m.compounds))
	for _, c := range m.compounds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Misheard < out[j].Misheard })
	return out, nil
}

func (m *MemStore) AddWord(_ context.Context, w Word) (bool, error) {
	text := strings.TrimSpace(w.Text)
	if text == "" {
		return false, nil
	}
	key := strings.ToLower(text)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.words[key]; exists {
		return false, nil
	}
	w.Text = text
	if w.Category == "" {
		w.Category = "custom"
	}
	m.words[key] = w
	return true, nil
}

func (m *MemStore) RemoveWord(_ context.Context, word string) (bool, error) {
	key := strings.ToLower(strings.TrimSpace(word))
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.words[key]; !exists {
		return false, nil
	}
	delete(m.words, key)
	return true, nil
}

func (m *MemStore) AddCompound(_ context.Context, c Compound) (bool, error) {
	key := strings.Join(strings.Fields(strings.ToLower(c.Misheard)), " ")
	if key == "" || c.Correct == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.compounds[key]; exists {
		return false, nil
	}
	m.compounds[key] = Compound{Misheard: key, Correct: c.Correct}
	return true, nil
}

func (m *MemStore) RemoveCompound(_ context.Context, misheard string) (bool, error) {
	key := strings.Join(strings.Fields(strings.ToLower(misheard)), " ")
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.compounds[key]; !exists {
		return false, nil
	}
	delete(m.compounds, key)
	return true, nil
}

func (m *MemStore) Close() error { return nil }
