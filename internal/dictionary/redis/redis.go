// Package redis provides a Redis-backed dictionary store.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/davfehr/typestream/internal/dictionary"
)

const (
	wordsKey      = "typestream:words"
	categoriesKey = "typestream:word_categories"
	compoundsKey  = "typestream:compounds"
)

// Store is a [dictionary.Store] backed by Redis hashes. Word fields are the
// lowercase form; values keep the canonical casing.
type Store struct {
	client  *redis.Client
	ownConn bool
}

var _ dictionary.Store = (*Store)(nil)

// New wraps an existing Redis client. The caller keeps ownership of the
// client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Connect dials addr and returns a Store that owns the connection.
func Connect(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("dictionary/redis: ping %s: %w", addr, err)
	}
	return &Store{client: client, ownConn: true}, nil
}

func (s *Store) Words(ctx context.Context) ([]dictionary.Word, error) {
	entries, err := s.client.HGetAll(ctx, wordsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("dictionary/redis: list words: %w", err)
	}
	categories, err := s.client.HGetAll(ctx, categoriesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("dictionary/redis: list categories: %w", err)
	}
	words := make([]dictionary.Word, 0, len(entries))
	for key, display := range entries {
		category := categories[key]
		if category == "" {
			category = "custom"
		}
		words = append(words, dictionary.Word{Text: display, Category: category})
	}
	return words, nil
}

func (s *Store) Compounds(ctx context.Context) ([]dictionary.Compound, error) {
	entries, err := s.client.HGetAll(ctx, compoundsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("dictionary/redis: list compounds: %w", err)
	}
	compounds := make([]dictionary.Compound, 0, len(entries))
	for misheard, correct := range entries {
		compounds = append(compounds, dictionary.Compound{Misheard: misheard, Correct: correct})
	}
	return compounds, nil
}

func (s *Store) AddWord(ctx context.Context, w dictionary.Word) (bool, error) {
	text := strings.TrimSpace(w.Text)
	if text == "" {
		return false, nil
	}
	key := strings.ToLower(text)
	added, err := s.client.HSetNX(ctx, wordsKey, key, text).Result()
	if err != nil {
		return false, fmt.Errorf("dictionary/redis: add word %q: %w", text, err)
	}
	if !added {
		return false, nil
	}
	category := w.Category
	if category == "" {
		category = "custom"
	}
	if err := s.client.HSet(ctx, categoriesKey, key, category).Err(); err != nil {
		return false, fmt.Errorf("dictionary/redis: set category for %q: %w", text, err)
	}
	return true, nil
}

func (s *Store) RemoveWord(ctx context.Context, word string) (bool, error) {
	key := strings.ToLower(strings.TrimSpace(word))
	removed, err := s.client.HDel(ctx, wordsKey, key).Result()
	if err != nil {
		return false, fmt.Errorf("dictionary/redis: remove word %q: %w", word, err)
	}
	if err := s.client.HDel(ctx, categoriesKey, key).Err(); err != nil {
		return false, fmt.Errorf("dictionary/redis: remove category for %q: %w", word, err)
	}
	return removed > 0, nil
}

func (s *Store) AddCompound(ctx context.Context, c dictionary.Compound) (bool, error) {
	key := strings.Join(strings.Fields(strings.ToLower(c.Misheard)), " ")
	if key == "" || c.Correct == "" {
		return false, nil
	}
	added, err := s.client.HSetNX(ctx, compoundsKey, key, c.Correct).Result()
	if err != nil {
		return false, fmt.Errorf("dictionary/redis: add compound %q: %w", key, err)
	}
	return added, nil
}

func (s *Store) RemoveCompound(ctx context.Context, misheard string) (bool, error) {
	key := strings.Join(strings.Fields(strings.ToLower(misheard)), " ")
	removed, err := s.client.HDel(ctx, compoundsKey, key).Result()
	if err != nil {
		return false, fmt.Errorf("dictionary/redis: remove compound %q: %w", key, err)
	}
	return removed > 0, nil
}

// Close closes the underlying connection when the Store owns it.
func (s *Store) Close() error {
	if s.ownConn {
		return s.client.Close()
	}
	return nil
}
