// Package memory is an in-process document store.
// Data is lost on restart; it backs tests and the "memory" backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"docrepo/internal/repository"
)

// Store keeps every collection in memory. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]repository.Document
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]repository.Document)}
}

var _ repository.Store = (*Store)(nil)

// Collection returns a handle on name, creating the collection on first use.
func (s *Store) Collection(_ context.Context, name string) (repository.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]repository.Document)
	}
	return &collection{store: s, name: name}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of documents in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[name])
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) docs() map[string]repository.Document {
	return c.store.collections[c.name]
}

func (c *collection) FindOne(ctx context.Context, f repository.Filter) (repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	doc, ok := c.docs()[f.ID]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	return deepCopy(doc)
}

// Find snapshots the collection in id order.
func (c *collection) Find(ctx context.Context) (repository.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	ids := make([]string, 0, len(c.docs()))
	for id := range c.docs() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]repository.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := deepCopy(c.docs()[id])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return repository.NewSliceCursor(out), nil
}

func (c *collection) InsertOne(ctx context.Context, doc repository.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := doc.ID()
	stored, err := deepCopy(doc)
	if err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, exists := c.docs()[id]; exists {
		return repository.ErrDuplicateKey
	}
	c.docs()[id] = stored
	return nil
}

func (c *collection) UpdateOne(ctx context.Context, f repository.Filter, set repository.Document) (repository.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return repository.UpdateResult{}, err
	}
	fields, err := deepCopy(set)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	doc, ok := c.docs()[f.ID]
	if !ok {
		return repository.UpdateResult{}, nil
	}
	for k, v := range fields {
		if k == repository.IDField {
			continue
		}
		doc[k] = v
	}
	return repository.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (c *collection) DeleteOne(ctx context.Context, f repository.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.docs()[f.ID]; !ok {
		return 0, nil
	}
	delete(c.docs(), f.ID)
	return 1, nil
}

// deepCopy round-trips a document through JSON so callers never share
// nested values with the store.
func deepCopy(src repository.Document) (repository.Document, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	var dst repository.Document
	if err := json.Unmarshal(b, &dst); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	return dst, nil
}
