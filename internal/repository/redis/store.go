// Package redis implements repository.Store on Redis hashes.
//
// Each collection is one hash at "<prefix>:<collection>" whose fields are
// document ids and whose values are the JSON-encoded documents.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"docrepo/internal/repository"
)

const (
	scanCount     = 100
	updateRetries = 5
)

// Store wraps a Redis client.
type Store struct {
	client *goredis.Client
	prefix string
}

// NewStore returns a Store that namespaces its hashes under prefix.
func NewStore(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

var _ repository.Store = (*Store)(nil)

// Collection binds to the hash backing name. Redis creates it on first write.
func (s *Store) Collection(_ context.Context, name string) (repository.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	key := name
	if s.prefix != "" {
		key = s.prefix + ":" + name
	}
	return &Collection{client: s.client, key: key}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Collection is a single Redis hash.
type Collection struct {
	client *goredis.Client
	key    string
}

var _ repository.Collection = (*Collection)(nil)

// Key returns the hash key backing the collection.
func (c *Collection) Key() string { return c.key }

func (c *Collection) FindOne(ctx context.Context, f repository.Filter) (repository.Document, error) {
	raw, err := c.client.HGet(ctx, c.key, f.ID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrNoDocument
		}
		return nil, err
	}
	return decode(raw)
}

// Find walks the hash with HSCAN. Documents written during the scan may or
// may not be returned.
func (c *Collection) Find(ctx context.Context) (repository.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &cursor{client: c.client, key: c.key}, nil
}

// InsertOne stores doc with HSETNX so an existing id is never overwritten.
func (c *Collection) InsertOne(ctx context.Context, doc repository.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	ok, err := c.client.HSetNX(ctx, c.key, doc.ID(), raw).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrDuplicateKey
	}
	return nil
}

// UpdateOne merges set into the stored document inside a WATCH transaction,
// retrying when a concurrent writer touches the hash.
func (c *Collection) UpdateOne(ctx context.Context, f repository.Filter, set repository.Document) (repository.UpdateResult, error) {
	var res repository.UpdateResult
	apply := func(tx *goredis.Tx) error {
		res = repository.UpdateResult{}
		raw, err := tx.HGet(ctx, c.key, f.ID).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			return err
		}
		doc, err := decode(raw)
		if err != nil {
			return err
		}
		before, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		for k, v := range set {
			if k != repository.IDField {
				doc[k] = v
			}
		}
		after, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		res.Matched = 1
		if bytes.Equal(before, after) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, c.key, f.ID, after)
			return nil
		})
		if err != nil {
			return err
		}
		res.Modified = 1
		return nil
	}

	for range updateRetries {
		err := c.client.Watch(ctx, apply, c.key)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			return repository.UpdateResult{}, err
		}
	}
	return repository.UpdateResult{}, fmt.Errorf("update %s/%s: too many concurrent writers", c.key, f.ID)
}

func (c *Collection) DeleteOne(ctx context.Context, f repository.Filter) (int64, error) {
	return c.client.HDel(ctx, c.key, f.ID).Result()
}

func decode(raw []byte) (repository.Document, error) {
	var doc repository.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// cursor pages through a hash with HSCAN, buffering one page at a time.
// HSCAN may return a field more than once while the hash is rehashed, so
// fields already yielded in this pass are skipped.
type cursor struct {
	client *goredis.Client
	key    string

	next    uint64
	started bool
	page    []string // alternating field, value
	seen    map[string]struct{}
	cur     []byte
	err     error
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	for {
		for len(c.page) < 2 {
			if c.started && c.next == 0 {
				c.cur = nil
				return false
			}
			kv, next, err := c.client.HScan(ctx, c.key, c.next, "", scanCount).Result()
			if err != nil {
				c.err = err
				return false
			}
			c.started = true
			c.next = next
			c.page = kv
		}
		field, value := c.page[0], c.page[1]
		c.page = c.page[2:]
		if _, dup := c.seen[field]; dup {
			continue
		}
		c.seen[field] = struct{}{}
		c.cur = []byte(value)
		return true
	}
}

func (c *cursor) Document() (repository.Document, error) {
	if c.cur == nil {
		return nil, repository.ErrNoDocument
	}
	return decode(c.cur)
}

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close(context.Context) error {
	c.page = nil
	c.seen = nil
	c.cur = nil
	return nil
}
