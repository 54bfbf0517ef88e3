// Package objectstore implements repository.Store on an S3-compatible bucket.
//
// Each document is one JSON object at "<collection>/<escaped id>.json".
// Inserts check for an existing key before uploading; two writers racing on
// the same new id both land on the same key, so a collection never holds
// more than one document per id.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"docrepo/internal/repository"
	"docrepo/internal/storage"
)

const (
	contentType = "application/json"
	suffix      = ".json"
)

// Store maps collections onto key prefixes of one bucket.
type Store struct {
	objects storage.Storage
}

// NewStore returns a Store over objects.
func NewStore(objects storage.Storage) *Store {
	return &Store{objects: objects}
}

var _ repository.Store = (*Store)(nil)

// Collection binds to the key prefix of name. Prefixes need no creation.
func (s *Store) Collection(_ context.Context, name string) (repository.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("collection name %q must not contain '/'", name)
	}
	return &Collection{objects: s.objects, prefix: name + "/"}, nil
}

// Ping checks the bucket.
func (s *Store) Ping(ctx context.Context) error {
	return s.objects.Ping(ctx)
}

// Collection stores documents under a single key prefix.
type Collection struct {
	objects storage.Storage
	prefix  string
}

var _ repository.Collection = (*Collection)(nil)

// Key returns the object key holding the document with id.
func (c *Collection) Key(id string) string {
	return c.prefix + url.PathEscape(id) + suffix
}

func (c *Collection) FindOne(ctx context.Context, f repository.Filter) (repository.Document, error) {
	doc, err := c.read(ctx, c.Key(f.ID))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, repository.ErrNoDocument
	}
	return doc, err
}

// Find lists the prefix once and fetches each document as the cursor reaches it.
func (c *Collection) Find(ctx context.Context) (repository.Cursor, error) {
	objs, err := c.objects.List(ctx, c.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		if strings.HasSuffix(o.Key, suffix) {
			keys = append(keys, o.Key)
		}
	}
	return &cursor{coll: c, keys: keys, pos: -1}, nil
}

func (c *Collection) InsertOne(ctx context.Context, doc repository.Document) error {
	key := c.Key(doc.ID())
	_, err := c.objects.Stat(ctx, key)
	switch {
	case err == nil:
		return repository.ErrDuplicateKey
	case !errors.Is(err, storage.ErrObjectNotFound):
		return err
	}
	return c.write(ctx, key, doc)
}

// UpdateOne reads the document, merges set into it and writes it back when
// anything changed.
func (c *Collection) UpdateOne(ctx context.Context, f repository.Filter, set repository.Document) (repository.UpdateResult, error) {
	key := c.Key(f.ID)
	doc, err := c.read(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return repository.UpdateResult{}, nil
	}
	if err != nil {
		return repository.UpdateResult{}, err
	}

	before, err := json.Marshal(doc)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	for k, v := range set {
		if k != repository.IDField {
			doc[k] = v
		}
	}
	after, err := json.Marshal(doc)
	if err != nil {
		return repository.UpdateResult{}, fmt.Errorf("encode document: %w", err)
	}
	if bytes.Equal(before, after) {
		return repository.UpdateResult{Matched: 1}, nil
	}
	if err := c.put(ctx, key, after); err != nil {
		return repository.UpdateResult{}, err
	}
	return repository.UpdateResult{Matched: 1, Modified: 1}, nil
}

// DeleteOne removes the object, reporting 0 when it did not exist.
func (c *Collection) DeleteOne(ctx context.Context, f repository.Filter) (int64, error) {
	key := c.Key(f.ID)
	if _, err := c.objects.Stat(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if err := c.objects.Delete(ctx, key); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c *Collection) read(ctx context.Context, key string) (repository.Document, error) {
	body, _, err := c.objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var doc repository.Document
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

func (c *Collection) write(ctx context.Context, key string, doc repository.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return c.put(ctx, key, raw)
}

func (c *Collection) put(ctx context.Context, key string, raw []byte) error {
	_, err := c.objects.Put(ctx, key, bytes.NewReader(raw), storage.PutObjectOptions{
		Size:        int64(len(raw)),
		ContentType: contentType,
	})
	return err
}

type cursor struct {
	coll *Collection
	keys []string
	pos  int
	doc  repository.Document
	err  error
}

// Next fetches the next listed object. Objects deleted after the listing
// are skipped.
func (c *cursor) Next(ctx context.Context) bool {
	for c.err == nil && c.pos+1 < len(c.keys) {
		c.pos++
		doc, err := c.coll.read(ctx, c.keys[c.pos])
		if errors.Is(err, storage.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			c.err = err
			return false
		}
		c.doc = doc
		return true
	}
	c.doc = nil
	return false
}

func (c *cursor) Document() (repository.Document, error) {
	if c.doc == nil {
		return nil, repository.ErrNoDocument
	}
	return c.doc, nil
}

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close(context.Context) error {
	c.keys = nil
	c.doc = nil
	return nil
}
