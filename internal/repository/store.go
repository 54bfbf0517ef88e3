package repository

import (
	"context"
	"maps"
)

// IDField is the reserved document key holding the record identifier.
const IDField = "_id"

// Document is the stored form of a record: a flat mapping with the
// identifier under IDField plus every other serialized field.
type Document map[string]any

// ID returns the string identifier of the document, or "" if absent.
func (d Document) ID() string {
	v, ok := d[IDField]
	if !ok || v == nil {
		return ""
	}
	return KeyString(v)
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Filter selects a single document by exact match on its identifier.
type Filter struct {
	ID string
}

// ByID builds a Filter for the given identifier string.
func ByID(id string) Filter {
	return Filter{ID: id}
}

// UpdateResult reports how many documents an update matched and changed.
// Stores that cannot tell a matched no-op from a change report Modified
// equal to Matched.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Store is a handle on a document database.
type Store interface {
	// Collection binds to the named collection, creating it lazily if the
	// backend needs to.
	Collection(ctx context.Context, name string) (Collection, error)
	// Ping verifies connectivity with the backing store.
	Ping(ctx context.Context) error
}

// Collection exposes the filter-based primitives a TypedRepository needs.
// All filters are exact matches on IDField.
type Collection interface {
	// FindOne returns the matching document or ErrNoDocument.
	FindOne(ctx context.Context, f Filter) (Document, error)
	// Find opens a cursor over every document in the collection.
	Find(ctx context.Context) (Cursor, error)
	// InsertOne stores a new document. It returns ErrDuplicateKey when a
	// document with the same id already exists.
	InsertOne(ctx context.Context, doc Document) error
	// UpdateOne sets the given fields on the matching document.
	UpdateOne(ctx context.Context, f Filter, set Document) (UpdateResult, error)
	// DeleteOne removes the matching document and returns the deleted count.
	DeleteOne(ctx context.Context, f Filter) (int64, error)
}

// Cursor iterates over documents returned by Collection.Find.
type Cursor interface {
	// Next advances the cursor. It returns false when exhausted or on error.
	Next(ctx context.Context) bool
	// Document returns the current document.
	Document() (Document, error)
	// Err returns the error that stopped iteration, if any.
	Err() error
	// Close releases the cursor.
	Close(ctx context.Context) error
}

// SliceCursor is a Cursor over an in-memory snapshot of documents.
type SliceCursor struct {
	docs []Document
	pos  int
}

// NewSliceCursor returns a cursor positioned before the first document.
func NewSliceCursor(docs []Document) *SliceCursor {
	return &SliceCursor{docs: docs, pos: -1}
}

func (c *SliceCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if c.pos+1 >= len(c.docs) {
		c.pos = len(c.docs)
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Document() (Document, error) {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return nil, ErrNoDocument
	}
	return c.docs[c.pos], nil
}

func (c *SliceCursor) Err() error { return nil }

func (c *SliceCursor) Close(context.Context) error { return nil }
