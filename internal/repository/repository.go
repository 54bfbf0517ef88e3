// Package repository contains the typed data access layer.
//
// A TypedRepository binds a record type to a named collection in a document
// store and exposes create/read/update/delete operations keyed by the record
// identifier. Store implementations live in subpackages (memory, mongo,
// postgres, redis, objectstore) inside this directory.
package repository

import (
	"context"
	"iter"
)

// Repository is the typed CRUD surface over one collection.
// T is the record type, K the identifier type.
type Repository[T any, K comparable] interface {
	// Write inserts the record as a new document and returns it unchanged.
	Write(ctx context.Context, record T) (T, error)

	// Load returns the record stored under id, or ErrNotFound.
	Load(ctx context.Context, id K) (T, error)

	// LoadAll returns a lazy sequence over every record of the collection.
	// Each range over the sequence re-scans the collection.
	LoadAll(ctx context.Context) iter.Seq2[T, error]

	// Update overwrites the stored fields of the record's document.
	// It returns ErrNotFound if no document has the record's id.
	Update(ctx context.Context, record T) (T, error)

	// Delete removes the record's document, or returns ErrNotFound.
	Delete(ctx context.Context, record T) error

	// DeleteByID removes the document stored under id, or returns ErrNotFound.
	DeleteByID(ctx context.Context, id K) error
}
