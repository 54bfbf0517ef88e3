package repository

import "errors"

var (
	// ErrNotFound is returned when an operation expects exactly one matching
	// document and observes none.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Write when the id is already stored.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInvalidRecordType is returned at construction when the record type
	// has no codec or no collection binding.
	ErrInvalidRecordType = errors.New("invalid record type")
	// ErrInvalidID is returned for empty identifiers and for encoded records
	// without an "_id" field.
	ErrInvalidID = errors.New("invalid record id")

	// ErrNoDocument is returned by Collection.FindOne when nothing matches.
	ErrNoDocument = errors.New("no document matches filter")
	// ErrDuplicateKey is returned by Collection.InsertOne on an id collision.
	ErrDuplicateKey = errors.New("duplicate document id")
)
