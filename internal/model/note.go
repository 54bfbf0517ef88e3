// Package model contains the record types stored through the repository layer.
package model

import (
	"time"

	"docrepo/internal/repository"
)

// Note is a short titled text. It is stored as one document in the "notes"
// collection, keyed by ID.
type Note struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteCollection is the collection notes are stored in.
const NoteCollection = "notes"

// NoteCodec converts notes to and from documents.
var NoteCodec = repository.JSONCodec[Note]{Name: NoteCollection}
