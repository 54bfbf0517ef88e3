package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docrepo/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
// All collections share the documents table created by migration.EnsureMigrated;
// each row holds one document as JSONB keyed by (collection, id).
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// Collection binds to name. Rows are created on insert, so there is nothing
// to provision per collection.
func (s *Store) Collection(_ context.Context, name string) (repository.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	return &Collection{db: s.db, name: name}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Collection is a view of the documents table filtered by collection name.
type Collection struct {
	db   *sql.DB
	name string
}

var _ repository.Collection = (*Collection)(nil)

// FindOne fetches a single document by id.
func (c *Collection) FindOne(ctx context.Context, f repository.Filter) (repository.Document, error) {
	const q = `SELECT body FROM documents WHERE collection = $1 AND id = $2`
	var body []byte
	if err := c.db.QueryRowContext(ctx, q, c.name, f.ID).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoDocument
		}
		return nil, err
	}
	return decodeBody(f.ID, body)
}

// Find streams every document of the collection.
func (c *Collection) Find(ctx context.Context) (repository.Cursor, error) {
	const q = `SELECT id, body FROM documents WHERE collection = $1`
	rows, err := c.db.QueryContext(ctx, q, c.name)
	if err != nil {
		return nil, err
	}
	return &cursor{rows: rows}, nil
}

// InsertOne inserts a new row; a conflicting primary key inserts nothing.
func (c *Collection) InsertOne(ctx context.Context, doc repository.Document) error {
	const q = `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING
	`
	body, err := encodeBody(doc)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, q, c.name, doc.ID(), body)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrDuplicateKey
	}
	return nil
}

// UpdateOne merges set into the stored body. PostgreSQL reports matched rows
// as affected even when the merge changes nothing.
func (c *Collection) UpdateOne(ctx context.Context, f repository.Filter, set repository.Document) (repository.UpdateResult, error) {
	const q = `UPDATE documents SET body = body || $3::jsonb WHERE collection = $1 AND id = $2`
	fields := set.Clone()
	delete(fields, repository.IDField)
	if fields == nil {
		fields = repository.Document{}
	}
	body, err := encodeBody(fields)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	res, err := c.db.ExecContext(ctx, q, c.name, f.ID, body)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return repository.UpdateResult{}, err
	}
	return repository.UpdateResult{Matched: n, Modified: n}, nil
}

// DeleteOne removes the row with the given id.
func (c *Collection) DeleteOne(ctx context.Context, f repository.Filter) (int64, error) {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	res, err := c.db.ExecContext(ctx, q, c.name, f.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type cursor struct {
	rows *sql.Rows
}

func (c *cursor) Next(context.Context) bool { return c.rows.Next() }

func (c *cursor) Document() (repository.Document, error) {
	var (
		id   string
		body []byte
	)
	if err := c.rows.Scan(&id, &body); err != nil {
		return nil, err
	}
	return decodeBody(id, body)
}

func (c *cursor) Err() error { return c.rows.Err() }

func (c *cursor) Close(context.Context) error { return c.rows.Close() }

func encodeBody(doc repository.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document body: %w", err)
	}
	return string(b), nil
}

// decodeBody restores the id column as the authoritative _id.
func decodeBody(id string, body []byte) (repository.Document, error) {
	var doc repository.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if doc == nil {
		doc = repository.Document{}
	}
	doc[repository.IDField] = id
	return doc, nil
}
