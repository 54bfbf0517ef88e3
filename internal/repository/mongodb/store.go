// Package mongodb implements repository.Store on the official MongoDB driver.
//
// MongoDB creates a collection on its first insert, so binding a collection
// never needs a round-trip. The "_id" field is stored as the string form of
// the record identifier and is unique per collection by MongoDB's own index.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"docrepo/internal/repository"
)

// Store wraps a MongoDB database.
type Store struct {
	db *mongo.Database
}

// NewStore returns a Store over db.
func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// Collection binds to the named MongoDB collection.
func (s *Store) Collection(_ context.Context, name string) (repository.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	return &Collection{coll: s.db.Collection(name)}, nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// Collection adapts *mongo.Collection to repository.Collection.
type Collection struct {
	coll *mongo.Collection
}

var _ repository.Collection = (*Collection)(nil)

func idFilter(f repository.Filter) bson.M {
	return bson.M{repository.IDField: f.ID}
}

// FindOne returns the document with the given _id.
func (c *Collection) FindOne(ctx context.Context, f repository.Filter) (repository.Document, error) {
	var m bson.M
	if err := c.coll.FindOne(ctx, idFilter(f)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNoDocument
		}
		return nil, err
	}
	return repository.Document(m), nil
}

// Find opens a driver cursor over the whole collection.
func (c *Collection) Find(ctx context.Context) (repository.Cursor, error) {
	cur, err := c.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

// InsertOne inserts doc, translating duplicate key errors.
func (c *Collection) InsertOne(ctx context.Context, doc repository.Document) error {
	if _, err := c.coll.InsertOne(ctx, bson.M(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// UpdateOne applies $set with every field of set except _id. The matched
// count is reported separately from the modified count, so an update that
// leaves the document unchanged still matches.
func (c *Collection) UpdateOne(ctx context.Context, f repository.Filter, set repository.Document) (repository.UpdateResult, error) {
	fields := bson.M{}
	for k, v := range set {
		if k != repository.IDField {
			fields[k] = v
		}
	}

	// MongoDB rejects an empty $set.
	if len(fields) == 0 {
		n, err := c.coll.CountDocuments(ctx, idFilter(f), options.Count().SetLimit(1))
		if err != nil {
			return repository.UpdateResult{}, err
		}
		return repository.UpdateResult{Matched: n}, nil
	}

	res, err := c.coll.UpdateOne(ctx, idFilter(f), bson.M{"$set": fields})
	if err != nil {
		return repository.UpdateResult{}, err
	}
	return repository.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// DeleteOne deletes the document with the given _id.
func (c *Collection) DeleteOne(ctx context.Context, f repository.Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, idFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type cursor struct {
	cur *mongo.Cursor
}

func (c *cursor) Next(ctx context.Context) bool { return c.cur.Next(ctx) }

func (c *cursor) Document() (repository.Document, error) {
	var m bson.M
	if err := c.cur.Decode(&m); err != nil {
		return nil, err
	}
	return repository.Document(m), nil
}

func (c *cursor) Err() error { return c.cur.Err() }

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
