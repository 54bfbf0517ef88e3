package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "docrepo/internal/repository"

// Option configures a TypedRepository.
type Option func(*options)

type options struct {
	collection string
	tracer     trace.Tracer
}

// WithCollection binds the repository to an explicit collection name,
// overriding the name a Named codec carries.
func WithCollection(name string) Option {
	return func(o *options) { o.collection = name }
}

// WithTracer sets the tracer used for operation spans.
// The global tracer provider is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// TypedRepository implements Repository over a document store collection.
// It holds no state besides its binding and is safe for concurrent use.
type TypedRepository[T any, K comparable] struct {
	name   string
	coll   Collection
	codec  Codec[T]
	tracer trace.Tracer
}

var _ Repository[struct{}, string] = (*TypedRepository[struct{}, string])(nil)

// New binds record type T to a collection of store.
// The collection name comes from WithCollection or, failing that, from the
// codec when it implements Named.
func New[T any, K comparable](ctx context.Context, store Store, codec Codec[T], opts ...Option) (*TypedRepository[T, K], error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrInvalidRecordType)
	}
	if store == nil {
		return nil, errors.New("document store is required")
	}

	o := options{}
	if n, ok := codec.(Named); ok {
		o.collection = n.Collection()
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.collection == "" {
		return nil, fmt.Errorf("%w: no collection name for %T", ErrInvalidRecordType, codec)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	coll, err := store.Collection(ctx, o.collection)
	if err != nil {
		return nil, fmt.Errorf("bind collection %s: %w", o.collection, err)
	}

	return &TypedRepository[T, K]{
		name:   o.collection,
		coll:   coll,
		codec:  codec,
		tracer: o.tracer,
	}, nil
}

// Collection returns the name of the bound collection.
func (r *TypedRepository[T, K]) Collection() string {
	return r.name
}

// Write encodes record and inserts it as a new document.
// A duplicate id yields ErrAlreadyExists.
func (r *TypedRepository[T, K]) Write(ctx context.Context, record T) (_ T, err error) {
	ctx, span := r.start(ctx, "Write", "")
	defer func() { end(span, err) }()

	doc, err := r.encode(record)
	if err != nil {
		return record, err
	}
	id := doc.ID()
	span.SetAttributes(idAttr(id))

	if err := r.coll.InsertOne(ctx, doc); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return record, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, r.name, id)
		}
		return record, fmt.Errorf("insert %s/%s: %w", r.name, id, err)
	}
	return record, nil
}

// Load returns the record stored under id.
func (r *TypedRepository[T, K]) Load(ctx context.Context, id K) (_ T, err error) {
	var zero T
	key := KeyString(id)

	ctx, span := r.start(ctx, "Load", key)
	defer func() { end(span, err) }()

	if key == "" {
		return zero, ErrInvalidID
	}
	doc, err := r.coll.FindOne(ctx, ByID(key))
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return zero, r.notFound(key)
		}
		return zero, fmt.Errorf("find %s/%s: %w", r.name, key, err)
	}
	return r.decode(doc)
}

// LoadAll returns a lazy sequence over every stored record. The sequence can
// be ranged over repeatedly; each pass opens a new cursor. The first cursor
// or decode error is yielded and ends the pass.
func (r *TypedRepository[T, K]) LoadAll(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		ctx, span := r.start(ctx, "LoadAll", "")
		var err error
		defer func() { end(span, err) }()

		cur, err := r.coll.Find(ctx)
		if err != nil {
			err = fmt.Errorf("find %s: %w", r.name, err)
			yield(zero, err)
			return
		}
		defer cur.Close(ctx)

		n := 0
		for cur.Next(ctx) {
			var doc Document
			doc, err = cur.Document()
			if err != nil {
				err = fmt.Errorf("read %s: %w", r.name, err)
				yield(zero, err)
				return
			}
			var rec T
			rec, err = r.decode(doc)
			if err != nil {
				yield(zero, err)
				return
			}
			n++
			if !yield(rec, nil) {
				span.SetAttributes(attribute.Int("db.response.returned_rows", n))
				return
			}
		}
		span.SetAttributes(attribute.Int("db.response.returned_rows", n))
		if err = cur.Err(); err != nil {
			err = fmt.Errorf("iterate %s: %w", r.name, err)
			yield(zero, err)
		}
	}
}

// Update sets every encoded field except the id on the record's document.
// A document that matches but is left unchanged counts as success.
func (r *TypedRepository[T, K]) Update(ctx context.Context, record T) (_ T, err error) {
	ctx, span := r.start(ctx, "Update", "")
	defer func() { end(span, err) }()

	doc, err := r.encode(record)
	if err != nil {
		return record, err
	}
	id := doc.ID()
	delete(doc, IDField)
	span.SetAttributes(idAttr(id))

	res, err := r.coll.UpdateOne(ctx, ByID(id), doc)
	if err != nil {
		return record, fmt.Errorf("update %s/%s: %w", r.name, id, err)
	}
	if res.Matched == 0 {
		return record, r.notFound(id)
	}
	return record, nil
}

// Delete removes the document of record. The record should be treated as a
// detached value afterwards.
func (r *TypedRepository[T, K]) Delete(ctx context.Context, record T) (err error) {
	ctx, span := r.start(ctx, "Delete", "")
	defer func() { end(span, err) }()

	doc, err := r.encode(record)
	if err != nil {
		return err
	}
	return r.deleteKey(ctx, span, doc.ID())
}

// DeleteByID removes the document stored under id.
func (r *TypedRepository[T, K]) DeleteByID(ctx context.Context, id K) (err error) {
	ctx, span := r.start(ctx, "DeleteByID", "")
	defer func() { end(span, err) }()

	key := KeyString(id)
	if key == "" {
		return ErrInvalidID
	}
	return r.deleteKey(ctx, span, key)
}

func (r *TypedRepository[T, K]) deleteKey(ctx context.Context, span trace.Span, id string) error {
	span.SetAttributes(idAttr(id))

	n, err := r.coll.DeleteOne(ctx, ByID(id))
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.name, id, err)
	}
	if n != 1 {
		return r.notFound(id)
	}
	return nil
}

func (r *TypedRepository[T, K]) encode(record T) (Document, error) {
	doc, err := r.codec.Encode(record)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", r.name, err)
	}
	if doc.ID() == "" {
		return nil, fmt.Errorf("%w: %s record has no %s", ErrInvalidID, r.name, IDField)
	}
	// Stores only ever see the string form of the id.
	doc[IDField] = doc.ID()
	return doc, nil
}

func (r *TypedRepository[T, K]) decode(doc Document) (T, error) {
	rec, err := r.codec.Decode(doc)
	if err != nil {
		return rec, fmt.Errorf("decode %s/%s: %w", r.name, doc.ID(), err)
	}
	return rec, nil
}

func (r *TypedRepository[T, K]) notFound(id string) error {
	return fmt.Errorf("%w: no %s with %s=%s", ErrNotFound, r.name, IDField, id)
}

func (r *TypedRepository[T, K]) start(ctx context.Context, op, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("db.collection.name", r.name)}
	if id != "" {
		attrs = append(attrs, idAttr(id))
	}
	return r.tracer.Start(ctx, "repository."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func idAttr(id string) attribute.KeyValue {
	return attribute.String("db.document.id", id)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
