package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// Codec converts between a record and its document form.
// Decode must be the inverse of Encode for any document Encode produced.
type Codec[T any] interface {
	// Encode returns the document for a record, including IDField.
	Encode(record T) (Document, error)
	// Decode reconstructs a record from a stored document.
	Decode(doc Document) (T, error)
}

// Named is implemented by codecs that carry their collection name.
type Named interface {
	Collection() string
}

// JSONCodec maps struct records through their JSON representation.
// The identifier field must be tagged `json:"_id"`.
type JSONCodec[T any] struct {
	Name string
}

// Collection implements Named.
func (c JSONCodec[T]) Collection() string {
	return c.Name
}

// Encode marshals the record and reads it back as a flat map.
func (c JSONCodec[T]) Encode(record T) (Document, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("convert record to document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: record does not encode to an object", ErrInvalidRecordType)
	}
	if _, ok := doc[IDField].(float64); ok {
		// Keep the literal digits of a numeric id.
		var head struct {
			ID json.Number `json:"_id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("read record id: %w", err)
		}
		doc[IDField] = head.ID
	}
	return doc, nil
}

// Decode marshals the document and unmarshals it into T. Stored ids are
// strings; a numeric id field is filled from that string.
func (c JSONCodec[T]) Decode(doc Document) (T, error) {
	out, err := c.unmarshal(doc)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == IDField && typeErr.Value == "string" {
		numeric := doc.Clone()
		numeric[IDField] = json.Number(doc.ID())
		if rec, numErr := c.unmarshal(numeric); numErr == nil {
			return rec, nil
		}
	}
	return out, err
}

func (c JSONCodec[T]) unmarshal(doc Document) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}

// KeyString returns the storage form of an identifier value.
// Nil identifiers, including nil pointers, map to "".
func KeyString(id any) string {
	if id == nil {
		return ""
	}
	if rv := reflect.ValueOf(id); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	switch v := id.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
