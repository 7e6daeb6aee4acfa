// Package storage defines the document-store contract used by the feed and
// counter layers, and the types shared by every backend.
//
// The model is a hierarchical document store: documents live in collections,
// and every document may own child collections. A document path alternates
// collection and document ids, e.g. "users/u1/followers/u2".
//
//go:generate mockgen -source storage.go -destination ./mocks/mock_storage.go -package mocks DocumentStore
package storage

import (
	"context"
)

const (
	// DefaultMaxInValues is the fan-in limit of a membership filter when a
	// backend is not configured otherwise.
	DefaultMaxInValues = 10

	// DocumentIDField can be used as InFilter.Field to filter on document ids
	// rather than on a document field.
	DocumentIDField = "__name__"
)

// Document is a single document read from the store.
type Document struct {
	// ID is the last segment of Path.
	ID string
	// Path is the full document path.
	Path   string
	Fields Fields
}

// Clone returns a copy of d sharing no mutable state with it.
func (d *Document) Clone() *Document {
	return &Document{
		ID:     d.ID,
		Path:   d.Path,
		Fields: d.Fields.Clone(),
	}
}

// InFilter restricts a query to the documents whose Field equals one of Values.
type InFilter struct {
	Field  string
	Values []string
}

// Query describes a read over a single collection.
//
// With an empty OrderBy, documents are returned ordered by document id. With an
// OrderBy, documents lacking that field are excluded and ties are broken by
// document id in the same direction as the ordering.
type Query struct {
	Collection string
	Filter     *InFilter
	OrderBy    string
	Descending bool
	// Limit bounds the number of returned documents. Zero means unbounded.
	Limit int
}

type DocumentReader interface {
	// Get returns the document at path. If it does not exist, it must return ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)

	// Query returns the documents of a collection matching q. There is no aggregate
	// counting primitive: counting a collection means listing it.
	// If the filter holds more than MaxInValues values, it must return ErrExceededInFilterLimit.
	Query(ctx context.Context, q Query) ([]*Document, error)
}

type DocumentWriter interface {
	// Set merges fields into the document at path, creating it if absent.
	// Field values of type Increment are applied relative to the stored value.
	Set(ctx context.Context, path string, fields Fields) error

	// Delete removes the document at path. Deleting an absent document is not an error.
	// Child collections are left untouched.
	Delete(ctx context.Context, path string) error
}

// A DocumentStore is the full R/W interface of a backend.
type DocumentStore interface {
	DocumentReader
	DocumentWriter

	// MaxInValues returns the maximum number of values a single InFilter may hold.
	MaxInValues() int

	Close()
}

// ValidateQuery checks q against the structural rules every backend enforces.
func ValidateQuery(q Query, maxInValues int) error {
	if err := ValidateCollectionPath(q.Collection); err != nil {
		return err
	}

	if q.Limit < 0 {
		return InvalidQueryError("negative limit")
	}

	if q.Filter != nil {
		if q.Filter.Field == "" {
			return InvalidQueryError("membership filter without a field")
		}
		if len(q.Filter.Values) == 0 {
			return InvalidQueryError("membership filter without values")
		}
		if len(q.Filter.Values) > maxInValues {
			return ExceededInFilterLimitError(len(q.Filter.Values), maxInValues)
		}
	}

	return nil
}
