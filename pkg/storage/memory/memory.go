package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

var tracer = otel.Tracer("tavsiyece/pkg/storage/memory")

// Operation is the kind of access a Rule is asked to authorize.
type Operation int

const (
	OperationRead Operation = iota
	OperationWrite
)

// A Rule decides whether an operation on a path is allowed. Get, Set and Delete
// are checked against the document path, Query against the collection path.
// A non-nil error rejects the operation and is returned to the caller as is.
//
// Rules play the part of the access policy a hosted document store enforces,
// and can equally inject transient failures.
type Rule func(op Operation, path string) error

// DenyPrefix returns a Rule failing every op on a path starting with prefix with err.
func DenyPrefix(op Operation, prefix string, err error) Rule {
	return func(o Operation, path string) error {
		if o == op && strings.HasPrefix(path, prefix) {
			return err
		}
		return nil
	}
}

// StorageOption defines a function type used for configuring a [MemoryBackend] instance.
type StorageOption func(dataStore *MemoryBackend)

// MemoryBackend provides an ephemeral memory-backed implementation of [storage.DocumentStore].
// These instances may be safely shared by multiple go-routines.
type MemoryBackend struct {
	maxInValues int
	rules       []Rule
	// rulesMu guards rules only, so tests can flip access between calls.
	rulesMu sync.RWMutex

	// map: collection path => document id => fields
	collections map[string]map[string]storage.Fields // GUARDED_BY(mu).
	mu          sync.RWMutex
}

// Ensures that [MemoryBackend] implements the [storage.DocumentStore] interface.
var _ storage.DocumentStore = (*MemoryBackend)(nil)

// New creates a new [MemoryBackend] given the options.
func New(opts ...StorageOption) *MemoryBackend {
	ds := &MemoryBackend{
		maxInValues: storage.DefaultMaxInValues,
		collections: make(map[string]map[string]storage.Fields),
	}

	for _, opt := range opts {
		opt(ds)
	}

	return ds
}

// WithMaxInValues sets the fan-in limit of membership filters.
func WithMaxInValues(n int) StorageOption {
	return func(ds *MemoryBackend) { ds.maxInValues = n }
}

// WithRules installs access rules evaluated before every operation.
func WithRules(rules ...Rule) StorageOption {
	return func(ds *MemoryBackend) { ds.rules = append(ds.rules, rules...) }
}

// SetRules replaces the access rules.
func (s *MemoryBackend) SetRules(rules ...Rule) {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	s.rules = rules
}

// Close does not do anything for [MemoryBackend].
func (s *MemoryBackend) Close() {}

// MaxInValues see [storage.DocumentStore].MaxInValues.
func (s *MemoryBackend) MaxInValues() int {
	return s.maxInValues
}

func (s *MemoryBackend) authorize(ctx context.Context, op Operation, path string) error {
	if ctx.Err() != nil {
		return storage.ErrCancelled
	}

	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	for _, rule := range s.rules {
		if err := rule(op, path); err != nil {
			return err
		}
	}
	return nil
}

// Get see [storage.DocumentReader].Get.
func (s *MemoryBackend) Get(ctx context.Context, path string) (*storage.Document, error) {
	ctx, span := tracer.Start(ctx, "memory.Get")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, OperationRead, path); err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}

	collection, id := storage.Split(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return newDocument(collection, id, fields), nil
}

// Query see [storage.DocumentReader].Query.
func (s *MemoryBackend) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	ctx, span := tracer.Start(ctx, "memory.Query")
	defer span.End()

	if err := storage.ValidateQuery(q, s.maxInValues); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, OperationRead, q.Collection); err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*storage.Document
	for id, fields := range s.collections[q.Collection] {
		if !match(id, fields, q) {
			continue
		}
		matches = append(matches, newDocument(q.Collection, id, fields))
	}

	slices.SortFunc(matches, func(a, b *storage.Document) int {
		c := 0
		if q.OrderBy != "" {
			c = compareValues(a.Fields[q.OrderBy], b.Fields[q.OrderBy])
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if q.Descending {
			return -c
		}
		return c
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	return matches, nil
}

// Set see [storage.DocumentWriter].Set.
func (s *MemoryBackend) Set(ctx context.Context, path string, fields storage.Fields) error {
	ctx, span := tracer.Start(ctx, "memory.Set")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return err
	}
	update, err := fields.Normalize()
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, OperationWrite, path); err != nil {
		telemetry.TraceError(span, err)
		return err
	}

	collection, id := storage.Split(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]storage.Fields)
		s.collections[collection] = docs
	}
	docs[id] = docs[id].Merge(update)

	return nil
}

// Delete see [storage.DocumentWriter].Delete.
func (s *MemoryBackend) Delete(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "memory.Delete")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return err
	}
	if err := s.authorize(ctx, OperationWrite, path); err != nil {
		telemetry.TraceError(span, err)
		return err
	}

	collection, id := storage.Split(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)

	return nil
}

// match returns true if the document satisfies the filter of q and, when q is
// ordered, carries the ordering field.
func match(id string, fields storage.Fields, q storage.Query) bool {
	if q.OrderBy != "" && !fields.Has(q.OrderBy) {
		return false
	}
	if q.Filter == nil {
		return true
	}

	value := id
	if q.Filter.Field != storage.DocumentIDField {
		v, ok := fields[q.Filter.Field].(string)
		if !ok {
			return false
		}
		value = v
	}
	return slices.Contains(q.Filter.Values, value)
}

// compareValues orders two field values of the same kind. Values of different
// or unorderable kinds compare equal.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	return 0
}

func newDocument(collection, id string, fields storage.Fields) *storage.Document {
	return &storage.Document{
		ID:     id,
		Path:   storage.Join(collection, id),
		Fields: fields.Clone(),
	}
}
