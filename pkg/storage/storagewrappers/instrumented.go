package storagewrappers

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

var _ storage.DocumentStore = (*InstrumentedStore)(nil)

var datastoreOperationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "datastore_operation_count",
	Help:      "The total number of datastore operations issued, by operation.",
}, []string{"operation"})

// InstrumentedStore counts the operations reaching the wrapped store.
type InstrumentedStore struct {
	storage.DocumentStore
	countReads  atomic.Uint32
	countWrites atomic.Uint32
}

// NewInstrumentedStore creates a new instance of InstrumentedStore that wraps the specified datastore and maintains metrics per request.
// InstrumentedStore is thread-safe but should not be shared across multiple requests.
// Reads answered by a cache wrapped inside it are counted too, so wrap it around the cache to count datastore hits only.
func NewInstrumentedStore(wrapped storage.DocumentStore) *InstrumentedStore {
	return &InstrumentedStore{
		DocumentStore: wrapped,
	}
}

type Metrics struct {
	DatastoreReadCount  uint32
	DatastoreWriteCount uint32
}

func (m *InstrumentedStore) GetMetrics() Metrics {
	return Metrics{
		DatastoreReadCount:  m.countReads.Load(),
		DatastoreWriteCount: m.countWrites.Load(),
	}
}

// Get see [storage.DocumentReader].Get.
func (m *InstrumentedStore) Get(ctx context.Context, path string) (*storage.Document, error) {
	m.countReads.Add(1)
	datastoreOperationCounter.WithLabelValues("Get").Inc()

	return m.DocumentStore.Get(ctx, path)
}

// Query see [storage.DocumentReader].Query.
func (m *InstrumentedStore) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	m.countReads.Add(1)
	datastoreOperationCounter.WithLabelValues("Query").Inc()

	return m.DocumentStore.Query(ctx, q)
}

// Set see [storage.DocumentWriter].Set.
func (m *InstrumentedStore) Set(ctx context.Context, path string, fields storage.Fields) error {
	m.countWrites.Add(1)
	datastoreOperationCounter.WithLabelValues("Set").Inc()

	return m.DocumentStore.Set(ctx, path, fields)
}

// Delete see [storage.DocumentWriter].Delete.
func (m *InstrumentedStore) Delete(ctx context.Context, path string) error {
	m.countWrites.Add(1)
	datastoreOperationCounter.WithLabelValues("Delete").Inc()

	return m.DocumentStore.Delete(ctx, path)
}
