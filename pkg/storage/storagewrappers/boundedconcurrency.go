package storagewrappers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

var _ storage.DocumentStore = (*BoundedConcurrencyStore)(nil)

var timeWaitingHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: build.ProjectName,
	Name:      "datastore_bounded_read_delay_ms",
	Help:      "Time (in ms) spent waiting for Get and Query calls to the datastore",
	Buckets:   []float64{1, 10, 25, 50, 100, 1000, 5000}, // milliseconds
}, []string{"operation"})

// BoundedConcurrencyStore makes sure that there are, at most, N concurrent
// reads against the wrapped store. A single feed fans out into many reads,
// and this keeps one request from hoarding every connection available.
type BoundedConcurrencyStore struct {
	storage.DocumentStore
	limiter chan struct{}
}

// NewBoundedConcurrencyStore returns a wrapper over a datastore that allows at most n concurrent reads.
func NewBoundedConcurrencyStore(wrapped storage.DocumentStore, n uint32) *BoundedConcurrencyStore {
	return &BoundedConcurrencyStore{
		DocumentStore: wrapped,
		limiter:       make(chan struct{}, n),
	}
}

func (b *BoundedConcurrencyStore) acquire(ctx context.Context, op string) error {
	start := time.Now()

	select {
	case b.limiter <- struct{}{}:
	case <-ctx.Done():
		return storage.ErrCancelled
	}

	timeWaiting := time.Since(start).Milliseconds()
	timeWaitingHistogram.WithLabelValues(op).Observe(float64(timeWaiting))
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("time_waiting", timeWaiting))

	return nil
}

func (b *BoundedConcurrencyStore) release() {
	<-b.limiter
}

// Get see [storage.DocumentReader].Get.
func (b *BoundedConcurrencyStore) Get(ctx context.Context, path string) (*storage.Document, error) {
	if err := b.acquire(ctx, "Get"); err != nil {
		return nil, err
	}
	defer b.release()

	return b.DocumentStore.Get(ctx, path)
}

// Query see [storage.DocumentReader].Query.
func (b *BoundedConcurrencyStore) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	if err := b.acquire(ctx, "Query"); err != nil {
		return nil, err
	}
	defer b.release()

	return b.DocumentStore.Query(ctx, q)
}
