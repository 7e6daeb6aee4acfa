package mocks

import (
	"context"
	"time"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

// slowDocumentStore is a proxy to the actual ds except the reads are slowed down by readDelay.
// This allows simulating reads that outlive the deadline of their request.
type slowDocumentStore struct {
	storage.DocumentStore
	readDelay time.Duration
}

// NewMockSlowDocumentStore returns a wrapper of a datastore that adds artificial delays into reads.
// The delay is cut short, with [storage.ErrCancelled], when the context is done.
func NewMockSlowDocumentStore(ds storage.DocumentStore, readDelay time.Duration) storage.DocumentStore {
	return &slowDocumentStore{
		DocumentStore: ds,
		readDelay:     readDelay,
	}
}

func (m *slowDocumentStore) wait(ctx context.Context) error {
	select {
	case <-time.After(m.readDelay):
		return nil
	case <-ctx.Done():
		return storage.ErrCancelled
	}
}

func (m *slowDocumentStore) Get(ctx context.Context, path string) (*storage.Document, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.DocumentStore.Get(ctx, path)
}

func (m *slowDocumentStore) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.DocumentStore.Query(ctx, q)
}
