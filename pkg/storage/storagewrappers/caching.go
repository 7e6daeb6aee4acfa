package storagewrappers

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

var (
	tracer = otel.Tracer("tavsiyece/pkg/storage/storagewrappers")

	_ storage.DocumentStore = (*CachedStore)(nil)

	documentCacheTotalCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "document_cache_total_count",
		Help:      "The total number of cacheable reads.",
	}, []string{"operation"})

	documentCacheHitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "document_cache_hit_count",
		Help:      "The total number of reads answered from the document cache.",
	}, []string{"operation"})
)

// sharedReadTimeout bounds a datastore read shared by concurrent callers.
const sharedReadTimeout = 10 * time.Second

type CachedStoreOpt func(*CachedStore)

// WithCachedStoreLogger sets the logger for the CachedStore.
func WithCachedStoreLogger(logger logger.Logger) CachedStoreOpt {
	return func(c *CachedStore) {
		c.logger = logger
	}
}

// CachedStore is a wrapper over a datastore that caches Get and Query results
// in memory. Writes made through it invalidate every cached read of the
// written collection. Reads carrying [storage.ConsistencyStrong] bypass the
// cache.
type CachedStore struct {
	storage.DocumentStore

	cache storage.InMemoryCache[any]
	ttl   time.Duration

	// sf collapses concurrent identical misses into one datastore read.
	sf singleflight.Group

	// generations maps a collection path to an *atomic.Uint64 that is bumped
	// on every write to the collection. It is part of every cache key.
	generations sync.Map

	logger logger.Logger
}

// NewCachedStore returns a wrapper over a datastore that caches reads in cache for ttl.
func NewCachedStore(inner storage.DocumentStore, cache storage.InMemoryCache[any], ttl time.Duration, opts ...CachedStoreOpt) *CachedStore {
	c := &CachedStore{
		DocumentStore: inner,
		cache:         cache,
		ttl:           ttl,
		logger:        logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *CachedStore) generation(collection string) uint64 {
	v, ok := c.generations.Load(collection)
	if !ok {
		return 0
	}
	return v.(*atomic.Uint64).Load()
}

func (c *CachedStore) invalidate(collection string) {
	v, _ := c.generations.LoadOrStore(collection, &atomic.Uint64{})
	v.(*atomic.Uint64).Add(1)
}

// Get see [storage.DocumentReader].Get.
func (c *CachedStore) Get(ctx context.Context, path string) (*storage.Document, error) {
	ctx, span := tracer.Start(ctx, "cache.Get", trace.WithAttributes(attribute.Bool("cached", false)))
	defer span.End()

	if storage.ConsistencyFromContext(ctx) == storage.ConsistencyStrong {
		return c.DocumentStore.Get(ctx, path)
	}

	collection, _ := storage.Split(path)
	key := "get/" + strconv.FormatUint(c.generation(collection), 10) + "/" + path

	documentCacheTotalCounter.WithLabelValues("Get").Inc()
	if v, ok := c.cache.Get(key); ok {
		documentCacheHitCounter.WithLabelValues("Get").Inc()
		span.SetAttributes(attribute.Bool("cached", true))
		return v.(*storage.Document).Clone(), nil
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		doc, err := c.DocumentStore.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, doc, c.ttl)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*storage.Document).Clone(), nil
}

// Query see [storage.DocumentReader].Query.
func (c *CachedStore) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	ctx, span := tracer.Start(ctx, "cache.Query", trace.WithAttributes(attribute.Bool("cached", false)))
	defer span.End()

	if storage.ConsistencyFromContext(ctx) == storage.ConsistencyStrong {
		return c.DocumentStore.Query(ctx, q)
	}

	key := queryCacheKey(q, c.generation(q.Collection))

	documentCacheTotalCounter.WithLabelValues("Query").Inc()
	if v, ok := c.cache.Get(key); ok {
		documentCacheHitCounter.WithLabelValues("Query").Inc()
		span.SetAttributes(attribute.Bool("cached", true))
		return cloneDocuments(v.([]*storage.Document)), nil
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		docs, err := c.DocumentStore.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, docs, c.ttl)
		return docs, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneDocuments(v.([]*storage.Document)), nil
}

// shared runs read once for every concurrent caller of key. The read is
// detached from the cancellation of the caller that started it, bounded by
// sharedReadTimeout instead, and each caller stops waiting when its own ctx
// is done.
func (c *CachedStore) shared(ctx context.Context, key string, read func(context.Context) (any, error)) (any, error) {
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		return read(readCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, storage.ErrCancelled
	}
}

// Set see [storage.DocumentWriter].Set.
func (c *CachedStore) Set(ctx context.Context, path string, fields storage.Fields) error {
	defer c.invalidatePath(path)
	return c.DocumentStore.Set(ctx, path, fields)
}

// Delete see [storage.DocumentWriter].Delete.
func (c *CachedStore) Delete(ctx context.Context, path string) error {
	defer c.invalidatePath(path)
	return c.DocumentStore.Delete(ctx, path)
}

func (c *CachedStore) invalidatePath(path string) {
	collection, _ := storage.Split(path)
	if collection == "" {
		return
	}
	c.invalidate(collection)
	c.logger.Debug("invalidated cached collection", zap.String("collection", collection))
}

// Close stops the cache and closes the wrapped store.
func (c *CachedStore) Close() {
	c.cache.Stop()
	c.DocumentStore.Close()
}

// queryCacheKey hashes every part of q that affects its result.
func queryCacheKey(q storage.Query, generation uint64) string {
	var b strings.Builder
	b.WriteString(q.OrderBy)
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(q.Descending))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(q.Limit))
	if q.Filter != nil {
		b.WriteByte(0)
		b.WriteString(q.Filter.Field)
		for _, v := range q.Filter.Values {
			b.WriteByte(0)
			b.WriteString(v)
		}
	}

	return "query/" + strconv.FormatUint(generation, 10) + "/" + q.Collection + "/" +
		strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

func cloneDocuments(docs []*storage.Document) []*storage.Document {
	out := make([]*storage.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Clone())
	}
	return out
}
