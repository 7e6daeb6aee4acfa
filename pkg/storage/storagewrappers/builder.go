package storagewrappers

import (
	"time"

	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

// Options selects the wrappers Wrap applies.
type Options struct {
	// MaxConcurrentReads bounds concurrent reads. Zero disables the bound.
	MaxConcurrentReads uint32
	// Cache enables read caching when non-nil.
	Cache    storage.InMemoryCache[any]
	CacheTTL time.Duration
	Logger   logger.Logger
}

// Wrap decorates ds for sharing by every request of a process: reads are
// rate-limited first and then served from the cache, when configured.
func Wrap(ds storage.DocumentStore, opts Options) storage.DocumentStore {
	if opts.MaxConcurrentReads > 0 {
		ds = NewBoundedConcurrencyStore(ds, opts.MaxConcurrentReads)
	}

	if opts.Cache != nil {
		var cacheOpts []CachedStoreOpt
		if opts.Logger != nil {
			cacheOpts = append(cacheOpts, WithCachedStoreLogger(opts.Logger))
		}
		ds = NewCachedStore(ds, opts.Cache, opts.CacheTTL, cacheOpts...)
	}

	return ds
}
