package storage

import (
	"context"
)

// Consistency selects whether a read may be served from a cache.
type Consistency int

const (
	// ConsistencyDefault allows cached reads.
	ConsistencyDefault Consistency = iota
	// ConsistencyStrong requires the read to reach the backing store.
	ConsistencyStrong
)

type ctxKey string

var consistencyContextKey = ctxKey("consistency")

// ContextWithConsistency returns a context whose reads use the given consistency.
func ContextWithConsistency(ctx context.Context, c Consistency) context.Context {
	return context.WithValue(ctx, consistencyContextKey, c)
}

// ConsistencyFromContext returns the consistency requested through ctx.
func ConsistencyFromContext(ctx context.Context) Consistency {
	c, ok := ctx.Value(consistencyContextKey).(Consistency)
	if !ok {
		return ConsistencyDefault
	}
	return c
}
