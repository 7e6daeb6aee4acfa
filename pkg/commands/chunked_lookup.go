package commands

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
	"github.com/tcgun/tavsiyece-sub000/internal/concurrency"
	"github.com/tcgun/tavsiyece-sub000/internal/utils"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

var (
	tracer = otel.Tracer("tavsiyece/pkg/commands")

	lookupGroupFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "lookup_group_failure_count",
		Help:      "The total number of chunked lookup groups whose query failed.",
	})
)

// LookupResult is the merged outcome of a chunked lookup.
type LookupResult struct {
	// Documents maps document ids to the documents returned by the groups that succeeded.
	Documents map[string]*storage.Document
	// Order lists the ids of Documents in arrival order: group by group, each
	// group in the order its query returned.
	Order []string
	// Groups is the number of group queries issued.
	Groups   int
	Failures []GroupFailure
}

// Err returns nil when every group succeeded, and a *PartialFailureError otherwise.
func (r *LookupResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &PartialFailureError{Groups: r.Groups, Failures: r.Failures}
}

// AllFailed reports whether at least one group was queried and none succeeded.
func (r *LookupResult) AllFailed() bool {
	return r.Groups > 0 && len(r.Failures) == r.Groups
}

// Ordered returns the documents in arrival order.
func (r *LookupResult) Ordered() []*storage.Document {
	docs := make([]*storage.Document, 0, len(r.Order))
	for _, id := range r.Order {
		docs = append(docs, r.Documents[id])
	}
	return docs
}

type ChunkedLookupOption func(*ChunkedLookup)

func WithChunkedLookupLogger(l logger.Logger) ChunkedLookupOption {
	return func(c *ChunkedLookup) {
		c.logger = l
	}
}

// WithGroupSize overrides the number of values per group. It defaults to the
// fan-in limit of the datastore and is capped by it.
func WithGroupSize(n int) ChunkedLookupOption {
	return func(c *ChunkedLookup) {
		c.groupSize = n
	}
}

// ChunkedLookup resolves any number of values through membership queries
// limited to a small fan-in. Values are split into groups of at most the
// fan-in limit, one query per group is issued concurrently, and the results
// are merged. A failing group does not abort its siblings.
type ChunkedLookup struct {
	ds        storage.DocumentReader
	groupSize int
	logger    logger.Logger
}

func NewChunkedLookup(ds storage.DocumentStore, opts ...ChunkedLookupOption) *ChunkedLookup {
	c := &ChunkedLookup{
		ds:        ds,
		groupSize: ds.MaxInValues(),
		logger:    logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if limit := ds.MaxInValues(); c.groupSize <= 0 || c.groupSize > limit {
		c.groupSize = limit
	}
	return c
}

// ByID returns the documents of collection whose id is in ids.
func (c *ChunkedLookup) ByID(ctx context.Context, collection string, ids []string) *LookupResult {
	return c.ByField(ctx, storage.Query{Collection: collection}, storage.DocumentIDField, ids)
}

// ByField runs q once per group of values, restricted to the documents whose
// field is in the group. The filter of q is replaced; its ordering and limit
// apply to every group independently.
func (c *ChunkedLookup) ByField(ctx context.Context, q storage.Query, field string, values []string) *LookupResult {
	values = utils.Uniq(values)
	groups := utils.Chunk(values, c.groupSize)

	ctx, span := tracer.Start(ctx, "chunkedLookup", trace.WithAttributes(
		attribute.String("collection", q.Collection),
		attribute.String("field", field),
		attribute.Int("values", len(values)),
		attribute.Int("groups", len(groups)),
	))
	defer span.End()

	results := concurrency.FanOut(ctx, groups, func(ctx context.Context, group []string) ([]*storage.Document, error) {
		gq := q
		gq.Filter = &storage.InFilter{Field: field, Values: group}
		return c.ds.Query(ctx, gq)
	})

	res := &LookupResult{
		Documents: make(map[string]*storage.Document, len(values)),
		Groups:    len(groups),
	}
	for i, r := range results {
		if r.Err != nil {
			res.Failures = append(res.Failures, GroupFailure{Values: groups[i], Err: r.Err})
			continue
		}
		for _, doc := range r.Value {
			if _, seen := res.Documents[doc.ID]; seen {
				continue
			}
			res.Documents[doc.ID] = doc
			res.Order = append(res.Order, doc.ID)
		}
	}

	if err := res.Err(); err != nil {
		lookupGroupFailureCounter.Add(float64(len(res.Failures)))
		telemetry.TraceError(span, err)
		c.logger.WarnWithContext(ctx, "chunked lookup incomplete",
			zap.String("collection", q.Collection),
			zap.Int("failed_groups", len(res.Failures)),
			zap.Int("groups", len(groups)),
			zap.Error(err),
		)
	}
	span.SetAttributes(attribute.Int("documents", len(res.Documents)))

	return res
}
