// Package test contains the conformance suite every storage.DocumentStore
// implementation is expected to pass.
package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

// RunAllTests runs the conformance suite against ds. Every test works under a
// fresh root collection, so ds may be shared with other suites.
func RunAllTests(t *testing.T, ds storage.DocumentStore) {
	t.Run("GetMissing", func(t *testing.T) { GetMissingTest(t, ds) })
	t.Run("SetMergesFields", func(t *testing.T) { SetMergesFieldsTest(t, ds) })
	t.Run("IncrementTransform", func(t *testing.T) { IncrementTransformTest(t, ds) })
	t.Run("Delete", func(t *testing.T) { DeleteTest(t, ds) })
	t.Run("QueryDefaultOrder", func(t *testing.T) { QueryDefaultOrderTest(t, ds) })
	t.Run("QueryOrderedDescendingWithLimit", func(t *testing.T) { QueryOrderedDescendingWithLimitTest(t, ds) })
	t.Run("QueryInFilter", func(t *testing.T) { QueryInFilterTest(t, ds) })
	t.Run("QueryDocumentIDFilter", func(t *testing.T) { QueryDocumentIDFilterTest(t, ds) })
	t.Run("QueryExceedingInFilterLimit", func(t *testing.T) { QueryExceedingInFilterLimitTest(t, ds) })
	t.Run("ChildCollectionsAreIndependent", func(t *testing.T) { ChildCollectionsAreIndependentTest(t, ds) })
	t.Run("InvalidPaths", func(t *testing.T) { InvalidPathsTest(t, ds) })
}

func newRoot() string {
	return "c" + ulid.Make().String()
}

func GetMissingTest(t *testing.T, ds storage.DocumentStore) {
	_, err := ds.Get(context.Background(), storage.Join(newRoot(), "missing"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func SetMergesFieldsTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	path := storage.Join(newRoot(), "u1")
	created := time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.UTC)

	require.NoError(t, ds.Set(ctx, path, storage.Fields{
		"name":      "Ada",
		"username":  "ada",
		"createdAt": created,
		"keywords":  []string{"coffee", "istanbul"},
		"public":    true,
	}))
	require.NoError(t, ds.Set(ctx, path, storage.Fields{"name": "Ada L.", "followersCount": int64(2)}))

	doc, err := ds.Get(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "u1", doc.ID)
	require.Equal(t, path, doc.Path)
	require.Equal(t, "Ada L.", doc.Fields.String("name"))
	require.Equal(t, "ada", doc.Fields.String("username"))
	require.True(t, created.Equal(doc.Fields.Time("createdAt")), "got %v", doc.Fields.Time("createdAt"))
	require.Equal(t, []string{"coffee", "istanbul"}, doc.Fields.Strings("keywords"))
	require.True(t, doc.Fields.Bool("public"))

	n, ok := doc.Fields.Int("followersCount")
	require.True(t, ok)
	require.Equal(t, int64(2), n)
}

func IncrementTransformTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	path := storage.Join(newRoot(), "u1")

	require.NoError(t, ds.Set(ctx, path, storage.Fields{"followersCount": storage.Increment(1)}))
	require.NoError(t, ds.Set(ctx, path, storage.Fields{"followersCount": storage.Increment(5)}))
	require.NoError(t, ds.Set(ctx, path, storage.Fields{"followersCount": storage.Increment(-2)}))

	doc, err := ds.Get(ctx, path)
	require.NoError(t, err)
	n, ok := doc.Fields.Int("followersCount")
	require.True(t, ok)
	require.Equal(t, int64(4), n)
}

func DeleteTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	path := storage.Join(newRoot(), "r1")

	require.NoError(t, ds.Set(ctx, path, storage.Fields{"title": "x"}))
	require.NoError(t, ds.Delete(ctx, path))
	require.NoError(t, ds.Delete(ctx, path), "deleting an absent document is not an error")

	_, err := ds.Get(ctx, path)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func QueryDefaultOrderTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	root := newRoot()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, ds.Set(ctx, storage.Join(root, id), storage.Fields{"n": int64(1)}))
	}

	docs, err := ds.Query(ctx, storage.Query{Collection: root})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids(docs))

	docs, err = ds.Query(ctx, storage.Query{Collection: newRoot()})
	require.NoError(t, err)
	require.Empty(t, docs)
}

func QueryOrderedDescendingWithLimitTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	root := newRoot()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, ds.Set(ctx, storage.Join(root, fmt.Sprintf("r%d", i)), storage.Fields{
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, ds.Set(ctx, storage.Join(root, "undated"), storage.Fields{"title": "no timestamp"}))

	docs, err := ds.Query(ctx, storage.Query{Collection: root, OrderBy: "createdAt", Descending: true, Limit: 3})
	require.NoError(t, err)
	require.Equal(t, []string{"r4", "r3", "r2"}, ids(docs))

	docs, err = ds.Query(ctx, storage.Query{Collection: root, OrderBy: "createdAt"})
	require.NoError(t, err)
	require.Equal(t, []string{"r0", "r1", "r2", "r3", "r4"}, ids(docs), "documents without the ordering field are excluded")
}

func QueryInFilterTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	root := newRoot()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	authors := []string{"alice", "bob", "carol", "alice"}
	for i, author := range authors {
		require.NoError(t, ds.Set(ctx, storage.Join(root, fmt.Sprintf("r%d", i)), storage.Fields{
			"userId":    author,
			"createdAt": base.Add(time.Duration(i) * time.Minute),
		}))
	}

	docs, err := ds.Query(ctx, storage.Query{
		Collection: root,
		Filter:     &storage.InFilter{Field: "userId", Values: []string{"alice", "carol"}},
		OrderBy:    "createdAt",
		Descending: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"r3", "r2", "r0"}, ids(docs))
}

func QueryDocumentIDFilterTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	root := newRoot()

	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, ds.Set(ctx, storage.Join(root, id), storage.Fields{"name": id}))
	}

	docs, err := ds.Query(ctx, storage.Query{
		Collection: root,
		Filter:     &storage.InFilter{Field: storage.DocumentIDField, Values: []string{"u3", "u1", "ghost"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u3"}, ids(docs))
}

func QueryExceedingInFilterLimitTest(t *testing.T, ds storage.DocumentStore) {
	values := make([]string, ds.MaxInValues()+1)
	for i := range values {
		values[i] = fmt.Sprintf("u%d", i)
	}

	_, err := ds.Query(context.Background(), storage.Query{
		Collection: newRoot(),
		Filter:     &storage.InFilter{Field: storage.DocumentIDField, Values: values},
	})
	require.ErrorIs(t, err, storage.ErrExceededInFilterLimit)
}

func ChildCollectionsAreIndependentTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()
	root := newRoot()

	require.NoError(t, ds.Set(ctx, storage.Join(root, "r1"), storage.Fields{"title": "x"}))
	require.NoError(t, ds.Set(ctx, storage.Join(root, "r1", "likes", "u1"), storage.Fields{"n": int64(1)}))
	require.NoError(t, ds.Set(ctx, storage.Join(root, "r1", "likes", "u2"), storage.Fields{"n": int64(1)}))
	require.NoError(t, ds.Set(ctx, storage.Join(root, "r2", "likes", "u1"), storage.Fields{"n": int64(1)}))

	docs, err := ds.Query(ctx, storage.Query{Collection: storage.Join(root, "r1", "likes")})
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2"}, ids(docs))

	docs, err = ds.Query(ctx, storage.Query{Collection: root})
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, ids(docs))
}

func InvalidPathsTest(t *testing.T, ds storage.DocumentStore) {
	ctx := context.Background()

	_, err := ds.Get(ctx, newRoot())
	require.ErrorIs(t, err, storage.ErrInvalidPath)

	err = ds.Set(ctx, newRoot(), storage.Fields{"a": "b"})
	require.ErrorIs(t, err, storage.ErrInvalidPath)

	_, err = ds.Query(ctx, storage.Query{Collection: storage.Join(newRoot(), "doc")})
	require.ErrorIs(t, err, storage.ErrInvalidPath)
}

func ids(docs []*storage.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
