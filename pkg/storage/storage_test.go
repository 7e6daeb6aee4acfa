package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	require.Equal(t, "users/u1/followers/u2", Join("users", "u1", "followers", "u2"))

	collection, id := Split("users/u1/followers/u2")
	require.Equal(t, "users/u1/followers", collection)
	require.Equal(t, "u2", id)

	require.NoError(t, ValidateDocumentPath("users/u1"))
	require.NoError(t, ValidateCollectionPath("users/u1/likes"))
	require.ErrorIs(t, ValidateDocumentPath("users"), ErrInvalidPath)
	require.ErrorIs(t, ValidateCollectionPath("users/u1"), ErrInvalidPath)
	require.ErrorIs(t, ValidateDocumentPath("users//u1"), ErrInvalidPath)
	require.ErrorIs(t, ValidateCollectionPath(""), ErrInvalidPath)
}

func TestValidateQuery(t *testing.T) {
	require.NoError(t, ValidateQuery(Query{Collection: "recommendations"}, 10))

	err := ValidateQuery(Query{
		Collection: "recommendations",
		Filter:     &InFilter{Field: "userId", Values: make([]string, 11)},
	}, 10)
	require.ErrorIs(t, err, ErrExceededInFilterLimit)

	err = ValidateQuery(Query{Collection: "recommendations", Filter: &InFilter{Field: "userId"}}, 10)
	require.ErrorIs(t, err, ErrInvalidQuery)

	err = ValidateQuery(Query{Collection: "recommendations", Limit: -1}, 10)
	require.ErrorIs(t, err, ErrInvalidQuery)

	err = ValidateQuery(Query{Collection: "users/u1"}, 10)
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestFields(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("TRT", 3*3600))

	f, err := Fields{
		"name":    "Ada",
		"count":   3,
		"ratio":   float32(0.5),
		"created": now,
		"tags":    []any{"a", "b"},
		"public":  true,
	}.Normalize()
	require.NoError(t, err)

	require.Equal(t, "Ada", f.String("name"))
	n, ok := f.Int("count")
	require.True(t, ok)
	require.Equal(t, int64(3), n)
	require.Equal(t, now.UTC(), f.Time("created"))
	require.Equal(t, time.UTC, f.Time("created").Location())
	require.Equal(t, []string{"a", "b"}, f.Strings("tags"))
	require.True(t, f.Bool("public"))
	require.False(t, f.Has("missing"))

	_, err = Fields{"bad": struct{}{}}.Normalize()
	require.ErrorIs(t, err, ErrInvalidFieldValue)

	_, ok = Fields{"x": 1.5}.Int("x")
	require.False(t, ok)
}

func TestFieldsMerge(t *testing.T) {
	base := Fields{"followersCount": int64(4), "name": "Ada"}

	merged := base.Merge(Fields{
		"followersCount": Increment(-1),
		"followingCount": Increment(1),
		"name":           "Ada L.",
	})

	require.Equal(t, Fields{"followersCount": int64(3), "followingCount": int64(1), "name": "Ada L."}, merged)
	require.Equal(t, int64(4), base["followersCount"], "the receiver is not modified")

	require.Equal(t, Fields{"n": int64(2)}, Fields(nil).Merge(Fields{"n": Increment(2)}))
}

func TestConsistencyContext(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, ConsistencyDefault, ConsistencyFromContext(ctx))
	require.Equal(t, ConsistencyStrong, ConsistencyFromContext(ContextWithConsistency(ctx, ConsistencyStrong)))
}
