package commands

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/memory"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/mocks"
)

func ids(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("id-%02d", i))
	}
	return out
}

// echoQuery answers every membership query with one document per filter value,
// failing the groups that contain failOn.
func echoQuery(calls *atomic.Int32, failOn string, err error) func(context.Context, storage.Query) ([]*storage.Document, error) {
	return func(_ context.Context, q storage.Query) ([]*storage.Document, error) {
		calls.Add(1)
		if slices.Contains(q.Filter.Values, failOn) {
			return nil, err
		}
		docs := make([]*storage.Document, 0, len(q.Filter.Values))
		for _, v := range q.Filter.Values {
			docs = append(docs, &storage.Document{ID: v, Path: storage.Join(q.Collection, v)})
		}
		return docs, nil
	}
}

func TestChunkedLookup(t *testing.T) {
	t.Run("issues_one_query_per_group", func(t *testing.T) {
		for _, tc := range []struct {
			n, limit, groups int
		}{
			{n: 1, limit: 10, groups: 1},
			{n: 10, limit: 10, groups: 1},
			{n: 11, limit: 10, groups: 2},
			{n: 25, limit: 10, groups: 3},
			{n: 7, limit: 3, groups: 3},
		} {
			t.Run(fmt.Sprintf("%d_values_limit_%d", tc.n, tc.limit), func(t *testing.T) {
				ctrl := gomock.NewController(t)
				ds := mocks.NewMockDocumentStore(ctrl)

				var calls atomic.Int32
				ds.EXPECT().MaxInValues().Return(tc.limit).AnyTimes()
				ds.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(echoQuery(&calls, "", nil)).Times(tc.groups)

				res := NewChunkedLookup(ds).ByID(context.Background(), "users", ids(tc.n))

				require.NoError(t, res.Err())
				require.Equal(t, tc.groups, res.Groups)
				require.Equal(t, int32(tc.groups), calls.Load())
				require.Len(t, res.Documents, tc.n)
				require.ElementsMatch(t, ids(tc.n), res.Order)
			})
		}
	})

	t.Run("partial_failure_removes_exactly_the_failed_group", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockDocumentStore(ctrl)

		var calls atomic.Int32
		ds.EXPECT().MaxInValues().Return(10).AnyTimes()
		ds.EXPECT().Query(gomock.Any(), gomock.Any()).
			DoAndReturn(echoQuery(&calls, "id-12", storage.ErrPermissionDenied)).
			Times(3)

		res := NewChunkedLookup(ds).ByID(context.Background(), "users", ids(25))

		require.False(t, res.AllFailed())
		require.Len(t, res.Failures, 1)
		require.Equal(t, ids(25)[10:20], res.Failures[0].Values)

		expected := append(ids(25)[:10:10], ids(25)[20:]...)
		require.ElementsMatch(t, expected, res.Order)
		require.Len(t, res.Documents, len(expected))

		err := res.Err()
		require.ErrorIs(t, err, ErrPartialBatchFailure)
		require.ErrorIs(t, err, storage.ErrPermissionDenied)
		require.Contains(t, err.Error(), "1 of 3 groups failed")
	})

	t.Run("all_groups_failing", func(t *testing.T) {
		ds := memory.New(
			memory.WithMaxInValues(2),
			memory.WithRules(memory.DenyPrefix(memory.OperationRead, "users", storage.ErrTransient)),
		)

		res := NewChunkedLookup(ds).ByID(context.Background(), "users", ids(5))

		require.True(t, res.AllFailed())
		require.Empty(t, res.Documents)
		require.ErrorIs(t, res.Err(), storage.ErrTransient)
	})

	t.Run("no_values_means_no_queries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockDocumentStore(ctrl)
		ds.EXPECT().MaxInValues().Return(10).AnyTimes()

		res := NewChunkedLookup(ds).ByID(context.Background(), "users", nil)

		require.NoError(t, res.Err())
		require.False(t, res.AllFailed())
		require.Zero(t, res.Groups)
		require.Empty(t, res.Documents)
	})

	t.Run("duplicate_values_are_queried_once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockDocumentStore(ctrl)

		var calls atomic.Int32
		ds.EXPECT().MaxInValues().Return(1).AnyTimes()
		ds.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(echoQuery(&calls, "", nil)).Times(2)

		res := NewChunkedLookup(ds).ByID(context.Background(), "users", []string{"a", "a", "b", "a"})

		require.Equal(t, []string{"a", "b"}, res.Order)
	})

	t.Run("documents_returned_by_several_groups_are_merged_once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockDocumentStore(ctrl)

		shared := &storage.Document{ID: "shared", Path: "users/shared"}
		ds.EXPECT().MaxInValues().Return(1).AnyTimes()
		ds.EXPECT().Query(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
			func(_ context.Context, q storage.Query) ([]*storage.Document, error) {
				v := q.Filter.Values[0]
				own := &storage.Document{ID: v, Path: storage.Join(q.Collection, v)}
				if v == "a" {
					return []*storage.Document{shared, own}, nil
				}
				return []*storage.Document{own, shared}, nil
			})

		res := NewChunkedLookup(ds).ByID(context.Background(), "users", []string{"a", "b"})

		require.NoError(t, res.Err())
		require.Equal(t, []string{"shared", "a", "b"}, res.Order)
		require.Len(t, res.Documents, 3)
		require.Same(t, shared, res.Documents["shared"])
		require.Len(t, res.Ordered(), 3)
	})

	t.Run("group_size_is_capped_by_the_store_limit", func(t *testing.T) {
		ds := memory.New(memory.WithMaxInValues(3))

		require.Equal(t, 3, NewChunkedLookup(ds, WithGroupSize(50)).groupSize)
		require.Equal(t, 2, NewChunkedLookup(ds, WithGroupSize(2)).groupSize)
		require.Equal(t, 3, NewChunkedLookup(ds, WithGroupSize(0)).groupSize)
	})

	t.Run("keeps_query_ordering_within_each_group", func(t *testing.T) {
		ds := memory.New(memory.WithMaxInValues(2))
		for i, id := range []string{"r1", "r2", "r3", "r4"} {
			putRecommendation(t, ds, id, fmt.Sprintf("u%d", i%2), epoch.Add(time.Duration(i)*time.Minute))
		}

		res := NewChunkedLookup(ds).ByField(context.Background(), storage.Query{
			Collection: "recommendations",
			OrderBy:    "createdAt",
			Descending: true,
		}, "userId", []string{"u0", "u1"})

		require.NoError(t, res.Err())
		require.Equal(t, []string{"r4", "r3", "r2", "r1"}, res.Order)
	})
}
