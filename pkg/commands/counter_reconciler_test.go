package commands

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/memory"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/mocks"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/storagewrappers"
)

func cachedCounter(t *testing.T, ds storage.DocumentReader, userID string, counter social.Counter) (int64, bool) {
	t.Helper()
	doc, err := ds.Get(context.Background(), social.UserPath(userID))
	require.NoError(t, err)
	return doc.Fields.Int(counter.Field())
}

func docs(n int) []*storage.Document {
	out := make([]*storage.Document, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &storage.Document{ID: fmt.Sprintf("d%d", i)})
	}
	return out
}

func TestCounterReconciler(t *testing.T) {
	t.Run("repairs_drift", func(t *testing.T) {
		ds := memory.New()
		putUser(t, ds, "star", "Star")
		require.NoError(t, ds.Set(context.Background(), social.UserPath("star"), storage.Fields{social.FieldFollowersCount: int64(7)}))
		for _, f := range []string{"a", "b", "c"} {
			follow(t, ds, f, "star")
		}

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "star", social.CounterFollowers)
		require.NoError(t, err)
		require.Equal(t, social.CounterResult{Value: 3, Source: social.SourceActual, Repaired: true}, res)

		cached, ok := cachedCounter(t, ds, "star", social.CounterFollowers)
		require.True(t, ok)
		require.Equal(t, int64(3), cached)
	})

	t.Run("writes_a_missing_counter", func(t *testing.T) {
		ds := memory.New()
		putUser(t, ds, "fan", "Fan")
		follow(t, ds, "fan", "a")
		follow(t, ds, "fan", "b")

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "fan", social.CounterFollowing)
		require.NoError(t, err)
		require.Equal(t, int64(2), res.Value)
		require.True(t, res.Repaired)

		cached, ok := cachedCounter(t, ds, "fan", social.CounterFollowing)
		require.True(t, ok)
		require.Equal(t, int64(2), cached)
	})

	t.Run("counts_recommendations_by_author", func(t *testing.T) {
		ds := memory.New()
		putUser(t, ds, "author", "Author")
		putRecommendation(t, ds, "r1", "author", epoch)
		putRecommendation(t, ds, "r2", "author", epoch)
		putRecommendation(t, ds, "r3", "someone-else", epoch)

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "author", social.CounterRecommendations)
		require.NoError(t, err)
		require.Equal(t, int64(2), res.Value)
	})

	t.Run("idempotent", func(t *testing.T) {
		mem := memory.New()
		putUser(t, mem, "star", "Star")
		follow(t, mem, "a", "star")

		first := storagewrappers.NewInstrumentedStore(mem)
		res, err := NewCounterReconciler(first).Execute(context.Background(), "star", social.CounterFollowers)
		require.NoError(t, err)
		require.True(t, res.Repaired)
		require.Equal(t, uint32(1), first.GetMetrics().DatastoreWriteCount)

		second := storagewrappers.NewInstrumentedStore(mem)
		again, err := NewCounterReconciler(second).Execute(context.Background(), "star", social.CounterFollowers)
		require.NoError(t, err)
		require.Equal(t, res.Value, again.Value)
		require.False(t, again.Repaired)
		require.Zero(t, second.GetMetrics().DatastoreWriteCount)
	})

	t.Run("consistent_counter_is_not_written", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockDocumentStore(ctrl)

		ds.EXPECT().Query(gomock.Any(), storage.Query{Collection: social.FollowersPath("star")}).
			DoAndReturn(func(ctx context.Context, _ storage.Query) ([]*storage.Document, error) {
				assert.Equal(t, storage.ConsistencyStrong, storage.ConsistencyFromContext(ctx))
				return docs(4), nil
			})
		ds.EXPECT().Get(gomock.Any(), social.UserPath("star")).
			DoAndReturn(func(ctx context.Context, _ string) (*storage.Document, error) {
				assert.Equal(t, storage.ConsistencyStrong, storage.ConsistencyFromContext(ctx))
				return &storage.Document{ID: "star", Fields: storage.Fields{social.FieldFollowersCount: int64(4)}}, nil
			})

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "star", social.CounterFollowers)
		require.NoError(t, err)
		require.Equal(t, social.CounterResult{Value: 4, Source: social.SourceActual}, res)
	})

	t.Run("failed_recount_keeps_the_cached_value", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockDocumentStore(ctrl)

		ds.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, storage.ErrPermissionDenied)
		ds.EXPECT().Get(gomock.Any(), social.UserPath("star")).
			Return(&storage.Document{ID: "star", Fields: storage.Fields{social.FieldFollowersCount: int64(9)}}, nil)
		ds.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "star", social.CounterFollowers)
		require.NoError(t, err)
		require.Equal(t, social.CounterResult{Value: 9, Source: social.SourceCached}, res)
	})

	t.Run("failed_recount_with_unreadable_cache", func(t *testing.T) {
		ds := memory.New(memory.WithRules(memory.DenyPrefix(memory.OperationRead, "users/star", storage.ErrTransient)))

		_, err := NewCounterReconciler(ds).Execute(context.Background(), "star", social.CounterFollowers)
		require.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("failed_write_still_returns_the_recount", func(t *testing.T) {
		ds := memory.New()
		putUser(t, ds, "star", "Star")
		require.NoError(t, ds.Set(context.Background(), social.UserPath("star"), storage.Fields{social.FieldFollowersCount: int64(5)}))
		follow(t, ds, "a", "star")
		ds.SetRules(memory.DenyPrefix(memory.OperationWrite, "users/star", storage.ErrPermissionDenied))

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "star", social.CounterFollowers)
		require.NoError(t, err)
		require.Equal(t, social.CounterResult{Value: 1, Source: social.SourceActual}, res)

		cached, _ := cachedCounter(t, ds, "star", social.CounterFollowers)
		require.Equal(t, int64(5), cached)
	})

	t.Run("missing_user_is_not_created", func(t *testing.T) {
		ds := memory.New()
		follow(t, ds, "a", "ghost")

		res, err := NewCounterReconciler(ds).Execute(context.Background(), "ghost", social.CounterFollowers)
		require.NoError(t, err)
		require.Equal(t, social.CounterResult{Value: 1, Source: social.SourceActual}, res)

		_, err = ds.Get(context.Background(), social.UserPath("ghost"))
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("invalid_requests", func(t *testing.T) {
		r := NewCounterReconciler(memory.New())

		_, err := r.Execute(context.Background(), "star", social.Counter("likes"))
		require.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = r.Execute(context.Background(), "", social.CounterFollowers)
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}
