package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/memory"
)

func TestEngagementCounter(t *testing.T) {
	t.Run("no_likes_or_comments", func(t *testing.T) {
		got := NewEngagementCounter(memory.New()).Execute(context.Background(), []string{"r1"}, "viewer")

		require.Equal(t, map[string]social.Engagement{"r1": {}}, got)
	})

	t.Run("counts_and_viewer_flags", func(t *testing.T) {
		ds := memory.New()
		for _, u := range []string{"a", "b", "viewer"} {
			putMember(t, ds, social.LikesPath("r1"), u, epoch)
		}
		putMember(t, ds, social.LikesPath("r2"), "a", epoch)
		for _, c := range []string{"c1", "c2"} {
			require.NoError(t, ds.Set(context.Background(), storage.Join(social.CommentsPath("r2"), c), storage.Fields{
				social.FieldText: "hi",
			}))
		}
		putMember(t, ds, social.SavedPath("viewer"), "r2", epoch)

		got := NewEngagementCounter(ds).Execute(context.Background(), []string{"r1", "r2", "r1"}, "viewer")

		require.Equal(t, map[string]social.Engagement{
			"r1": {LikeCount: 3, IsLiked: true},
			"r2": {LikeCount: 1, CommentCount: 2, IsSaved: true},
		}, got)
	})

	t.Run("anonymous_viewer", func(t *testing.T) {
		ds := memory.New()
		putMember(t, ds, social.LikesPath("r1"), "a", epoch)

		got := NewEngagementCounter(ds).Execute(context.Background(), []string{"r1"}, "")

		require.Equal(t, social.Engagement{LikeCount: 1}, got["r1"])
	})

	t.Run("failure_degrades_only_the_failing_item", func(t *testing.T) {
		ds := memory.New(memory.WithRules(memory.DenyPrefix(memory.OperationRead, social.CommentsPath("r1"), storage.ErrTransient)))
		putMember(t, ds, social.LikesPath("r1"), "a", epoch)
		putMember(t, ds, social.LikesPath("r2"), "a", epoch)
		putMember(t, ds, social.SavedPath("viewer"), "r1", epoch)

		l, logs := logger.NewObserverLogger("warn")
		got := NewEngagementCounter(ds, WithEngagementCounterLogger(l)).Execute(context.Background(), []string{"r1", "r2"}, "viewer")

		require.Equal(t, social.Engagement{IsSaved: true, Degraded: true}, got["r1"])
		require.Equal(t, social.Engagement{LikeCount: 1}, got["r2"])

		entries := logs.FilterMessage("degrading engagement counts").All()
		require.Len(t, entries, 1)
		require.Equal(t, "r1", entries[0].ContextMap()["recommendation_id"])
	})

	t.Run("unreadable_saved_mark", func(t *testing.T) {
		ds := memory.New(memory.WithRules(memory.DenyPrefix(memory.OperationRead, social.SavedPath("viewer"), storage.ErrPermissionDenied)))
		putMember(t, ds, social.LikesPath("r1"), "viewer", epoch)

		got := NewEngagementCounter(ds).Execute(context.Background(), []string{"r1"}, "viewer")

		require.Equal(t, social.Engagement{LikeCount: 1, IsLiked: true}, got["r1"])
	})

	t.Run("no_items", func(t *testing.T) {
		require.Empty(t, NewEngagementCounter(memory.New()).Execute(context.Background(), nil, "viewer"))
	})
}
