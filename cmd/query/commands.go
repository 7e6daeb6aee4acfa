package query

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tcgun/tavsiyece-sub000/pkg/commands"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
)

const (
	viewerFlag  = "viewer"
	userFlag    = "user"
	limitFlag   = "limit"
	counterFlag = "counter"
	idsFlag     = "ids"
)

func newFeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "feed",
		Short:  "Print the home feed of a viewer",
		Long:   "Print the home feed of a viewer: the newest recommendations of the users they follow and their own, hydrated with authors and engagement.",
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(viewerFlag, "", "(required) the id of the viewing user")
	_ = cmd.MarkFlagRequired(viewerFlag)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		viewerID, _ := cmd.Flags().GetString(viewerFlag)
		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			return commands.NewFeedQuery(q.ds,
				commands.WithFeedQueryLogger(q.logger),
				commands.WithFollowingLimit(q.cfg.Feed.FollowingLimit),
				commands.WithFeedPageSize(q.cfg.Feed.PageSize),
			).Execute(ctx, viewerID)
		})
	}

	return cmd
}

func newPopularCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "popular",
		Short:  "Print the popular feed",
		Long:   "Print the popular feed: the newest recommendations of every user, with engagement seen by the optional viewer.",
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(viewerFlag, "", "the id of the viewing user (optional)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		viewerID, _ := cmd.Flags().GetString(viewerFlag)
		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			return commands.NewFeedQuery(q.ds,
				commands.WithFeedQueryLogger(q.logger),
				commands.WithPopularLimit(q.cfg.Feed.PopularLimit),
			).Popular(ctx, viewerID)
		})
	}

	return cmd
}

func newSavedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "saved",
		Short:  "Print the saved recommendations of a user",
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(userFlag, "", "(required) the id of the user")
	cmd.Flags().Int(limitFlag, 0, "the maximum number of saved recommendations (default feed.pageSize)")
	_ = cmd.MarkFlagRequired(userFlag)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString(userFlag)
		limit, _ := cmd.Flags().GetInt(limitFlag)
		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			return commands.NewSavedQuery(q.ds, commands.WithSavedQueryLogger(q.logger)).
				Execute(ctx, userID, limitOrDefault(limit, q.cfg.Feed.PageSize))
		})
	}

	return cmd
}

func newFollowersCommand() *cobra.Command {
	return newSocialGraphCommand("followers", "Print the users following a user",
		func(ctx context.Context, r *commands.SocialGraphReader, userID string, limit int) ([]social.ProfileSummary, error) {
			return r.Followers(ctx, userID, limit)
		})
}

func newFollowingCommand() *cobra.Command {
	return newSocialGraphCommand("following", "Print the users a user follows",
		func(ctx context.Context, r *commands.SocialGraphReader, userID string, limit int) ([]social.ProfileSummary, error) {
			return r.Following(ctx, userID, limit)
		})
}

type socialGraphFunc func(ctx context.Context, r *commands.SocialGraphReader, userID string, limit int) ([]social.ProfileSummary, error)

func newSocialGraphCommand(use, short string, list socialGraphFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:    use,
		Short:  short,
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(userFlag, "", "(required) the id of the user")
	cmd.Flags().Int(limitFlag, 0, "the maximum number of users listed (default feed.socialGraphLimit)")
	_ = cmd.MarkFlagRequired(userFlag)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString(userFlag)
		limit, _ := cmd.Flags().GetInt(limitFlag)
		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			reader := commands.NewSocialGraphReader(q.ds, commands.WithSocialGraphReaderLogger(q.logger))
			return list(ctx, reader, userID, limitOrDefault(limit, q.cfg.Feed.SocialGraphLimit))
		})
	}

	return cmd
}

// reconcileResult is the output line of one reconciled counter.
type reconcileResult struct {
	Counter social.Counter `json:"counter"`
	social.CounterResult
}

func newReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recount the counters of a user and repair the cached values",
		Long: `Recount the followers, following and recommendations counters of a user from the
underlying collections and rewrite the cached values on the user document when they drifted.`,
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(userFlag, "", "(required) the id of the user")
	cmd.Flags().StringSlice(counterFlag, []string{
		string(social.CounterFollowers),
		string(social.CounterFollowing),
		string(social.CounterRecommendations),
	}, "the counters to reconcile")
	_ = cmd.MarkFlagRequired(userFlag)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString(userFlag)
		names, _ := cmd.Flags().GetStringSlice(counterFlag)

		counters := make([]social.Counter, 0, len(names))
		for _, name := range names {
			counter, err := social.ParseCounter(name)
			if err != nil {
				return err
			}
			counters = append(counters, counter)
		}

		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			reconciler := commands.NewCounterReconciler(q.ds, commands.WithCounterReconcilerLogger(q.logger))

			results := make([]reconcileResult, 0, len(counters))
			for _, counter := range counters {
				res, err := reconciler.Execute(ctx, userID, counter)
				if err != nil {
					return nil, err
				}
				results = append(results, reconcileResult{Counter: counter, CounterResult: res})
			}
			return results, nil
		})
	}

	return cmd
}

func newNotificationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "notifications",
		Short:  "Print the notifications of a user, newest first",
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(userFlag, "", "(required) the id of the user")
	cmd.Flags().Int(limitFlag, 0, "the maximum number of notifications (default feed.notificationLimit)")
	_ = cmd.MarkFlagRequired(userFlag)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString(userFlag)
		limit, _ := cmd.Flags().GetInt(limitFlag)
		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			return commands.NewNotificationProjector(q.ds, commands.WithNotificationProjectorLogger(q.logger)).
				Execute(ctx, userID, limitOrDefault(limit, q.cfg.Feed.NotificationLimit))
		})
	}

	return cmd
}

func newMarkReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "mark-read",
		Short:  "Mark notifications of a user as read",
		Args:   cobra.NoArgs,
		PreRun: bindConfigFlags,
	}

	cmd.Flags().String(userFlag, "", "(required) the id of the user")
	cmd.Flags().StringSlice(idsFlag, nil, "(required) the ids of the notifications")
	_ = cmd.MarkFlagRequired(userFlag)
	_ = cmd.MarkFlagRequired(idsFlag)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString(userFlag)
		ids, _ := cmd.Flags().GetStringSlice(idsFlag)
		return runQuery(cmd, func(ctx context.Context, q *queryContext) (any, error) {
			err := commands.NewNotificationProjector(q.ds, commands.WithNotificationProjectorLogger(q.logger)).
				MarkRead(ctx, userID, ids)
			if err != nil {
				return nil, err
			}
			return map[string][]string{"ids": ids}, nil
		})
	}

	return cmd
}

func limitOrDefault(limit, def int) int {
	if limit > 0 {
		return limit
	}
	return def
}
