package social

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

func TestPaths(t *testing.T) {
	require.Equal(t, "users/alice/followers", FollowersPath("alice"))
	require.Equal(t, "users/alice/following", FollowingPath("alice"))
	require.Equal(t, "users/alice/savedRecommendations", SavedPath("alice"))
	require.Equal(t, "recommendations/r1/likes", LikesPath("r1"))
	require.Equal(t, "recommendations/r1/comments", CommentsPath("r1"))

	for _, path := range []string{FollowersPath("a"), LikedPath("a"), NotificationsPath("a"), LikesPath("r")} {
		require.NoError(t, storage.ValidateCollectionPath(path))
	}
	require.NoError(t, storage.ValidateDocumentPath(UserPath("a")))
	require.NoError(t, storage.ValidateDocumentPath(RecommendationPath("r")))
}

func TestCounter(t *testing.T) {
	c, err := ParseCounter("followers")
	require.NoError(t, err)
	require.Equal(t, FieldFollowersCount, c.Field())

	require.Equal(t, FieldFollowingCount, CounterFollowing.Field())
	require.Equal(t, FieldRecommendationsCount, CounterRecommendations.Field())

	_, err = ParseCounter("likes")
	require.Error(t, err)
}

func TestProfileFromDocument(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		p := ProfileFromDocument(&storage.Document{ID: "alice", Fields: storage.Fields{
			FieldName:     "Alice",
			FieldUsername: "alice",
			FieldAvatar:   "https://cdn/alice.png",
		}})
		require.Equal(t, ProfileSummary{ID: "alice", Name: "Alice", Username: "alice", Avatar: "https://cdn/alice.png"}, p)
	})

	t.Run("generates_missing_avatar", func(t *testing.T) {
		p := ProfileFromDocument(&storage.Document{ID: "bob", Fields: storage.Fields{FieldUsername: "bob"}})
		require.Equal(t, "bob", p.Name)
		require.Equal(t, "https://ui-avatars.com/api/?background=random&name=bob", p.Avatar)
	})

	t.Run("placeholder", func(t *testing.T) {
		p := PlaceholderProfile("ghost")
		require.Equal(t, "ghost", p.ID)
		require.Equal(t, UnknownName, p.Name)
		require.Equal(t, GeneratedAvatar(UnknownName), p.Avatar)
	})
}

func TestRecommendationFields(t *testing.T) {
	createdAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Recommendation{
		UserID:    "alice",
		Title:     "İstanbul'da Kahve",
		Category:  "Yeme İçme",
		Text:      "Kadıköy'de harika bir kahve, kahve!",
		CreatedAt: createdAt,
	}

	fields := r.Fields()
	require.Equal(t, "istanbul'da kahve", fields.String(FieldTitleLower))
	require.Equal(t, "yeme içme", fields.String(FieldCategoryLower))
	require.False(t, fields.Has(FieldImage))

	keywords := fields.Strings(FieldKeywords)
	require.Contains(t, keywords, "kahve")
	require.Contains(t, keywords, "kadıköy'de")
	require.Len(t, keywords, len(Keywords(r.Title, r.Category, r.Text)))

	back := RecommendationFromDocument(&storage.Document{ID: "r1", Fields: fields})
	require.Equal(t, "r1", back.ID)
	require.Equal(t, r.Title, back.Title)
	require.True(t, createdAt.Equal(back.CreatedAt))
}

func TestKeywords(t *testing.T) {
	require.Equal(t, []string{"good", "coffee", "in", "moda"}, Keywords("Good coffee", "in Moda, good!", "a"))
	require.Empty(t, Keywords(""))
}

func TestRenderMessage(t *testing.T) {
	require.Equal(t, "Alice started following you", RenderMessage(KindFollow, "Alice", ""))
	require.Equal(t, "Alice liked your recommendation", RenderMessage(KindLike, "Alice", ""))
	require.Equal(t, "Alice commented: nice", RenderMessage(KindComment, "Alice", "nice"))
	require.Equal(t, "Alice replied to your comment", RenderMessage(KindReply, "Alice", ""))
	require.Equal(t, "Maintenance tonight", RenderMessage(KindAnnouncement, "Tavsiyece", "Maintenance tonight"))
	require.Equal(t, "Alice sent you a notification", RenderMessage("poke", "Alice", ""))
}

func TestTargetLink(t *testing.T) {
	require.Equal(t,
		Link{Template: ProfileLinkTemplate, Params: map[string]string{"userId": "alice"}},
		TargetLink(NotificationRecord{Kind: KindFollow, SenderID: "alice"}))
	require.Equal(t,
		Link{Template: RecommendationLinkTemplate, Params: map[string]string{"recommendationId": "r1"}},
		TargetLink(NotificationRecord{Kind: KindLike, SenderID: "alice", RecommendationID: "r1"}))
	require.Equal(t,
		Link{Template: NotificationsLinkTemplate},
		TargetLink(NotificationRecord{Kind: KindAnnouncement}))
}

func TestNotificationFields(t *testing.T) {
	n := NotificationRecord{
		SenderID:         "alice",
		SenderName:       "Alice",
		Kind:             KindComment,
		RecommendationID: "r1",
		Message:          "nice",
		CreatedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	back := NotificationFromDocument(&storage.Document{ID: "n1", Fields: n.Fields()})
	n.ID = "n1"
	require.Equal(t, n, back)
}
