package social

import "github.com/tcgun/tavsiyece-sub000/pkg/storage"

// Root and child collection names.
const (
	UsersCollection           = "users"
	RecommendationsCollection = "recommendations"

	FollowersCollection            = "followers"
	FollowingCollection            = "following"
	LikedRecommendationsCollection = "likedRecommendations"
	SavedRecommendationsCollection = "savedRecommendations"
	NotificationsCollection        = "notifications"

	LikesCollection    = "likes"
	CommentsCollection = "comments"
)

func UserPath(userID string) string {
	return storage.Join(UsersCollection, userID)
}

// FollowersPath is the collection of the users following userID, keyed by follower id.
func FollowersPath(userID string) string {
	return storage.Join(UsersCollection, userID, FollowersCollection)
}

// FollowingPath is the collection of the users userID follows, keyed by followee id.
func FollowingPath(userID string) string {
	return storage.Join(UsersCollection, userID, FollowingCollection)
}

// LikedPath mirrors the likes of userID, keyed by recommendation id.
func LikedPath(userID string) string {
	return storage.Join(UsersCollection, userID, LikedRecommendationsCollection)
}

// SavedPath holds the saved marks of userID, keyed by recommendation id.
func SavedPath(userID string) string {
	return storage.Join(UsersCollection, userID, SavedRecommendationsCollection)
}

func NotificationsPath(userID string) string {
	return storage.Join(UsersCollection, userID, NotificationsCollection)
}

func RecommendationPath(recommendationID string) string {
	return storage.Join(RecommendationsCollection, recommendationID)
}

// LikesPath is the collection of likes of a recommendation, keyed by liking user id.
func LikesPath(recommendationID string) string {
	return storage.Join(RecommendationsCollection, recommendationID, LikesCollection)
}

func CommentsPath(recommendationID string) string {
	return storage.Join(RecommendationsCollection, recommendationID, CommentsCollection)
}
