// Package social holds the entities of the recommendation network and their
// document representation.
package social

import (
	"fmt"
	"time"
)

// Document field names.
const (
	FieldName                 = "name"
	FieldUsername             = "username"
	FieldBio                  = "bio"
	FieldAvatar               = "avatar"
	FieldFollowersCount       = "followersCount"
	FieldFollowingCount       = "followingCount"
	FieldRecommendationsCount = "recommendationsCount"

	FieldUserID        = "userId"
	FieldTitle         = "title"
	FieldTitleLower    = "titleLower"
	FieldCategory      = "category"
	FieldCategoryLower = "categoryLower"
	FieldText          = "text"
	FieldKeywords      = "keywords"
	FieldImage         = "image"
	FieldCreatedAt     = "createdAt"

	FieldUserName   = "userName"
	FieldUserAvatar = "userAvatar"
	FieldParentID   = "parentId"

	FieldSenderID         = "senderId"
	FieldSenderName       = "senderName"
	FieldSenderAvatar     = "senderAvatar"
	FieldType             = "type"
	FieldRecommendationID = "recommendationId"
	FieldMessage          = "message"
	FieldImageURL         = "imageUrl"
	FieldIsRead           = "isRead"
)

// Counter names one of the cached denormalized counters of a user.
type Counter string

const (
	CounterFollowers       Counter = "followers"
	CounterFollowing       Counter = "following"
	CounterRecommendations Counter = "recommendations"
)

// Field returns the user document field caching the counter.
func (c Counter) Field() string {
	switch c {
	case CounterFollowers:
		return FieldFollowersCount
	case CounterFollowing:
		return FieldFollowingCount
	case CounterRecommendations:
		return FieldRecommendationsCount
	}
	return ""
}

// ParseCounter parses the name of a counter.
func ParseCounter(s string) (Counter, error) {
	switch c := Counter(s); c {
	case CounterFollowers, CounterFollowing, CounterRecommendations:
		return c, nil
	}
	return "", fmt.Errorf("unknown counter '%s'", s)
}

// ProfileSummary is the public identity of a user.
type ProfileSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// User is a full user record, cached counters included.
type User struct {
	ProfileSummary
	Bio                  string `json:"bio"`
	FollowersCount       int64  `json:"followersCount"`
	FollowingCount       int64  `json:"followingCount"`
	RecommendationsCount int64  `json:"recommendationsCount"`
}

type Recommendation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Engagement is the social metadata of a recommendation as seen by a viewer.
// Degraded is set when the counts could not be computed and were zeroed.
type Engagement struct {
	LikeCount    int  `json:"likeCount"`
	CommentCount int  `json:"commentCount"`
	IsLiked      bool `json:"isLiked"`
	IsSaved      bool `json:"isSaved"`
	Degraded     bool `json:"-"`
}

// FeedItem is a recommendation hydrated for display.
type FeedItem struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Category string         `json:"category"`
	Image    string         `json:"image,omitempty"`
	Author   ProfileSummary `json:"author"`
	Engagement
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar"`
	Text       string    `json:"text"`
	ParentID   string    `json:"parentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CounterSource tells where the value of a CounterResult comes from.
type CounterSource string

const (
	// SourceActual is a freshly computed count of the authoritative collection.
	SourceActual CounterSource = "actual"
	// SourceCached is the cached value, returned when the recount failed.
	SourceCached CounterSource = "cached"
)

type CounterResult struct {
	Value  int64         `json:"value"`
	Source CounterSource `json:"source"`
	// Repaired is set when the cached value was rewritten.
	Repaired bool `json:"repaired"`
}
