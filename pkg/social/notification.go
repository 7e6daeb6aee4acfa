package social

import (
	"fmt"
	"time"
)

// NotificationKind is the type of a notification.
type NotificationKind string

const (
	KindFollow       NotificationKind = "follow"
	KindLike         NotificationKind = "like"
	KindComment      NotificationKind = "comment"
	KindReply        NotificationKind = "reply"
	KindAnnouncement NotificationKind = "announcement"
)

// NotificationRecord is a stored notification. The sender fields are a
// snapshot taken when the notification was created.
type NotificationRecord struct {
	ID               string
	SenderID         string
	SenderName       string
	SenderAvatar     string
	Kind             NotificationKind
	RecommendationID string
	// Message is the free text of comments, replies and announcements.
	Message   string
	ImageURL  string
	IsRead    bool
	CreatedAt time.Time
}

// Link is a target descriptor independent of any routing scheme:
// Template holds ":name" placeholders filled from Params.
type Link struct {
	Template string            `json:"template"`
	Params   map[string]string `json:"params,omitempty"`
}

// Link templates.
const (
	ProfileLinkTemplate        = "/users/:userId"
	RecommendationLinkTemplate = "/recommendations/:recommendationId"
	NotificationsLinkTemplate  = "/notifications"
)

// NotificationView is a notification ready for display.
type NotificationView struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Sender    ProfileSummary   `json:"sender"`
	Message   string           `json:"message"`
	Link      Link             `json:"link"`
	Image     string           `json:"image,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// RenderMessage returns the human-readable message of a notification of kind
// sent by senderName.
func RenderMessage(kind NotificationKind, senderName, text string) string {
	switch kind {
	case KindFollow:
		return fmt.Sprintf("%s started following you", senderName)
	case KindLike:
		return fmt.Sprintf("%s liked your recommendation", senderName)
	case KindComment:
		if text == "" {
			return fmt.Sprintf("%s commented on your recommendation", senderName)
		}
		return fmt.Sprintf("%s commented: %s", senderName, text)
	case KindReply:
		if text == "" {
			return fmt.Sprintf("%s replied to your comment", senderName)
		}
		return fmt.Sprintf("%s replied: %s", senderName, text)
	case KindAnnouncement:
		return text
	}
	return fmt.Sprintf("%s sent you a notification", senderName)
}

// TargetLink returns where a notification points to: the recommendation it is
// about or, failing that, the sender's profile.
func TargetLink(r NotificationRecord) Link {
	switch {
	case r.Kind == KindAnnouncement && r.RecommendationID == "":
		return Link{Template: NotificationsLinkTemplate}
	case r.RecommendationID != "" && r.Kind != KindFollow:
		return Link{
			Template: RecommendationLinkTemplate,
			Params:   map[string]string{"recommendationId": r.RecommendationID},
		}
	default:
		return Link{
			Template: ProfileLinkTemplate,
			Params:   map[string]string{"userId": r.SenderID},
		}
	}
}
