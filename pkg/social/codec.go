package social

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tcgun/tavsiyece-sub000/internal/utils"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

// UnknownName is shown for authors and senders whose user record cannot be read.
const UnknownName = "unknown"

const generatedAvatarURL = "https://ui-avatars.com/api/"

// GeneratedAvatar returns an avatar URL rendered from name.
func GeneratedAvatar(name string) string {
	v := url.Values{}
	v.Set("name", name)
	v.Set("background", "random")
	return generatedAvatarURL + "?" + v.Encode()
}

// PlaceholderProfile stands in for a user that cannot be resolved.
func PlaceholderProfile(userID string) ProfileSummary {
	return ProfileSummary{
		ID:     userID,
		Name:   UnknownName,
		Avatar: GeneratedAvatar(UnknownName),
	}
}

// ProfileFromDocument reads a user document. A missing avatar is generated
// from the name.
func ProfileFromDocument(doc *storage.Document) ProfileSummary {
	p := ProfileSummary{
		ID:       doc.ID,
		Name:     doc.Fields.String(FieldName),
		Username: doc.Fields.String(FieldUsername),
		Avatar:   doc.Fields.String(FieldAvatar),
	}
	if p.Name == "" {
		p.Name = p.Username
	}
	if p.Avatar == "" {
		p.Avatar = GeneratedAvatar(p.Name)
	}
	return p
}

func UserFromDocument(doc *storage.Document) User {
	followers, _ := doc.Fields.Int(FieldFollowersCount)
	following, _ := doc.Fields.Int(FieldFollowingCount)
	recommendations, _ := doc.Fields.Int(FieldRecommendationsCount)

	return User{
		ProfileSummary:       ProfileFromDocument(doc),
		Bio:                  doc.Fields.String(FieldBio),
		FollowersCount:       followers,
		FollowingCount:       following,
		RecommendationsCount: recommendations,
	}
}

func RecommendationFromDocument(doc *storage.Document) Recommendation {
	return Recommendation{
		ID:        doc.ID,
		UserID:    doc.Fields.String(FieldUserID),
		Title:     doc.Fields.String(FieldTitle),
		Category:  doc.Fields.String(FieldCategory),
		Text:      doc.Fields.String(FieldText),
		Image:     doc.Fields.String(FieldImage),
		Keywords:  doc.Fields.Strings(FieldKeywords),
		CreatedAt: doc.Fields.Time(FieldCreatedAt),
	}
}

// Fields returns the document of r, search fields included.
func (r Recommendation) Fields() storage.Fields {
	lower := cases.Lower(language.Turkish)
	fields := storage.Fields{
		FieldUserID:        r.UserID,
		FieldTitle:         r.Title,
		FieldTitleLower:    lower.String(r.Title),
		FieldCategory:      r.Category,
		FieldCategoryLower: lower.String(r.Category),
		FieldText:          r.Text,
		FieldKeywords:      Keywords(r.Title, r.Category, r.Text),
		FieldCreatedAt:     r.CreatedAt,
	}
	if r.Image != "" {
		fields[FieldImage] = r.Image
	}
	return fields
}

// Keywords returns the distinct lowercase words of texts, in order of first
// appearance. Words shorter than two letters are skipped.
func Keywords(texts ...string) []string {
	lower := cases.Lower(language.Turkish)

	var words []string
	for _, text := range texts {
		for _, w := range strings.FieldsFunc(lower.String(text), isSeparator) {
			if len([]rune(w)) < 2 {
				continue
			}
			words = append(words, w)
		}
	}

	return utils.Uniq(words)
}

func isSeparator(r rune) bool {
	return !(r == '-' || r == '\'' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r > 127)
}

func CommentFromDocument(doc *storage.Document) Comment {
	return Comment{
		ID:         doc.ID,
		UserID:     doc.Fields.String(FieldUserID),
		UserName:   doc.Fields.String(FieldUserName),
		UserAvatar: doc.Fields.String(FieldUserAvatar),
		Text:       doc.Fields.String(FieldText),
		ParentID:   doc.Fields.String(FieldParentID),
		CreatedAt:  doc.Fields.Time(FieldCreatedAt),
	}
}

func (c Comment) Fields() storage.Fields {
	fields := storage.Fields{
		FieldUserID:     c.UserID,
		FieldUserName:   c.UserName,
		FieldUserAvatar: c.UserAvatar,
		FieldText:       c.Text,
		FieldCreatedAt:  c.CreatedAt,
	}
	if c.ParentID != "" {
		fields[FieldParentID] = c.ParentID
	}
	return fields
}

func NotificationFromDocument(doc *storage.Document) NotificationRecord {
	return NotificationRecord{
		ID:               doc.ID,
		SenderID:         doc.Fields.String(FieldSenderID),
		SenderName:       doc.Fields.String(FieldSenderName),
		SenderAvatar:     doc.Fields.String(FieldSenderAvatar),
		Kind:             NotificationKind(doc.Fields.String(FieldType)),
		RecommendationID: doc.Fields.String(FieldRecommendationID),
		Message:          doc.Fields.String(FieldMessage),
		ImageURL:         doc.Fields.String(FieldImageURL),
		IsRead:           doc.Fields.Bool(FieldIsRead),
		CreatedAt:        doc.Fields.Time(FieldCreatedAt),
	}
}

func (n NotificationRecord) Fields() storage.Fields {
	fields := storage.Fields{
		FieldSenderID:     n.SenderID,
		FieldSenderName:   n.SenderName,
		FieldSenderAvatar: n.SenderAvatar,
		FieldType:         string(n.Kind),
		FieldIsRead:       n.IsRead,
		FieldCreatedAt:    n.CreatedAt,
	}
	if n.RecommendationID != "" {
		fields[FieldRecommendationID] = n.RecommendationID
	}
	if n.Message != "" {
		fields[FieldMessage] = n.Message
	}
	if n.ImageURL != "" {
		fields[FieldImageURL] = n.ImageURL
	}
	return fields
}
