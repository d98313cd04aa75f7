package events

import (
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
)

type PostCreatedPayload struct {
	Post *domain.ForumPost `json:"post"`
}

type PostUpdatedPayload struct {
	PostID string `json:"postId"`
}

type LikeUpdatePayload struct {
	PostID    string `json:"postId"`
	LikeCount int    `json:"likeCount"`
	LikedBy   string `json:"likedBy"`
}

type CommentCreatedPayload struct {
	PostID  string               `json:"postId"`
	Comment *domain.ForumComment `json:"comment"`
}

// Forum рассылает публичные события форума во все открытые соединения.
// Обновления опросов зависят от зрителя и идут через пакет poll.
type Forum struct {
	handler
}

func NewForum(pub realtime.Publisher, log logrus.FieldLogger) *Forum {
	return &Forum{handler: newHandler(pub, log)}
}

func (h *Forum) PostCreated(post *domain.ForumPost) {
	h.toAll(realtime.TypeForumPostCreated, PostCreatedPayload{Post: post})
}

// PostUpdated передает только id: клиент перезапрашивает пост, и к ответу
// применяются правила видимости.
func (h *Forum) PostUpdated(postID string) {
	h.toAll(realtime.TypeForumPostUpdated, PostUpdatedPayload{PostID: postID})
}

func (h *Forum) LikeUpdated(postID string, likeCount int, likedBy string) {
	h.toAll(realtime.TypeForumPostLikeUpdate, LikeUpdatePayload{
		PostID:    postID,
		LikeCount: likeCount,
		LikedBy:   likedBy,
	})
}

func (h *Forum) CommentCreated(postID string, comment *domain.ForumComment) {
	h.toAll(realtime.TypeForumCommentCreated, CommentCreatedPayload{PostID: postID, Comment: comment})
}
