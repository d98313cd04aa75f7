// Package service содержит изменения состояния по запросам: сначала сохранение,
// затем передача события realtime-обработчикам.
package service

import (
	"context"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
)

// ForumEvents реализует events.Forum.
type ForumEvents interface {
	PostCreated(post *domain.ForumPost)
	PostUpdated(postID string)
	LikeUpdated(postID string, likeCount int, likedBy string)
	CommentCreated(postID string, comment *domain.ForumComment)
}

// ChatEvents реализует events.Chat.
type ChatEvents interface {
	MessageSent(msg *domain.ChatMessage)
	MessageRead(messageID, readerID, otherPartyID string)
}

// NotificationEvents реализует events.Notifications.
type NotificationEvents interface {
	Notify(n *domain.Notification) int
}

// ApplicationEvents реализует events.Applications.
type ApplicationEvents interface {
	StatusChanged(app *domain.Application)
}

// NotificationCreator сохраняет и отправляет одно уведомление.
type NotificationCreator interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}
