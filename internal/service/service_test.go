package service

import (
	"sync"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
)

// eventLog записывает все события, которые сервисы передают наружу.
type eventLog struct {
	mu     sync.Mutex
	events []string
	posts  []*domain.ForumPost
	likes  []int
	chat   []*domain.ChatMessage
	reads  [][3]string
	notes  []*domain.Notification
	apps   []*domain.Application
}

func (l *eventLog) add(name string) {
	l.events = append(l.events, name)
}

func (l *eventLog) PostCreated(post *domain.ForumPost) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("post_created")
	l.posts = append(l.posts, post)
}

func (l *eventLog) PostUpdated(postID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("post_updated")
}

func (l *eventLog) LikeUpdated(postID string, likeCount int, likedBy string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("like_updated")
	l.likes = append(l.likes, likeCount)
}

func (l *eventLog) CommentCreated(postID string, comment *domain.ForumComment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("comment_created")
}

func (l *eventLog) MessageSent(msg *domain.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("message_sent")
	l.chat = append(l.chat, msg)
}

func (l *eventLog) MessageRead(messageID, readerID, otherPartyID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("message_read")
	l.reads = append(l.reads, [3]string{messageID, readerID, otherPartyID})
}

func (l *eventLog) Notify(n *domain.Notification) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("notify")
	l.notes = append(l.notes, n)
	return 1
}

func (l *eventLog) StatusChanged(app *domain.Application) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add("status_changed")
	l.apps = append(l.apps, app)
}
