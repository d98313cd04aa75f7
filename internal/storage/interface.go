package storage

import (
	"context"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
)

// PaginationArgs - пагинация курсором по порядку создания.
type PaginationArgs struct {
	Limit  int
	Cursor *string
}

// ListPostsArgs - фильтры списка постов.
type ListPostsArgs struct {
	Limit  int
	Offset int
	// IncludeHidden возвращает также скрытые и модерированные посты (для админа).
	IncludeHidden bool
	Category      string
}

// PostCounter - имя столбца-счетчика поста.
type PostCounter string

const (
	CounterViews    PostCounter = "views_count"
	CounterLikes    PostCounter = "likes_count"
	CounterComments PostCounter = "comments_count"
)

// Storage определяет методы для работы с хранилищем данных. Поиск отсутствующей
// записи возвращает ошибку, совпадающую с domain.ErrNotFound.
type Storage interface {
	// Transaction выполняет fn в транзакции; ошибка из fn откатывает
	// все изменения, сделанные через tx.
	Transaction(ctx context.Context, fn func(tx Storage) error) error

	CreatePost(ctx context.Context, post *domain.ForumPost) (*domain.ForumPost, error)
	GetPostByID(ctx context.Context, id string) (*domain.ForumPost, error)
	ListPosts(ctx context.Context, args ListPostsArgs) ([]*domain.ForumPost, error)
	UpdatePost(ctx context.Context, post *domain.ForumPost) error
	// IncrementPostCounter меняет только один счетчик поста (не ниже нуля)
	// и возвращает новое значение.
	IncrementPostCounter(ctx context.Context, postID string, counter PostCounter, delta int) (int, error)

	CreateComment(ctx context.Context, comment *domain.ForumComment) (*domain.ForumComment, error)
	GetCommentsByPostID(ctx context.Context, postID string, args PaginationArgs) ([]*domain.ForumComment, error)

	HasLiked(ctx context.Context, postID, userID string) (bool, error)
	AddLike(ctx context.Context, like *domain.ForumPostLike) error
	RemoveLike(ctx context.Context, postID, userID string) error

	FindReport(ctx context.Context, postID, reporterUserID string) (*domain.ForumPostReport, error)
	CreateReport(ctx context.Context, report *domain.ForumPostReport) (*domain.ForumPostReport, error)
	GetReportsByPostID(ctx context.Context, postID string) ([]*domain.ForumPostReport, error)
	DeleteReportsByPostID(ctx context.Context, postID string) (int64, error)

	FindVote(ctx context.Context, postID, userID string) (*domain.PollVote, error)
	// UpsertVote вставляет голос или заменяет вариант у существующего голоса (post, user).
	UpsertVote(ctx context.Context, vote *domain.PollVote) error
	GetVotesByPostID(ctx context.Context, postID string) ([]*domain.PollVote, error)
	// GetVotesByPostIDs загружает голоса нескольких постов одним запросом (для dataloader).
	GetVotesByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.PollVote, error)

	CreateChatMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	GetChatMessage(ctx context.Context, id string) (*domain.ChatMessage, error)
	UpdateChatMessage(ctx context.Context, msg *domain.ChatMessage) error
	GetConversation(ctx context.Context, studentID, counselorID string, args PaginationArgs) ([]*domain.ChatMessage, error)

	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetNotification(ctx context.Context, id string) (*domain.Notification, error)
	UpdateNotification(ctx context.Context, n *domain.Notification) error
	GetNotificationsByUserID(ctx context.Context, userID string, args PaginationArgs) ([]*domain.Notification, error)

	CreateApplication(ctx context.Context, app *domain.Application) (*domain.Application, error)
	GetApplication(ctx context.Context, id string) (*domain.Application, error)
	UpdateApplication(ctx context.Context, app *domain.Application) error
}
