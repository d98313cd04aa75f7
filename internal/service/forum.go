package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

const (
	maxPostLength    = 10000
	maxCommentLength = 2000
	maxPollOptions   = 10
)

type CreatePostInput struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	Images       []string   `json:"images"`
	PollQuestion string     `json:"pollQuestion"`
	PollOptions  []string   `json:"pollOptions"`
	PollEndsAt   *time.Time `json:"pollEndsAt"`
}

// UpdatePostInput меняет только заданные поля.
type UpdatePostInput struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

type Forum struct {
	store    storage.Storage
	events   ForumEvents
	notifier NotificationCreator
	log      logrus.FieldLogger
}

func NewForum(store storage.Storage, events ForumEvents, notifier NotificationCreator, log logrus.FieldLogger) *Forum {
	return &Forum{store: store, events: events, notifier: notifier, log: log}
}

func validateContent(content string, max int) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("content is required: %w", domain.ErrValidation)
	}
	if len(content) > max {
		return fmt.Errorf("content is too long: %w", domain.ErrValidation)
	}
	return nil
}

// CreatePost проверяет ввод и нумерует варианты опроса "1".."n".
func (s *Forum) CreatePost(ctx context.Context, authorID string, in CreatePostInput) (*domain.ForumPost, error) {
	if err := validateContent(in.Content, maxPostLength); err != nil {
		return nil, err
	}
	post := &domain.ForumPost{
		AuthorID: authorID,
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Category: in.Category,
		Tags:     in.Tags,
		Images:   in.Images,
	}

	question := strings.TrimSpace(in.PollQuestion)
	switch {
	case question == "" && len(in.PollOptions) > 0:
		return nil, fmt.Errorf("poll options without a question: %w", domain.ErrValidation)
	case question != "":
		if len(in.PollOptions) < 2 || len(in.PollOptions) > maxPollOptions {
			return nil, fmt.Errorf("a poll needs between 2 and %d options: %w", maxPollOptions, domain.ErrValidation)
		}
		options := make([]domain.PollOption, 0, len(in.PollOptions))
		for i, text := range in.PollOptions {
			text = strings.TrimSpace(text)
			if text == "" {
				return nil, fmt.Errorf("poll option %d is empty: %w", i+1, domain.ErrValidation)
			}
			options = append(options, domain.PollOption{ID: strconv.Itoa(i + 1), Text: text})
		}
		post.PollQuestion = question
		post.PollOptions = options
		post.PollEndsAt = in.PollEndsAt
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.events.PostCreated(created)
	return created, nil
}

// UpdatePost доступен только автору.
func (s *Forum) UpdatePost(ctx context.Context, editor auth.Principal, postID string, in UpdatePostInput) (*domain.ForumPost, error) {
	var updated *domain.ForumPost
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.VisibleTo(editor.UserID) {
			return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		if post.AuthorID != editor.UserID {
			return fmt.Errorf("only the author can edit post %s: %w", postID, domain.ErrForbidden)
		}
		if in.Title != nil {
			post.Title = strings.TrimSpace(*in.Title)
		}
		if in.Content != nil {
			if err := validateContent(*in.Content, maxPostLength); err != nil {
				return err
			}
			post.Content = strings.TrimSpace(*in.Content)
		}
		if in.Category != nil {
			post.Category = *in.Category
		}
		if in.Tags != nil {
			post.Tags = *in.Tags
		}
		if err := tx.UpdatePost(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.PostUpdated(postID)
	return updated, nil
}

// GetPost засчитывает просмотр. Скрытый пост видят только автор и админы,
// модерированный только админы.
func (s *Forum) GetPost(ctx context.Context, viewer auth.Principal, postID string) (*domain.ForumPost, error) {
	var post *domain.ForumPost
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		p, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if !viewer.IsAdmin() && !p.VisibleTo(viewer.UserID) {
			return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		views, err := tx.IncrementPostCounter(ctx, postID, storage.CounterViews, 1)
		if err != nil {
			return err
		}
		p.ViewsCount = views
		post = p
		return nil
	})
	return post, err
}

// ListPosts возвращает видимые посты, сначала новые; админ видит также скрытые и модерированные.
func (s *Forum) ListPosts(ctx context.Context, viewer auth.Principal, args storage.ListPostsArgs) ([]*domain.ForumPost, error) {
	args.IncludeHidden = viewer.IsAdmin()
	if args.Limit <= 0 || args.Limit > 100 {
		args.Limit = 20
	}
	return s.store.ListPosts(ctx, args)
}

// ToggleLike ставит лайк или снимает его, если userID уже лайкнул.
func (s *Forum) ToggleLike(ctx context.Context, postID, userID string) (LikeResult, error) {
	var res LikeResult
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.VisibleTo(userID) {
			return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		liked, err := tx.HasLiked(ctx, postID, userID)
		if err != nil {
			return err
		}
		delta := 1
		if liked {
			if err := tx.RemoveLike(ctx, postID, userID); err != nil {
				return err
			}
			delta = -1
		} else {
			if err := tx.AddLike(ctx, &domain.ForumPostLike{PostID: postID, UserID: userID}); err != nil {
				return err
			}
		}
		likes, err := tx.IncrementPostCounter(ctx, postID, storage.CounterLikes, delta)
		if err != nil {
			return err
		}
		res = LikeResult{Liked: !liked, LikeCount: likes}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	s.events.LikeUpdated(postID, res.LikeCount, userID)
	return res, nil
}

// AddComment сохраняет комментарий, увеличивает commentsCount и уведомляет автора поста.
func (s *Forum) AddComment(ctx context.Context, postID, authorID, content string) (*domain.ForumComment, error) {
	if err := validateContent(content, maxCommentLength); err != nil {
		return nil, err
	}

	var (
		comment *domain.ForumComment
		post    *domain.ForumPost
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		p, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if !p.VisibleTo(authorID) {
			return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		c, err := tx.CreateComment(ctx, &domain.ForumComment{
			PostID:   postID,
			AuthorID: authorID,
			Content:  strings.TrimSpace(content),
		})
		if err != nil {
			return err
		}
		if p.CommentsCount, err = tx.IncrementPostCounter(ctx, postID, storage.CounterComments, 1); err != nil {
			return err
		}
		comment, post = c, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.CommentCreated(postID, comment)
	if post.AuthorID != authorID {
		data, _ := json.Marshal(map[string]string{"postId": postID, "commentId": comment.ID})
		_, err := s.notifier.Create(ctx, &domain.Notification{
			UserID:  post.AuthorID,
			Type:    domain.NotificationForumReply,
			Title:   "New comment on your post",
			Message: comment.Content,
			Data:    data,
		})
		if err != nil {
			s.log.WithError(err).WithField("post_id", postID).Error("failed to notify post author")
		}
	}
	return comment, nil
}

func (s *Forum) ListComments(ctx context.Context, viewer auth.Principal, postID string, args storage.PaginationArgs) ([]*domain.ForumComment, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !post.VisibleTo(viewer.UserID) {
		return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	return s.store.GetCommentsByPostID(ctx, postID, args)
}
