// Package moderation управляет видимостью постов форума по жалобам.
package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/metrics"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// DefaultHideThreshold - число жалоб, после которого видимый пост скрывается.
const DefaultHideThreshold = 3

// Announcer сообщает подключенным клиентам, что пост изменился.
type Announcer interface {
	PostUpdated(postID string)
}

// Notifier сохраняет и отправляет уведомление одному пользователю.
type Notifier interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}

type ReportInput struct {
	PostID     string
	ReporterID string
	Reason     domain.ReportReason
	Details    string
}

// ReportResult сообщает, скрыла ли эта жалоба пост.
type ReportResult struct {
	ReportCount int                    `json:"reportCount"`
	Hidden      bool                   `json:"hidden"`
	State       domain.ModerationState `json:"state"`
}

type Service struct {
	store     storage.Storage
	announcer Announcer
	notifier  Notifier
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	threshold int
	now       func() time.Time
}

// NewService создает машину состояний. notifier может быть nil; threshold <= 0 означает DefaultHideThreshold.
func NewService(store storage.Storage, announcer Announcer, notifier Notifier, m *metrics.Metrics, log logrus.FieldLogger, threshold int) *Service {
	if threshold <= 0 {
		threshold = DefaultHideThreshold
	}
	return &Service{
		store:     store,
		announcer: announcer,
		notifier:  notifier,
		metrics:   m,
		log:       log,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Report сохраняет жалобу пользователя. Повторная жалоба того же пользователя
// возвращает domain.ErrDuplicateReport и ничего не меняет. При достижении порога
// видимый пост скрывается; у уже скрытого поста только растет счетчик.
func (s *Service) Report(ctx context.Context, in ReportInput) (ReportResult, error) {
	if !in.Reason.Valid() {
		return ReportResult{}, fmt.Errorf("report reason %q: %w", in.Reason, domain.ErrValidation)
	}

	var (
		res    ReportResult
		hidden *domain.ForumPost
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, in.PostID)
		if err != nil {
			return err
		}
		if post.State() == domain.StatePermanentlyModerated {
			return fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
		}

		_, err = tx.FindReport(ctx, in.PostID, in.ReporterID)
		switch {
		case err == nil:
			return domain.ErrDuplicateReport
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		_, err = tx.CreateReport(ctx, &domain.ForumPostReport{
			PostID:         in.PostID,
			ReporterUserID: in.ReporterID,
			ReportReason:   in.Reason,
			ReportDetails:  in.Details,
			CreatedAt:      s.now(),
		})
		if err != nil {
			return err
		}

		post.ReportCount++
		if post.State() == domain.StateVisible && post.ReportCount >= s.threshold {
			now := s.now()
			post.IsHiddenByReports = true
			post.HiddenAt = &now
			res.Hidden = true
			hidden = post
		}
		if err := tx.UpdatePost(ctx, post); err != nil {
			return err
		}
		res.ReportCount = post.ReportCount
		res.State = post.State()
		return nil
	})
	if err != nil {
		return ReportResult{}, err
	}

	s.metrics.ReportsFiled.Inc()
	log := s.log.WithFields(logrus.Fields{
		"post_id":      in.PostID,
		"reporter_id":  in.ReporterID,
		"report_count": res.ReportCount,
	})
	log.Info("post reported")

	if hidden != nil {
		s.metrics.PostsHidden.Inc()
		log.Warn("post hidden by reports")
		s.announcer.PostUpdated(hidden.ID)
		s.notifyAuthor(ctx, hidden, "Your post was hidden",
			"Your post received several reports and is hidden until a moderator reviews it.")
	}
	return res, nil
}

// Restore возвращает пост в видимые и стирает историю жалоб, так что
// прежние авторы жалоб могут пожаловаться снова.
func (s *Service) Restore(ctx context.Context, postID, adminID string) (*domain.ForumPost, error) {
	var restored *domain.ForumPost
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.State() == domain.StatePermanentlyModerated {
			return fmt.Errorf("restore %s post: %w", post.State(), domain.ErrInvalidTransition)
		}
		post.ReportCount = 0
		post.IsHiddenByReports = false
		post.HiddenAt = nil
		if err := tx.UpdatePost(ctx, post); err != nil {
			return err
		}
		if _, err := tx.DeleteReportsByPostID(ctx, postID); err != nil {
			return err
		}
		restored = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ModerationActions.WithLabelValues("restore").Inc()
	s.log.WithFields(logrus.Fields{"post_id": postID, "admin_id": adminID}).Info("post restored")
	s.announcer.PostUpdated(postID)
	return restored, nil
}

// PermanentlyModerate убирает пост из выдачи для всех пользователей. Это решение
// админа, оно применимо и к видимым, и к скрытым постам.
func (s *Service) PermanentlyModerate(ctx context.Context, postID, adminID string) (*domain.ForumPost, error) {
	var moderated *domain.ForumPost
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.State() == domain.StatePermanentlyModerated {
			return fmt.Errorf("post %s already moderated: %w", post.ID, domain.ErrInvalidTransition)
		}
		now := s.now()
		post.IsModerated = true
		post.ModeratorID = &adminID
		post.ModeratedAt = &now
		if err := tx.UpdatePost(ctx, post); err != nil {
			return err
		}
		moderated = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ModerationActions.WithLabelValues("moderate").Inc()
	s.log.WithFields(logrus.Fields{"post_id": postID, "admin_id": adminID}).Info("post permanently moderated")
	s.announcer.PostUpdated(postID)
	s.notifyAuthor(ctx, moderated, "Your post was removed",
		"A moderator removed your post from the forum.")
	return moderated, nil
}

// ListReports возвращает жалобы на пост, сначала старые.
func (s *Service) ListReports(ctx context.Context, postID string) ([]*domain.ForumPostReport, error) {
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.GetReportsByPostID(ctx, postID)
}

// notifyAuthor - побочный эффект: ошибки только логируются и не доходят до вызывающего.
func (s *Service) notifyAuthor(ctx context.Context, post *domain.ForumPost, title, message string) {
	if s.notifier == nil {
		return
	}
	data, _ := json.Marshal(map[string]string{"postId": post.ID})
	_, err := s.notifier.Create(ctx, &domain.Notification{
		UserID:  post.AuthorID,
		Type:    domain.NotificationForumModeration,
		Title:   title,
		Message: message,
		Data:    data,
	})
	if err != nil {
		s.log.WithError(err).WithField("post_id", post.ID).Error("failed to notify post author")
	}
}
