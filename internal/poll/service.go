package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/metrics"
	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// VoteUpdatePayload - тело poll_vote_update для одного получателя.
type VoteUpdatePayload struct {
	PostID       string       `json:"postId"`
	PollOptions  []OptionView `json:"pollOptions"`
	TotalVotes   *int         `json:"totalVotes,omitempty"`
	UserVotes    []string     `json:"userVotes"`
	ShowResults  bool         `json:"showResults"`
	VotingUserID string       `json:"votingUserId"`
	Timestamp    time.Time    `json:"timestamp"`
}

type Service struct {
	store   storage.Storage
	pub     realtime.Publisher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewService(store storage.Storage, pub realtime.Publisher, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		store:   store,
		pub:     pub,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Vote сохраняет выбор userID (заменяя прежний) и возвращает пересчитанные
// итоги. Затем каждое аутентифицированное соединение получает свое представление.
func (s *Service) Vote(ctx context.Context, postID, userID, optionID string) (Results, error) {
	var (
		res   Results
		voted *domain.ForumPost
	)
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.VisibleTo(userID) {
			return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		if !post.HasPoll() {
			return fmt.Errorf("post %s has no poll: %w", postID, domain.ErrValidation)
		}
		if !post.HasPollOption(optionID) {
			return fmt.Errorf("poll option %q: %w", optionID, domain.ErrValidation)
		}
		if post.PollEndsAt != nil && !s.now().Before(*post.PollEndsAt) {
			return domain.ErrPollClosed
		}

		if err := tx.UpsertVote(ctx, &domain.PollVote{PostID: postID, UserID: userID, OptionID: optionID}); err != nil {
			return err
		}
		// всегда пересчитываем по строкам, а не прибавляем дельту
		votes, err := tx.GetVotesByPostID(ctx, postID)
		if err != nil {
			return err
		}
		res = Tally(post, votes)
		voted = post
		return nil
	})
	if err != nil {
		return Results{}, err
	}

	s.metrics.VotesCast.Inc()
	n := s.Broadcast(voted, res, userID)
	s.log.WithFields(logrus.Fields{
		"post_id":   postID,
		"user_id":   userID,
		"total":     res.TotalVotes,
		"delivered": n,
	}).Debug("poll vote recorded")
	return res, nil
}

// Broadcast отправляет poll_vote_update каждому аутентифицированному соединению,
// которому виден post; данные фильтруются для получателя из одного подсчета res.
func (s *Service) Broadcast(post *domain.ForumPost, res Results, votingUserID string) int {
	at := s.now()
	return s.pub.SendEach(func(b realtime.Binding) (realtime.Message, bool) {
		if !b.Principal.IsAdmin() && !post.VisibleTo(b.Principal.UserID) {
			return realtime.Message{}, false
		}
		view := ViewFor(res, b.Principal)
		return realtime.Message{
			Type: realtime.TypePollVoteUpdate,
			Payload: VoteUpdatePayload{
				PostID:       res.PostID,
				PollOptions:  view.Options,
				TotalVotes:   view.TotalVotes,
				UserVotes:    view.UserVotes,
				ShowResults:  view.ShowResults,
				VotingUserID: votingUserID,
				Timestamp:    at,
			},
		}, true
	})
}

// Results возвращает опрос postID в том виде, в каком его может видеть viewer.
func (s *Service) Results(ctx context.Context, postID string, viewer auth.Principal) (View, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		return View{}, err
	}
	if !viewer.IsAdmin() && !post.VisibleTo(viewer.UserID) {
		return View{}, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	if !post.HasPoll() {
		return View{}, fmt.Errorf("poll of post %s: %w", postID, domain.ErrNotFound)
	}
	votes, err := s.store.GetVotesByPostID(ctx, postID)
	if err != nil {
		return View{}, err
	}
	return ViewFor(Tally(post, votes), viewer), nil
}

// Summarize строит опрос для viewer по уже загруженным голосам;
// nil, если опроса у поста нет.
func Summarize(post *domain.ForumPost, votes []*domain.PollVote, viewer auth.Principal) *View {
	if !post.HasPoll() {
		return nil
	}
	v := ViewFor(Tally(post, votes), viewer)
	return &v
}
