package gormstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/logging"
	"github.com/UkralStul/studyabroad-realtime/internal/metrics"
	"github.com/UkralStul/studyabroad-realtime/internal/moderation"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

type nopAnnouncer struct{}

func (nopAnnouncer) PostUpdated(string) {}

type nopNotifier struct{}

func (nopNotifier) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	return n, nil
}

func newModeration(s *Store) *moderation.Service {
	return moderation.NewService(s, nopAnnouncer{}, nopNotifier{}, metrics.NewUnregistered(), logging.Discard(), moderation.DefaultHideThreshold)
}

// runModerationSuite проверяет, что счетчики и модерация не затирают друг друга.
func runModerationSuite(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Run("counter update keeps moderation flags", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		post, err := s.CreatePost(ctx, &domain.ForumPost{AuthorID: "author", Content: "post"})
		require.NoError(t, err)

		// копия прочитана до скрытия поста
		stale, err := s.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		require.False(t, stale.IsHiddenByReports)

		mod := newModeration(s)
		for _, reporter := range []string{"b", "c", "d"} {
			_, err := mod.Report(ctx, moderation.ReportInput{PostID: post.ID, ReporterID: reporter, Reason: domain.ReasonSpam})
			require.NoError(t, err)
		}

		require.NoError(t, s.Transaction(ctx, func(tx storage.Storage) error {
			views, err := tx.IncrementPostCounter(ctx, stale.ID, storage.CounterViews, 1)
			stale.ViewsCount = views
			return err
		}))
		_, err = s.IncrementPostCounter(ctx, stale.ID, storage.CounterLikes, 1)
		require.NoError(t, err)
		_, err = s.IncrementPostCounter(ctx, stale.ID, storage.CounterComments, 1)
		require.NoError(t, err)

		got, err := s.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.True(t, got.IsHiddenByReports)
		assert.NotNil(t, got.HiddenAt)
		assert.Equal(t, 3, got.ReportCount)
		assert.Equal(t, 1, got.ViewsCount)
		assert.Equal(t, 1, got.LikesCount)
		assert.Equal(t, 1, got.CommentsCount)
	})

	t.Run("counter clamps at zero", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		post, err := s.CreatePost(ctx, &domain.ForumPost{AuthorID: "author", Content: "post"})
		require.NoError(t, err)

		n, err := s.IncrementPostCounter(ctx, post.ID, storage.CounterLikes, -1)
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = s.IncrementPostCounter(ctx, "missing", storage.CounterViews, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.IncrementPostCounter(ctx, post.ID, storage.PostCounter("report_count"), 1)
		assert.Error(t, err)
	})

	t.Run("concurrent duplicate reports count once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		post, err := s.CreatePost(ctx, &domain.ForumPost{AuthorID: "author", Content: "post"})
		require.NoError(t, err)
		mod := newModeration(s)

		const attempts = 5
		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			accepted   int
			duplicates int
			other      []error
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := mod.Report(ctx, moderation.ReportInput{PostID: post.ID, ReporterID: "b", Reason: domain.ReasonSpam})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					accepted++
				case errors.Is(err, domain.ErrDuplicateReport):
					duplicates++
				default:
					other = append(other, err)
				}
			}()
		}
		wg.Wait()

		require.Empty(t, other, fmt.Sprint(other))
		assert.Equal(t, 1, accepted)
		assert.Equal(t, attempts-1, duplicates)

		got, err := s.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReportCount)
		reports, err := s.GetReportsByPostID(ctx, post.ID)
		require.NoError(t, err)
		assert.Len(t, reports, 1)
	})
}
