package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// newSQLiteStore открывает файловую SQLite базу; ":memory:" живет только в одном соединении.
func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestDialector(t *testing.T) {
	_, err := Dialector("postgres", "postgres://localhost/db")
	assert.NoError(t, err)
	_, err = Dialector("sqlite", "file.db")
	assert.NoError(t, err)
	_, err = Dialector("mysql", "")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
	runModerationSuite(t, newSQLiteStore)
}

// runStoreSuite проверяет контракт storage.Storage на любом диалекте.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Run("posts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		post, err := s.CreatePost(ctx, &domain.ForumPost{
			AuthorID:     "user-1",
			Content:      "Which city?",
			Tags:         []string{"germany", "housing"},
			PollQuestion: "Which city?",
			PollOptions:  []domain.PollOption{{ID: "1", Text: "Berlin"}, {ID: "2", Text: "Munich"}},
		})
		require.NoError(t, err)
		require.NotEmpty(t, post.ID)

		got, err := s.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"germany", "housing"}, []string(got.Tags))
		require.Len(t, got.PollOptions, 2)
		assert.Equal(t, "Munich", got.PollOptions[1].Text)

		got.ReportCount = 3
		got.IsHiddenByReports = true
		now := time.Now().UTC()
		got.HiddenAt = &now
		require.NoError(t, s.UpdatePost(ctx, got))

		visible, err := s.ListPosts(ctx, storage.ListPostsArgs{})
		require.NoError(t, err)
		assert.Empty(t, visible)

		all, err := s.ListPosts(ctx, storage.ListPostsArgs{IncludeHidden: true})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 3, all[0].ReportCount)
		assert.Equal(t, domain.StateHiddenByReports, all[0].State())

		// сброс в false должен сохраниться, а не пропуститься как нулевое значение
		got.IsHiddenByReports = false
		got.HiddenAt = nil
		got.ReportCount = 0
		require.NoError(t, s.UpdatePost(ctx, got))
		again, err := s.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.False(t, again.IsHiddenByReports)
		assert.Nil(t, again.HiddenAt)
		assert.Zero(t, again.ReportCount)

		_, err = s.GetPostByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.UpdatePost(ctx, &domain.ForumPost{ID: "missing", Content: "x"}), domain.ErrNotFound)
	})

	t.Run("comments and likes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		post, err := s.CreatePost(ctx, &domain.ForumPost{AuthorID: "user-1", Content: "post"})
		require.NoError(t, err)

		_, err = s.CreateComment(ctx, &domain.ForumComment{PostID: post.ID, AuthorID: "user-2", Content: "first"})
		require.NoError(t, err)
		_, err = s.CreateComment(ctx, &domain.ForumComment{PostID: "missing", AuthorID: "user-2", Content: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		comments, err := s.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 10})
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "first", comments[0].Content)

		like := &domain.ForumPostLike{PostID: post.ID, UserID: "user-2"}
		require.NoError(t, s.AddLike(ctx, like))
		require.NoError(t, s.AddLike(ctx, &domain.ForumPostLike{PostID: post.ID, UserID: "user-2"}))
		liked, err := s.HasLiked(ctx, post.ID, "user-2")
		require.NoError(t, err)
		assert.True(t, liked)

		require.NoError(t, s.RemoveLike(ctx, post.ID, "user-2"))
		liked, err = s.HasLiked(ctx, post.ID, "user-2")
		require.NoError(t, err)
		assert.False(t, liked)
	})

	t.Run("reports", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.FindReport(ctx, "p1", "user-2")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		for _, reporter := range []string{"user-2", "user-3"} {
			_, err := s.CreateReport(ctx, &domain.ForumPostReport{PostID: "p1", ReporterUserID: reporter, ReportReason: domain.ReasonSpam})
			require.NoError(t, err)
		}
		found, err := s.FindReport(ctx, "p1", "user-3")
		require.NoError(t, err)
		assert.Equal(t, domain.ReasonSpam, found.ReportReason)

		n, err := s.DeleteReportsByPostID(ctx, "p1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		reports, err := s.GetReportsByPostID(ctx, "p1")
		require.NoError(t, err)
		assert.Empty(t, reports)
	})

	t.Run("votes upsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.UpsertVote(ctx, &domain.PollVote{PostID: "p1", UserID: "user-2", OptionID: "1"}))
		require.NoError(t, s.UpsertVote(ctx, &domain.PollVote{PostID: "p1", UserID: "user-2", OptionID: "2"}))
		require.NoError(t, s.UpsertVote(ctx, &domain.PollVote{PostID: "p2", UserID: "user-2", OptionID: "1"}))

		votes, err := s.GetVotesByPostID(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, "2", votes[0].OptionID)

		byPost, err := s.GetVotesByPostIDs(ctx, []string{"p1", "p2", "p3"})
		require.NoError(t, err)
		assert.Len(t, byPost["p1"], 1)
		assert.Len(t, byPost["p2"], 1)
		assert.Empty(t, byPost["p3"])
	})

	t.Run("transaction rollback", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		post, err := s.CreatePost(ctx, &domain.ForumPost{AuthorID: "user-1", Content: "post"})
		require.NoError(t, err)
		boom := errors.New("boom")

		err = s.Transaction(ctx, func(tx storage.Storage) error {
			if _, err := tx.CreateReport(ctx, &domain.ForumPostReport{PostID: post.ID, ReporterUserID: "user-2", ReportReason: domain.ReasonOther}); err != nil {
				return err
			}
			p, err := tx.GetPostByID(ctx, post.ID)
			if err != nil {
				return err
			}
			p.ReportCount++
			if err := tx.UpdatePost(ctx, p); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := s.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Zero(t, got.ReportCount)
		reports, err := s.GetReportsByPostID(ctx, post.ID)
		require.NoError(t, err)
		assert.Empty(t, reports)
	})

	t.Run("chat notifications applications", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		msg, err := s.CreateChatMessage(ctx, &domain.ChatMessage{StudentID: "s1", CounselorID: "c1", SenderID: "s1", Message: "hello"})
		require.NoError(t, err)
		msg.IsRead = true
		require.NoError(t, s.UpdateChatMessage(ctx, msg))
		conv, err := s.GetConversation(ctx, "s1", "c1", storage.PaginationArgs{})
		require.NoError(t, err)
		require.Len(t, conv, 1)
		assert.True(t, conv[0].IsRead)

		n, err := s.CreateNotification(ctx, &domain.Notification{UserID: "s1", Type: domain.NotificationSystem, Title: "welcome"})
		require.NoError(t, err)
		got, err := s.GetNotification(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, "welcome", got.Title)
		list, err := s.GetNotificationsByUserID(ctx, "s1", storage.PaginationArgs{Limit: 5})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		app, err := s.CreateApplication(ctx, &domain.Application{StudentID: "s1", UniversityName: "UofT", CourseName: "CS", Status: domain.ApplicationSubmitted})
		require.NoError(t, err)
		app.Status = domain.ApplicationAccepted
		require.NoError(t, s.UpdateApplication(ctx, app))
		gotApp, err := s.GetApplication(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationAccepted, gotApp.Status)
		_, err = s.GetApplication(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
