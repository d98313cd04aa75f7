package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// newTestStore создает хранилище с управляемыми часами и один пост с опросом
func newTestStore(t *testing.T) (*Store, *domain.ForumPost) {
	t.Helper()
	store := New()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	post, err := store.CreatePost(context.Background(), &domain.ForumPost{
		AuthorID:     "user-1",
		Content:      "Which city?",
		PollQuestion: "Which city?",
		PollOptions:  []domain.PollOption{{ID: "1", Text: "Berlin"}, {ID: "2", Text: "Toronto"}},
	})
	require.NoError(t, err)
	return store, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Content, retrieved.Content)
	assert.Equal(t, domain.StateVisible, retrieved.State())

	_, err = store.GetPostByID(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetPostReturnsCopy(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	got.ReportCount = 42

	again, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, again.ReportCount)
}

func TestStore_ListPostsHidesModerated(t *testing.T) {
	store, first := newTestStore(t)
	ctx := context.Background()

	second, err := store.CreatePost(ctx, &domain.ForumPost{AuthorID: "user-2", Content: "second", Category: "visa"})
	require.NoError(t, err)
	third, err := store.CreatePost(ctx, &domain.ForumPost{AuthorID: "user-3", Content: "third", Category: "visa"})
	require.NoError(t, err)

	third.IsHiddenByReports = true
	require.NoError(t, store.UpdatePost(ctx, third))

	posts, err := store.ListPosts(ctx, storage.ListPostsArgs{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID, "newest first")
	assert.Equal(t, first.ID, posts[1].ID)

	all, err := store.ListPosts(ctx, storage.ListPostsArgs{IncludeHidden: true, Category: "visa"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, third.ID, all[0].ID)

	page, err := store.ListPosts(ctx, storage.ListPostsArgs{IncludeHidden: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestStore_UpdateMissingPost(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.UpdatePost(context.Background(), &domain.ForumPost{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_IncrementPostCounterTouchesOnlyItsColumn(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	stale, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)

	hidden := *stale
	hidden.ReportCount = 3
	hidden.IsHiddenByReports = true
	require.NoError(t, store.UpdatePost(ctx, &hidden))

	n, err := store.IncrementPostCounter(ctx, stale.ID, storage.CounterViews, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.IncrementPostCounter(ctx, stale.ID, storage.CounterLikes, -1)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsHiddenByReports)
	assert.Equal(t, 3, got.ReportCount)
	assert.Equal(t, 1, got.ViewsCount)

	_, err = store.IncrementPostCounter(ctx, "missing", storage.CounterViews, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.IncrementPostCounter(ctx, post.ID, storage.PostCounter("report_count"), 1)
	assert.Error(t, err)
}

func TestStore_CommentsPagination(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		c, err := store.CreateComment(ctx, &domain.ForumComment{PostID: post.ID, AuthorID: "user-2", Content: text})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	page, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].Content)

	cursor := ids[1]
	rest, err := store.GetCommentsByPostID(ctx, post.ID, storage.PaginationArgs{Limit: 2, Cursor: &cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Content)

	_, err = store.CreateComment(ctx, &domain.ForumComment{PostID: "missing", AuthorID: "x", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Likes(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	liked, err := store.HasLiked(ctx, post.ID, "user-2")
	require.NoError(t, err)
	assert.False(t, liked)

	require.NoError(t, store.AddLike(ctx, &domain.ForumPostLike{PostID: post.ID, UserID: "user-2"}))
	liked, err = store.HasLiked(ctx, post.ID, "user-2")
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, store.RemoveLike(ctx, post.ID, "user-2"))
	liked, err = store.HasLiked(ctx, post.ID, "user-2")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestStore_Reports(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindReport(ctx, post.ID, "user-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, reporter := range []string{"user-2", "user-3"} {
		_, err := store.CreateReport(ctx, &domain.ForumPostReport{PostID: post.ID, ReporterUserID: reporter, ReportReason: domain.ReasonSpam})
		require.NoError(t, err)
	}

	found, err := store.FindReport(ctx, post.ID, "user-3")
	require.NoError(t, err)
	assert.Equal(t, "user-3", found.ReporterUserID)

	reports, err := store.GetReportsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "user-2", reports[0].ReporterUserID)

	n, err := store.DeleteReportsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	reports, err = store.GetReportsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestStore_UpsertVoteKeepsOneRowPerUser(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertVote(ctx, &domain.PollVote{PostID: post.ID, UserID: "user-2", OptionID: "1"}))
	first, err := store.FindVote(ctx, post.ID, "user-2")
	require.NoError(t, err)

	require.NoError(t, store.UpsertVote(ctx, &domain.PollVote{PostID: post.ID, UserID: "user-2", OptionID: "2"}))
	votes, err := store.GetVotesByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "2", votes[0].OptionID)
	assert.Equal(t, first.ID, votes[0].ID)
	assert.True(t, votes[0].UpdatedAt.After(first.UpdatedAt))

	_, err = store.FindVote(ctx, post.ID, "user-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetVotesByPostIDs(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	other, err := store.CreatePost(ctx, &domain.ForumPost{AuthorID: "user-1", Content: "no poll"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertVote(ctx, &domain.PollVote{PostID: post.ID, UserID: "user-2", OptionID: "1"}))
	require.NoError(t, store.UpsertVote(ctx, &domain.PollVote{PostID: post.ID, UserID: "user-3", OptionID: "2"}))

	byPost, err := store.GetVotesByPostIDs(ctx, []string{post.ID, other.ID})
	require.NoError(t, err)
	assert.Len(t, byPost[post.ID], 2)
	assert.Empty(t, byPost[other.ID])
}

func TestStore_TransactionRollsBack(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx storage.Storage) error {
		p, err := tx.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		p.ReportCount = 3
		p.IsHiddenByReports = true
		require.NoError(t, tx.UpdatePost(ctx, p))
		_, err = tx.CreateReport(ctx, &domain.ForumPostReport{PostID: post.ID, ReporterUserID: "user-2", ReportReason: domain.ReasonOther})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ReportCount)
	assert.False(t, got.IsHiddenByReports)

	reports, err := store.GetReportsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestStore_TransactionCommits(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx storage.Storage) error {
		return tx.UpsertVote(ctx, &domain.PollVote{PostID: post.ID, UserID: "user-2", OptionID: "1"})
	})
	require.NoError(t, err)

	_, err = store.FindVote(ctx, post.ID, "user-2")
	assert.NoError(t, err)
}

func TestStore_ConversationAndNotifications(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateChatMessage(ctx, &domain.ChatMessage{StudentID: "s1", CounselorID: "c1", SenderID: "s1", Message: "hello"})
	require.NoError(t, err)
	_, err = store.CreateChatMessage(ctx, &domain.ChatMessage{StudentID: "s2", CounselorID: "c1", SenderID: "c1", Message: "other"})
	require.NoError(t, err)
	reply, err := store.CreateChatMessage(ctx, &domain.ChatMessage{StudentID: "s1", CounselorID: "c1", SenderID: "c1", Message: "hi"})
	require.NoError(t, err)

	conv, err := store.GetConversation(ctx, "s1", "c1", storage.PaginationArgs{})
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "hello", conv[0].Message)
	assert.Equal(t, reply.ID, conv[1].ID)

	for _, title := range []string{"old", "new"} {
		_, err := store.CreateNotification(ctx, &domain.Notification{UserID: "s1", Type: domain.NotificationSystem, Title: title})
		require.NoError(t, err)
	}
	list, err := store.GetNotificationsByUserID(ctx, "s1", storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)
}

func TestStore_Applications(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	app, err := store.CreateApplication(ctx, &domain.Application{StudentID: "s1", UniversityName: "TU Berlin", CourseName: "CS", Status: domain.ApplicationSubmitted})
	require.NoError(t, err)

	app.Status = domain.ApplicationUnderReview
	require.NoError(t, store.UpdateApplication(ctx, app))

	got, err := store.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationUnderReview, got.Status)

	_, err = store.GetApplication(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
