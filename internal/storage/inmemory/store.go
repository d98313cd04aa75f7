package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

type pairKey struct{ a, b string }

// state хранит все таблицы по значению, так что снимок - это копия map.
type state struct {
	posts     map[string]domain.ForumPost
	postOrder []string

	comments       map[string]domain.ForumComment
	commentsByPost map[string][]string

	likes   map[pairKey]domain.ForumPostLike
	reports map[string]domain.ForumPostReport
	votes   map[pairKey]domain.PollVote // ключ (postID, userID)

	chat      map[string]domain.ChatMessage
	chatOrder []string

	notifications map[string]domain.Notification
	notifOrder    []string

	applications map[string]domain.Application
}

func newState() *state {
	return &state{
		posts:          make(map[string]domain.ForumPost),
		comments:       make(map[string]domain.ForumComment),
		commentsByPost: make(map[string][]string),
		likes:          make(map[pairKey]domain.ForumPostLike),
		reports:        make(map[string]domain.ForumPostReport),
		votes:          make(map[pairKey]domain.PollVote),
		chat:           make(map[string]domain.ChatMessage),
		notifications:  make(map[string]domain.Notification),
		applications:   make(map[string]domain.Application),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *state) clone() *state {
	byPost := make(map[string][]string, len(st.commentsByPost))
	for k, v := range st.commentsByPost {
		byPost[k] = append([]string(nil), v...)
	}
	return &state{
		posts:          copyMap(st.posts),
		postOrder:      append([]string(nil), st.postOrder...),
		comments:       copyMap(st.comments),
		commentsByPost: byPost,
		likes:          copyMap(st.likes),
		reports:        copyMap(st.reports),
		votes:          copyMap(st.votes),
		chat:           copyMap(st.chat),
		chatOrder:      append([]string(nil), st.chatOrder...),
		notifications:  copyMap(st.notifications),
		notifOrder:     append([]string(nil), st.notifOrder...),
		applications:   copyMap(st.applications),
	}
}

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu   *sync.RWMutex
	st   *state
	inTx bool
	now  func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		mu:  &sync.RWMutex{},
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Внутри транзакции внешняя блокировка уже захвачена.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// Transaction держит блокировку на запись все время fn и восстанавливает
// снимок таблиц, если fn вернула ошибку.
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s with id %s: %w", kind, id, domain.ErrNotFound)
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.ForumPost) (*domain.ForumPost, error) {
	defer s.lock()()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	post.UpdatedAt = post.CreatedAt
	s.st.posts[post.ID] = *post
	s.st.postOrder = append(s.st.postOrder, post.ID)
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.ForumPost, error) {
	defer s.rlock()()

	post, ok := s.st.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, args storage.ListPostsArgs) ([]*domain.ForumPost, error) {
	defer s.rlock()()

	// сначала новые
	all := make([]*domain.ForumPost, 0, len(s.st.postOrder))
	for i := len(s.st.postOrder) - 1; i >= 0; i-- {
		p := s.st.posts[s.st.postOrder[i]]
		if !args.IncludeHidden && p.State() != domain.StateVisible {
			continue
		}
		if args.Category != "" && p.Category != args.Category {
			continue
		}
		all = append(all, &p)
	}

	start := args.Offset
	if start >= len(all) {
		return []*domain.ForumPost{}, nil
	}
	end := len(all)
	if args.Limit > 0 && start+args.Limit < end {
		end = start + args.Limit
	}
	return all[start:end], nil
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.ForumPost) error {
	defer s.lock()()

	if _, ok := s.st.posts[post.ID]; !ok {
		return notFound("post", post.ID)
	}
	post.UpdatedAt = s.now()
	s.st.posts[post.ID] = *post
	return nil
}

func (s *Store) IncrementPostCounter(ctx context.Context, postID string, counter storage.PostCounter, delta int) (int, error) {
	defer s.lock()()

	post, ok := s.st.posts[postID]
	if !ok {
		return 0, notFound("post", postID)
	}
	var field *int
	switch counter {
	case storage.CounterViews:
		field = &post.ViewsCount
	case storage.CounterLikes:
		field = &post.LikesCount
	case storage.CounterComments:
		field = &post.CommentsCount
	default:
		return 0, fmt.Errorf("unknown post counter %q", counter)
	}
	*field = max(*field+delta, 0)
	s.st.posts[postID] = post
	return *field, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.ForumComment) (*domain.ForumComment, error) {
	defer s.lock()()

	if _, ok := s.st.posts[comment.PostID]; !ok {
		return nil, notFound("post", comment.PostID)
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = s.now()
	s.st.comments[comment.ID] = *comment
	s.st.commentsByPost[comment.PostID] = append(s.st.commentsByPost[comment.PostID], comment.ID)
	return comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, args storage.PaginationArgs) ([]*domain.ForumComment, error) {
	defer s.rlock()()

	ids := paginate(s.st.commentsByPost[postID], args)
	out := make([]*domain.ForumComment, 0, len(ids))
	for _, id := range ids {
		c := s.st.comments[id]
		out = append(out, &c)
	}
	return out, nil
}

// paginate - вспомогательная функция для пагинации по упорядоченным id.
func paginate(ids []string, args storage.PaginationArgs) []string {
	startIndex := 0
	if args.Cursor != nil {
		for i, id := range ids {
			if id == *args.Cursor {
				startIndex = i + 1
				break
			}
		}
	}
	if startIndex >= len(ids) {
		return nil
	}
	endIndex := len(ids)
	if args.Limit > 0 && startIndex+args.Limit < endIndex {
		endIndex = startIndex + args.Limit
	}
	return ids[startIndex:endIndex]
}

// === Like Methods ===

func (s *Store) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	defer s.rlock()()
	_, ok := s.st.likes[pairKey{postID, userID}]
	return ok, nil
}

func (s *Store) AddLike(ctx context.Context, like *domain.ForumPostLike) error {
	defer s.lock()()
	if like.CreatedAt.IsZero() {
		like.CreatedAt = s.now()
	}
	s.st.likes[pairKey{like.PostID, like.UserID}] = *like
	return nil
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) error {
	defer s.lock()()
	delete(s.st.likes, pairKey{postID, userID})
	return nil
}

// === Report Methods ===

func (s *Store) FindReport(ctx context.Context, postID, reporterUserID string) (*domain.ForumPostReport, error) {
	defer s.rlock()()
	for _, r := range s.st.reports {
		if r.PostID == postID && r.ReporterUserID == reporterUserID {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("report of post %s by %s: %w", postID, reporterUserID, domain.ErrNotFound)
}

func (s *Store) CreateReport(ctx context.Context, report *domain.ForumPostReport) (*domain.ForumPostReport, error) {
	defer s.lock()()
	report.ID = uuid.NewString()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now()
	}
	s.st.reports[report.ID] = *report
	return report, nil
}

func (s *Store) GetReportsByPostID(ctx context.Context, postID string) ([]*domain.ForumPostReport, error) {
	defer s.rlock()()
	out := make([]*domain.ForumPostReport, 0)
	for _, r := range s.st.reports {
		r := r
		if r.PostID == postID {
			out = append(out, &r)
		}
	}
	sortByTime(out, func(r *domain.ForumPostReport) time.Time { return r.CreatedAt })
	return out, nil
}

func (s *Store) DeleteReportsByPostID(ctx context.Context, postID string) (int64, error) {
	defer s.lock()()
	var n int64
	for id, r := range s.st.reports {
		if r.PostID == postID {
			delete(s.st.reports, id)
			n++
		}
	}
	return n, nil
}

// === Vote Methods ===

func (s *Store) FindVote(ctx context.Context, postID, userID string) (*domain.PollVote, error) {
	defer s.rlock()()
	v, ok := s.st.votes[pairKey{postID, userID}]
	if !ok {
		return nil, fmt.Errorf("vote of %s on post %s: %w", userID, postID, domain.ErrNotFound)
	}
	return &v, nil
}

func (s *Store) UpsertVote(ctx context.Context, vote *domain.PollVote) error {
	defer s.lock()()
	key := pairKey{vote.PostID, vote.UserID}
	now := s.now()
	if existing, ok := s.st.votes[key]; ok {
		existing.OptionID = vote.OptionID
		existing.UpdatedAt = now
		s.st.votes[key] = existing
		*vote = existing
		return nil
	}
	vote.ID = uuid.NewString()
	vote.CreatedAt = now
	vote.UpdatedAt = now
	s.st.votes[key] = *vote
	return nil
}

func (s *Store) GetVotesByPostID(ctx context.Context, postID string) ([]*domain.PollVote, error) {
	defer s.rlock()()
	return s.votesFor(postID), nil
}

func (s *Store) GetVotesByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.PollVote, error) {
	defer s.rlock()()
	results := make(map[string][]*domain.PollVote, len(postIDs))
	for _, id := range postIDs {
		results[id] = s.votesFor(id)
	}
	return results, nil
}

func (s *Store) votesFor(postID string) []*domain.PollVote {
	out := make([]*domain.PollVote, 0)
	for k, v := range s.st.votes {
		v := v
		if k.a == postID {
			out = append(out, &v)
		}
	}
	sortByTime(out, func(v *domain.PollVote) time.Time { return v.CreatedAt })
	return out
}

// === Chat Methods ===

func (s *Store) CreateChatMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	defer s.lock()()
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now()
	s.st.chat[msg.ID] = *msg
	s.st.chatOrder = append(s.st.chatOrder, msg.ID)
	return msg, nil
}

func (s *Store) GetChatMessage(ctx context.Context, id string) (*domain.ChatMessage, error) {
	defer s.rlock()()
	m, ok := s.st.chat[id]
	if !ok {
		return nil, notFound("chat message", id)
	}
	return &m, nil
}

func (s *Store) UpdateChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	defer s.lock()()
	if _, ok := s.st.chat[msg.ID]; !ok {
		return notFound("chat message", msg.ID)
	}
	s.st.chat[msg.ID] = *msg
	return nil
}

func (s *Store) GetConversation(ctx context.Context, studentID, counselorID string, args storage.PaginationArgs) ([]*domain.ChatMessage, error) {
	defer s.rlock()()
	ids := make([]string, 0)
	for _, id := range s.st.chatOrder {
		m := s.st.chat[id]
		if m.StudentID == studentID && m.CounselorID == counselorID {
			ids = append(ids, id)
		}
	}
	page := paginate(ids, args)
	out := make([]*domain.ChatMessage, 0, len(page))
	for _, id := range page {
		m := s.st.chat[id]
		out = append(out, &m)
	}
	return out, nil
}

// === Notification Methods ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	defer s.lock()()
	n.ID = uuid.NewString()
	n.CreatedAt = s.now()
	s.st.notifications[n.ID] = *n
	s.st.notifOrder = append(s.st.notifOrder, n.ID)
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	defer s.rlock()()
	n, ok := s.st.notifications[id]
	if !ok {
		return nil, notFound("notification", id)
	}
	return &n, nil
}

func (s *Store) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	defer s.lock()()
	if _, ok := s.st.notifications[n.ID]; !ok {
		return notFound("notification", n.ID)
	}
	s.st.notifications[n.ID] = *n
	return nil
}

// GetNotificationsByUserID возвращает сначала новые уведомления.
func (s *Store) GetNotificationsByUserID(ctx context.Context, userID string, args storage.PaginationArgs) ([]*domain.Notification, error) {
	defer s.rlock()()
	ids := make([]string, 0)
	for i := len(s.st.notifOrder) - 1; i >= 0; i-- {
		id := s.st.notifOrder[i]
		if s.st.notifications[id].UserID == userID {
			ids = append(ids, id)
		}
	}
	page := paginate(ids, args)
	out := make([]*domain.Notification, 0, len(page))
	for _, id := range page {
		n := s.st.notifications[id]
		out = append(out, &n)
	}
	return out, nil
}

// === Application Methods ===

func (s *Store) CreateApplication(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	defer s.lock()()
	app.ID = uuid.NewString()
	app.CreatedAt = s.now()
	app.UpdatedAt = app.CreatedAt
	s.st.applications[app.ID] = *app
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	defer s.rlock()()
	a, ok := s.st.applications[id]
	if !ok {
		return nil, notFound("application", id)
	}
	return &a, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app *domain.Application) error {
	defer s.lock()()
	if _, ok := s.st.applications[app.ID]; !ok {
		return notFound("application", app.ID)
	}
	app.UpdatedAt = s.now()
	s.st.applications[app.ID] = *app
	return nil
}

func sortByTime[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).Before(at(items[j]))
	})
}
