package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// Store реализует интерфейс Storage поверх GORM (PostgreSQL или SQLite).
type Store struct {
	db   *gorm.DB
	inTx bool
}

// Dialector выбирает драйвер gorm по типу хранилища.
func Dialector(kind, dsn string) (gorm.Dialector, error) {
	switch kind {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported sql storage %q", kind)
	}
}

// Open подключается к базе. Миграция схемы - отдельный шаг (Migrate).
func Open(dialector gorm.Dialector, level logger.LogLevel) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// New оборачивает существующее подключение.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate выполняет миграцию схемы для всех сущностей.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// translate превращает gorm.ErrRecordNotFound в domain.ErrNotFound.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (s *Store) paginate(ctx context.Context, q *gorm.DB, table string, args storage.PaginationArgs, desc bool) *gorm.DB {
	if args.Cursor != nil {
		var cursorAt time.Time
		// Находим время создания записи-курсора и выбираем записи после него
		row := s.db.WithContext(ctx).Table(table).Select("created_at").Where("id = ?", *args.Cursor).Row()
		if err := row.Scan(&cursorAt); err == nil {
			if desc {
				q = q.Where("created_at < ?", cursorAt)
			} else {
				q = q.Where("created_at > ?", cursorAt)
			}
		}
	}
	if args.Limit > 0 {
		q = q.Limit(args.Limit)
	}
	return q
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.ForumPost) (*domain.ForumPost, error) {
	newID(&post.ID)
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// GetPostByID внутри транзакции блокирует строку поста (SELECT ... FOR UPDATE),
// чтобы параллельные транзакции не перезаписали флаги модерации устаревшей копией.
// SQLite блокирует всю базу на запись, поэтому там блокировка не нужна.
func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.ForumPost, error) {
	var post domain.ForumPost
	q := s.db.WithContext(ctx)
	if s.inTx && s.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "post "+id)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, args storage.ListPostsArgs) ([]*domain.ForumPost, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Offset(args.Offset)
	if args.Limit > 0 {
		q = q.Limit(args.Limit)
	}
	if !args.IncludeHidden {
		q = q.Where("is_hidden_by_reports = ? AND is_moderated = ?", false, false)
	}
	if args.Category != "" {
		q = q.Where("category = ?", args.Category)
	}
	var posts []*domain.ForumPost
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.ForumPost) error {
	res := s.db.WithContext(ctx).Model(&domain.ForumPost{}).Where("id = ?", post.ID).
		Select("*").Omit("id", "created_at").Updates(post)
	if res.Error != nil {
		return fmt.Errorf("update post %s: %w", post.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", post.ID, domain.ErrNotFound)
	}
	return nil
}

// IncrementPostCounter обновляет только один столбец-счетчик и не трогает
// остальные поля поста.
func (s *Store) IncrementPostCounter(ctx context.Context, postID string, counter storage.PostCounter, delta int) (int, error) {
	switch counter {
	case storage.CounterViews, storage.CounterLikes, storage.CounterComments:
	default:
		return 0, fmt.Errorf("unknown post counter %q", counter)
	}
	col := string(counter)
	expr := gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
	res := s.db.WithContext(ctx).Model(&domain.ForumPost{}).Where("id = ?", postID).UpdateColumn(col, expr)
	if res.Error != nil {
		return 0, fmt.Errorf("update %s of post %s: %w", col, postID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	var n int
	row := s.db.WithContext(ctx).Model(&domain.ForumPost{}).Select(col).Where("id = ?", postID).Row()
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("read %s of post %s: %w", col, postID, err)
	}
	return n, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.ForumComment) (*domain.ForumComment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.ForumPost{}).Where("id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post %s: %w", comment.PostID, domain.ErrNotFound)
		}
		newID(&comment.ID)
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, args storage.PaginationArgs) ([]*domain.ForumComment, error) {
	var comments []*domain.ForumComment
	q := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC")
	q = s.paginate(ctx, q, "forum_comments", args, false)
	if err := q.Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// === Like Methods ===

func (s *Store) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.ForumPostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error
	return count > 0, err
}

func (s *Store) AddLike(ctx context.Context, like *domain.ForumPostLike) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) error {
	return s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&domain.ForumPostLike{}).Error
}

// === Report Methods ===

func (s *Store) FindReport(ctx context.Context, postID, reporterUserID string) (*domain.ForumPostReport, error) {
	var report domain.ForumPostReport
	err := s.db.WithContext(ctx).Where("post_id = ? AND reporter_user_id = ?", postID, reporterUserID).
		Take(&report).Error
	if err != nil {
		return nil, translate(err, "report")
	}
	return &report, nil
}

func (s *Store) CreateReport(ctx context.Context, report *domain.ForumPostReport) (*domain.ForumPostReport, error) {
	newID(&report.ID)
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

func (s *Store) GetReportsByPostID(ctx context.Context, postID string) ([]*domain.ForumPostReport, error) {
	var reports []*domain.ForumPostReport
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&reports).Error
	return reports, err
}

func (s *Store) DeleteReportsByPostID(ctx context.Context, postID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&domain.ForumPostReport{})
	return res.RowsAffected, res.Error
}

// === Vote Methods ===

func (s *Store) FindVote(ctx context.Context, postID, userID string) (*domain.PollVote, error) {
	var vote domain.PollVote
	err := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Take(&vote).Error
	if err != nil {
		return nil, translate(err, "vote")
	}
	return &vote, nil
}

// UpsertVote опирается на уникальный индекс (post_id, user_id).
func (s *Store) UpsertVote(ctx context.Context, vote *domain.PollVote) error {
	newID(&vote.ID)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"option_id", "updated_at"}),
	}).Create(vote).Error
}

func (s *Store) GetVotesByPostID(ctx context.Context, postID string) ([]*domain.PollVote, error) {
	var votes []*domain.PollVote
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&votes).Error
	return votes, err
}

func (s *Store) GetVotesByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.PollVote, error) {
	var votes []*domain.PollVote
	// Загружаем голоса всех постов одним запросом
	err := s.db.WithContext(ctx).Where("post_id IN ?", postIDs).
		Order("post_id, created_at ASC").Find(&votes).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string][]*domain.PollVote, len(postIDs))
	for _, v := range votes {
		result[v.PostID] = append(result[v.PostID], v)
	}
	return result, nil
}

// === Chat Methods ===

func (s *Store) CreateChatMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	newID(&msg.ID)
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create chat message: %w", err)
	}
	return msg, nil
}

func (s *Store) GetChatMessage(ctx context.Context, id string) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, translate(err, "chat message "+id)
	}
	return &msg, nil
}

func (s *Store) UpdateChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return s.db.WithContext(ctx).Save(msg).Error
}

func (s *Store) GetConversation(ctx context.Context, studentID, counselorID string, args storage.PaginationArgs) ([]*domain.ChatMessage, error) {
	var msgs []*domain.ChatMessage
	q := s.db.WithContext(ctx).Where("student_id = ? AND counselor_id = ?", studentID, counselorID).
		Order("created_at ASC")
	q = s.paginate(ctx, q, "chat_messages", args, false)
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return msgs, nil
}

// === Notification Methods ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	newID(&n.ID)
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate(err, "notification "+id)
	}
	return &n, nil
}

func (s *Store) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	return s.db.WithContext(ctx).Save(n).Error
}

func (s *Store) GetNotificationsByUserID(ctx context.Context, userID string, args storage.PaginationArgs) ([]*domain.Notification, error) {
	var out []*domain.Notification
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	q = s.paginate(ctx, q, "notifications", args, true)
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// === Application Methods ===

func (s *Store) CreateApplication(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	newID(&app.ID)
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	var app domain.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, translate(err, "application "+id)
	}
	return &app, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app *domain.Application) error {
	return s.db.WithContext(ctx).Save(app).Error
}
