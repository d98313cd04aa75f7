package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ModerationState - состояние видимости поста.
type ModerationState string

const (
	StateVisible              ModerationState = "visible"
	StateHiddenByReports      ModerationState = "hidden_by_reports"
	StatePermanentlyModerated ModerationState = "permanently_moderated"
)

// PollOption - вариант ответа в опросе. Id назначаются при создании поста.
type PollOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ForumPost - пост форума с необязательным опросом и флагами модерации.
type ForumPost struct {
	ID       string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	AuthorID string                      `json:"authorId" gorm:"type:varchar(255);not null;index"`
	Title    string                      `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content  string                      `json:"content" gorm:"type:text;not null"`
	Category string                      `json:"category,omitempty" gorm:"type:varchar(100);index"`
	Tags     datatypes.JSONSlice[string] `json:"tags,omitempty"`
	Images   datatypes.JSONSlice[string] `json:"images,omitempty"`

	PollQuestion string                          `json:"pollQuestion,omitempty" gorm:"type:varchar(500)"`
	PollOptions  datatypes.JSONSlice[PollOption] `json:"pollOptions,omitempty"`
	PollEndsAt   *time.Time                      `json:"pollEndsAt,omitempty"`

	LikesCount    int `json:"likesCount" gorm:"not null;default:0"`
	CommentsCount int `json:"commentsCount" gorm:"not null;default:0"`
	ViewsCount    int `json:"viewsCount" gorm:"not null;default:0"`
	ReportCount   int `json:"reportCount" gorm:"not null;default:0"`

	IsHiddenByReports bool       `json:"isHiddenByReports" gorm:"not null;default:false;index"`
	HiddenAt          *time.Time `json:"hiddenAt,omitempty"`
	IsModerated       bool       `json:"isModerated" gorm:"not null;default:false;index"`
	ModeratorID       *string    `json:"moderatorId,omitempty" gorm:"type:varchar(255)"`
	ModeratedAt       *time.Time `json:"moderatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// State вычисляет состояние модерации по флагам поста.
func (p *ForumPost) State() ModerationState {
	switch {
	case p.IsModerated:
		return StatePermanentlyModerated
	case p.IsHiddenByReports:
		return StateHiddenByReports
	default:
		return StateVisible
	}
}

// HasPoll сообщает, есть ли у поста опрос.
func (p *ForumPost) HasPoll() bool {
	return p.PollQuestion != "" && len(p.PollOptions) > 0
}

// HasPollOption проверяет, что optionID есть среди вариантов опроса.
func (p *ForumPost) HasPollOption(optionID string) bool {
	for _, o := range p.PollOptions {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// VisibleTo сообщает, может ли обычный пользователь (не админ) видеть пост.
func (p *ForumPost) VisibleTo(userID string) bool {
	switch p.State() {
	case StatePermanentlyModerated:
		return false
	case StateHiddenByReports:
		return p.AuthorID == userID
	default:
		return true
	}
}

// ForumComment - комментарий к посту (без вложенности).
type ForumComment struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID    string    `json:"postId" gorm:"type:varchar(36);not null;index"`
	AuthorID  string    `json:"authorId" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:varchar(2000);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

// ForumPostLike - лайк пользователя.
type ForumPostLike struct {
	PostID    string    `json:"postId" gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"userId" gorm:"type:varchar(255);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReportReason - причина жалобы.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonInappropriate  ReportReason = "inappropriate"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonOther          ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonInappropriate, ReasonMisinformation, ReasonOther:
		return true
	}
	return false
}

// ForumPostReport - жалоба одного пользователя на один пост. Уникальность
// (PostID, ReporterUserID) проверяется перед вставкой, а не схемой.
type ForumPostReport struct {
	ID             string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID         string       `json:"postId" gorm:"type:varchar(36);not null;index:idx_report_post_reporter"`
	ReporterUserID string       `json:"reporterUserId" gorm:"type:varchar(255);not null;index:idx_report_post_reporter"`
	ReportReason   ReportReason `json:"reportReason" gorm:"type:varchar(32);not null"`
	ReportDetails  string       `json:"reportDetails,omitempty" gorm:"type:text"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"not null"`
}

// PollVote - текущий выбор пользователя в опросе; одна строка на (post, user).
type PollVote struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID    string    `json:"postId" gorm:"type:varchar(36);not null;uniqueIndex:idx_poll_vote_post_user"`
	UserID    string    `json:"userId" gorm:"type:varchar(255);not null;uniqueIndex:idx_poll_vote_post_user"`
	OptionID  string    `json:"optionId" gorm:"type:varchar(36);not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatMessage - личное сообщение между студентом и его консультантом.
type ChatMessage struct {
	ID          string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	StudentID   string     `json:"studentId" gorm:"type:varchar(255);not null;index:idx_chat_pair"`
	CounselorID string     `json:"counselorId" gorm:"type:varchar(255);not null;index:idx_chat_pair"`
	SenderID    string     `json:"senderId" gorm:"type:varchar(255);not null"`
	Message     string     `json:"message" gorm:"type:text;not null"`
	IsRead      bool       `json:"isRead" gorm:"not null;default:false"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	IsEdited    bool       `json:"isEdited" gorm:"not null;default:false"`
	IsDeleted   bool       `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"not null;index"`
}

// Recipient возвращает получателя сообщения.
func (m *ChatMessage) Recipient() string {
	if m.SenderID == m.StudentID {
		return m.CounselorID
	}
	return m.StudentID
}

// NotificationType - категория уведомления.
type NotificationType string

const (
	NotificationChatMessage       NotificationType = "chat_message"
	NotificationApplicationUpdate NotificationType = "application_update"
	NotificationForumReply        NotificationType = "forum_reply"
	NotificationForumModeration   NotificationType = "forum_moderation"
	NotificationSystem            NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationChatMessage, NotificationApplicationUpdate, NotificationForumReply,
		NotificationForumModeration, NotificationSystem:
		return true
	}
	return false
}

// Notification - уведомление для одного пользователя.
type Notification struct {
	ID        string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string           `json:"userId" gorm:"type:varchar(255);not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(32);not null"`
	Title     string           `json:"title" gorm:"type:varchar(255);not null"`
	Message   string           `json:"message" gorm:"type:text"`
	Data      datatypes.JSON   `json:"data,omitempty"`
	IsRead    bool             `json:"isRead" gorm:"not null;default:false"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt" gorm:"not null;index"`
}

// ApplicationStatus - статус заявки в университет.
type ApplicationStatus string

const (
	ApplicationDraft       ApplicationStatus = "draft"
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationUnderReview,
		ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// Application - заявка студента на программу университета.
type Application struct {
	ID             string            `json:"id" gorm:"type:varchar(36);primaryKey"`
	StudentID      string            `json:"studentId" gorm:"type:varchar(255);not null;index"`
	CounselorID    *string           `json:"counselorId,omitempty" gorm:"type:varchar(255);index"`
	UniversityName string            `json:"universityName" gorm:"type:varchar(255);not null"`
	CourseName     string            `json:"courseName" gorm:"type:varchar(255);not null"`
	Status         ApplicationStatus `json:"status" gorm:"type:varchar(32);not null"`
	Notes          string            `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Models перечисляет все сохраняемые сущности в порядке миграции.
func Models() []any {
	return []any{
		&ForumPost{}, &ForumComment{}, &ForumPostLike{}, &ForumPostReport{},
		&PollVote{}, &ChatMessage{}, &Notification{}, &Application{},
	}
}
