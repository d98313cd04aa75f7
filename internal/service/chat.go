package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

type SendMessageInput struct {
	StudentID   string `json:"studentId"`
	CounselorID string `json:"counselorId"`
	Message     string `json:"message"`
}

type Chat struct {
	store  storage.Storage
	events ChatEvents
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewChat(store storage.Storage, events ChatEvents, log logrus.FieldLogger) *Chat {
	return &Chat{
		store:  store,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage сохраняет сообщение от одного из участников пары студент/консультант.
func (s *Chat) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (*domain.ChatMessage, error) {
	if in.StudentID == "" || in.CounselorID == "" {
		return nil, fmt.Errorf("student and counselor are required: %w", domain.ErrValidation)
	}
	if senderID != in.StudentID && senderID != in.CounselorID {
		return nil, fmt.Errorf("sender is not part of the conversation: %w", domain.ErrForbidden)
	}
	if err := validateContent(in.Message, maxPostLength); err != nil {
		return nil, err
	}

	msg, err := s.store.CreateChatMessage(ctx, &domain.ChatMessage{
		StudentID:   in.StudentID,
		CounselorID: in.CounselorID,
		SenderID:    senderID,
		Message:     in.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}
	s.events.MessageSent(msg)
	return msg, nil
}

// MarkRead доступен только получателю и отправляет отправителю отметку о прочтении.
func (s *Chat) MarkRead(ctx context.Context, messageID, readerID string) (*domain.ChatMessage, error) {
	msg, err := s.store.GetChatMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Recipient() != readerID {
		return nil, fmt.Errorf("only the recipient can mark message %s read: %w", messageID, domain.ErrForbidden)
	}
	if msg.IsRead {
		return msg, nil
	}
	now := s.now()
	msg.IsRead = true
	msg.ReadAt = &now
	if err := s.store.UpdateChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	s.events.MessageRead(msg.ID, readerID, msg.SenderID)
	return msg, nil
}

// ListConversation доступен обоим участникам и админам.
func (s *Chat) ListConversation(ctx context.Context, viewer auth.Principal, studentID, counselorID string, args storage.PaginationArgs) ([]*domain.ChatMessage, error) {
	if !viewer.IsAdmin() && viewer.UserID != studentID && viewer.UserID != counselorID {
		return nil, fmt.Errorf("conversation: %w", domain.ErrForbidden)
	}
	return s.store.GetConversation(ctx, studentID, counselorID, args)
}
