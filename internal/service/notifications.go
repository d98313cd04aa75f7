package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

type Notifications struct {
	store  storage.Storage
	events NotificationEvents
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewNotifications(store storage.Storage, events NotificationEvents, log logrus.FieldLogger) *Notifications {
	return &Notifications{
		store:  store,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create сохраняет n и отправляет во все открытые соединения пользователя.
func (s *Notifications) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.UserID == "" {
		return nil, fmt.Errorf("notification user is required: %w", domain.ErrValidation)
	}
	if !n.Type.Valid() {
		return nil, fmt.Errorf("notification type %q: %w", n.Type, domain.ErrValidation)
	}
	if strings.TrimSpace(n.Title) == "" {
		return nil, fmt.Errorf("notification title is required: %w", domain.ErrValidation)
	}

	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	delivered := s.events.Notify(created)
	s.log.WithFields(logrus.Fields{
		"notification_id": created.ID,
		"user_id":         created.UserID,
		"delivered":       delivered,
	}).Debug("notification created")
	return created, nil
}

func (s *Notifications) List(ctx context.Context, userID string, args storage.PaginationArgs) ([]*domain.Notification, error) {
	return s.store.GetNotificationsByUserID(ctx, userID, args)
}

// MarkRead доступен только владельцу; повторная отметка сохраняет первый readAt.
func (s *Notifications) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("notification %s: %w", id, domain.ErrForbidden)
	}
	if n.IsRead {
		return n, nil
	}
	now := s.now()
	n.IsRead = true
	n.ReadAt = &now
	if err := s.store.UpdateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}
