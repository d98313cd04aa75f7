package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/logging"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
	"github.com/UkralStul/studyabroad-realtime/internal/storage/inmemory"
)

func TestNotifications_CreatePushesAndPersists(t *testing.T) {
	events := &eventLog{}
	svc := NewNotifications(inmemory.New(), events, logging.Discard())
	ctx := context.Background()

	n, err := svc.Create(ctx, &domain.Notification{UserID: "u1", Type: domain.NotificationSystem, Title: "Welcome"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, []string{"notify"}, events.events)

	list, err := svc.List(ctx, "u1", storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotifications_CreateValidation(t *testing.T) {
	events := &eventLog{}
	svc := NewNotifications(inmemory.New(), events, logging.Discard())

	for _, n := range []*domain.Notification{
		{Type: domain.NotificationSystem, Title: "x"},
		{UserID: "u1", Type: "sms", Title: "x"},
		{UserID: "u1", Type: domain.NotificationSystem},
	} {
		_, err := svc.Create(context.Background(), n)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Empty(t, events.events)
}

func TestNotifications_MarkRead(t *testing.T) {
	svc := NewNotifications(inmemory.New(), &eventLog{}, logging.Discard())
	ctx := context.Background()
	n, err := svc.Create(ctx, &domain.Notification{UserID: "u1", Type: domain.NotificationSystem, Title: "x"})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, n.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	read, err := svc.MarkRead(ctx, n.ID, "u1")
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	firstReadAt := *read.ReadAt

	again, err := svc.MarkRead(ctx, n.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *again.ReadAt)

	_, err = svc.MarkRead(ctx, "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
