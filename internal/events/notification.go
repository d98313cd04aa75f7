package events

import (
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
)

// Notifications отправляет сохраненные уведомления владельцу.
type Notifications struct {
	handler
}

func NewNotifications(pub realtime.Publisher, log logrus.FieldLogger) *Notifications {
	return &Notifications{handler: newHandler(pub, log)}
}

// Notify возвращает, сколько соединений пользователя приняли кадр.
func (h *Notifications) Notify(n *domain.Notification) int {
	return h.toUser(n.UserID, realtime.TypeNotification, n)
}
