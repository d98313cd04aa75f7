// Package events превращает изменения домена в realtime-сообщения и решает,
// кому их отправить.
package events

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
)

// handler содержит то, что нужно каждому обработчику.
type handler struct {
	pub realtime.Publisher
	log logrus.FieldLogger
	now func() time.Time
}

func newHandler(pub realtime.Publisher, log logrus.FieldLogger) handler {
	return handler{
		pub: pub,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (h handler) toUser(userID, typ string, payload any) int {
	n := h.pub.SendToUser(userID, realtime.Message{Type: typ, Payload: payload})
	h.log.WithFields(logrus.Fields{"type": typ, "user_id": userID, "delivered": n}).Debug("event sent to user")
	return n
}

func (h handler) toAll(typ string, payload any) int {
	n := h.pub.BroadcastToAll(realtime.Message{Type: typ, Payload: payload})
	h.log.WithFields(logrus.Fields{"type": typ, "delivered": n}).Debug("event broadcast")
	return n
}
