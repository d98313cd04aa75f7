package events

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
)

// MessageReadPayload - отметка о прочтении для собеседника.
type MessageReadPayload struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat доставляет личные сообщения между студентом и консультантом.
type Chat struct {
	handler
}

func NewChat(pub realtime.Publisher, log logrus.FieldLogger) *Chat {
	return &Chat{handler: newHandler(pub, log)}
}

// MessageSent отправляет msg получателю и во все вкладки отправителя.
func (h *Chat) MessageSent(msg *domain.ChatMessage) {
	h.toUser(msg.Recipient(), realtime.TypeChatMessage, msg)
	h.toUser(msg.SenderID, realtime.TypeChatMessage, msg)
}

// MessageRead сообщает otherPartyID, что readerID прочитал messageID.
func (h *Chat) MessageRead(messageID, readerID, otherPartyID string) {
	h.toUser(otherPartyID, realtime.TypeMessageRead, MessageReadPayload{
		MessageID: messageID,
		UserID:    readerID,
		Read:      true,
		Timestamp: h.now(),
	})
}
