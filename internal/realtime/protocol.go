package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

// Типы входящих сообщений (клиент -> сервер).
const (
	TypeAuthenticate = "authenticate"
	TypePing         = "ping"
	TypeSubscribe    = "subscribe"
)

// Типы исходящих сообщений (сервер -> клиент).
const (
	TypeConnected     = "connected"
	TypeAuthenticated = "authenticated"
	TypeAuthError     = "auth_error"
	TypePong          = "pong"
	TypeSubscribed    = "subscribed"
	TypeError         = "error"

	TypeChatMessage         = "chat_message"
	TypeMessageRead         = "message_read"
	TypeNotification        = "notification"
	TypeApplicationUpdate   = "application_update"
	TypeForumPostCreated    = "forum_post_created"
	TypeForumPostUpdated    = "forum_post_updated"
	TypeForumPostLikeUpdate = "forum_post_like_update"
	TypeForumCommentCreated = "forum_comment_created"
	TypePollVoteUpdate      = "poll_vote_update"
)

// Message - конверт исходящего сообщения: {"type": ..., "payload": {...}}.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type ConnectedPayload struct {
	ConnectionID string    `json:"connectionId"`
	Timestamp    time.Time `json:"timestamp"`
}

type AuthenticatedPayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

type SubscribedPayload struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Inbound - закрытый набор клиентских сообщений, dispatch разбирает его через type switch.
type Inbound interface {
	inbound()
}

type AuthenticateMsg struct{ Token string }
type PingMsg struct{}
type SubscribeMsg struct{ Topic string }

// UnknownMsg - корректный кадр неизвестного типа.
type UnknownMsg struct{ Type string }

func (AuthenticateMsg) inbound() {}
func (PingMsg) inbound()         {}
func (SubscribeMsg) inbound()    {}
func (UnknownMsg) inbound()      {}

var ErrMalformedFrame = errors.New("malformed message")

type inboundFields struct {
	Token string `json:"token"`
	Topic string `json:"topic"`
}

// wireInbound принимает и {"type","payload":{...}}, и плоскую форму
// {"type","token"}, которую шлют некоторые клиенты.
type wireInbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	inboundFields
}

// DecodeInbound разбирает один текстовый кадр.
func DecodeInbound(data []byte) (Inbound, error) {
	var w wireInbound
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, ErrMalformedFrame
	}
	if w.Type == "" {
		return nil, ErrMalformedFrame
	}
	fields := w.inboundFields
	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		var p inboundFields
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return nil, ErrMalformedFrame
		}
		if p.Token != "" {
			fields.Token = p.Token
		}
		if p.Topic != "" {
			fields.Topic = p.Topic
		}
	}

	switch w.Type {
	case TypeAuthenticate:
		return AuthenticateMsg{Token: fields.Token}, nil
	case TypePing:
		return PingMsg{}, nil
	case TypeSubscribe:
		return SubscribeMsg{Topic: fields.Topic}, nil
	default:
		return UnknownMsg{Type: w.Type}, nil
	}
}

// Kind возвращает имя входящего сообщения для логов и метрик.
func Kind(in Inbound) string {
	switch in.(type) {
	case AuthenticateMsg:
		return TypeAuthenticate
	case PingMsg:
		return TypePing
	case SubscribeMsg:
		return TypeSubscribe
	case UnknownMsg:
		return "unknown"
	default:
		return "unknown"
	}
}
