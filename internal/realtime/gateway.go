package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/metrics"
)

// Publisher - исходящий интерфейс для обработчиков событий.
type Publisher interface {
	SendToUser(userID string, msg Message) int
	BroadcastToAll(msg Message) int
	// SendEach строит сообщение для каждого аутентифицированного соединения;
	// build возвращает false, чтобы пропустить получателя.
	SendEach(build func(b Binding) (Message, bool)) int
}

// Options - настройки websocket-транспорта.
type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	// PingInterval задает период ping; ноль отключает их.
	PingInterval time.Duration
	ReadLimit    int64
	CheckOrigin  func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 * 1024
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return o
}

var errPrincipalChanged = errors.New("connection is bound to another user")

// Gateway принимает websocket-соединения, разбирает входящие кадры и
// доставляет исходящие сообщения не более одного раза, без гарантий.
type Gateway struct {
	registry *Registry
	verifier auth.Verifier
	upgrader websocket.Upgrader
	opts     Options
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewGateway(registry *Registry, verifier auth.Verifier, log logrus.FieldLogger, m *metrics.Metrics, opts Options) *Gateway {
	opts = opts.withDefaults()
	return &Gateway{
		registry: registry,
		verifier: verifier,
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
		opts:     opts,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Registry возвращает реестр соединений шлюза.
func (g *Gateway) Registry() *Registry { return g.registry }

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил HTTP-ошибкой
		g.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := newWSConn(ws, g.opts)
	id := g.registry.Register(c)
	g.metrics.ConnectionsActive.Inc()
	log := g.log.WithField("connection_id", id)
	log.Debug("websocket connected")

	go c.writePump()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer g.disconnect(id, c, log)

	g.SendToConnection(id, Message{
		Type:    TypeConnected,
		Payload: ConnectedPayload{ConnectionID: id, Timestamp: g.now()},
	})
	g.readLoop(ctx, id, c, log)
}

func (g *Gateway) readLoop(ctx context.Context, id string, c *wsConn, log logrus.FieldLogger) {
	c.ws.SetReadLimit(g.opts.ReadLimit)
	if g.opts.PingInterval > 0 {
		wait := 2 * g.opts.PingInterval
		_ = c.ws.SetReadDeadline(time.Now().Add(wait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WithError(err).Debug("websocket read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			g.reply(id, TypeError, ErrorPayload{Message: ErrMalformedFrame.Error()})
			continue
		}
		g.dispatch(ctx, id, data, log)
		if !c.Writable() {
			return
		}
	}
}

// dispatch обрабатывает один входящий кадр. readLoop вызывает его синхронно,
// поэтому кадры одного соединения обрабатываются по порядку.
func (g *Gateway) dispatch(ctx context.Context, id string, data []byte, log logrus.FieldLogger) {
	in, err := DecodeInbound(data)
	if err != nil {
		g.metrics.FramesReceived.WithLabelValues("malformed").Inc()
		g.reply(id, TypeError, ErrorPayload{Message: err.Error()})
		return
	}
	g.metrics.FramesReceived.WithLabelValues(Kind(in)).Inc()

	switch m := in.(type) {
	case AuthenticateMsg:
		g.authenticate(ctx, id, m, log)
	case PingMsg:
		g.reply(id, TypePong, PongPayload{Timestamp: g.now()})
	case SubscribeMsg:
		// подписка только подтверждается, доставка по темам не фильтруется
		g.reply(id, TypeSubscribed, SubscribedPayload{Topic: m.Topic, Timestamp: g.now()})
	case UnknownMsg:
		log.WithField("type", m.Type).Debug("ignoring unknown message type")
	}
}

func (g *Gateway) authenticate(ctx context.Context, id string, m AuthenticateMsg, log logrus.FieldLogger) {
	p, err := g.verifier.Verify(ctx, m.Token)
	if err == nil {
		if current, ok := g.registry.Principal(id); ok && current.UserID != p.UserID {
			err = errPrincipalChanged
		}
	}
	if err != nil {
		g.metrics.AuthFailures.Inc()
		log.WithError(err).Info("websocket authentication failed")
		g.reply(id, TypeAuthError, ErrorPayload{Message: "authentication failed"})
		if sink, ok := g.registry.sink(id); ok {
			sink.Close(websocket.ClosePolicyViolation, "authentication failed")
		}
		return
	}

	if !g.registry.Authenticate(id, p) {
		return
	}
	log.WithField("user_id", p.UserID).Debug("websocket authenticated")
	g.reply(id, TypeAuthenticated, AuthenticatedPayload{UserID: p.UserID})
}

func (g *Gateway) disconnect(id string, c *wsConn, log logrus.FieldLogger) {
	if g.registry.Unregister(id) {
		g.metrics.ConnectionsActive.Dec()
	}
	c.Close(websocket.CloseNormalClosure, "")
	log.Debug("websocket disconnected")
}

func (g *Gateway) reply(id, typ string, payload any) {
	g.SendToConnection(id, Message{Type: typ, Payload: payload})
}

func (g *Gateway) encode(msg Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		g.log.WithError(err).WithField("type", msg.Type).Error("failed to encode outbound message")
		return nil, false
	}
	return data, true
}

// deliver передает кадр в sink. При ошибке кадр теряется, повтора нет.
func (g *Gateway) deliver(id string, sink Sink, typ string, data []byte) bool {
	if !sink.Writable() {
		g.metrics.FramesDropped.WithLabelValues(typ).Inc()
		return false
	}
	if err := sink.Send(data); err != nil {
		g.metrics.FramesDropped.WithLabelValues(typ).Inc()
		g.log.WithError(err).WithFields(logrus.Fields{
			"connection_id": id,
			"type":          typ,
		}).Debug("dropping outbound frame")
		return false
	}
	g.metrics.FramesSent.WithLabelValues(typ).Inc()
	return true
}

// SendToConnection отправляет msg в одно соединение, если оно еще открыто.
func (g *Gateway) SendToConnection(connID string, msg Message) bool {
	sink, ok := g.registry.sink(connID)
	if !ok {
		return false
	}
	data, ok := g.encode(msg)
	if !ok {
		return false
	}
	return g.deliver(connID, sink, msg.Type, data)
}

// SendToUser отправляет msg во все соединения userID и возвращает число принявших.
func (g *Gateway) SendToUser(userID string, msg Message) int {
	ids := g.registry.ConnectionsForUser(userID)
	if len(ids) == 0 {
		return 0
	}
	data, ok := g.encode(msg)
	if !ok {
		return 0
	}
	return g.fanOut(ids, msg.Type, data)
}

// BroadcastToAll отправляет msg во все открытые соединения, в том числе
// неаутентифицированные. Только для публичных данных.
func (g *Gateway) BroadcastToAll(msg Message) int {
	data, ok := g.encode(msg)
	if !ok {
		return 0
	}
	return g.fanOut(g.registry.AllOpenConnections(), msg.Type, data)
}

func (g *Gateway) fanOut(ids []string, typ string, data []byte) int {
	sent := 0
	for _, id := range ids {
		sink, ok := g.registry.sink(id)
		if !ok {
			continue
		}
		if g.deliver(id, sink, typ, data) {
			sent++
		}
	}
	return sent
}

// SendEach строит и отправляет сообщение каждому аутентифицированному соединению.
func (g *Gateway) SendEach(build func(b Binding) (Message, bool)) int {
	sent := 0
	for _, b := range g.registry.AllAuthenticatedConnections() {
		msg, ok := build(b)
		if !ok {
			continue
		}
		if g.SendToConnection(b.ConnectionID, msg) {
			sent++
		}
	}
	return sent
}
