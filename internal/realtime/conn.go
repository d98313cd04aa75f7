package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

type outbound struct {
	data   []byte
	close  bool
	code   int
	reason string
}

// wsConn - Sink для одного gorilla websocket. Кадры идут через ограниченную
// очередь, которую разбирает writePump - единственная горутина, пишущая данные.
type wsConn struct {
	ws   *websocket.Conn
	send chan outbound

	mu     sync.Mutex
	closed bool

	writeTimeout time.Duration
	pingInterval time.Duration
}

func newWSConn(ws *websocket.Conn, opts Options) *wsConn {
	return &wsConn{
		ws:           ws,
		send:         make(chan outbound, opts.SendBuffer),
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
	}
}

func (c *wsConn) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *wsConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- outbound{data: frame}:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close перестает принимать кадры; writePump дописывает очередь и
// отправляет close-кадр.
func (c *wsConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	select {
	case c.send <- outbound{close: true, code: code, reason: reason}:
	default:
		// очередь забита, клиент все равно не читает
		_ = c.ws.Close()
	}
	close(c.send)
}

func (c *wsConn) deadline() time.Time {
	return time.Now().Add(c.writeTimeout)
}

func (c *wsConn) writePump() {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.ws.Close()

	for {
		select {
		case item, ok := <-c.send:
			if !ok {
				return
			}
			if item.close {
				msg := websocket.FormatCloseMessage(item.code, item.reason)
				_ = c.ws.WriteControl(websocket.CloseMessage, msg, c.deadline())
				return
			}
			_ = c.ws.SetWriteDeadline(c.deadline())
			if err := c.ws.WriteMessage(websocket.TextMessage, item.data); err != nil {
				return
			}
		case <-tick:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, c.deadline()); err != nil {
				return
			}
		}
	}
}
