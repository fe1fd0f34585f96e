package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JoaoG250/micro-do/common/metrics"
)

// Conn is one client connection. All writes go through its send buffer and
// are performed by writePump, the socket's only writer.
type Conn struct {
	id     string
	userID string
	ws     *websocket.Conn

	send chan []byte
	kick chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	joined bool
}

func newConn(id, userID string, ws *websocket.Conn, buffer int) *Conn {
	if buffer < 1 {
		buffer = 1
	}
	return &Conn{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, buffer),
		kick:   make(chan []byte, 1),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

// enqueue queues a frame without blocking. A full buffer drops the frame.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		metrics.RealtimeDroppedFrames.Inc()
		return false
	}
}

// disconnect writes frame as the last message and closes the socket.
func (c *Conn) disconnect(frame []byte) {
	select {
	case c.kick <- frame:
	default:
	}
}

func (c *Conn) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *Conn) markJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined {
		return false
	}
	c.joined = true
	return true
}

func (c *Conn) isJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

func (c *Conn) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame, writeTimeout); err != nil {
				return
			}
		case frame := <-c.kick:
			_ = c.write(websocket.TextMessage, frame, writeTimeout)
			c.closeFrame(websocket.ClosePolicyViolation, writeTimeout)
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-c.done:
			c.closeFrame(websocket.CloseGoingAway, writeTimeout)
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte, timeout time.Duration) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) closeFrame(code int, timeout time.Duration) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
}
