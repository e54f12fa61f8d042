package internal

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the router's view of one connected participant. The websocket
// wrapper below implements it for production; tests substitute in-memory
// fakes.
type Conn interface {
	ID() string
	Identity() string
	Send(event Event) error
}

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 8192
	sendBacklog = 256
)

// ErrSendBacklog reports that a connection's outbound queue is full. The
// delivery is dropped rather than blocking the room fan-out.
var ErrSendBacklog = errors.New("send queue full")

type wsConn struct {
	id       string
	identity string
	conn     *websocket.Conn
	send     chan []byte
	closing  sync.Once
}

func newWSConn(id, identity string, conn *websocket.Conn) *wsConn {
	return &wsConn{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBacklog),
	}
}

func (c *wsConn) ID() string       { return c.id }
func (c *wsConn) Identity() string { return c.identity }

// Send queues an event for the write pump. It never blocks; a full queue
// means the peer is too slow to read and the event is dropped.
func (c *wsConn) Send(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBacklog
	}
}

// closeSend shuts the outbound queue exactly once, which makes the write
// pump ask the peer to close.
func (c *wsConn) closeSend() {
	c.closing.Do(func() {
		close(c.send)
	})
}

// readPump decodes inbound events and hands them to dispatch until the
// peer goes away. cleanup runs once on the way out.
func (c *wsConn) readPump(dispatch func(*wsConn, Event), cleanup func()) {
	defer func() {
		cleanup()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			// read error ends the loop so the deferred cleanup can fire.
			break
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			dispatch(c, Event{Type: "", Reason: "malformed payload"})
			continue
		}
		dispatch(c, event)
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
