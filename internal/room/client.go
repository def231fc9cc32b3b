package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBufferSize = 64
)

// sender is one attached connection from the room's point of view.
// The room only ever pushes bytes at it or closes it.
type sender interface {
	ID() string
	Enqueue(payload []byte)
	Close()
}

// client binds a websocket connection to a room. Its id doubles as the
// player id inside the room's GameState.
type client struct {
	id   string
	room *Room
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

var _ sender = (*client)(nil)

func newClient(room *Room, ws *websocket.Conn) *client {
	return &client{
		id:   uuid.NewString(),
		room: room,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *client) ID() string {
	return c.id
}

// Enqueue drops the payload when the client is gone or its buffer is
// full so a slow reader never blocks the room.
func (c *client) Enqueue(payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
	}
}

func (c *client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// run blocks on the read pump until the connection dies, then detaches
// the client from its room.
func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.room.Detach(c)
		c.Close()
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.room.logger.Infof("client %s read: %v", c.id, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// malformed frames never crash the room, they vanish
			c.room.logger.Infof("client %s dropped malformed message: %v", c.id, err)
			continue
		}

		if !c.room.Dispatch(c.id, msg) {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
