package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sendBufferSize = 64
	joinTimeout    = 5 * time.Second
)

// Client одно websocket-соединение пользователя
type Client struct {
	id     uuid.UUID
	userID int64
	hub    *Hub
	conn   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// защищено hub.mu
	rooms map[int64]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		id:     uuid.New(),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		rooms:  make(map[int64]struct{}),
	}
}

// trySend кладёт сообщение в буфер без ожидания; false - буфер полон или клиент закрыт
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.trySend(data)
}

// readPump читает кадры клиента до ошибки соединения
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Websocket closed unexpectedly", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendEvent(Event{Type: EventError, Payload: ErrorPayload{Message: "malformed frame"}})
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame Frame) {
	switch frame.Type {
	case FrameJoin:
		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		err := c.hub.auth.CanJoin(ctx, c.userID, frame.ConversationID)
		cancel()

		if err != nil {
			c.sendEvent(Event{Type: EventError, ConversationID: frame.ConversationID, Payload: ErrorPayload{Message: c.joinError(err)}})
			return
		}

		c.hub.join(c, frame.ConversationID)
		c.sendEvent(Event{Type: EventJoined, ConversationID: frame.ConversationID})

	case FrameLeave:
		c.hub.leave(c, frame.ConversationID)
		c.sendEvent(Event{Type: EventLeft, ConversationID: frame.ConversationID})

	case FrameTyping:
		if !c.hub.inRoom(c, frame.ConversationID) {
			c.sendEvent(Event{Type: EventError, ConversationID: frame.ConversationID, Payload: ErrorPayload{Message: "join the conversation first"}})
			return
		}
		c.hub.broadcast(frame.ConversationID, Event{
			Type:           EventTyping,
			ConversationID: frame.ConversationID,
			Payload:        TypingPayload{UserID: c.userID},
		}, c)

	default:
		c.sendEvent(Event{Type: EventError, Payload: ErrorPayload{Message: "unknown frame type"}})
	}
}

// joinError переводит ошибку подписки в сообщение для клиента; внутренние ошибки только логируются
func (c *Client) joinError(err error) string {
	switch {
	case errors.Is(err, service.ErrNotParticipant):
		return service.ErrNotParticipant.Error()
	case errors.Is(err, service.ErrConversationNotFound):
		return service.ErrConversationNotFound.Error()
	default:
		c.hub.logger.Warn("Failed to authorize conversation join", zap.Int64("user_id", c.userID), zap.Error(err))
		return "failed to join conversation"
	}
}

// writePump единственный писатель в соединение: события из буфера и ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.unregister(c)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
