package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authorizer проверяет, может ли пользователь подписаться на диалог
type Authorizer interface {
	CanJoin(ctx context.Context, userID, conversationID int64) error
}

// AuthorizerFunc позволяет использовать функцию как Authorizer
type AuthorizerFunc func(ctx context.Context, userID, conversationID int64) error

func (f AuthorizerFunc) CanJoin(ctx context.Context, userID, conversationID int64) error {
	return f(ctx, userID, conversationID)
}

// Hub держит комнаты диалогов и рассылает в них события.
// Рассылка best-effort: клиент с переполненным буфером отключается.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[int64]map[*Client]struct{}

	auth     Authorizer
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(auth Authorizer, allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[int64]map[*Client]struct{}),
		auth:    auth,
		logger:  logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWS переводит запрос в websocket-соединение аутентифицированного пользователя
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("Websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	client := newClient(h, conn, userID)
	h.register(client)

	h.logger.Debug("Websocket connected",
		zap.Int64("user_id", userID),
		zap.String("client_id", client.id.String()),
	)

	go client.writePump()
	go client.readPump()
}

// PublishToConversation рассылает событие всем клиентам, подписанным на диалог
func (h *Hub) PublishToConversation(conversationID int64, eventType string, payload interface{}) {
	h.broadcast(conversationID, Event{Type: eventType, ConversationID: conversationID, Payload: payload}, nil)
}

func (h *Hub) broadcast(conversationID int64, event Event, except *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[conversationID] {
		if c == except {
			continue
		}
		if !c.trySend(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client",
			zap.Int64("user_id", c.userID),
			zap.Int64("conversation_id", conversationID),
		)
		h.unregister(c)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// unregister убирает клиента из всех комнат и закрывает его
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for id := range c.rooms {
			h.removeFromRoomLocked(c, id)
		}
	}
	h.mu.Unlock()

	c.close()
}

func (h *Hub) join(c *Client, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

func (h *Hub) leave(c *Client, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(c, conversationID)
}

func (h *Hub) removeFromRoomLocked(c *Client, conversationID int64) {
	delete(c.rooms, conversationID)
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

func (h *Hub) inRoom(c *Client, conversationID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[conversationID][c]
	return ok
}

// RoomSize число клиентов в комнате диалога
func (h *Hub) RoomSize(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// ConnectedClients число открытых соединений
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов; используется при остановке сервера
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
