package realtime

// Типы входящих кадров клиента
const (
	FrameJoin   = "join"
	FrameLeave  = "leave"
	FrameTyping = "typing"
)

// Служебные события сервера. События сообщений приходят из сервисов через PublishToConversation.
const (
	EventJoined = "joined"
	EventLeft   = "left"
	EventTyping = "typing"
	EventError  = "error"
)

// Frame входящий кадр от клиента
type Frame struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversation_id"`
}

// Event исходящее событие
type Event struct {
	Type           string      `json:"type"`
	ConversationID int64       `json:"conversation_id,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
}

type TypingPayload struct {
	UserID int64 `json:"user_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
