package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a message thread between exactly two users; UserAID < UserBID
type Conversation struct {
	ID            int64      `json:"id"`
	UserAID       int64      `json:"user_a_id"`
	UserBID       int64      `json:"user_b_id"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`

	// Заполняются в списке диалогов
	OtherUser   *User    `json:"other_user,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

// OrderedPair returns the two ids in storage order
func OrderedPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// HasParticipant checks if user belongs to the conversation
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherParticipant returns the id of the other side
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	ClientID       uuid.UUID  `json:"client_id"` // ключ идемпотентности для optimistic UI
	Content        string     `json:"content"`
	IsEdited       bool       `json:"is_edited"`
	IsDeleted      bool       `json:"is_deleted"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Reactions []ReactionSummary `json:"reactions"`
}

// Redact hides the content of deleted messages; the row itself is kept
func (m *Message) Redact() {
	if m.IsDeleted {
		m.Content = ""
	}
}

type MessageReaction struct {
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionSummary aggregates reactions on a message by emoji
type ReactionSummary struct {
	Emoji   string  `json:"emoji"`
	Count   int     `json:"count"`
	UserIDs []int64 `json:"user_ids"`
}

// SummarizeReactions groups reactions by emoji keeping first-seen order
func SummarizeReactions(reactions []*MessageReaction) []ReactionSummary {
	summaries := make([]ReactionSummary, 0)
	index := make(map[string]int)
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(summaries)
			index[r.Emoji] = i
			summaries = append(summaries, ReactionSummary{Emoji: r.Emoji})
		}
		summaries[i].Count++
		summaries[i].UserIDs = append(summaries[i].UserIDs, r.UserID)
	}
	return summaries
}
