package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
	"github.com/google/uuid"
)

type ConversationRepository struct {
	*base.Repository
}

func NewConversationRepository(b *base.Repository) *ConversationRepository {
	return &ConversationRepository{Repository: b}
}

// GetOrCreate возвращает диалог пары пользователей, создавая его при отсутствии
func (r *ConversationRepository) GetOrCreate(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	a, b := model.OrderedPair(userA, userB)

	// DO UPDATE нужен, чтобы RETURNING вернул строку и при конфликте
	query := `
		INSERT INTO conversations (user_a_id, user_b_id)
		VALUES ($1, $2)
		ON CONFLICT (user_a_id, user_b_id) DO UPDATE SET user_a_id = EXCLUDED.user_a_id
		RETURNING id, user_a_id, user_b_id, last_message_at, created_at
	`

	var c model.Conversation
	err := r.QueryRow(ctx, query, a, b).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}

	return &c, nil
}

// GetByID получает диалог по ID
func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	query := `
		SELECT id, user_a_id, user_b_id, last_message_at, created_at
		FROM conversations
		WHERE id = $1
	`

	var c model.Conversation
	err := r.QueryRow(ctx, query, id).Scan(&c.ID, &c.UserAID, &c.UserBID, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &c, nil
}

// ListForUser получает диалоги пользователя с последним сообщением и числом непрочитанных
func (r *ConversationRepository) ListForUser(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	query := `
		SELECT c.id, c.user_a_id, c.user_b_id, c.last_message_at, c.created_at,
		       m.id, m.sender_id, m.client_id, m.content, m.is_edited, m.is_deleted, m.read_at, m.created_at, m.updated_at,
		       (SELECT COUNT(*) FROM messages u
		        WHERE u.conversation_id = c.id AND u.sender_id <> $1 AND u.read_at IS NULL AND NOT u.is_deleted) AS unread
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT * FROM messages
			WHERE conversation_id = c.id
			ORDER BY id DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []*model.Conversation{}
	for rows.Next() {
		var (
			c         model.Conversation
			msgID     *int64
			senderID  *int64
			clientID  *uuid.UUID
			content   *string
			isEdited  *bool
			isDeleted *bool
			readAt    *time.Time
			createdAt *time.Time
			updatedAt *time.Time
		)
		err := rows.Scan(
			&c.ID, &c.UserAID, &c.UserBID, &c.LastMessageAt, &c.CreatedAt,
			&msgID, &senderID, &clientID, &content, &isEdited, &isDeleted, &readAt, &createdAt, &updatedAt,
			&c.UnreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}

		if msgID != nil {
			c.LastMessage = &model.Message{
				ID:             *msgID,
				ConversationID: c.ID,
				SenderID:       *senderID,
				ClientID:       *clientID,
				Content:        *content,
				IsEdited:       *isEdited,
				IsDeleted:      *isDeleted,
				ReadAt:         readAt,
				CreatedAt:      *createdAt,
				UpdatedAt:      *updatedAt,
			}
			c.LastMessage.Redact()
		}

		conversations = append(conversations, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return conversations, nil
}

// TouchLastMessage обновляет время последнего сообщения
func (r *ConversationRepository) TouchLastMessage(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.ExecAffected(ctx, `UPDATE conversations SET last_message_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}
