package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
	"github.com/google/uuid"
)

const messageColumns = `id, conversation_id, sender_id, client_id, content, is_edited, is_deleted, read_at, created_at, updated_at`

type MessageRepository struct {
	*base.Repository
}

func NewMessageRepository(b *base.Repository) *MessageRepository {
	return &MessageRepository{Repository: b}
}

func scanMessage(row rowScanner, m *model.Message) error {
	return row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.ClientID,
		&m.Content,
		&m.IsEdited,
		&m.IsDeleted,
		&m.ReadAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

// Create сохраняет сообщение. Повторная отправка с тем же client_id возвращает
// уже сохранённую строку и created = false.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) (bool, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, client_id, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sender_id, client_id) DO NOTHING
		RETURNING ` + messageColumns

	err := scanMessage(r.QueryRow(ctx, query, m.ConversationID, m.SenderID, m.ClientID, m.Content), m)
	if err == nil {
		return true, nil
	}
	if !base.IsNotFound(err) {
		return false, fmt.Errorf("create message: %w", err)
	}

	existing, err := r.GetByClientID(ctx, m.SenderID, m.ClientID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("create message: conflicting row for client id %s disappeared", m.ClientID)
	}

	*m = *existing
	return false, nil
}

// GetByID получает сообщение по ID
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	var m model.Message
	if err := scanMessage(r.QueryRow(ctx, query, id), &m); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	return &m, nil
}

// GetByClientID получает сообщение по ключу идемпотентности отправителя
func (r *MessageRepository) GetByClientID(ctx context.Context, senderID int64, clientID uuid.UUID) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE sender_id = $1 AND client_id = $2`

	var m model.Message
	if err := scanMessage(r.QueryRow(ctx, query, senderID, clientID), &m); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message by client id: %w", err)
	}

	return &m, nil
}

// курсор bigint: без приведения postgres выводит $2 как int4
const listMessagesQuery = `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE conversation_id = $1 AND ($2::bigint = 0 OR id < $2::bigint)
	ORDER BY id DESC
	LIMIT $3
`

// ListByConversation получает страницу сообщений от новых к старым.
// beforeID = 0 - с самого нового.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID, beforeID int64, limit int) ([]*model.Message, error) {
	rows, err := r.Query(ctx, listMessagesQuery, conversationID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// UpdateContent редактирует текст и помечает сообщение как изменённое
func (r *MessageRepository) UpdateContent(ctx context.Context, m *model.Message) error {
	query := `
		UPDATE messages
		SET content = $1, is_edited = TRUE, updated_at = NOW()
		WHERE id = $2 AND NOT is_deleted
		RETURNING is_edited, updated_at
	`

	if err := r.QueryRow(ctx, query, m.Content, m.ID).Scan(&m.IsEdited, &m.UpdatedAt); err != nil {
		if base.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update message: %w", err)
	}

	return nil
}

// MarkDeleted помечает сообщение удалённым, строка остаётся в таблице
func (r *MessageRepository) MarkDeleted(ctx context.Context, m *model.Message) error {
	query := `
		UPDATE messages
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING is_deleted, updated_at
	`

	if err := r.QueryRow(ctx, query, m.ID).Scan(&m.IsDeleted, &m.UpdatedAt); err != nil {
		if base.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}

	return nil
}

// MarkRead отмечает прочитанными входящие сообщения диалога.
// Возвращает ID последнего отмеченного сообщения (0, если отмечать было нечего).
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, readerID int64, at time.Time) (int64, error) {
	query := `
		WITH updated AS (
			UPDATE messages
			SET read_at = $3
			WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
			RETURNING id
		)
		SELECT COALESCE(MAX(id), 0) FROM updated
	`

	var lastID int64
	if err := r.QueryRow(ctx, query, conversationID, readerID, at).Scan(&lastID); err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	return lastID, nil
}

// ToggleReaction ставит реакцию или снимает уже поставленную. Возвращает true, если реакция добавлена.
func (r *MessageRepository) ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	removed, err := r.ExecAffected(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("remove reaction: %w", err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = r.ExecAffected(ctx, `
		INSERT INTO message_reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("add reaction: %w", err)
	}

	return true, nil
}

// ListReactions получает реакции на набор сообщений
func (r *MessageRepository) ListReactions(ctx context.Context, messageIDs []int64) (map[int64][]*model.MessageReaction, error) {
	result := make(map[int64][]*model.MessageReaction)
	if len(messageIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = ANY($1)
		ORDER BY created_at
	`

	rows, err := r.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reaction model.MessageReaction
		if err := rows.Scan(&reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		result[reaction.MessageID] = append(result[reaction.MessageID], &reaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}

	return result, nil
}
