package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxMessageLength   = 4000
	maxEmojiLength     = 16
	defaultMessagePage = 50
	maxMessagePage     = 100
)

// Типы событий чата, рассылаемых в комнату диалога
const (
	EventMessageNew      = "message:new"
	EventMessageEdited   = "message:edited"
	EventMessageDeleted  = "message:deleted"
	EventMessageReaction = "message:reaction"
	EventMessageRead     = "message:read"
)

// ReactionEvent свежая сводка реакций сообщения
type ReactionEvent struct {
	MessageID int64                   `json:"message_id"`
	UserID    int64                   `json:"user_id"`
	Emoji     string                  `json:"emoji"`
	Added     bool                    `json:"added"`
	Reactions []model.ReactionSummary `json:"reactions"`
}

// ReadReceipt сообщения до UpToID включительно прочитаны ReaderID
type ReadReceipt struct {
	ConversationID int64     `json:"conversation_id"`
	ReaderID       int64     `json:"reader_id"`
	UpToID         int64     `json:"up_to_id"`
	ReadAt         time.Time `json:"read_at"`
}

type SendInput struct {
	Content  string
	ClientID *uuid.UUID
}

type MessageService struct {
	tx               TxManager
	conversationRepo ConversationRepository
	messageRepo      MessageRepository
	userRepo         UserRepository
	publisher        EventPublisher
	now              func() time.Time
	logger           *zap.Logger
}

func NewMessageService(
	tx TxManager,
	conversationRepo ConversationRepository,
	messageRepo MessageRepository,
	userRepo UserRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		tx:               tx,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		now:              time.Now,
		logger:           logger,
	}
}

// ListConversations получает диалоги пользователя, последние активные первыми
func (s *MessageService) ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	conversations, err := s.conversationRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	ids := make([]int64, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.OtherParticipant(userID))
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get conversation users: %w", err)
	}

	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, c := range conversations {
		c.OtherUser = byID[c.OtherParticipant(userID)]
	}

	return conversations, nil
}

// OpenConversation возвращает диалог с другим пользователем, создавая его при необходимости
func (s *MessageService) OpenConversation(ctx context.Context, userID, otherID int64) (*model.Conversation, error) {
	if userID == otherID {
		return nil, invalid("you cannot message yourself")
	}

	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	conversation, err := s.conversationRepo.GetOrCreate(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	conversation.OtherUser = other

	return conversation, nil
}

// CanJoin проверяет, что пользователь участник диалога. Используется при подписке на комнату.
func (s *MessageService) CanJoin(ctx context.Context, userID, conversationID int64) error {
	_, err := s.conversationFor(ctx, userID, conversationID)
	return err
}

// ListMessages получает страницу сообщений диалога от новых к старым
func (s *MessageService) ListMessages(ctx context.Context, userID, conversationID, beforeID int64, limit int) ([]*model.Message, error) {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	if err := s.attachReactions(ctx, messages); err != nil {
		return nil, err
	}

	for _, m := range messages {
		m.Redact()
	}

	return messages, nil
}

// Send отправляет сообщение. Повтор с тем же client_id возвращает сохранённое сообщение без повторной рассылки.
func (s *MessageService) Send(ctx context.Context, userID, conversationID int64, in SendInput) (*model.Message, error) {
	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	clientID := uuid.New()
	if in.ClientID != nil && *in.ClientID != uuid.Nil {
		clientID = *in.ClientID
	}

	message := &model.Message{
		ConversationID: conversation.ID,
		SenderID:       userID,
		ClientID:       clientID,
		Content:        content,
	}

	var created bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.messageRepo.Create(ctx, message)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		return s.conversationRepo.TouchLastMessage(ctx, conversation.ID, message.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	// client_id уникален на отправителя, а не на диалог
	if message.ConversationID != conversation.ID {
		return nil, invalid("client_id is already used in another conversation")
	}

	message.Reactions = []model.ReactionSummary{}
	message.Redact()

	if created {
		s.logger.Info("Message sent",
			zap.Int64("message_id", message.ID),
			zap.Int64("conversation_id", conversation.ID),
			zap.Int64("sender_id", userID),
		)
		s.publisher.PublishToConversation(conversation.ID, EventMessageNew, message)
	}

	return message, nil
}

// Edit изменяет текст своего сообщения
func (s *MessageService) Edit(ctx context.Context, userID, messageID int64, content string) (*model.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	message, err := s.messageFor(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID {
		return nil, ErrForbidden
	}
	if message.IsDeleted {
		return nil, ErrMessageDeleted
	}

	message.Content = content
	if err := s.messageRepo.UpdateContent(ctx, message); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageDeleted
		}
		return nil, fmt.Errorf("edit message: %w", err)
	}

	if err := s.attachReactions(ctx, []*model.Message{message}); err != nil {
		return nil, err
	}

	s.logger.Info("Message edited", zap.Int64("message_id", messageID), zap.Int64("sender_id", userID))
	s.publisher.PublishToConversation(message.ConversationID, EventMessageEdited, message)

	return message, nil
}

// Delete помечает своё сообщение удалённым; строка сохраняется
func (s *MessageService) Delete(ctx context.Context, userID, messageID int64) (*model.Message, error) {
	message, err := s.messageFor(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != userID {
		return nil, ErrForbidden
	}

	if !message.IsDeleted {
		if err := s.messageRepo.MarkDeleted(ctx, message); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrMessageNotFound
			}
			return nil, fmt.Errorf("delete message: %w", err)
		}

		s.logger.Info("Message deleted", zap.Int64("message_id", messageID), zap.Int64("sender_id", userID))
	}

	message.Redact()
	message.Reactions = []model.ReactionSummary{}
	s.publisher.PublishToConversation(message.ConversationID, EventMessageDeleted, message)

	return message, nil
}

// React ставит или снимает реакцию пользователя на сообщение
func (s *MessageService) React(ctx context.Context, userID, messageID int64, emoji string) (*ReactionEvent, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		return nil, invalid("emoji must be 1..%d characters", maxEmojiLength)
	}

	message, err := s.messageFor(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted {
		return nil, ErrMessageDeleted
	}

	added, err := s.messageRepo.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}

	reactions, err := s.messageRepo.ListReactions(ctx, []int64{messageID})
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}

	event := &ReactionEvent{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		Added:     added,
		Reactions: model.SummarizeReactions(reactions[messageID]),
	}

	s.logger.Debug("Reaction toggled",
		zap.Int64("message_id", messageID),
		zap.Int64("user_id", userID),
		zap.Bool("added", added),
	)
	s.publisher.PublishToConversation(message.ConversationID, EventMessageReaction, event)

	return event, nil
}

// MarkRead отмечает прочитанными входящие сообщения диалога и рассылает уведомление о прочтении
func (s *MessageService) MarkRead(ctx context.Context, userID, conversationID int64) (*ReadReceipt, error) {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	at := s.now()
	upTo, err := s.messageRepo.MarkRead(ctx, conversationID, userID, at)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	receipt := &ReadReceipt{
		ConversationID: conversationID,
		ReaderID:       userID,
		UpToID:         upTo,
		ReadAt:         at,
	}

	if upTo > 0 {
		s.publisher.PublishToConversation(conversationID, EventMessageRead, receipt)
	}

	return receipt, nil
}

func (s *MessageService) conversationFor(ctx context.Context, userID, conversationID int64) (*model.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	if !conversation.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conversation, nil
}

// messageFor получает сообщение, проверяя участие пользователя в его диалоге
func (s *MessageService) messageFor(ctx context.Context, userID, messageID int64) (*model.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}

	if _, err := s.conversationFor(ctx, userID, message.ConversationID); err != nil {
		return nil, err
	}

	return message, nil
}

func (s *MessageService) attachReactions(ctx context.Context, messages []*model.Message) error {
	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	reactions, err := s.messageRepo.ListReactions(ctx, ids)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}

	for _, m := range messages {
		m.Reactions = model.SummarizeReactions(reactions[m.ID])
	}

	return nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("message must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", invalid("message must be at most %d characters", MaxMessageLength)
	}
	return content, nil
}
