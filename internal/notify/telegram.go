package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// MessageSender часть API бота, нужная для отправки. *bot.Bot её реализует.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// RecipientLookup ищет пользователя, которому адресовано уведомление
type RecipientLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramNotifier отправляет уведомления пользователям, привязавшим Telegram
type TelegramNotifier struct {
	sender MessageSender
	users  RecipientLookup
	logger *zap.Logger
}

func NewTelegramNotifier(sender MessageSender, users RecipientLookup, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

// Notify не возвращает ошибок: неудачная доставка только логируется
func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, text string) {
	// отмена HTTP-запроса не должна обрывать отправку
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Warn("Failed to load notification recipient", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if user == nil || user.TelegramID == nil {
		return
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramID,
		Text:   text,
	})
	if err != nil {
		n.logger.Warn("Failed to send telegram notification",
			zap.Int64("user_id", userID),
			zap.Int64("telegram_id", *user.TelegramID),
			zap.Error(err),
		)
		return
	}

	n.logger.Debug("Telegram notification sent", zap.Int64("user_id", userID))
}

// Bot обслуживает команды бота: пользователь узнаёт свой chat id и привязывает его в профиле
type Bot struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewBot(b *bot.Bot, logger *zap.Logger) *Bot {
	return &Bot{bot: b, logger: logger}
}

// RegisterHandlers регистрирует команды и меню бота
func (b *Bot) RegisterHandlers(ctx context.Context) error {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, b.handleStart)

	_, err := b.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Подключить уведомления"},
			{Command: "help", Description: "Справка"},
		},
	})
	if err != nil {
		b.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	return nil
}

// Start блокирует до отмены ctx
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Starting telegram bot...")
	b.bot.Start(ctx)
}

func (b *Bot) handleStart(ctx context.Context, tg *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   StartText(update.Message.Chat.ID),
	})
	if err != nil {
		b.logger.Warn("Failed to answer /start", zap.Error(err))
	}
}

// StartText подсказка с идентификатором чата для привязки в профиле
func StartText(chatID int64) string {
	return fmt.Sprintf(
		"Привет! Чтобы получать уведомления о занятиях, сообщениях и заявках,\n"+
			"укажите этот идентификатор в настройках профиля:\n\n%d",
		chatID,
	)
}
