package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier пишет уведомления в лог. Используется, когда токен бота не задан.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID int64, text string) {
	n.logger.Debug("Notification",
		zap.Int64("user_id", userID),
		zap.String("text", text),
	)
}
