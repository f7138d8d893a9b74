package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier пишет уведомления в журнал вместо отправки. Используется, когда SMS-шлюз не настроен.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send записывает уведомление в журнал.
func (n *LogNotifier) Send(_ context.Context, to, message string) error {
	n.logger.Info("sms notification", zap.String("to", to), zap.String("message", message))
	return nil
}
