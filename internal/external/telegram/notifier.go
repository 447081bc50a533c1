// Package telegram отправляет итоги пакетного сбора в чат Telegram.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restoharvest/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxListedFailures ограничивает число сбоев, перечисленных в сообщении
const maxListedFailures = 10

// Sender отправляет сообщения; реализуется *tgbotapi.BotAPI
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier отправляет итог сбора в один чат
type Notifier struct {
	sender Sender
	chatID int64
	logger *zap.Logger
}

var _ service.Notifier = (*Notifier)(nil)

// NewNotifier создает уведомитель с клиентом Bot API
func NewNotifier(botToken string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false
	logger.Info("Telegram notifier created", zap.String("username", bot.Self.UserName))

	return NewNotifierWithSender(bot, chatID, logger), nil
}

// NewNotifierWithSender создает уведомитель поверх произвольного Sender
func NewNotifierWithSender(sender Sender, chatID int64, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

// NotifyBatch отправляет итог пакетного сбора
func (n *Notifier) NotifyBatch(ctx context.Context, report *service.BatchReport, batchErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatReport(report, batchErr))
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send batch report: %w", err)
	}

	n.logger.Debug("Batch report sent", zap.Int64("chat_id", n.chatID))
	return nil
}

// FormatReport форматирует итог сбора в текст сообщения
func FormatReport(report *service.BatchReport, batchErr error) string {
	var b strings.Builder

	switch {
	case report == nil || batchErr != nil:
		b.WriteString("❌ Сбор прерван\n")
	case report.HasFailures():
		b.WriteString("⚠️ Сбор завершен со сбоями\n")
	default:
		b.WriteString("✅ Сбор завершен\n")
	}

	if report == nil {
		if batchErr != nil {
			fmt.Fprintf(&b, "Ошибка: %v\n", batchErr)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Начало: %s\n", report.StartedAt.Format("02.01.06 15:04"))
	fmt.Fprintf(&b, "Длительность: %s\n", report.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Ресторанов в списке: %d (новых: %d)\n", report.Listings, report.NewListings)
	fmt.Fprintf(&b, "Собрано: %d (отзывов: %d)\n", report.Harvested, report.Reviews)
	fmt.Fprintf(&b, "Без отзывов: %d\n", report.ZeroReview)
	fmt.Fprintf(&b, "Пропущено: %d\n", report.Skipped)
	fmt.Fprintf(&b, "Сбоев: %d\n", len(report.Failed))

	for i, failure := range report.Failed {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "… и еще %d\n", len(report.Failed)-maxListedFailures)
			break
		}
		name := failure.Name
		if name == "" {
			name = failure.DetailURL
		}
		fmt.Fprintf(&b, "• %s: %s\n", name, failure.Reason)
	}

	if batchErr != nil {
		fmt.Fprintf(&b, "Ошибка: %v\n", batchErr)
	}

	return b.String()
}
