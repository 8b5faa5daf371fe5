package service

import (
	"context"
	"fmt"

	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender 机器人发送接口（*tgbotapi.BotAPI 已实现）
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// NotificationService 通知服务
type NotificationService struct {
	bot        Sender
	limiter    *utils.RateLimiter
	maxBodyLen int
}

// NewNotificationService 创建通知服务
func NewNotificationService(bot Sender, limiter *utils.RateLimiter, maxBodyLen int) *NotificationService {
	if limiter == nil {
		limiter = utils.NewRateLimiter(1)
	}
	if maxBodyLen <= 0 {
		maxBodyLen = 500
	}
	return &NotificationService{
		bot:        bot,
		limiter:    limiter,
		maxBodyLen: maxBodyLen,
	}
}

// SendKeywordAlert 向私有通知群发送关键词命中通知
func (s *NotificationService) SendKeywordAlert(ctx context.Context, chatID int64, alert utils.KeywordAlert) error {
	if err := s.limiter.Wait(ctx, chatID); err != nil {
		return err
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👤 Profile", utils.FormatUserLink(alert.SenderID)),
		),
	)

	msg := tgbotapi.NewMessage(chatID, utils.FormatKeywordAlert(alert, s.maxBodyLen))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard

	_, err := s.bot.Send(msg)
	if err == nil {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"聊天ID": chatID,
		"错误":   err,
	}).Warn("⚠️ MarkdownV2 通知发送失败，改用纯文本重试")

	// 用户隐私设置可能导致资料按钮被拒绝，纯文本重试时不带按钮
	plain := tgbotapi.NewMessage(chatID, utils.FormatKeywordAlertPlain(alert, s.maxBodyLen))
	plain.DisableWebPagePreview = true
	if _, err := s.bot.Send(plain); err != nil {
		return fmt.Errorf("send keyword alert to %d: %w", chatID, err)
	}
	return nil
}

// SendTextMessage 发送文本消息
func (s *NotificationService) SendTextMessage(chatID int64, text string) error {
	return s.sendMessage(chatID, text, nil)
}

// SendMessageWithButtons 发送带按钮的消息
func (s *NotificationService) SendMessageWithButtons(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	return s.sendMessage(chatID, text, &keyboard)
}

// sendMessage 先按 Markdown 发送，解析失败时去掉格式重试
func (s *NotificationService) sendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}

	_, err := s.bot.Send(msg)
	if err != nil {
		logrus.Warnf("Failed to send message with Markdown: %v, retrying without parse mode", err)
		msg.ParseMode = ""
		if _, err = s.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

// EditMessage 编辑消息
func (s *NotificationService) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}

	_, err := s.bot.Send(msg)
	if err != nil {
		logrus.Warnf("Failed to edit message with Markdown: %v, retrying without parse mode", err)
		msg.ParseMode = ""
		if _, err = s.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to edit message: %w", err)
		}
	}
	return nil
}

// AnswerCallbackQuery 回应回调查询
func (s *NotificationService) AnswerCallbackQuery(callbackQueryID string, text string, showAlert bool) error {
	callback := tgbotapi.NewCallback(callbackQueryID, text)
	callback.ShowAlert = showAlert

	_, err := s.bot.Request(callback)
	return err
}
