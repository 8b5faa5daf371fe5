package monitor

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InboundEvent 监听会话收到的一条消息
type InboundEvent struct {
	ChatID            int64
	IsGroupChat       bool
	Text              string
	SenderID          int64
	SenderDisplayName string
	ChatTitle         string
}

// EventFromMessage 将 Telegram 消息转换为 InboundEvent，没有发送者时返回 false
func EventFromMessage(msg *tgbotapi.Message) (InboundEvent, bool) {
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return InboundEvent{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	title := msg.Chat.Title
	if title == "" {
		title = "Unknown"
	}

	return InboundEvent{
		ChatID:            msg.Chat.ID,
		IsGroupChat:       msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
		Text:              text,
		SenderID:          msg.From.ID,
		SenderDisplayName: senderName(msg.From),
		ChatTitle:         title,
	}, true
}

// senderName 优先用户名，其次名字
func senderName(u *tgbotapi.User) string {
	switch {
	case u.UserName != "":
		return u.UserName
	case u.FirstName != "":
		return u.FirstName
	}
	return "Unknown"
}
