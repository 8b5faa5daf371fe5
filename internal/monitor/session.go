// Package monitor 实现监听身份的长轮询会话：接收监听群消息并转发命中通知。
package monitor

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// UpdateSource 更新来源（*tgbotapi.BotAPI 已实现）
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Dialer 建立一个新的更新连接
type Dialer func(token string) (UpdateSource, error)

// DialBotAPI 使用 tgbotapi 建立连接
func DialBotAPI(token string) (UpdateSource, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	logrus.WithFields(logrus.Fields{
		"用户名":   api.Self.UserName,
		"机器人ID": api.Self.ID,
	}).Info("🔐 监听账号授权成功")
	return api, nil
}

// Session 监听会话
type Session struct {
	token       string
	pollTimeout int
	relay       *Relay
	dial        Dialer
}

// NewSession 创建监听会话，dial 为 nil 时使用 DialBotAPI
func NewSession(token string, pollTimeout int, relay *Relay, dial Dialer) *Session {
	if dial == nil {
		dial = DialBotAPI
	}
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	return &Session{
		token:       token,
		pollTimeout: pollTimeout,
		relay:       relay,
		dial:        dial,
	}
}

// Run 运行一次会话直到 ctx 结束或更新流关闭
//
// ctx 结束时返回 ctx.Err()；更新流自行关闭时返回 nil。返回前停止接收更新并等待在途投递完成。
func (s *Session) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// 每次运行都新建连接：StopReceivingUpdates 之后旧连接无法再次轮询
	api, err := s.dial(s.token)
	if err != nil {
		return fmt.Errorf("connect monitor session: %w", err)
	}

	u := tgbotapi.NewUpdate(-1)
	u.Timeout = s.pollTimeout
	u.AllowedUpdates = []string{"message"}
	updates := api.GetUpdatesChan(u)

	logrus.Info("🎯 监听会话已启动，正在接收群消息...")

	defer func() {
		api.StopReceivingUpdates()
		s.relay.Drain()
		logrus.Info("🛑 监听会话已停止，在途通知已完成")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate 处理单条更新，按到达顺序串行匹配
func (s *Session) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromMessage(update.Message)
	if !ok || !ev.IsGroupChat || ev.Text == "" {
		return
	}

	logrus.WithFields(logrus.Fields{
		"群组":   ev.ChatTitle,
		"群组ID": ev.ChatID,
		"用户":   ev.SenderDisplayName,
	}).Debug("📨 收到群消息")

	s.relay.Handle(ctx, ev)
}
