package bot

import (
	"sync"

	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/config"
	"keyword-alert-bot/internal/service"
	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Bot 配置界面机器人（同时负责发送命中通知）
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	handler *Handler
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewAPI 创建并授权 Bot API
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	api.Debug = false
	logrus.WithFields(logrus.Fields{
		"用户名":   api.Self.UserName,
		"机器人ID": api.Self.ID,
	}).Info("🔐 机器人授权成功")
	return api, nil
}

// NewBot 创建机器人实例
func NewBot(api *tgbotapi.BotAPI, cfg *config.Config,
	services *service.Services,
	notificationService *service.NotificationService,
	sessions *cache.SessionCache,
	status StatusProvider,
	relay GroupRelay) *Bot {

	permissionChecker := NewPermissionChecker(cfg, services.Admins)
	handler := NewHandler(api, cfg, permissionChecker, services, notificationService, sessions, status, relay)

	return &Bot{
		api:     api,
		cfg:     cfg,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Start 开始接收更新，阻塞直到 Stop
func (b *Bot) Start() {
	defer close(b.done)

	// 使用 -1 只获取新消息，忽略历史消息
	u := tgbotapi.NewUpdate(-1)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	logrus.Info("📡 开始监听 Telegram 更新...")

	for update := range updates {
		update := update
		b.wg.Add(1)
		utils.SafeGo("bot-update", func() {
			defer b.wg.Done()
			b.handleUpdate(update)
		})
	}
}

// Stop 停止接收更新并等待处理中的更新完成
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	<-b.done
	b.wg.Wait()
	logrus.Info("🛑 机器人已停止")
}

// handleUpdate 处理更新
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		logrus.WithFields(logrus.Fields{
			"消息ID":  update.Message.MessageID,
			"是否为命令": update.Message.IsCommand(),
			"聊天类型":  update.Message.Chat.Type,
			"聊天ID":  update.Message.Chat.ID,
		}).Debug("🔍 收到消息")

		switch {
		case update.Message.IsCommand():
			b.handler.HandleMessage(update.Message)
		case update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup():
			b.handler.HandleGroupMessage(update.Message)
		default:
			b.handler.HandleTextMessage(update.Message)
		}
	}

	if update.CallbackQuery != nil {
		b.handler.HandleCallback(update.CallbackQuery)
	}
}
