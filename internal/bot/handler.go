package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/config"
	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/monitor"
	"keyword-alert-bot/internal/scheduler"
	"keyword-alert-bot/internal/service"
	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ChatLookup 查询聊天信息（*tgbotapi.BotAPI 已实现）
type ChatLookup interface {
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// StatusProvider 监听调度状态
type StatusProvider interface {
	Status() (scheduler.State, time.Time)
}

// GroupRelay 处理机器人所在群的消息（关键词匹配与通知）
type GroupRelay interface {
	Handle(ctx context.Context, ev monitor.InboundEvent) int
}

// Handler Bot命令处理器
type Handler struct {
	lookup              ChatLookup
	cfg                 *config.Config
	permissionChecker   *PermissionChecker
	services            *service.Services
	notificationService *service.NotificationService
	sessions            *cache.SessionCache
	status              StatusProvider
	relay               GroupRelay
	nowFn               func() time.Time
}

// NewHandler 创建处理器
func NewHandler(lookup ChatLookup, cfg *config.Config,
	permissionChecker *PermissionChecker,
	services *service.Services,
	notificationService *service.NotificationService,
	sessions *cache.SessionCache,
	status StatusProvider,
	relay GroupRelay) *Handler {

	return &Handler{
		lookup:              lookup,
		cfg:                 cfg,
		permissionChecker:   permissionChecker,
		services:            services,
		notificationService: notificationService,
		sessions:            sessions,
		status:              status,
		relay:               relay,
		nowFn:               time.Now,
	}
}

// HandleMessage 处理命令
func (h *Handler) HandleMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.From.IsBot {
		return
	}
	if !message.IsCommand() {
		return
	}

	command := message.Command()
	logrus.WithFields(logrus.Fields{
		"命令":   command,
		"用户ID": message.From.ID,
		"聊天ID": message.Chat.ID,
	}).Info("📨 收到命令")

	switch command {
	case "start":
		h.handleStart(message)
	case "id":
		h.handleID(message)
	case "cancel":
		h.handleCancel(message)
	case "help":
		h.handleHelp(message)
	default:
		logrus.Debugf("Unknown command: %s", command)
	}
}

// handleStart 处理 /start 命令
func (h *Handler) handleStart(message *tgbotapi.Message) {
	if !message.Chat.IsPrivate() {
		return
	}

	userID := message.From.ID
	username, fullName := GetUserInfo(message.From)
	if username == "" {
		username = fullName
	}

	// 重新开始时清除进行中的输入
	h.sessions.Reset(userID)

	switch h.permissionChecker.RoleOf(userID) {
	case RoleSuperAdmin:
		h.reply(message.Chat.ID, "🔐 Hello, Super Admin!\n\nChoose a section from the menu:", superAdminKeyboard())
	case RoleAdmin:
		h.reply(message.Chat.ID, fmt.Sprintf("👋 Hello, %s!\n\n🏠 Welcome to your room:", username), adminKeyboard())
	default:
		h.reply(message.Chat.ID,
			fmt.Sprintf("👋 Hello, %s!\n\n⚠️ Only admins can use this bot.\nPlease contact the admin for access.", username),
			contactKeyboard(h.cfg.Telegram.SuperAdminID))
	}
}

// handleID 处理 /id 命令（群组中获取群组ID）
func (h *Handler) handleID(message *tgbotapi.Message) {
	text := fmt.Sprintf("📊 This chat ID: `%d`", message.Chat.ID)
	if err := h.notificationService.SendTextMessage(message.Chat.ID, text); err != nil {
		logrus.Errorf("Failed to send chat id: %v", err)
	}
}

// handleCancel 处理 /cancel 命令（取消当前输入）
func (h *Handler) handleCancel(message *tgbotapi.Message) {
	if !message.Chat.IsPrivate() {
		return
	}

	session := h.sessions.Get(message.From.ID)
	h.sessions.Reset(message.From.ID)

	if session.Awaiting == cache.AwaitNone {
		h.reply(message.Chat.ID, "✅ Nothing to cancel", backKeyboard())
		return
	}
	h.reply(message.Chat.ID, "✅ Current operation cancelled", backKeyboard())
	logrus.WithFields(logrus.Fields{
		"用户ID": message.From.ID,
		"状态":   session.Awaiting.String(),
	}).Info("🚫 用户取消了对话操作")
}

// handleHelp 处理 /help 命令
func (h *Handler) handleHelp(message *tgbotapi.Message) {
	text := "📖 Commands\n\n" +
		"/start - open the menu\n" +
		"/id - show the current chat ID\n" +
		"/cancel - cancel the current input"
	if err := h.notificationService.SendTextMessage(message.Chat.ID, text); err != nil {
		logrus.Errorf("Failed to send help: %v", err)
	}
}

// HandleGroupMessage 检查机器人所在群的消息是否命中关键词
func (h *Handler) HandleGroupMessage(message *tgbotapi.Message) {
	if h.relay == nil {
		return
	}

	ev, ok := monitor.EventFromMessage(message)
	if !ok || !ev.IsGroupChat || ev.Text == "" {
		return
	}
	h.relay.Handle(context.Background(), ev)
}

// HandleTextMessage 处理私聊中的文本输入
func (h *Handler) HandleTextMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.From.IsBot {
		return
	}
	if !message.Chat.IsPrivate() || message.Text == "" {
		return
	}

	userID := message.From.ID
	session := h.sessions.Get(userID)
	if session.Awaiting == cache.AwaitNone {
		return
	}

	role := h.permissionChecker.RoleOf(userID)
	if role == RoleStranger {
		h.sessions.Reset(userID)
		return
	}

	text := strings.TrimSpace(message.Text)
	chatID := message.Chat.ID

	// 一次输入后回到菜单状态
	awaiting := session.Awaiting
	session.Awaiting = cache.AwaitNone
	h.sessions.Save(session)

	switch awaiting {
	case cache.AwaitAdminID:
		if role == RoleSuperAdmin {
			h.processAdminID(chatID, text)
		}
	case cache.AwaitScheduleTime:
		if role == RoleSuperAdmin {
			h.processSchedule(chatID, text)
		}
	case cache.AwaitKeyword:
		h.processKeyword(chatID, h.targetAdmin(session, role), text)
	case cache.AwaitPrivateGroup:
		h.processPrivateGroup(chatID, h.targetAdmin(session, role), text)
	case cache.AwaitSearchGroup:
		h.processSearchGroup(chatID, userID, h.targetAdmin(session, role), text)
	}
}

// targetAdmin 当前操作的管理员（只有超级管理员可以代为操作）
func (h *Handler) targetAdmin(session cache.SessionContext, role Role) int64 {
	if role == RoleSuperAdmin {
		return session.TargetAdmin()
	}
	return session.UserID
}

// processAdminID 添加管理员
func (h *Handler) processAdminID(chatID int64, text string) {
	newID, err := ParseAdminID(text)
	if err != nil {
		h.reply(chatID, err.Error(), backKeyboard())
		return
	}

	name := h.lookupUserName(newID)
	added, err := h.services.Admins.AddAdmin(newID, name)
	if err != nil {
		logrus.Errorf("Failed to add admin: %v", err)
		h.reply(chatID, "❌ Failed to add admin, please try again later", backKeyboard())
		return
	}
	if !added {
		h.reply(chatID, "ℹ️ This admin already exists!", backKeyboard())
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Admin added!\n\n👤 %s\n🆔 %d", name, newID), backKeyboard())
}

// processSchedule 设置每日启停
func (h *Handler) processSchedule(chatID int64, text string) {
	input, err := ParseScheduleInput(text)
	if err != nil {
		h.reply(chatID, errInvalidSchedule.Error(), backKeyboard())
		return
	}

	if input.Disable {
		if err := h.services.Settings.DisableSchedule(); err != nil {
			logrus.Errorf("Failed to disable schedule: %v", err)
			h.reply(chatID, "❌ Failed to save settings", backKeyboard())
			return
		}
		h.reply(chatID, "✅ Daily stop disabled! The monitor runs 24/7.", backKeyboard())
		return
	}

	if err := h.services.Settings.SetSchedule(input.Stop, input.Start); err != nil {
		logrus.Errorf("Failed to save schedule: %v", err)
		h.reply(chatID, "❌ Failed to save settings", backKeyboard())
		return
	}
	logrus.WithFields(logrus.Fields{
		"停止": input.Stop.String(),
		"启动": input.Start.String(),
	}).Info("⏰ 每日启停时间已更新")
	h.reply(chatID, fmt.Sprintf("✅ Schedule saved!\n\n🌙 Stop: %s\n🌅 Start: %s\n\nApplies from the next transition.", input.Stop, input.Start), backKeyboard())
}

// processKeyword 添加关键词
func (h *Handler) processKeyword(chatID, adminID int64, text string) {
	kw, err := h.services.Keywords.AddKeyword(adminID, text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyKeyword) {
			h.reply(chatID, "❌ Keyword cannot be empty", backKeyboard())
			return
		}
		logrus.Errorf("Failed to add keyword: %v", err)
		h.reply(chatID, "❌ Failed to add keyword", backKeyboard())
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Keyword added: %s", kw.Text), backKeyboard())
}

// processPrivateGroup 设置私有通知群
func (h *Handler) processPrivateGroup(chatID, adminID int64, text string) {
	ref, err := ParseGroupInput(text)
	if err != nil {
		h.reply(chatID, err.Error(), backKeyboard())
		return
	}
	h.resolveGroupName(&ref)

	if err := h.services.Groups.UpsertPrivateGroup(adminID, ref); err != nil {
		logrus.Errorf("Failed to save private group: %v", err)
		h.reply(chatID, "❌ Failed to save private group", backKeyboard())
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Private group added: %s", *ref.GroupName), backKeyboard())
}

// processSearchGroup 添加监听群
func (h *Handler) processSearchGroup(chatID, actorID, adminID int64, text string) {
	ref, err := ParseGroupInput(text)
	if err != nil {
		h.reply(chatID, err.Error(), backKeyboard())
		return
	}
	h.resolveGroupName(&ref)

	ok, msg, err := h.services.Groups.AddSearchGroup(adminID, h.permissionChecker.IsSuperAdmin(actorID), ref)
	if err != nil {
		logrus.Errorf("Failed to add search group: %v", err)
		h.reply(chatID, "❌ Failed to add search group", backKeyboard())
		return
	}
	if ok {
		msg = fmt.Sprintf("%s: %s", msg, *ref.GroupName)
	}
	h.reply(chatID, msg, backKeyboard())
}

// resolveGroupName 按 ID 查询群名，查询失败使用 "Group <id>"
func (h *Handler) resolveGroupName(ref *models.GroupRef) {
	if ref.GroupName != nil || ref.GroupID == nil {
		return
	}

	name := fmt.Sprintf("Group %d", *ref.GroupID)
	chat, err := h.lookup.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: *ref.GroupID}})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"群组ID": *ref.GroupID,
			"错误":   err,
		}).Debug("获取群组信息失败，使用默认名称")
	} else if title := GetChatTitle(&chat); title != "" {
		name = utils.SafeDisplayName(title)
	}
	ref.GroupName = &name
}

// lookupUserName 查询用户名，失败时使用 User_<id>
func (h *Handler) lookupUserName(userID int64) string {
	chat, err := h.lookup.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: userID}})
	if err == nil {
		if name := GetChatTitle(&chat); name != "" {
			return name
		}
	}
	return fmt.Sprintf("User_%d", userID)
}

// reply 发送带按钮的回复
func (h *Handler) reply(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if err := h.notificationService.SendMessageWithButtons(chatID, text, keyboard); err != nil {
		logrus.Errorf("Failed to send reply: %v", err)
	}
}
