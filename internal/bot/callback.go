package bot

import (
	"fmt"
	"strings"

	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/scheduler"
	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// callbackContext 一次回调的上下文
type callbackContext struct {
	query   *tgbotapi.CallbackQuery
	role    Role
	session cache.SessionContext
	id      int64
}

// HandleCallback 处理回调查询
func (h *Handler) HandleCallback(callback *tgbotapi.CallbackQuery) {
	if callback == nil || callback.From == nil || callback.Message == nil {
		return
	}

	role := h.permissionChecker.RoleOf(callback.From.ID)
	if role == RoleStranger {
		h.answer(callback, "❌ You do not have permission", true)
		return
	}

	action, id, ok := parseCallbackData(callback.Data)
	if !ok {
		h.answer(callback, "❌ Invalid action", true)
		return
	}
	logrus.Debugf("Received callback: %s from user %d", callback.Data, callback.From.ID)

	c := &callbackContext{
		query:   callback,
		role:    role,
		session: h.sessions.Get(callback.From.ID),
		id:      id,
	}

	// 点击任何按钮都结束之前的输入，需要输入的分支会重新设置
	c.session.Awaiting = cache.AwaitNone
	h.sessions.Save(c.session)

	if role == RoleSuperAdmin && h.handleSuperAdminCallback(c, action) {
		h.answer(callback, "", false)
		return
	}
	if h.handleAdminCallback(c, action) {
		h.answer(callback, "", false)
		return
	}
	h.answer(callback, "❌ Invalid action", true)
}

// handleSuperAdminCallback 超级管理员菜单，返回是否已处理
func (h *Handler) handleSuperAdminCallback(c *callbackContext, action string) bool {
	switch action {
	case actAddAdmin:
		h.await(c, cache.AwaitAdminID)
		h.edit(c, "📝 Send the new admin's numeric ID:\n\nSend /cancel to abort", backKeyboard())
	case actListAdmins:
		h.showAdminList(c)
	case actRemoveAdmin:
		h.showAdminPicker(c, "🗑", actConfirmRmAdmin, "🗑 Choose the admin to remove:")
	case actConfirmRmAdmin:
		if err := h.services.Admins.RemoveAdmin(c.id); err != nil {
			logrus.Errorf("Failed to remove admin: %v", err)
			h.edit(c, "❌ Failed to remove admin", backKeyboard())
			return true
		}
		h.edit(c, "✅ Admin removed together with all keywords and groups!", backKeyboard())
	case actEnterRoom:
		h.showAdminPicker(c, "🚪", actConfirmEnter, "🚪 Choose an admin:")
	case actConfirmEnter:
		c.session.ActingAs = c.id
		h.sessions.Save(c.session)
		h.edit(c, fmt.Sprintf("🏠 Admin room (ID: %d):", c.id), adminKeyboard())
	case actSchedule:
		h.showSchedule(c)
	case actDisableSchedule:
		if err := h.services.Settings.DisableSchedule(); err != nil {
			logrus.Errorf("Failed to disable schedule: %v", err)
			h.edit(c, "❌ Failed to save settings", backKeyboard())
			return true
		}
		h.edit(c, "✅ Daily stop disabled! The monitor runs 24/7.", backKeyboard())
	case actStatus:
		h.showStatus(c)
	case actBack:
		c.session.ActingAs = 0
		c.session.Awaiting = cache.AwaitNone
		h.sessions.Save(c.session)
		h.edit(c, "🔐 Super Admin menu:", superAdminKeyboard())
	default:
		return false
	}
	return true
}

// handleAdminCallback 管理员房间菜单，返回是否已处理
func (h *Handler) handleAdminCallback(c *callbackContext, action string) bool {
	adminID := h.targetAdmin(c.session, c.role)

	switch action {
	case actAddKeyword:
		h.await(c, cache.AwaitKeyword)
		h.edit(c, "📝 Enter the keyword:", backKeyboard())
	case actViewKeywords:
		h.showKeywords(c, adminID)
	case actDeleteKeyword:
		h.showKeywordPicker(c, adminID)
	case actConfirmDelKw:
		removed, err := h.services.Keywords.RemoveKeyword(adminID, c.id)
		h.editResult(c, removed, err, "✅ Keyword deleted!", "ℹ️ Keyword not found.")
	case actAddPrivate:
		h.await(c, cache.AwaitPrivateGroup)
		h.edit(c, "📝 Send the private group ID or link:\n\n"+groupIDHint, backKeyboard())
	case actViewPrivate:
		h.showPrivateGroup(c, adminID, false)
	case actDeletePrivate:
		h.showPrivateGroup(c, adminID, true)
	case actConfirmDelPg:
		err := h.services.Groups.RemovePrivateGroup(adminID)
		h.editResult(c, true, err, "✅ Private group deleted!", "")
	case actAddSearch:
		h.showAddSearchGroup(c, adminID)
	case actViewSearch:
		h.showSearchGroups(c, adminID)
	case actDeleteSearch:
		h.showSearchGroupPicker(c, adminID)
	case actConfirmDelSg:
		removed, err := h.services.Groups.RemoveSearchGroup(adminID, c.id)
		h.editResult(c, removed, err, "✅ Search group deleted!", "ℹ️ Search group not found.")
	case actBack:
		c.session.Awaiting = cache.AwaitNone
		h.sessions.Save(c.session)
		h.edit(c, "🏠 Admin menu:", adminKeyboard())
	default:
		return false
	}
	return true
}

const groupIDHint = "💡 How to get the ID:\n1. Add the bot to the group as admin\n2. Send /id in the group\n3. Send the ID or link here"

func (h *Handler) await(c *callbackContext, kind cache.AwaitingInput) {
	c.session.Awaiting = kind
	h.sessions.SetAwaiting(c.session.UserID, kind)
}

func (h *Handler) showAdminList(c *callbackContext) {
	admins, err := h.services.Admins.GetAllAdmins()
	if err != nil {
		h.editError(c, "Failed to get admins", err)
		return
	}
	if len(admins) == 0 {
		h.edit(c, "ℹ️ No admins yet.", backKeyboard())
		return
	}
	h.edit(c, fmt.Sprintf("📋 Admins (%d):", len(admins)), adminListKeyboard(admins))
}

func (h *Handler) showAdminPicker(c *callbackContext, icon, action, title string) {
	admins, err := h.services.Admins.GetAllAdmins()
	if err != nil {
		h.editError(c, "Failed to get admins", err)
		return
	}
	if len(admins) == 0 {
		h.edit(c, "ℹ️ No admins yet.", backKeyboard())
		return
	}
	h.edit(c, title, pickAdminKeyboard(admins, icon, action))
}

func (h *Handler) showSchedule(c *callbackContext) {
	sched, err := h.services.Settings.Schedule()
	if err != nil {
		h.editError(c, "Failed to read settings", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("⚙️ Monitor schedule:\n\n")
	sb.WriteString(fmt.Sprintf("⏰ Daily stop: %s\n", enabledLabel(sched.Enabled)))
	if sched.Enabled {
		sb.WriteString(fmt.Sprintf("🌙 Stop time: %s\n🌅 Start time: %s\n", sched.Stop, sched.Start))
	}
	sb.WriteString("\n💡 To change the window send it in this format:\n`00:00:02:00`\n(stops at 00:00, starts at 02:00)\n\n")
	sb.WriteString("📝 To disable the daily stop send: `off`")

	h.await(c, cache.AwaitScheduleTime)
	h.edit(c, sb.String(), scheduleKeyboard())
}

func (h *Handler) showStatus(c *callbackContext) {
	stats, err := h.services.Stats.GetStats()
	if err != nil {
		h.editError(c, "Failed to read statistics", err)
		return
	}
	sched, err := h.services.Settings.Schedule()
	if err != nil {
		h.editError(c, "Failed to read settings", err)
		return
	}
	lastCheck, err := h.services.Settings.GetSetting(models.SettingLastCheck, "Never")
	if err != nil {
		h.editError(c, "Failed to read settings", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("🤖 Monitor status:\n\n📊 Statistics:\n")
	sb.WriteString(fmt.Sprintf("👥 Admins: %d\n", stats.Admins))
	sb.WriteString(fmt.Sprintf("🔑 Keywords: %d\n", stats.Keywords))
	sb.WriteString(fmt.Sprintf("🔍 Search groups: %d\n", stats.SearchGroups))
	sb.WriteString(fmt.Sprintf("📢 Private groups: %d\n\n", stats.PrivateGroups))
	sb.WriteString("⚙️ Settings:\n")
	sb.WriteString(fmt.Sprintf("⏰ Daily stop: %s\n", enabledLabel(sched.Enabled)))
	if sched.Enabled {
		sb.WriteString(fmt.Sprintf("🌙 Stop: %s\n🌅 Start: %s\n", sched.Stop, sched.Start))
	}
	if h.status != nil {
		state, next := h.status.Status()
		sb.WriteString(fmt.Sprintf("📡 State: %s", state))
		if !next.IsZero() && state != scheduler.StateDisabled {
			sb.WriteString(fmt.Sprintf(" (until %s)", utils.FormatTimestamp(next)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n🕐 Last check: %s\n\n", lastCheck))
	sb.WriteString("💡 To verify the monitor, post a keyword in a search group.")

	if err := h.services.Settings.SetSetting(models.SettingLastCheck, utils.FormatTimestamp(h.nowFn())); err != nil {
		logrus.Errorf("Failed to save last check: %v", err)
	}

	h.edit(c, sb.String(), statusKeyboard())
}

func (h *Handler) showKeywords(c *callbackContext, adminID int64) {
	keywords, err := h.services.Keywords.GetKeywords(adminID)
	if err != nil {
		h.editError(c, "Failed to get keywords", err)
		return
	}
	if len(keywords) == 0 {
		h.edit(c, "ℹ️ No keywords.", backKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Keywords:\n\n")
	for i, kw := range keywords {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, kw.Text))
	}
	sb.WriteString(fmt.Sprintf("\n💾 Total: %d", len(keywords)))
	h.edit(c, sb.String(), backKeyboard())
}

func (h *Handler) showKeywordPicker(c *callbackContext, adminID int64) {
	keywords, err := h.services.Keywords.GetKeywords(adminID)
	if err != nil {
		h.editError(c, "Failed to get keywords", err)
		return
	}
	if len(keywords) == 0 {
		h.edit(c, "ℹ️ No keywords.", backKeyboard())
		return
	}
	h.edit(c, "🗑 Choose the keyword to delete:", deleteKeywordKeyboard(keywords))
}

func (h *Handler) showPrivateGroup(c *callbackContext, adminID int64, forDelete bool) {
	group, err := h.services.Groups.GetPrivateGroup(adminID)
	if err != nil {
		h.editError(c, "Failed to get private group", err)
		return
	}
	if group == nil {
		h.edit(c, "ℹ️ No private group.", backKeyboard())
		return
	}

	if !forDelete {
		h.edit(c, fmt.Sprintf("📢 Private group: %s", group.Name()), backKeyboard())
		return
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+group.Name(), callbackDataID(actConfirmDelPg, adminID)),
		),
		backRow(),
	)
	h.edit(c, "🗑 Choose the private group to delete:", keyboard)
}

func (h *Handler) showAddSearchGroup(c *callbackContext, adminID int64) {
	count, err := h.services.Groups.SearchGroupCount(adminID)
	if err != nil {
		h.editError(c, "Failed to get search groups", err)
		return
	}

	h.await(c, cache.AwaitSearchGroup)
	h.edit(c, fmt.Sprintf("📝 Send the search group ID or link:\n\n📊 Current: %d/%d\n\n%s",
		count, h.services.Groups.Policy().MaxGroups, groupIDHint), backKeyboard())
}

func (h *Handler) showSearchGroups(c *callbackContext, adminID int64) {
	groups, err := h.services.Groups.GetSearchGroups(adminID)
	if err != nil {
		h.editError(c, "Failed to get search groups", err)
		return
	}
	if len(groups) == 0 {
		h.edit(c, "ℹ️ No search groups.", backKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Search groups:\n\n")
	for i := range groups {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, groups[i].Name()))
	}
	sb.WriteString(fmt.Sprintf("\n💾 Total: %d/%d", len(groups), h.services.Groups.Policy().MaxGroups))
	h.edit(c, sb.String(), backKeyboard())
}

func (h *Handler) showSearchGroupPicker(c *callbackContext, adminID int64) {
	groups, err := h.services.Groups.GetSearchGroups(adminID)
	if err != nil {
		h.editError(c, "Failed to get search groups", err)
		return
	}
	if len(groups) == 0 {
		h.edit(c, "ℹ️ No search groups.", backKeyboard())
		return
	}
	h.edit(c, "🗑 Choose the search group to delete:", deleteSearchGroupKeyboard(groups))
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "✅ Enabled"
	}
	return "❌ Disabled"
}

// edit 编辑回调所在的消息
func (h *Handler) edit(c *callbackContext, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := c.query.Message
	if err := h.notificationService.EditMessage(msg.Chat.ID, msg.MessageID, text, &keyboard); err != nil {
		logrus.Errorf("Failed to edit message: %v", err)
	}
}

func (h *Handler) editResult(c *callbackContext, ok bool, err error, success, missing string) {
	switch {
	case err != nil:
		h.editError(c, "Operation failed", err)
	case ok:
		h.edit(c, success, backKeyboard())
	default:
		h.edit(c, missing, backKeyboard())
	}
}

func (h *Handler) editError(c *callbackContext, text string, err error) {
	logrus.WithFields(logrus.Fields{
		"用户ID": c.query.From.ID,
		"错误":   err,
	}).Error("❌ " + text)
	h.edit(c, "❌ "+text, backKeyboard())
}

func (h *Handler) answer(callback *tgbotapi.CallbackQuery, text string, showAlert bool) {
	if err := h.notificationService.AnswerCallbackQuery(callback.ID, text, showAlert); err != nil {
		logrus.Debugf("Failed to answer callback: %v", err)
	}
}
