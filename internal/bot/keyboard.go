package bot

import (
	"fmt"

	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 回调数据格式：menu:<action>[:<id>]
const callbackScope = "menu"

const (
	actAddAdmin        = "add_admin"
	actListAdmins      = "list_admins"
	actRemoveAdmin     = "remove_admin"
	actConfirmRmAdmin  = "rmadm"
	actEnterRoom       = "enter_room"
	actConfirmEnter    = "enter"
	actSchedule        = "schedule"
	actDisableSchedule = "schedule_off"
	actStatus          = "status"

	actAddKeyword    = "add_kw"
	actViewKeywords  = "view_kw"
	actDeleteKeyword = "del_kw"
	actConfirmDelKw  = "delkw"
	actAddPrivate    = "add_pg"
	actViewPrivate   = "view_pg"
	actDeletePrivate = "del_pg"
	actConfirmDelPg  = "delpg"
	actAddSearch     = "add_sg"
	actViewSearch    = "view_sg"
	actDeleteSearch  = "del_sg"
	actConfirmDelSg  = "delsg"

	actBack = "back"
)

func callbackData(action string) string {
	return callbackScope + ":" + action
}

func callbackDataID(action string, id int64) string {
	return fmt.Sprintf("%s:%s:%d", callbackScope, action, id)
}

func button(text, action string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, callbackData(action))
}

// superAdminKeyboard 超级管理员主菜单
func superAdminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("➕ Add admin", actAddAdmin)),
		tgbotapi.NewInlineKeyboardRow(button("📋 Admin list", actListAdmins)),
		tgbotapi.NewInlineKeyboardRow(button("🗑 Remove admin", actRemoveAdmin)),
		tgbotapi.NewInlineKeyboardRow(button("🚪 Enter admin room", actEnterRoom)),
		tgbotapi.NewInlineKeyboardRow(button("🔧 Monitor schedule", actSchedule)),
		tgbotapi.NewInlineKeyboardRow(button("🤖 Monitor status", actStatus)),
	)
}

// adminKeyboard 管理员房间菜单
func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("➕ Keyword", actAddKeyword),
			button("📋 View", actViewKeywords),
		),
		tgbotapi.NewInlineKeyboardRow(button("🗑 Delete keyword", actDeleteKeyword)),
		tgbotapi.NewInlineKeyboardRow(button("➕ Private group", actAddPrivate)),
		tgbotapi.NewInlineKeyboardRow(
			button("👁 View", actViewPrivate),
			button("🗑 Delete", actDeletePrivate),
		),
		tgbotapi.NewInlineKeyboardRow(button("➕ Search group", actAddSearch)),
		tgbotapi.NewInlineKeyboardRow(
			button("📋 View", actViewSearch),
			button("🗑 Delete", actDeleteSearch),
		),
	)
}

// backKeyboard 只有返回按钮
func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(backRow())
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", actBack))
}

// contactKeyboard 陌生用户联系超级管理员
func contactKeyboard(superAdminID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👤 Contact the admin", utils.FormatUserLink(superAdminID)),
		),
	)
}

// adminListKeyboard 管理员列表（资料链接）
func adminListKeyboard(admins []models.Admin) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(admins)+1)
	for _, a := range admins {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(
				fmt.Sprintf("👤 %s (ID: %d)", a.DisplayName, a.UserID),
				utils.FormatUserLink(a.UserID),
			),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pickAdminKeyboard 选择管理员（删除或进入房间）
func pickAdminKeyboard(admins []models.Admin, icon, action string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(admins)+1)
	for _, a := range admins {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", icon, a.DisplayName),
				callbackDataID(action, a.UserID),
			),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// deleteKeywordKeyboard 选择要删除的关键词
func deleteKeywordKeyboard(keywords []models.Keyword) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keywords)+1)
	for _, kw := range keywords {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+utils.TruncateWithEllipsis(kw.Text, 40), callbackDataID(actConfirmDelKw, kw.ID)),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// deleteSearchGroupKeyboard 选择要删除的监听群
func deleteSearchGroupKeyboard(groups []models.SearchGroup) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(groups)+1)
	for i := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+utils.TruncateWithEllipsis(groups[i].Name(), 40), callbackDataID(actConfirmDelSg, groups[i].ID)),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// scheduleKeyboard 调度设置菜单
func scheduleKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("❌ Disable daily stop", actDisableSchedule)),
		backRow(),
	)
}

// statusKeyboard 状态页菜单
func statusKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("🔄 Refresh", actStatus)),
		backRow(),
	)
}
