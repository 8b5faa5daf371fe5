package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// LinkGroupName 通过链接添加的群组显示名
const LinkGroupName = "Group via link"

var (
	errInvalidGroup    = errors.New("❌ Invalid group ID or link!")
	errInvalidAdminID  = errors.New("❌ Invalid ID!")
	errInvalidSchedule = errors.New("❌ Invalid format! Example: 00:00:02:00")
)

// ParseGroupInput 解析群组输入：http 开头为链接，否则为数字 ID
func ParseGroupInput(text string) (models.GroupRef, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "http") {
		link := text
		name := LinkGroupName
		return models.GroupRef{GroupLink: &link, GroupName: &name}, nil
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id == 0 {
		return models.GroupRef{}, errInvalidGroup
	}
	return models.GroupRef{GroupID: &id}, nil
}

// ParseAdminID 解析管理员用户 ID
func ParseAdminID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidAdminID
	}
	return id, nil
}

// ScheduleInput 调度设置输入
type ScheduleInput struct {
	Disable bool
	Stop    utils.Clock
	Start   utils.Clock
}

// ParseScheduleInput 解析 "off" 或 "HH:MM:HH:MM"（停止:启动）
func ParseScheduleInput(text string) (ScheduleInput, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "off") {
		return ScheduleInput{Disable: true}, nil
	}

	stop, start, err := utils.ParseScheduleWindow(text)
	if err != nil {
		return ScheduleInput{}, fmt.Errorf("%w (%v)", errInvalidSchedule, err)
	}
	return ScheduleInput{Stop: stop, Start: start}, nil
}

// parseCallbackData 解析 menu:<action>[:<id>]
func parseCallbackData(data string) (action string, id int64, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] != callbackScope {
		return "", 0, false
	}
	if len(parts) == 3 {
		v, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return "", 0, false
		}
		id = v
	}
	return parts[1], id, true
}

// GetUserInfo 获取用户信息
func GetUserInfo(user *tgbotapi.User) (username, fullName string) {
	username = user.UserName
	fullName = user.FirstName
	if user.LastName != "" {
		fullName += " " + user.LastName
	}
	return
}

// GetChatTitle 获取聊天标题
func GetChatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.UserName != "" {
		return chat.UserName
	}
	if chat.FirstName != "" {
		return chat.FirstName
	}
	return ""
}
