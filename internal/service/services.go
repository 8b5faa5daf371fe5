package service

import (
	"time"

	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/guard"
)

// Services 配置界面与监听会话依赖的全部存储操作
type Services struct {
	Admins   *AdminService
	Keywords *KeywordService
	Groups   *GroupService
	Settings *SettingService
	Stats    *StatsService
}

// NewServices 创建全部服务
func NewServices(db *database.DB, superAdminID int64, policy guard.Policy, nowFn func() time.Time) *Services {
	return &Services{
		Admins:   NewAdminService(db, superAdminID),
		Keywords: NewKeywordService(db),
		Groups:   NewGroupService(db, policy, nowFn),
		Settings: NewSettingService(db),
		Stats:    NewStatsService(db),
	}
}
