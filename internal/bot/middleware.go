package bot

import (
	"keyword-alert-bot/internal/config"
	"keyword-alert-bot/internal/service"

	"github.com/sirupsen/logrus"
)

// Role 用户在配置界面中的身份
type Role int

const (
	RoleStranger Role = iota
	RoleAdmin
	RoleSuperAdmin
)

// PermissionChecker 权限检查器
type PermissionChecker struct {
	cfg          *config.Config
	adminService *service.AdminService
}

// NewPermissionChecker 创建权限检查器
func NewPermissionChecker(cfg *config.Config, adminService *service.AdminService) *PermissionChecker {
	return &PermissionChecker{
		cfg:          cfg,
		adminService: adminService,
	}
}

// RoleOf 获取用户身份，查询失败时按陌生用户处理
func (p *PermissionChecker) RoleOf(userID int64) Role {
	if p.cfg.Telegram.IsSuperAdmin(userID) {
		return RoleSuperAdmin
	}

	isAdmin, err := p.adminService.IsAdmin(userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"用户ID": userID,
			"错误":   err,
		}).Error("❌ 管理员查询失败")
		return RoleStranger
	}
	if isAdmin {
		return RoleAdmin
	}
	return RoleStranger
}

// IsSuperAdmin 检查是否为超级管理员
func (p *PermissionChecker) IsSuperAdmin(userID int64) bool {
	return p.cfg.Telegram.IsSuperAdmin(userID)
}
