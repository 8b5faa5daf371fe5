package service

import (
	"errors"
	"fmt"

	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminService 管理员服务
type AdminService struct {
	db           *database.DB
	superAdminID int64
}

// NewAdminService 创建管理员服务
func NewAdminService(db *database.DB, superAdminID int64) *AdminService {
	return &AdminService{db: db, superAdminID: superAdminID}
}

// IsSuperAdmin 检查是否为超级管理员
func (s *AdminService) IsSuperAdmin(userID int64) bool {
	return s.superAdminID != 0 && userID == s.superAdminID
}

// IsAdmin 超级管理员或已登记的管理员
func (s *AdminService) IsAdmin(userID int64) (bool, error) {
	if s.IsSuperAdmin(userID) {
		return true, nil
	}

	var count int64
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Model(&models.Admin{}).Where("user_id = ?", userID).Count(&count).Error
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddAdmin 添加管理员，已存在时返回 false
func (s *AdminService) AddAdmin(userID int64, displayName string) (bool, error) {
	added := false
	err := s.db.Do(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Admin{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		admin := &models.Admin{
			UserID:      userID,
			DisplayName: utils.SafeDisplayName(displayName),
		}
		if err := tx.Create(admin).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("add admin %d: %w", userID, err)
	}

	if added {
		logrus.WithFields(logrus.Fields{
			"用户ID": userID,
			"名称":   displayName,
		}).Info("✅ 已添加管理员")
	}
	return added, nil
}

// RemoveAdmin 删除管理员及其关键词、私有群、监听群和限流记录
func (s *AdminService) RemoveAdmin(userID int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("admin_id = ?", userID).Delete(&models.Keyword{}).Error; err != nil {
			return err
		}
		if err := tx.Where("admin_id = ?", userID).Delete(&models.SearchGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Where("admin_id = ?", userID).Delete(&models.PrivateGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Where("admin_id = ?", userID).Delete(&models.RateLimitMark{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Admin{}).Error
	})
	if err != nil {
		return fmt.Errorf("remove admin %d: %w", userID, err)
	}

	logrus.WithField("用户ID", userID).Info("🗑️ 已删除管理员及其全部数据")
	return nil
}

// GetAllAdmins 获取所有管理员（最新在前）
func (s *AdminService) GetAllAdmins() ([]models.Admin, error) {
	var admins []models.Admin
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Order("created_at DESC").Order("id DESC").Find(&admins).Error
	})
	return admins, err
}

// GetAdmin 获取指定管理员，不存在时返回 nil
func (s *AdminService) GetAdmin(userID int64) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Where("user_id = ?", userID).First(&admin).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}
