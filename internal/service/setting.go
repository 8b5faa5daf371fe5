package service

import (
	"errors"
	"fmt"

	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleSettings 每日启停配置
type ScheduleSettings struct {
	Enabled bool
	Stop    utils.Clock
	Start   utils.Clock
}

// SettingService 键值配置服务
type SettingService struct {
	db *database.DB
}

// NewSettingService 创建配置服务
func NewSettingService(db *database.DB) *SettingService {
	return &SettingService{db: db}
}

// GetSetting 读取配置，不存在时返回 def
func (s *SettingService) GetSetting(key, def string) (string, error) {
	var setting models.Setting
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).First(&setting).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, nil
		}
		return def, err
	}
	return setting.Value, nil
}

// SetSetting 写入配置（不存在时创建）
func (s *SettingService) SetSetting(key, value string) error {
	if key == "" {
		return errors.New("setting key is required")
	}
	return s.db.Do(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&models.Setting{Key: key, Value: value}).Error
	})
}

// SeedDefaults 写入缺失的默认调度配置
func (s *SettingService) SeedDefaults() error {
	defaults := []struct{ key, value string }{
		{models.SettingStopTime, models.DefaultStopTime},
		{models.SettingStartTime, models.DefaultStartTime},
		{models.SettingScheduleEnabled, models.DefaultScheduleEnabled},
	}

	for _, d := range defaults {
		v, err := s.GetSetting(d.key, "")
		if err != nil {
			return fmt.Errorf("read setting %s: %w", d.key, err)
		}
		if v != "" {
			continue
		}
		if err := s.SetSetting(d.key, d.value); err != nil {
			return fmt.Errorf("seed setting %s: %w", d.key, err)
		}
	}
	return nil
}

// Schedule 读取当前调度配置，非法时刻回退为默认值
func (s *SettingService) Schedule() (ScheduleSettings, error) {
	enabled, err := s.GetSetting(models.SettingScheduleEnabled, models.DefaultScheduleEnabled)
	if err != nil {
		return ScheduleSettings{}, err
	}
	stopStr, err := s.GetSetting(models.SettingStopTime, models.DefaultStopTime)
	if err != nil {
		return ScheduleSettings{}, err
	}
	startStr, err := s.GetSetting(models.SettingStartTime, models.DefaultStartTime)
	if err != nil {
		return ScheduleSettings{}, err
	}

	return ScheduleSettings{
		Enabled: enabled == "true",
		Stop:    clockOrDefault(models.SettingStopTime, stopStr, models.DefaultStopTime),
		Start:   clockOrDefault(models.SettingStartTime, startStr, models.DefaultStartTime),
	}, nil
}

// SetSchedule 设置启停时刻并启用调度
func (s *SettingService) SetSchedule(stop, start utils.Clock) error {
	if err := s.SetSetting(models.SettingStopTime, stop.String()); err != nil {
		return err
	}
	if err := s.SetSetting(models.SettingStartTime, start.String()); err != nil {
		return err
	}
	return s.SetSetting(models.SettingScheduleEnabled, "true")
}

// DisableSchedule 关闭每日启停（7x24 运行）
func (s *SettingService) DisableSchedule() error {
	return s.SetSetting(models.SettingScheduleEnabled, "false")
}

func clockOrDefault(key, value, def string) utils.Clock {
	c, err := utils.ParseClock(value)
	if err == nil {
		return c
	}
	logrus.WithFields(logrus.Fields{
		"键":  key,
		"值":  value,
		"默认": def,
	}).Warn("⚠️ 调度时刻格式非法，使用默认值")
	c, _ = utils.ParseClock(def)
	return c
}
