package models

import (
	"time"
)

// Setting 键值配置表
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}

// Setting keys
const (
	SettingScheduleEnabled = "userbot_schedule_enabled"
	SettingStopTime        = "userbot_stop_time"
	SettingStartTime       = "userbot_start_time"
	SettingLastCheck       = "userbot_last_check"
)

// Setting defaults
const (
	DefaultScheduleEnabled = "true"
	DefaultStopTime        = "00:00"
	DefaultStartTime       = "02:00"
)
