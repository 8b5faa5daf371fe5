package models

import (
	"time"
)

// Admin 管理员表（超级管理员不入库，由配置指定）
type Admin struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName string    `gorm:"type:varchar(255)" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
