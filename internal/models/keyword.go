package models

import (
	"time"
)

// Keyword 关键词表（同一管理员允许重复）
type Keyword struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminID   int64     `gorm:"index;not null" json:"admin_id"`
	Text      string    `gorm:"type:varchar(255);not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Keyword) TableName() string {
	return "keywords"
}
