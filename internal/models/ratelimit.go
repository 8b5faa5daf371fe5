package models

import (
	"time"
)

// RateLimitMark 记录管理员最近一次成功添加监听群的时间
type RateLimitMark struct {
	AdminID     int64     `gorm:"primaryKey;autoIncrement:false" json:"admin_id"`
	LastAddedAt time.Time `gorm:"not null" json:"last_added_at"`
}

// TableName 指定表名
func (RateLimitMark) TableName() string {
	return "rate_limit_marks"
}
