package models

import (
	"fmt"
	"time"
)

// PrivateGroup 私有通知群表（每个管理员最多一条）
type PrivateGroup struct {
	AdminID   int64     `gorm:"primaryKey;autoIncrement:false" json:"admin_id"`
	GroupID   *int64    `json:"group_id"`
	GroupLink *string   `gorm:"type:varchar(512)" json:"group_link"`
	GroupName *string   `gorm:"type:varchar(255)" json:"group_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (PrivateGroup) TableName() string {
	return "private_groups"
}

// Name 返回展示用名称
func (p *PrivateGroup) Name() string {
	return displayName(p.GroupName, p.GroupID, p.GroupLink)
}

// SearchGroup 监听群表（普通管理员最多 100 条）
type SearchGroup struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminID   int64     `gorm:"index;not null" json:"admin_id"`
	GroupID   *int64    `gorm:"index" json:"group_id"`
	GroupLink *string   `gorm:"type:varchar(512)" json:"group_link"`
	GroupName *string   `gorm:"type:varchar(255)" json:"group_name"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (SearchGroup) TableName() string {
	return "search_groups"
}

// Name 返回展示用名称
func (s *SearchGroup) Name() string {
	return displayName(s.GroupName, s.GroupID, s.GroupLink)
}

// GroupRef 群组引用（ID 或链接二选一）
type GroupRef struct {
	GroupID   *int64
	GroupLink *string
	GroupName *string
}

func displayName(name *string, id *int64, link *string) string {
	switch {
	case name != nil && *name != "":
		return *name
	case id != nil:
		return fmt.Sprintf("Group %d", *id)
	case link != nil:
		return *link
	}
	return "Unknown group"
}
