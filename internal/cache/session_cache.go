package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AwaitingInput 用户下一条文本消息的用途
type AwaitingInput int

const (
	AwaitNone AwaitingInput = iota
	AwaitAdminID
	AwaitKeyword
	AwaitPrivateGroup
	AwaitSearchGroup
	AwaitScheduleTime
)

// String 返回日志用名称
func (a AwaitingInput) String() string {
	switch a {
	case AwaitAdminID:
		return "admin_id"
	case AwaitKeyword:
		return "keyword"
	case AwaitPrivateGroup:
		return "private_group"
	case AwaitSearchGroup:
		return "search_group"
	case AwaitScheduleTime:
		return "schedule_time"
	}
	return "none"
}

// SessionContext 单个用户的对话状态
type SessionContext struct {
	UserID   int64
	Awaiting AwaitingInput
	ActingAs int64 // 超级管理员进入的管理员房间，0 表示本人

	updatedAt time.Time
}

// TargetAdmin 当前操作作用的管理员
func (s SessionContext) TargetAdmin() int64 {
	if s.ActingAs != 0 {
		return s.ActingAs
	}
	return s.UserID
}

// SessionCache 按用户保存对话状态，超过 TTL 未活动自动失效
type SessionCache struct {
	sessions map[int64]SessionContext
	mutex    sync.RWMutex
	ttl      time.Duration
	nowFn    func() time.Time
}

// NewSessionCache 创建会话缓存
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logrus.WithField("TTL", ttl).Info("✅ 会话缓存已初始化")
	return &SessionCache{
		sessions: make(map[int64]SessionContext),
		ttl:      ttl,
		nowFn:    time.Now,
	}
}

// Get 获取用户的会话，不存在或已过期时返回空会话
func (c *SessionCache) Get(userID int64) SessionContext {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	s, ok := c.sessions[userID]
	if !ok || c.nowFn().Sub(s.updatedAt) > c.ttl {
		return SessionContext{UserID: userID}
	}
	return s
}

// Save 保存会话并刷新活动时间
func (c *SessionCache) Save(s SessionContext) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s.updatedAt = c.nowFn()
	c.sessions[s.UserID] = s
}

// SetAwaiting 修改等待输入类型，保留其他字段
func (c *SessionCache) SetAwaiting(userID int64, kind AwaitingInput) {
	s := c.Get(userID)
	s.Awaiting = kind
	c.Save(s)
}

// Reset 清除用户会话
func (c *SessionCache) Reset(userID int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.sessions, userID)
}

// PurgeExpired 删除过期会话，返回删除数量
func (c *SessionCache) PurgeExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.nowFn()
	removed := 0
	for id, s := range c.sessions {
		if now.Sub(s.updatedAt) > c.ttl {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// GetCacheStatus 获取缓存状态
func (c *SessionCache) GetCacheStatus() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return map[string]interface{}{
		"会话数": len(c.sessions),
		"TTL": c.ttl.String(),
	}
}
