package utils

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 按聊天限制发送速率（每秒最多 maxRate 条）
type RateLimiter struct {
	limiters map[int64]*chatLimiter
	mu       sync.Mutex
	maxRate  int
	nowFn    func() time.Time
}

type chatLimiter struct {
	tokens    int
	lastReset time.Time
	mu        sync.Mutex
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(maxRate int) *RateLimiter {
	if maxRate <= 0 {
		maxRate = 1
	}
	return &RateLimiter{
		limiters: make(map[int64]*chatLimiter),
		maxRate:  maxRate,
		nowFn:    time.Now,
	}
}

// Allow 检查是否允许向 chatID 发送
func (r *RateLimiter) Allow(chatID int64) bool {
	now := r.nowFn()

	r.mu.Lock()
	limiter, exists := r.limiters[chatID]
	if !exists {
		limiter = &chatLimiter{
			tokens:    r.maxRate,
			lastReset: now,
		}
		r.limiters[chatID] = limiter
	}
	r.mu.Unlock()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	if now.Sub(limiter.lastReset) >= time.Second {
		limiter.tokens = r.maxRate
		limiter.lastReset = now
	}

	if limiter.tokens > 0 {
		limiter.tokens--
		return true
	}

	return false
}

// Wait 等待直到可以发送，ctx 取消时提前返回错误
func (r *RateLimiter) Wait(ctx context.Context, chatID int64) error {
	for !r.Allow(chatID) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}

// CleanupOldLimiters 清理 5 分钟未使用的限制器，返回清理数量
func (r *RateLimiter) CleanupOldLimiters() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFn()
	removed := 0
	for chatID, limiter := range r.limiters {
		limiter.mu.Lock()
		if now.Sub(limiter.lastReset) > 5*time.Minute {
			delete(r.limiters, chatID)
			removed++
		}
		limiter.mu.Unlock()
	}
	return removed
}

// Size 当前跟踪的聊天数
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
