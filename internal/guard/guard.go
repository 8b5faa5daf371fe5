// Package guard decides whether a search-group registration may proceed.
//
// Rules are applied in a fixed order: rate limit, capacity, duplicate. The
// super-admin is exempt from the first two.
package guard

import (
	"fmt"
	"time"
)

// 拒绝原因
const (
	ReasonNone      = ""
	ReasonCooldown  = "cooldown"
	ReasonCapacity  = "capacity"
	ReasonDuplicate = "duplicate"
)

// Policy 登记限制参数
type Policy struct {
	Cooldown  time.Duration
	MaxGroups int
}

// DefaultPolicy 默认限制：60 分钟冷却，最多 100 个监听群
func DefaultPolicy() Policy {
	return Policy{Cooldown: 60 * time.Minute, MaxGroups: 100}
}

// Attempt 一次登记尝试时的状态快照
type Attempt struct {
	SuperAdmin  bool
	LastAddedAt *time.Time // nil 表示从未成功登记
	GroupCount  int64
	Duplicate   bool // 已存在相同 (admin_id, group_id)
	Now         time.Time
}

// Decision 检查结果
type Decision struct {
	Allowed bool
	Reason  string
	Message string
}

// Check 按顺序应用规则
func (p Policy) Check(a Attempt) Decision {
	if !a.SuperAdmin && a.LastAddedAt != nil {
		elapsed := a.Now.Sub(*a.LastAddedAt)
		if elapsed < p.Cooldown {
			wait := p.Cooldown - elapsed
			return Decision{
				Reason:  ReasonCooldown,
				Message: fmt.Sprintf("⏳ You can add one search group per %d minutes. Try again in %d min.", int(p.Cooldown.Minutes()), minutesCeil(wait)),
			}
		}
	}

	if !a.SuperAdmin && a.GroupCount >= int64(p.MaxGroups) {
		return Decision{
			Reason:  ReasonCapacity,
			Message: fmt.Sprintf("❌ Limit reached! At most %d search groups can be added.", p.MaxGroups),
		}
	}

	if a.Duplicate {
		return Decision{
			Reason:  ReasonDuplicate,
			Message: "❌ This group has already been added!",
		}
	}

	return Decision{Allowed: true, Message: "✅ Search group added"}
}

func minutesCeil(d time.Duration) int {
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}
