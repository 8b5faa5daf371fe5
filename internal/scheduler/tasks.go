package scheduler

import (
	"time"

	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RateMarkPurger 清理过期的限流记录
type RateMarkPurger interface {
	PurgeRateLimitMarks(before time.Time) (int64, error)
}

// Scheduler 定时维护任务调度器
type Scheduler struct {
	cron        *cron.Cron
	db          *database.DB
	sessions    *cache.SessionCache
	rateLimiter *utils.RateLimiter
	marks       RateMarkPurger
	cooldown    time.Duration
	nowFn       func() time.Time
}

// NewScheduler 创建调度器
func NewScheduler(db *database.DB,
	sessions *cache.SessionCache,
	rateLimiter *utils.RateLimiter,
	marks RateMarkPurger,
	cooldown time.Duration) *Scheduler {

	return &Scheduler{
		cron:        cron.New(),
		db:          db,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		marks:       marks,
		cooldown:    cooldown,
		nowFn:       time.Now,
	}
}

// Start 启动调度器
func (s *Scheduler) Start(housekeepingInterval string) error {
	// 数据库健康检查
	_, err := s.cron.AddFunc(housekeepingInterval, s.checkDatabaseHealth)
	if err != nil {
		return err
	}

	// 清理会话、限流器和过期限流记录
	_, err = s.cron.AddFunc(housekeepingInterval, func() { s.cleanup() })
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithField("tasks", len(s.cron.Entries())).Debug("Scheduler tasks registered")
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logrus.Info("⏹️  定时任务已停止")
}

// cleanup 清理空闲状态，返回本次清理摘要
func (s *Scheduler) cleanup() logrus.Fields {
	sessions := s.sessions.PurgeExpired()
	limiters := s.rateLimiter.CleanupOldLimiters()

	marks, err := s.marks.PurgeRateLimitMarks(s.nowFn().Add(-s.cooldown))
	if err != nil {
		logrus.Errorf("Failed to purge rate limit marks: %v", err)
	}

	fields := logrus.Fields{
		"会话":    sessions,
		"限流器":   limiters,
		"限流记录":  marks,
		"活跃限流器": s.rateLimiter.Size(),
	}
	for k, v := range s.sessions.GetCacheStatus() {
		fields[k] = v
	}
	logrus.WithFields(fields).Debug("🧹 已清理空闲状态")
	return fields
}

// checkDatabaseHealth 检查数据库连接健康状态
func (s *Scheduler) checkDatabaseHealth() {
	logrus.Debug("🏥 正在检查数据库连接健康状态...")

	if err := s.db.PingWithRetry(3); err != nil {
		logrus.Errorf("❌ 数据库健康检查失败: %v", err)
		return
	}

	logrus.WithField("连接池状态", s.db.Stats()).Debug("✅ 数据库连接正常")
}
