package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"keyword-alert-bot/internal/service"
	"keyword-alert-bot/internal/utils"

	"github.com/sirupsen/logrus"
)

// State 监听会话的调度状态
type State int

const (
	StateStarting State = iota
	StateDisabled
	StateRunning
	StateSuspended
	StateBackoff
)

// String 状态名称
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "DISABLED"
	case StateRunning:
		return "RUNNING"
	case StateSuspended:
		return "SUSPENDED"
	case StateBackoff:
		return "BACKOFF"
	}
	return "STARTING"
}

// defaultRestartDelay 会话提前结束后重连前的等待，让旧连接上仍在进行的长轮询先结束
const defaultRestartDelay = 5 * time.Second

// ScheduleReader 读取每日启停配置
type ScheduleReader interface {
	Schedule() (service.ScheduleSettings, error)
}

// SessionRunner 一次监听会话，ctx 结束时返回
type SessionRunner interface {
	Run(ctx context.Context) error
}

// DutyCycle 按每日时间窗启停监听会话
//
// 每轮开始时重新读取配置；会话出错后等待 backoff 再从头决策。
type DutyCycle struct {
	settings     ScheduleReader
	session      SessionRunner
	backoff      time.Duration
	restartDelay time.Duration

	nowFn      func() time.Time
	sleepFn    func(ctx context.Context, d time.Duration) error
	deadlineFn func(ctx context.Context, at time.Time) (context.Context, context.CancelFunc)

	mu         sync.RWMutex
	state      State
	transition time.Time
}

// NewDutyCycle 创建调度循环，loc 为启停时刻所在时区
func NewDutyCycle(settings ScheduleReader, session SessionRunner, backoff time.Duration, loc *time.Location) *DutyCycle {
	if backoff <= 0 {
		backoff = 5 * time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	return &DutyCycle{
		settings:     settings,
		session:      session,
		backoff:      backoff,
		restartDelay: defaultRestartDelay,
		nowFn:        func() time.Time { return time.Now().In(loc) },
		sleepFn:      sleepContext,
		deadlineFn:   context.WithDeadline,
	}
}

// Status 当前状态及下一次切换时间（DISABLED 时为零值）
func (d *DutyCycle) Status() (State, time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state, d.transition
}

func (d *DutyCycle) setState(s State, next time.Time) {
	d.mu.Lock()
	d.state = s
	d.transition = next
	d.mu.Unlock()
}

// Run 运行调度循环直到 ctx 结束
func (d *DutyCycle) Run(ctx context.Context) {
	logrus.Info("⏰ 监听调度已启动")
	for ctx.Err() == nil {
		err := d.cycle(ctx)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			continue
		}

		d.setState(StateBackoff, d.nowFn().Add(d.backoff))
		logrus.WithFields(logrus.Fields{
			"错误":   err,
			"重试间隔": d.backoff,
		}).Error("❌ 监听会话异常，稍后重试")
		if d.sleepFn(ctx, d.backoff) != nil {
			break
		}
	}
	logrus.Info("🛑 监听调度已停止")
}

// cycle 执行一轮决策：读取配置、运行会话、必要时休眠到启动时刻
func (d *DutyCycle) cycle(ctx context.Context) error {
	sched, err := d.settings.Schedule()
	if err != nil {
		return fmt.Errorf("read schedule: %w", err)
	}

	if !sched.Enabled {
		d.setState(StateDisabled, time.Time{})
		logrus.Info("⏰ 每日启停已关闭，监听 7x24 运行")
		if err := d.session.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("monitor session: %w", err)
		}
		if ctx.Err() == nil {
			logrus.WithField("等待", d.restartDelay).Warn("⚠️ 监听会话意外结束，稍后重启")
			_ = d.sleepFn(ctx, d.restartDelay)
		}
		return nil
	}

	now := d.nowFn()
	stopAt := utils.NextOccurrence(now, sched.Stop)
	d.setState(StateRunning, stopAt)
	logrus.WithFields(logrus.Fields{
		"停止时刻": sched.Stop.String(),
		"剩余":   utils.FormatHoursMinutes(stopAt.Sub(now)),
	}).Info("▶️ 监听会话运行中")

	runCtx, cancel := d.deadlineFn(ctx, stopAt)
	err = d.session.Run(runCtx)
	reachedStop := errors.Is(runCtx.Err(), context.DeadlineExceeded) || !d.nowFn().Before(stopAt)
	cancel()

	if ctx.Err() != nil {
		return nil
	}
	if !reachedStop {
		if err != nil {
			return fmt.Errorf("monitor session: %w", err)
		}
		logrus.WithField("等待", d.restartDelay).Warn("⚠️ 监听会话在停止时刻前结束，重新决策")
		_ = d.sleepFn(ctx, d.restartDelay)
		return nil
	}

	startAt := utils.NextOccurrence(stopAt, sched.Start)
	d.setState(StateSuspended, startAt)
	wait := startAt.Sub(d.nowFn())
	logrus.WithFields(logrus.Fields{
		"时间窗":  fmt.Sprintf("%s - %s", sched.Stop, sched.Start),
		"休眠时长": utils.FormatHoursMinutes(wait),
	}).Info("🌙 到达停止时刻，监听会话已暂停")

	if err := d.sleepFn(ctx, wait); err != nil {
		return nil
	}
	logrus.WithField("启动时刻", sched.Start.String()).Info("🌅 到达启动时刻，恢复监听")
	return nil
}

// sleepContext 休眠 d，ctx 结束时提前返回
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
