package monitor

import (
	"context"

	"keyword-alert-bot/internal/matcher"
	"keyword-alert-bot/internal/utils"

	"github.com/sirupsen/logrus"
)

// Matcher 关键词匹配
type Matcher interface {
	CheckKeywordsInMessage(groupID int64, text string) ([]matcher.Match, error)
}

// AlertSender 投递命中通知
type AlertSender interface {
	SendKeywordAlert(ctx context.Context, chatID int64, alert utils.KeywordAlert) error
}

// Relay 把消息交给匹配引擎，并把每条命中投递到对应的私有群
type Relay struct {
	engine Matcher
	sender AlertSender
	pool   *utils.WorkerPool
	via    string
}

// NewRelay 创建转发器，workers 为并发投递数
func NewRelay(engine Matcher, sender AlertSender, workers int) *Relay {
	return &Relay{
		engine: engine,
		sender: sender,
		pool:   utils.NewWorkerPool(workers),
	}
}

// WithVia 设置通知来源标注，用于区分配置机器人自己收到的群消息
func (r *Relay) WithVia(via string) *Relay {
	r.via = via
	return r
}

// Handle 处理一条消息，返回已提交的投递数
//
// 投递在工作池中异步执行，彼此独立；单条失败只记录日志。
func (r *Relay) Handle(ctx context.Context, ev InboundEvent) int {
	if !ev.IsGroupChat || ev.Text == "" {
		return 0
	}

	matches, err := r.engine.CheckKeywordsInMessage(ev.ChatID, ev.Text)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"群组ID": ev.ChatID,
			"错误":   err,
		}).Error("❌ 关键词匹配失败")
		return 0
	}
	if len(matches) == 0 {
		return 0
	}

	logrus.WithFields(logrus.Fields{
		"群组":   ev.ChatTitle,
		"群组ID": ev.ChatID,
		"命中数":  len(matches),
	}).Info("🔍 发现关键词")

	// 已接收消息的投递在会话结束后仍需完成
	deliverCtx := context.WithoutCancel(ctx)

	submitted := 0
	for _, m := range matches {
		if !m.Deliverable() {
			logrus.WithFields(logrus.Fields{
				"管理员ID": m.AdminID,
				"关键词":   m.Keyword,
			}).Debug("ℹ️ 管理员未设置私有群，跳过通知")
			continue
		}

		m := m
		alert := utils.KeywordAlert{
			SourceChatTitle:   ev.ChatTitle,
			SenderDisplayName: ev.SenderDisplayName,
			SenderID:          ev.SenderID,
			Keyword:           m.Keyword,
			Body:              ev.Text,
			Via:               r.via,
		}
		r.pool.Submit(func() {
			r.deliver(deliverCtx, *m.PrivateGroupID, m.AdminID, alert)
		})
		submitted++
	}
	return submitted
}

func (r *Relay) deliver(ctx context.Context, chatID, adminID int64, alert utils.KeywordAlert) {
	if err := r.sender.SendKeywordAlert(ctx, chatID, alert); err != nil {
		logrus.WithFields(logrus.Fields{
			"目标群":   chatID,
			"管理员ID": adminID,
			"关键词":   alert.Keyword,
			"错误":    err,
		}).Error("❌ 通知发送失败")
		return
	}
	logrus.WithFields(logrus.Fields{
		"目标群":   chatID,
		"管理员ID": adminID,
		"关键词":   alert.Keyword,
	}).Info("✅ 通知已发送")
}

// Drain 等待已提交的投递全部完成
func (r *Relay) Drain() {
	r.pool.Wait()
}

// Close 等待投递完成并释放工作池，之后不能再调用 Handle
func (r *Relay) Close() {
	r.pool.Close()
}
