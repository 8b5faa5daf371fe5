package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"keyword-alert-bot/internal/bot"
	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/config"
	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/guard"
	"keyword-alert-bot/internal/matcher"
	"keyword-alert-bot/internal/monitor"
	"keyword-alert-bot/internal/scheduler"
	"keyword-alert-bot/internal/service"
	"keyword-alert-bot/internal/utils"

	"github.com/sirupsen/logrus"
)

const sessionTTL = 30 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("❌ 配置文件加载失败: %v", err)
	}

	// 初始化日志
	if err := utils.InitLogger(cfg.System.LogDir, cfg.System.LogLevel); err != nil {
		logrus.Fatalf("❌ 日志系统初始化失败: %v", err)
	}

	printWelcome()

	logrus.Info("========================================")
	logrus.Info("正在启动关键词监听机器人...")
	logrus.Info("========================================")

	// 初始化数据库连接
	logrus.Info("🗄️  正在连接数据库...")
	db, err := database.Open(database.Config{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.Path,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logrus.Fatalf("❌ 数据库连接失败: %v", err)
	}
	logrus.WithField("驱动", cfg.Database.Driver).Info("✅ 数据库连接成功")

	// 自动迁移数据库表结构
	if err := db.AutoMigrate(); err != nil {
		logrus.Fatalf("❌ 表结构同步失败: %v", err)
	}
	logrus.Info("✅ 表结构同步完成")

	policy := guard.Policy{
		Cooldown:  cfg.Registration.Cooldown,
		MaxGroups: cfg.Registration.MaxSearchGroups,
	}
	services := service.NewServices(db, cfg.Telegram.SuperAdminID, policy, time.Now)
	if err := services.Settings.SeedDefaults(); err != nil {
		logrus.Fatalf("❌ 默认设置写入失败: %v", err)
	}

	// 配置界面机器人（同时发送通知）
	logrus.Info("🤖 正在初始化 Telegram 机器人...")
	api, err := bot.NewAPI(cfg.Telegram.BotToken)
	if err != nil {
		logrus.Fatalf("❌ 机器人初始化失败: %v", err)
	}
	limiter := utils.NewRateLimiter(cfg.System.RateLimitPerChat)
	notifications := service.NewNotificationService(api, limiter, cfg.Monitor.MaxMessageLength)

	// 监听会话与调度循环
	engine := matcher.NewEngine(services.Groups)
	relay := monitor.NewRelay(engine, notifications, cfg.Monitor.Workers)
	session := monitor.NewSession(cfg.Monitor.BotToken, cfg.Monitor.PollTimeout, relay, nil)

	loc, err := cfg.System.Location()
	if err != nil {
		logrus.Fatalf("❌ 时区解析失败: %v", err)
	}
	duty := scheduler.NewDutyCycle(services.Settings, session, cfg.Scheduler.ErrorBackoff, loc)

	// 定时维护任务
	sessions := cache.NewSessionCache(sessionTTL)
	sched := scheduler.NewScheduler(db, sessions, limiter, services.Groups, cfg.Registration.Cooldown)
	if err := sched.Start(cfg.Scheduler.HousekeepingInterval); err != nil {
		logrus.Fatalf("❌ 定时任务启动失败: %v", err)
	}

	// 配置机器人所在群的消息同样参与匹配，通知标注 (Bot)
	botRelay := monitor.NewRelay(engine, notifications, cfg.Monitor.Workers).WithVia("Bot")
	botInstance := bot.NewBot(api, cfg, services, notifications, sessions, duty, botRelay)
	logrus.WithFields(logrus.Fields{
		"超级管理员": cfg.Telegram.SuperAdminID,
		"冷却时间":  cfg.Registration.Cooldown,
		"群组上限":  cfg.Registration.MaxSearchGroups,
		"时区":    loc.String(),
	}).Info("✅ 机器人初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go botInstance.Start()

	dutyDone := make(chan struct{})
	go func() {
		defer close(dutyDone)
		duty.Run(ctx)
	}()

	logrus.Info("========================================")
	logrus.Info("✨ 机器人运行中！")
	logrus.Info("🛑 按 Ctrl+C 停止运行")
	logrus.Info("========================================")

	<-ctx.Done()

	logrus.Info("========================================")
	logrus.Info("🛑 收到停止信号，正在关闭...")
	logrus.Info("========================================")

	// 先停止监听会话（会等待在途通知），再停止配置界面
	<-dutyDone
	botInstance.Stop()
	botRelay.Close()
	sched.Stop()
	relay.Close()
	if err := db.Close(); err != nil {
		logrus.Errorf("❌ 关闭数据库失败: %v", err)
	}

	logrus.Info("✅ 机器人已安全停止")
	logrus.Info("👋 再见！")
}

// printWelcome 打印欢迎信息
func printWelcome() {
	welcome := `
╔═══════════════════════════════════════════╗
║                                           ║
║        Telegram 关键词监听机器人           ║
║                                           ║
║           版本: 1.0.0                     ║
║                                           ║
╚═══════════════════════════════════════════╝
`
	logrus.Info(welcome)
}
