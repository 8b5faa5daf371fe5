package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"keyword-alert-bot/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 支持的数据库驱动
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// ErrStorePanic 存储操作内部发生 panic
var ErrStorePanic = errors.New("store operation panicked")

// Config 数据库配置结构
type Config struct {
	Driver          string // sqlite / mysql
	Path            string // SQLite 文件路径
	Host            string // 数据库主机地址
	Port            int    // 数据库端口
	Username        string // 数据库用户名
	Password        string // 数据库密码
	Database        string // 数据库名称
	MaxIdleConns    int    // 最大空闲连接数
	MaxOpenConns    int    // 最大打开连接数
	ConnMaxLifetime int    // 连接最大生命周期（秒）
	ConnMaxIdleTime int    // 空闲连接超时（秒）
}

// DB 数据库句柄
//
// 所有读写都经过同一把互斥锁（单写者模型），嵌入式存储不支持多线程并发写。
type DB struct {
	gorm *gorm.DB
	mu   sync.Mutex
	cfg  Config
}

// Open 打开数据库连接
func Open(cfg Config) (*DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}

	if cfg.Driver == DriverMySQL {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
		if cfg.ConnMaxIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
		} else {
			sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		}
	} else {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"驱动": dialector.Name(),
		"路径": cfg.Path,
	}).Debug("数据库连接已建立")

	return &DB{gorm: db, cfg: cfg}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		if cfg.Path == "" {
			return nil, errors.New("sqlite 数据库路径不能为空")
		}
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
		dsn := cfg.Path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=10s&readTimeout=30s&writeTimeout=30s",
			cfg.Username,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Database,
		)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// AutoMigrate 同步数据库表结构
func (d *DB) AutoMigrate() error {
	tableModels := []interface{}{
		&models.Admin{},         // 管理员表
		&models.Keyword{},       // 关键词表
		&models.PrivateGroup{},  // 私有通知群表
		&models.SearchGroup{},   // 监听群表
		&models.RateLimitMark{}, // 限流记录表
		&models.Setting{},       // 键值配置表
	}

	return d.Do(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(tableModels...); err != nil {
			return fmt.Errorf("数据库表结构迁移失败: %w", err)
		}
		return nil
	})
}

// Do 在全局锁内执行一次存储操作
//
// 无论 fn 返回错误还是 panic，锁都会被释放；panic 被转换为 ErrStorePanic。
func (d *DB) Do(fn func(tx *gorm.DB) error) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("❌ 存储操作发生 panic")
			err = fmt.Errorf("%w: %v", ErrStorePanic, r)
		}
	}()

	return fn(d.gorm)
}

// Transaction 在全局锁内执行一个事务
func (d *DB) Transaction(fn func(tx *gorm.DB) error) error {
	return d.Do(func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

// Ping 数据库健康检查
func (d *DB) Ping() error {
	return d.Do(func(tx *gorm.DB) error {
		sqlDB, err := tx.DB()
		if err != nil {
			return fmt.Errorf("获取数据库实例失败: %w", err)
		}
		return sqlDB.Ping()
	})
}

// PingWithRetry 带重试的数据库健康检查
func (d *DB) PingWithRetry(maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := d.Ping()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * time.Second
			logrus.WithFields(logrus.Fields{
				"重试次数": i + 1,
				"等待时间": waitTime,
			}).Warn("⚠️ 数据库连接失败，正在重试...")
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("数据库连接失败，已重试 %d 次: %w", maxRetries, lastErr)
}

// Stats 获取连接池统计信息
func (d *DB) Stats() string {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return fmt.Sprintf("获取数据库实例失败: %v", err)
	}

	stats := sqlDB.Stats()
	return fmt.Sprintf("打开连接: %d, 使用中: %d, 空闲: %d, 等待: %d",
		stats.OpenConnections,
		stats.InUse,
		stats.Idle,
		stats.WaitCount,
	)
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sqlDB, err := d.gorm.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接失败: %w", err)
	}
	logrus.Info("🔌 正在关闭数据库连接...")
	return sqlDB.Close()
}
