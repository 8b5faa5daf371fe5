package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Monitor      MonitorConfig      `mapstructure:"monitor"`
	Database     DatabaseConfig     `mapstructure:"database"`
	System       SystemConfig       `mapstructure:"system"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Registration RegistrationConfig `mapstructure:"registration"`
}

// TelegramConfig 管理机器人配置
type TelegramConfig struct {
	BotToken     string `mapstructure:"bot_token"`
	SuperAdminID int64  `mapstructure:"super_admin_id"`
}

// IsSuperAdmin 检查用户ID是否为超级管理员
func (t *TelegramConfig) IsSuperAdmin(userID int64) bool {
	return t.SuperAdminID != 0 && t.SuperAdminID == userID
}

// MonitorConfig 监听会话配置
type MonitorConfig struct {
	BotToken         string `mapstructure:"bot_token"`
	PollTimeout      int    `mapstructure:"poll_timeout"`
	Workers          int    `mapstructure:"workers"`
	MaxMessageLength int    `mapstructure:"max_message_length"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel         string `mapstructure:"log_level"`
	LogDir           string `mapstructure:"log_dir"`
	Timezone         string `mapstructure:"timezone"`
	RateLimitPerChat int    `mapstructure:"rate_limit_per_chat"`
}

// Location 解析业务时区
func (s *SystemConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	HousekeepingInterval string        `mapstructure:"housekeeping_interval"`
	ErrorBackoff         time.Duration `mapstructure:"error_backoff"`
}

// RegistrationConfig 监听群登记限制
type RegistrationConfig struct {
	Cooldown        time.Duration `mapstructure:"cooldown"`
	MaxSearchGroups int           `mapstructure:"max_search_groups"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，例如 KWBOT_TELEGRAM_BOT_TOKEN
	v.SetEnvPrefix("KWBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验启动必需的配置项
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required")
	}
	if c.Telegram.SuperAdminID == 0 {
		return errors.New("telegram.super_admin_id is required")
	}
	if c.Monitor.BotToken == "" {
		return errors.New("monitor.bot_token is required")
	}
	if c.Monitor.BotToken == c.Telegram.BotToken {
		return errors.New("monitor.bot_token must differ from telegram.bot_token")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if _, err := c.System.Location(); err != nil {
		return fmt.Errorf("invalid system.timezone: %w", err)
	}
	if c.Registration.MaxSearchGroups <= 0 {
		return errors.New("registration.max_search_groups must be positive")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.poll_timeout", 60)
	v.SetDefault("monitor.workers", 4)
	v.SetDefault("monitor.max_message_length", 500)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/bot_database.db")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 1800)
	v.SetDefault("database.conn_max_idle_time", 600)

	v.SetDefault("system.log_level", "info")
	v.SetDefault("system.log_dir", "logs")
	v.SetDefault("system.timezone", "Local")
	v.SetDefault("system.rate_limit_per_chat", 1)

	v.SetDefault("scheduler.housekeeping_interval", "*/5 * * * *")
	v.SetDefault("scheduler.error_backoff", 5*time.Minute)

	v.SetDefault("registration.cooldown", 60*time.Minute)
	v.SetDefault("registration.max_search_groups", 100)
}
