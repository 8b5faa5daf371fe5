package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// InitLogger 初始化日志系统（同时输出到控制台和文件，保留7天）
func InitLogger(logDir, logLevel string) error {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	// 配置日志轮转
	logFile := filepath.Join(logDir, "bot_%Y%m%d.log")
	writer, err := rotatelogs.New(
		logFile,
		rotatelogs.WithMaxAge(7*24*time.Hour),                            // 保留7天
		rotatelogs.WithRotationTime(24*time.Hour),                        // 每天轮转
		rotatelogs.WithLinkName(filepath.Join(logDir, "bot_latest.log")), // 创建软链接指向最新日志
	)
	if err != nil {
		return err
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
		PadLevelText:    true,
	})

	logrus.SetOutput(io.MultiWriter(os.Stdout, writer))

	// 环境变量优先于配置文件
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logLevel = env
	}
	logrus.SetLevel(ParseLogLevel(logLevel))

	logrus.WithFields(logrus.Fields{
		"日志目录": logDir,
		"保留天数": 7,
		"日志级别": logrus.GetLevel().String(),
	}).Info("✅ 日志系统初始化完成")

	return nil
}

// ParseLogLevel 解析日志级别，无法识别时回退为 info
func ParseLogLevel(level string) logrus.Level {
	if level == "" {
		return logrus.InfoLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
