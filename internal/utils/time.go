package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock 一天中的时刻（HH:MM）
type Clock struct {
	Hour   int
	Minute int
}

// String 格式化为 HH:MM
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock 解析 HH:MM 格式的时刻，允许省略前导零
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time format: %q (use HH:MM)", s)
	}
	return clockFromParts(parts[0], parts[1])
}

func clockFromParts(hs, ms string) (Clock, error) {
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid hour: %q", hs)
	}
	m, err := strconv.Atoi(strings.TrimSpace(ms))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid minute: %q", ms)
	}
	if h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("hour out of range: %d", h)
	}
	if m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("minute out of range: %d", m)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// ParseScheduleWindow 解析 "HH:MM:HH:MM"（停止时刻:启动时刻）
func ParseScheduleWindow(s string) (stop Clock, start Clock, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return Clock{}, Clock{}, fmt.Errorf("invalid schedule format: %q (example 00:00:02:00)", s)
	}
	if stop, err = clockFromParts(parts[0], parts[1]); err != nil {
		return Clock{}, Clock{}, err
	}
	if start, err = clockFromParts(parts[2], parts[3]); err != nil {
		return Clock{}, Clock{}, err
	}
	return stop, start, nil
}

// NextOccurrence 返回严格晚于 after 的下一个 clock 时刻（同一时区）
func NextOccurrence(after time.Time, c Clock) time.Time {
	t := time.Date(after.Year(), after.Month(), after.Day(), c.Hour, c.Minute, 0, 0, after.Location())
	if !t.After(after) {
		t = time.Date(after.Year(), after.Month(), after.Day()+1, c.Hour, c.Minute, 0, 0, after.Location())
	}
	return t
}

// FormatHoursMinutes 格式化时长为 "X h Y min"
func FormatHoursMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%d h %d min", hours, minutes)
}

// FormatTimestamp 格式化时间戳
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
