package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateString 安全截断字符串到指定长度（支持 UTF-8）
// maxLen 是字符数（不是字节数）
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	runes := []rune(s)
	return string(runes[:maxLen])
}

// TruncateWithEllipsis 超长时截断并追加省略号
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return TruncateString(s, maxLen) + "..."
}

// SanitizeString 清理字符串，合并多余空白
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	return strings.Join(strings.Fields(s), " ")
}

// SafeDisplayName 安全处理显示名称，限制长度并清理
func SafeDisplayName(name string) string {
	name = SanitizeString(name)
	return TruncateString(name, 255)
}

// SafeKeyword 安全处理关键词，限制长度
func SafeKeyword(keyword string) string {
	keyword = SanitizeString(keyword)
	return TruncateString(keyword, 255)
}
