package utils

import (
	"fmt"
	"strings"
)

// KeywordAlert 关键词命中通知的内容
type KeywordAlert struct {
	SourceChatTitle   string
	SenderDisplayName string
	SenderID          int64
	Keyword           string
	Body              string
	Via               string // 非空时标注通知来源，如 "Bot"
}

// FormatUserLink 生成用户资料链接
func FormatUserLink(userID int64) string {
	return fmt.Sprintf("tg://user?id=%d", userID)
}

// EscapeMarkdown 转义 MarkdownV2 特殊字符
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}

// FormatKeywordAlert 格式化关键词命中通知（MarkdownV2）
func FormatKeywordAlert(a KeywordAlert, maxBody int) string {
	body := TruncateWithEllipsis(a.Body, maxBody)

	var sb strings.Builder
	sb.WriteString("🔍 *Keyword found\\!*")
	if a.Via != "" {
		sb.WriteString(" " + EscapeMarkdown("("+a.Via+")"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("📢 *Group*: %s\n", EscapeMarkdown(a.SourceChatTitle)))
	sb.WriteString(fmt.Sprintf("👤 *User*: %s\n", EscapeMarkdown(a.SenderDisplayName)))
	sb.WriteString(fmt.Sprintf("🆔 *User ID*: `%d`\n", a.SenderID))
	sb.WriteString(fmt.Sprintf("🔑 *Keyword*: %s\n\n", EscapeMarkdown(a.Keyword)))
	sb.WriteString("💬 *Message*:\n")
	sb.WriteString(EscapeMarkdown(body))
	return sb.String()
}

// FormatKeywordAlertPlain 格式化关键词命中通知（纯文本，Markdown 发送失败时使用）
func FormatKeywordAlertPlain(a KeywordAlert, maxBody int) string {
	body := TruncateWithEllipsis(a.Body, maxBody)

	var sb strings.Builder
	sb.WriteString("🔍 Keyword found!")
	if a.Via != "" {
		sb.WriteString(" (" + a.Via + ")")
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("📢 Group: %s\n", a.SourceChatTitle))
	sb.WriteString(fmt.Sprintf("👤 User: %s\n", a.SenderDisplayName))
	sb.WriteString(fmt.Sprintf("🆔 User ID: %d\n", a.SenderID))
	sb.WriteString(fmt.Sprintf("🔑 Keyword: %s\n\n", a.Keyword))
	sb.WriteString("💬 Message:\n")
	sb.WriteString(body)
	return sb.String()
}
