// Package matcher 将监听群中的一条消息解析为需要通知的 (关键词, 管理员, 私有群) 记录。
//
// 匹配规则为大小写不敏感的子串包含，不做分词和词边界判断："art" 会命中 "smart"。
package matcher

import (
	"fmt"
	"strings"

	"keyword-alert-bot/internal/service"
)

// CandidateSource 提供监听某个群的管理员及其关键词
type CandidateSource interface {
	WatchCandidates(groupID int64) ([]service.WatchCandidate, error)
}

// Match 一条命中记录
type Match struct {
	Keyword        string
	AdminID        int64
	PrivateGroupID *int64
}

// Deliverable 是否有可投递的私有群
func (m Match) Deliverable() bool {
	return m.PrivateGroupID != nil
}

// Engine 关键词匹配引擎
type Engine struct {
	source CandidateSource
}

// NewEngine 创建匹配引擎
func NewEngine(source CandidateSource) *Engine {
	return &Engine{source: source}
}

// CheckKeywordsInMessage 返回 text 在 groupID 中命中的全部记录
//
// 同一管理员的关键词按小写去重，保留最早登记的写法。因此对每个不同的小写关键词 k，
// 当且仅当 k 是小写 text 的子串时产生一条记录："Ish"、"ISH"、"ish" 只产生一条。
func (e *Engine) CheckKeywordsInMessage(groupID int64, text string) ([]Match, error) {
	if text == "" {
		return nil, nil
	}

	candidates, err := e.source.WatchCandidates(groupID)
	if err != nil {
		return nil, fmt.Errorf("load watchers for %d: %w", groupID, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	lowered := strings.ToLower(text)
	var matches []Match
	for _, c := range candidates {
		seen := make(map[string]struct{}, len(c.Keywords))
		for _, kw := range c.Keywords {
			key := strings.ToLower(kw.Text)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if strings.Contains(lowered, key) {
				matches = append(matches, Match{
					Keyword:        kw.Text,
					AdminID:        c.AdminID,
					PrivateGroupID: c.PrivateGroupID,
				})
			}
		}
	}
	return matches, nil
}
