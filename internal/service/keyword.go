package service

import (
	"errors"
	"fmt"

	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/utils"

	"gorm.io/gorm"
)

// ErrEmptyKeyword 关键词为空
var ErrEmptyKeyword = errors.New("keyword is empty")

// KeywordService 关键词服务
type KeywordService struct {
	db *database.DB
}

// NewKeywordService 创建关键词服务
func NewKeywordService(db *database.DB) *KeywordService {
	return &KeywordService{db: db}
}

// AddKeyword 添加关键词（允许重复）
func (s *KeywordService) AddKeyword(adminID int64, text string) (*models.Keyword, error) {
	text = utils.SafeKeyword(text)
	if text == "" {
		return nil, ErrEmptyKeyword
	}

	kw := &models.Keyword{AdminID: adminID, Text: text}
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Create(kw).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add keyword: %w", err)
	}
	return kw, nil
}

// GetKeywords 获取管理员的关键词（最新在前）
func (s *KeywordService) GetKeywords(adminID int64) ([]models.Keyword, error) {
	var keywords []models.Keyword
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Where("admin_id = ?", adminID).
			Order("created_at DESC").
			Order("id DESC").
			Find(&keywords).Error
	})
	return keywords, err
}

// RemoveKeyword 删除管理员名下的关键词，返回是否删除了记录
func (s *KeywordService) RemoveKeyword(adminID, keywordID int64) (bool, error) {
	var affected int64
	err := s.db.Do(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND admin_id = ?", keywordID, adminID).Delete(&models.Keyword{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}
