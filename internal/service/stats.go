package service

import (
	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/models"

	"gorm.io/gorm"
)

// StatsService 统计服务
type StatsService struct {
	db *database.DB
}

// NewStatsService 创建统计服务
func NewStatsService(db *database.DB) *StatsService {
	return &StatsService{db: db}
}

// GetStats 获取各表记录数
func (s *StatsService) GetStats() (models.Stats, error) {
	var stats models.Stats
	err := s.db.Do(func(tx *gorm.DB) error {
		counts := []struct {
			model interface{}
			dst   *int64
		}{
			{&models.Admin{}, &stats.Admins},
			{&models.Keyword{}, &stats.Keywords},
			{&models.SearchGroup{}, &stats.SearchGroups},
			{&models.PrivateGroup{}, &stats.PrivateGroups},
		}
		for _, c := range counts {
			if err := tx.Model(c.model).Count(c.dst).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return stats, err
}
