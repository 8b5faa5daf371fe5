package service

import (
	"errors"
	"fmt"
	"time"

	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/guard"
	"keyword-alert-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmptyGroupRef 群组 ID 和链接均为空
var ErrEmptyGroupRef = errors.New("group id or link is required")

// WatchCandidate 某个监听群的一个监听者及其关键词和通知目的地
type WatchCandidate struct {
	AdminID        int64
	Keywords       []models.Keyword
	PrivateGroupID *int64
}

// GroupService 私有群与监听群服务
type GroupService struct {
	db     *database.DB
	policy guard.Policy
	nowFn  func() time.Time
}

// NewGroupService 创建群组服务
func NewGroupService(db *database.DB, policy guard.Policy, nowFn func() time.Time) *GroupService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GroupService{db: db, policy: policy, nowFn: nowFn}
}

// UpsertPrivateGroup 设置管理员的私有通知群（替换旧记录）
func (s *GroupService) UpsertPrivateGroup(adminID int64, ref models.GroupRef) error {
	if ref.GroupID == nil && ref.GroupLink == nil {
		return ErrEmptyGroupRef
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("admin_id = ?", adminID).Delete(&models.PrivateGroup{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PrivateGroup{
			AdminID:   adminID,
			GroupID:   ref.GroupID,
			GroupLink: ref.GroupLink,
			GroupName: ref.GroupName,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("upsert private group: %w", err)
	}

	logrus.WithField("管理员ID", adminID).Info("✅ 私有通知群已更新")
	return nil
}

// GetPrivateGroup 获取私有通知群，不存在时返回 nil
func (s *GroupService) GetPrivateGroup(adminID int64) (*models.PrivateGroup, error) {
	var group models.PrivateGroup
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Where("admin_id = ?", adminID).First(&group).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// RemovePrivateGroup 删除私有通知群
func (s *GroupService) RemovePrivateGroup(adminID int64) error {
	return s.db.Do(func(tx *gorm.DB) error {
		return tx.Where("admin_id = ?", adminID).Delete(&models.PrivateGroup{}).Error
	})
}

// AddSearchGroup 登记监听群
//
// 限流、容量、重复检查与插入在同一事务中完成，被拒绝的尝试不会占用限流额度。
// ok=false 表示规则拒绝（正常流程），error 仅表示存储故障。
func (s *GroupService) AddSearchGroup(adminID int64, actorIsSuperAdmin bool, ref models.GroupRef) (bool, string, error) {
	if ref.GroupID == nil && ref.GroupLink == nil {
		return false, "❌ Invalid group ID or link!", nil
	}

	var decision guard.Decision
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.nowFn()
		attempt := guard.Attempt{SuperAdmin: actorIsSuperAdmin, Now: now}

		var mark models.RateLimitMark
		err := tx.Where("admin_id = ?", adminID).First(&mark).Error
		switch {
		case err == nil:
			attempt.LastAddedAt = &mark.LastAddedAt
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Model(&models.SearchGroup{}).Where("admin_id = ?", adminID).Count(&attempt.GroupCount).Error; err != nil {
			return err
		}

		if ref.GroupID != nil {
			var dup int64
			if err := tx.Model(&models.SearchGroup{}).
				Where("admin_id = ? AND group_id = ?", adminID, *ref.GroupID).
				Count(&dup).Error; err != nil {
				return err
			}
			attempt.Duplicate = dup > 0
		}

		decision = s.policy.Check(attempt)
		if !decision.Allowed {
			return nil
		}

		if err := tx.Create(&models.SearchGroup{
			AdminID:   adminID,
			GroupID:   ref.GroupID,
			GroupLink: ref.GroupLink,
			GroupName: ref.GroupName,
		}).Error; err != nil {
			return err
		}

		if actorIsSuperAdmin {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "admin_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_added_at"}),
		}).Create(&models.RateLimitMark{AdminID: adminID, LastAddedAt: now}).Error
	})
	if err != nil {
		return false, "", fmt.Errorf("add search group: %w", err)
	}

	fields := logrus.Fields{
		"管理员ID": adminID,
		"超级管理员": actorIsSuperAdmin,
	}
	if decision.Allowed {
		logrus.WithFields(fields).Info("✅ 已添加监听群")
	} else {
		fields["原因"] = decision.Reason
		logrus.WithFields(fields).Info("ℹ️ 监听群登记被拒绝")
	}
	return decision.Allowed, decision.Message, nil
}

// GetSearchGroups 获取管理员的监听群（最新在前）
func (s *GroupService) GetSearchGroups(adminID int64) ([]models.SearchGroup, error) {
	var groups []models.SearchGroup
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Where("admin_id = ?", adminID).
			Order("created_at DESC").
			Order("id DESC").
			Find(&groups).Error
	})
	return groups, err
}

// SearchGroupCount 管理员已登记的监听群数量
func (s *GroupService) SearchGroupCount(adminID int64) (int64, error) {
	var count int64
	err := s.db.Do(func(tx *gorm.DB) error {
		return tx.Model(&models.SearchGroup{}).Where("admin_id = ?", adminID).Count(&count).Error
	})
	return count, err
}

// RemoveSearchGroup 删除管理员名下的一条监听群记录
func (s *GroupService) RemoveSearchGroup(adminID, rowID int64) (bool, error) {
	var affected int64
	err := s.db.Do(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND admin_id = ?", rowID, adminID).Delete(&models.SearchGroup{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

// WatchCandidates 查找监听 groupID 的管理员及其关键词和私有群
//
// 在一次加锁中完成，调用方看到的是同一时刻的存储状态。没有监听者时只执行一次查询。
func (s *GroupService) WatchCandidates(groupID int64) ([]WatchCandidate, error) {
	var candidates []WatchCandidate
	err := s.db.Do(func(tx *gorm.DB) error {
		var adminIDs []int64
		if err := tx.Model(&models.SearchGroup{}).
			Where("group_id = ?", groupID).
			Distinct().
			Order("admin_id").
			Pluck("admin_id", &adminIDs).Error; err != nil {
			return err
		}
		if len(adminIDs) == 0 {
			return nil
		}

		var keywords []models.Keyword
		if err := tx.Where("admin_id IN ?", adminIDs).Order("id").Find(&keywords).Error; err != nil {
			return err
		}

		var privateGroups []models.PrivateGroup
		if err := tx.Where("admin_id IN ?", adminIDs).Find(&privateGroups).Error; err != nil {
			return err
		}

		byAdmin := make(map[int64][]models.Keyword, len(adminIDs))
		for _, kw := range keywords {
			byAdmin[kw.AdminID] = append(byAdmin[kw.AdminID], kw)
		}
		destinations := make(map[int64]*int64, len(privateGroups))
		for _, pg := range privateGroups {
			destinations[pg.AdminID] = pg.GroupID
		}

		candidates = make([]WatchCandidate, 0, len(adminIDs))
		for _, id := range adminIDs {
			candidates = append(candidates, WatchCandidate{
				AdminID:        id,
				Keywords:       byAdmin[id],
				PrivateGroupID: destinations[id],
			})
		}
		return nil
	})
	return candidates, err
}

// PurgeRateLimitMarks 删除早于 before 的限流记录（已不影响判定）
func (s *GroupService) PurgeRateLimitMarks(before time.Time) (int64, error) {
	var affected int64
	err := s.db.Do(func(tx *gorm.DB) error {
		res := tx.Where("last_added_at < ?", before).Delete(&models.RateLimitMark{})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// Policy 当前登记限制
func (s *GroupService) Policy() guard.Policy {
	return s.policy
}
