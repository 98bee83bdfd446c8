package repository

import (
	"nexchat/internal/model"
	"nexchat/pkg/apperr"

	"gorm.io/gorm"
)

// BlockRepository 拉黑关系仓储
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository 创建BlockRepository实例
func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create 添加拉黑关系（已存在返回Conflict）
func (r *BlockRepository) Create(blockerID, blockedID uint) error {
	b := &model.Block{BlockerID: blockerID, BlockedID: blockedID}
	if err := r.db.Create(b).Error; err != nil {
		if isDuplicateErr(err) {
			return apperr.Conflictf("已拉黑该用户")
		}
		return err
	}
	return nil
}

// Delete 解除拉黑关系
func (r *BlockRepository) Delete(blockerID, blockedID uint) error {
	result := r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundf("未拉黑该用户")
	}
	return nil
}

// Exists 检查指定方向的拉黑是否存在
func (r *BlockRepository) Exists(blockerID, blockedID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// ExistsEither 检查两用户间任一方向的拉黑是否存在（私聊发送前校验）
func (r *BlockRepository) ExistsEither(userA, userB uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}

// ListForUser 用户发起的拉黑列表
func (r *BlockRepository) ListForUser(blockerID uint) ([]*model.Block, error) {
	var blocks []*model.Block
	err := r.db.Where("blocker_id = ?", blockerID).Find(&blocks).Error
	return blocks, err
}
