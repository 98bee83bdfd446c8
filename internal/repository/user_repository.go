package repository

import (
	"errors"
	"time"

	"nexchat/internal/model"
	"nexchat/pkg/apperr"

	"gorm.io/gorm"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(user *model.User) error {
	err := r.db.Create(user).Error
	if err != nil && isDuplicateErr(err) {
		return apperr.Conflictf("用户名已存在")
	}
	return err
}

// GetByID 根据ID获取用户
func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var u model.User
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("用户不存在")
		}
		return nil, err
	}
	return &u, nil
}

// GetByUsername 根据用户名获取用户
func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	var u model.User
	if err := r.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("用户不存在")
		}
		return nil, err
	}
	return &u, nil
}

// SetStatus 更新用户状态与最近在线时间
func (r *UserRepository) SetStatus(userID uint, status string, lastSeen time.Time) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"status": status, "last_seen": lastSeen}).Error
}

// UpdateProfile 更新资料字段（昵称/头像/简介）
func (r *UserRepository) UpdateProfile(userID uint, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}

// Delete 注销账号
// 事务内：删除成员关系、作者引用置空、拉黑关系清理、软删除用户
func (r *UserRepository) Delete(userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Membership{}).Error; err != nil {
			return err
		}
		// 历史消息保留，作者引用置空
		if err := tx.Model(&model.Message{}).
			Where("author_id = ?", userID).
			Update("author_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("blocker_id = ? OR blocked_id = ?", userID, userID).
			Delete(&model.Block{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, userID).Error
	})
}

// List 用户列表（管理后台用）
func (r *UserRepository) List(limit, offset int) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

// Count 用户总数
func (r *UserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Count(&count).Error
	return count, err
}
