package repository

import (
	"errors"

	"nexchat/internal/model"
	"nexchat/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 系统设置键值仓储（管理后台读写）
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建SettingRepository实例
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 读取设置值
func (r *SettingRepository) Get(key string) (string, error) {
	var s model.Setting
	if err := r.db.Where("`key` = ?", key).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFoundf("设置不存在")
		}
		return "", err
	}
	return s.Value, nil
}

// Set 写入设置值（upsert语义）
func (r *SettingRepository) Set(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model.Setting{Key: key, Value: value}).Error
}

// All 读取全部设置
func (r *SettingRepository) All() ([]*model.Setting, error) {
	var settings []*model.Setting
	err := r.db.Order("`key` ASC").Find(&settings).Error
	return settings, err
}
