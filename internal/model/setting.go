package model

import (
	"time"
)

// Setting 系统设置键值表（管理后台读写）

type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"type:varchar(64);not null;uniqueIndex;comment:设置键"`
	Value     string    `gorm:"type:text;comment:设置值"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (Setting) TableName() string { return "setting" }
