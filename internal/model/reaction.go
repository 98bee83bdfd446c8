package model

import (
	"time"
)

// Reaction 消息表情回应
// 同一用户对同一消息的同一表情至多一条，重复请求视为取消（toggle）

type Reaction struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_msg_user_emoji;index;comment:消息ID"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_msg_user_emoji;comment:用户ID"`
	Emoji     string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_msg_user_emoji;comment:表情"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (Reaction) TableName() string { return "reaction" }
