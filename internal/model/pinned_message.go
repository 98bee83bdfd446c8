package model

import (
	"time"
)

// PinnedMessage 频道置顶消息关联表
// 置顶为toggle语义：已置顶的消息再次置顶即取消

type PinnedMessage struct {
	ID             uint      `gorm:"primaryKey"`
	ConversationID uint      `gorm:"not null;index;uniqueIndex:idx_conv_msg;comment:会话ID"`
	MessageID      uint      `gorm:"not null;uniqueIndex:idx_conv_msg;comment:消息ID"`
	PinnedBy       uint      `gorm:"comment:操作者ID"`
	CreatedAt      time.Time `gorm:"comment:置顶时间"`
}

func (PinnedMessage) TableName() string { return "pinned_message" }
