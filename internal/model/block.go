package model

import (
	"time"
)

// Block 拉黑关系（有向：BlockerID 拉黑 BlockedID）
// 唯一索引保证同一方向至多一条记录

type Block struct {
	ID        uint      `gorm:"primaryKey"`
	BlockerID uint      `gorm:"not null;uniqueIndex:idx_blocker_blocked;index;comment:拉黑发起者ID"`
	BlockedID uint      `gorm:"not null;uniqueIndex:idx_blocker_blocked;index;comment:被拉黑者ID"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (Block) TableName() string { return "block" }
