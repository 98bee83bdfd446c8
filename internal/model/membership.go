package model

import (
	"time"
)

// 成员角色
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleMember     = "member"
	RoleSubscriber = "subscriber"
)

// Membership 会话成员关系（授权依据）
// 唯一索引保证同一会话同一用户至多一条记录

type Membership struct {
	ID             uint      `gorm:"primaryKey"`
	ConversationID uint      `gorm:"not null;uniqueIndex:idx_conv_user;index;comment:会话ID"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_conv_user;index;comment:用户ID"`
	Role           string    `gorm:"type:varchar(32);default:'member';comment:角色"`
	CreatedAt      time.Time `gorm:"comment:加入时间"`
}

func (Membership) TableName() string { return "membership" }
